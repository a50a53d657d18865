// Package repository declares the Resource Store contract. Services depend on
// these interfaces only; internal/repository/mongo and internal/repository/sqlite
// provide the implementations.
//
// Every method is atomic per document. No method spans more than one document
// in a way that needs a multi-document transaction.
package repository

import (
	"context"
	"time"

	"github.com/sakif/life-journal/internal/model"
)

// LessonFilter selects lessons for List and Count.
//
// Category and EmotionalTone are special: when both are set a lesson matches
// if it satisfies EITHER of them. Every other field narrows the result (AND).
// Limit <= 0 means no limit.
type LessonFilter struct {
	Email         string
	Category      string
	EmotionalTone string
	Privacy       string
	FavoritedBy   string
	CreatedSince  time.Time
	Limit         int
}

type LessonRepository interface {
	Create(ctx context.Context, lesson *model.Lesson) error
	GetByID(ctx context.Context, id string) (*model.Lesson, error)
	List(ctx context.Context, filter LessonFilter) ([]model.Lesson, error)
	Update(ctx context.Context, id string, upd model.LessonUpdate) (*model.Lesson, error)
	Delete(ctx context.Context, id string) error
	// Toggle flips identity's membership in the given set and moves the
	// matching counter by one, as a single atomic store operation.
	Toggle(ctx context.Context, id string, set model.ReactionSet, identity string) (*model.ToggleResult, error)
	Count(ctx context.Context, filter LessonFilter) (int64, error)
}

type UserRepository interface {
	// Upsert creates the user if no user has this email, otherwise it only
	// refreshes LastLoggedIn. user is overwritten with the stored record.
	Upsert(ctx context.Context, user *model.User) (created bool, err error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	UpdateRole(ctx context.Context, email, role string) error
	// MarkPaid sets paymentStatus=Paid and role=Premium. Safe to repeat.
	MarkPaid(ctx context.Context, email string) (matched bool, err error)
	// Count counts users; an empty role counts everyone.
	Count(ctx context.Context, role string) (int64, error)
}

type CommentRepository interface {
	Create(ctx context.Context, comment *model.Comment) error
	ListByLesson(ctx context.Context, lessonID string) ([]model.Comment, error)
	Delete(ctx context.Context, id string) error
}

type ReportRepository interface {
	Create(ctx context.Context, report *model.LessonReport) error
	List(ctx context.Context) ([]model.LessonReport, error)
	Count(ctx context.Context) (int64, error)
}

// AnalyticsRepository holds the read-only aggregation queries. Results are
// recomputed on every call.
type AnalyticsRepository interface {
	// TopContributors groups lessons created at or after since by author
	// email, ranks by count (desc, ties by email asc), keeps n and joins the
	// author's display name.
	TopContributors(ctx context.Context, since time.Time, n int) ([]model.Contributor, error)
	// MostFavorited returns up to n lessons with favoritesCount > 0, highest first.
	MostFavorited(ctx context.Context, n int) ([]model.Lesson, error)
}

// Store is the process-wide handle opened at startup and closed at shutdown.
type Store interface {
	Lessons() LessonRepository
	Users() UserRepository
	Comments() CommentRepository
	Reports() ReportRepository
	Analytics() AnalyticsRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
