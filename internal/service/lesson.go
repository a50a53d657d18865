// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, authenticates, writes responses
//	Service (Business layer) → validates, authorizes, orchestrates
//	Repository (Data layer)  → reads/writes the document store
//
// Services accept primitives and model types, never *http.Request. The
// caller's identity, when an operation needs one, arrives as a plain email
// argument that the handler obtained from auth.Authenticate.
//
// DEPENDENCY INJECTION:
// Every service takes repository interfaces, not *mongo.Store or *sqlite.DB.
// Tests run the same services over an in-memory SQLite store or a fake.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/life-journal/internal/apperror"
	"github.com/sakif/life-journal/internal/guard"
	"github.com/sakif/life-journal/internal/model"
	"github.com/sakif/life-journal/internal/repository"
)

// LessonService handles lessons, their reactions and reports.
type LessonService struct {
	lessons repository.LessonRepository
	reports repository.ReportRepository
	guard   *guard.Guard
	logger  *slog.Logger
}

func NewLessonService(
	lessons repository.LessonRepository,
	reports repository.ReportRepository,
	g *guard.Guard,
	logger *slog.Logger,
) *LessonService {
	return &LessonService{
		lessons: lessons,
		reports: reports,
		guard:   g,
		logger:  logger,
	}
}

// List returns lessons matching filter, newest first. When both category and
// emotionalTone are given a lesson matching either one is returned.
func (s *LessonService) List(ctx context.Context, filter repository.LessonFilter) ([]model.Lesson, error) {
	filter.Email = strings.TrimSpace(filter.Email)
	filter.Category = strings.TrimSpace(filter.Category)
	filter.EmotionalTone = strings.TrimSpace(filter.EmotionalTone)
	filter.Privacy = strings.TrimSpace(filter.Privacy)

	lessons, err := s.lessons.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list lessons", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing lessons: %w", err)
	}
	return lessons, nil
}

// ListPublic is List restricted to public lessons.
func (s *LessonService) ListPublic(ctx context.Context, limit int) ([]model.Lesson, error) {
	return s.List(ctx, repository.LessonFilter{Privacy: model.PrivacyPublic, Limit: limit})
}

// Get returns apperror.ErrValidation for a malformed id and
// apperror.ErrNotFound when no lesson has it.
func (s *LessonService) Get(ctx context.Context, id string) (*model.Lesson, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "lesson ID is required")
	}
	return s.lessons.GetByID(ctx, id)
}

// checkContent rejects an access level outside the known set and extra
// field names the document store cannot hold.
func checkContent(accessLevel string, extra map[string]any) error {
	if !model.ValidAccessLevel(accessLevel) {
		return apperror.ValidationFailed("accessLevel",
			fmt.Sprintf("accessLevel must be %q or %q", model.AccessFree, model.AccessPremium))
	}
	for k := range extra {
		if !model.ValidExtraKey(k) {
			return apperror.ValidationFailed(k, fmt.Sprintf("field name %q is not allowed", k))
		}
	}
	return nil
}

// Create stores the lesson the client sent, unknown fields included. The
// author email comes from the body; it is not taken from a token. Only the
// reaction sets are reset.
func (s *LessonService) Create(ctx context.Context, lesson *model.Lesson) (*model.Lesson, error) {
	if err := checkContent(lesson.AccessLevel, lesson.Extra); err != nil {
		return nil, err
	}

	if err := s.lessons.Create(ctx, lesson); err != nil {
		s.logger.Error("failed to create lesson",
			slog.String("email", lesson.Email),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating lesson: %w", err)
	}

	s.logger.Info("lesson created",
		slog.String("id", lesson.ID),
		slog.String("email", lesson.Email),
	)
	return lesson, nil
}

// Update writes the supplied fields of a lesson and leaves the rest as they
// are. identity must be the author or an admin; a rejected attempt leaves the
// lesson untouched.
func (s *LessonService) Update(ctx context.Context, id, identity string, upd model.LessonUpdate) (*model.Lesson, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "lesson ID is required")
	}
	var accessLevel string
	if upd.AccessLevel != nil {
		accessLevel = *upd.AccessLevel
	}
	if err := checkContent(accessLevel, upd.Extra); err != nil {
		return nil, err
	}

	if _, err := s.guard.OwnerOrAdmin(ctx, id, identity); err != nil {
		return nil, err
	}

	lesson, err := s.lessons.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}

	s.logger.Info("lesson updated",
		slog.String("id", id),
		slog.String("by", identity),
	)
	return lesson, nil
}

// Delete removes a lesson under the same owner-or-admin rule as Update.
// Comments and reports that point at it stay.
func (s *LessonService) Delete(ctx context.Context, id, identity string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "lesson ID is required")
	}

	if _, err := s.guard.OwnerOrAdmin(ctx, id, identity); err != nil {
		return err
	}

	if err := s.lessons.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("lesson deleted",
		slog.String("id", id),
		slog.String("by", identity),
	)
	return nil
}

func (s *LessonService) ToggleLike(ctx context.Context, id, userID string) (*model.ToggleResult, error) {
	return s.toggle(ctx, id, model.ReactionLikes, userID)
}

func (s *LessonService) ToggleFavorite(ctx context.Context, id, userID string) (*model.ToggleResult, error) {
	return s.toggle(ctx, id, model.ReactionFavorites, userID)
}

func (s *LessonService) toggle(ctx context.Context, id string, set model.ReactionSet, userID string) (*model.ToggleResult, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "lesson ID is required")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "userId is required")
	}

	res, err := s.lessons.Toggle(ctx, id, set, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("lesson reaction toggled",
		slog.String("id", id),
		slog.String("set", string(set)),
		slog.Bool("active", res.Active),
	)
	return res, nil
}

// Report files a moderation report. Repeat reports by the same user are kept.
func (s *LessonService) Report(ctx context.Context, lessonID string, report *model.LessonReport) (*model.LessonReport, error) {
	report.LessonID = strings.TrimSpace(lessonID)
	report.ReporterUserID = strings.TrimSpace(report.ReporterUserID)
	report.Reason = strings.TrimSpace(report.Reason)

	if report.LessonID == "" {
		return nil, apperror.ValidationFailed("id", "lesson ID is required")
	}
	if report.ReporterUserID == "" {
		return nil, apperror.ValidationFailed("reporterUserId", "reporterUserId is required")
	}
	if report.Reason == "" {
		return nil, apperror.ValidationFailed("reason", "reason is required")
	}

	if err := s.reports.Create(ctx, report); err != nil {
		s.logger.Error("failed to create report",
			slog.String("lessonId", report.LessonID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating report: %w", err)
	}

	s.logger.Info("lesson reported",
		slog.String("lessonId", report.LessonID),
		slog.String("reporter", report.ReporterUserID),
	)
	return report, nil
}

// Reports lists every report for the admin moderation view.
func (s *LessonService) Reports(ctx context.Context, identity string) ([]model.LessonReport, error) {
	if err := s.guard.AdminOnly(ctx, identity); err != nil {
		return nil, err
	}
	return s.reports.List(ctx)
}
