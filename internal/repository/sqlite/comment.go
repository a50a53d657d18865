package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/life-journal/internal/apperror"
	"github.com/sakif/life-journal/internal/model"
	"github.com/sakif/life-journal/internal/repository"
)

var (
	_ repository.CommentRepository = (*CommentStore)(nil)
	_ repository.ReportRepository  = (*ReportStore)(nil)
)

// CommentStore implements repository.CommentRepository.
type CommentStore struct {
	conn *sql.DB
}

func (s *CommentStore) Create(ctx context.Context, c *model.Comment) error {
	c.ID = newID()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO comments (id, lesson_id, user_id, user_name, user_photo, text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.LessonID, c.UserID, c.UserName, c.UserPhoto, c.Text, toMillis(c.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating comment: %w", err)
	}
	return nil
}

// ListByLesson returns the comments of one lesson, newest first.
func (s *CommentStore) ListByLesson(ctx context.Context, lessonID string) ([]model.Comment, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, lesson_id, user_id, user_name, user_photo, text, created_at
		 FROM comments
		 WHERE lesson_id = ?
		 ORDER BY created_at DESC, id DESC`,
		lessonID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing comments of %s: %w", lessonID, err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var (
			c         model.Comment
			createdAt int64
		)
		if err := rows.Scan(&c.ID, &c.LessonID, &c.UserID, &c.UserName, &c.UserPhoto, &c.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning comment row: %w", err)
		}
		c.CreatedAt = fromMillis(createdAt)
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating comments: %w", err)
	}
	return comments, nil
}

func (s *CommentStore) Delete(ctx context.Context, id string) error {
	if err := checkID("comment", id); err != nil {
		return err
	}

	result, err := s.conn.ExecContext(ctx, `DELETE FROM comments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting comment %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("comment", id)
	}
	return nil
}

// ReportStore implements repository.ReportRepository. Reports are append-only.
type ReportStore struct {
	conn *sql.DB
}

func (s *ReportStore) Create(ctx context.Context, r *model.LessonReport) error {
	r.ID = newID()
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}

	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO lesson_reports (id, lesson_id, reporter_user_id, reporter_name, reason, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.LessonID, r.ReporterUserID, r.ReporterName, r.Reason, toMillis(r.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating report: %w", err)
	}
	return nil
}

func (s *ReportStore) List(ctx context.Context) ([]model.LessonReport, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, lesson_id, reporter_user_id, reporter_name, reason, timestamp
		 FROM lesson_reports
		 ORDER BY timestamp DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing reports: %w", err)
	}
	defer rows.Close()

	reports := []model.LessonReport{}
	for rows.Next() {
		var (
			r  model.LessonReport
			ts int64
		)
		if err := rows.Scan(&r.ID, &r.LessonID, &r.ReporterUserID, &r.ReporterName, &r.Reason, &ts); err != nil {
			return nil, fmt.Errorf("sqlite: scanning report row: %w", err)
		}
		r.Timestamp = fromMillis(ts)
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating reports: %w", err)
	}
	return reports, nil
}

func (s *ReportStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM lesson_reports`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting reports: %w", err)
	}
	return n, nil
}
