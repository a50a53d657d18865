package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/life-journal/internal/apperror"
	"github.com/sakif/life-journal/internal/model"
	"github.com/sakif/life-journal/internal/repository"
)

// MaxCommentLength caps a single comment.
const MaxCommentLength = 2000

// CommentService handles comments on lessons.
//
// Deletion is not tied to the comment's author: any caller holding a comment
// id may remove it, matching how the web client's moderation view works.
type CommentService struct {
	comments repository.CommentRepository
	logger   *slog.Logger
}

func NewCommentService(comments repository.CommentRepository, logger *slog.Logger) *CommentService {
	return &CommentService{comments: comments, logger: logger}
}

func (s *CommentService) Create(ctx context.Context, c *model.Comment) (*model.Comment, error) {
	c.LessonID = strings.TrimSpace(c.LessonID)
	c.Text = strings.TrimSpace(c.Text)

	if c.LessonID == "" {
		return nil, apperror.ValidationFailed("lessonId", "lessonId is required")
	}
	if c.Text == "" {
		return nil, apperror.ValidationFailed("text", "comment text is required")
	}
	if utf8.RuneCountInString(c.Text) > MaxCommentLength {
		return nil, apperror.ValidationFailed("text",
			fmt.Sprintf("comment must be %d characters or less", MaxCommentLength))
	}

	if err := s.comments.Create(ctx, c); err != nil {
		s.logger.Error("failed to create comment",
			slog.String("lessonId", c.LessonID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating comment: %w", err)
	}
	return c, nil
}

func (s *CommentService) List(ctx context.Context, lessonID string) ([]model.Comment, error) {
	lessonID = strings.TrimSpace(lessonID)
	if lessonID == "" {
		return nil, apperror.ValidationFailed("lessonId", "lessonId query parameter is required")
	}
	return s.comments.ListByLesson(ctx, lessonID)
}

func (s *CommentService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "comment ID is required")
	}

	if err := s.comments.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("comment deleted", slog.String("id", id))
	return nil
}
