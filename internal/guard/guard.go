// Package guard decides whether a verified identity may perform a mutating
// action. It runs after authentication; an empty identity never passes.
package guard

import (
	"context"
	"errors"

	"github.com/sakif/life-journal/internal/apperror"
	"github.com/sakif/life-journal/internal/model"
	"github.com/sakif/life-journal/internal/repository"
)

// Guard evaluates the owner-or-admin and admin-only predicates.
type Guard struct {
	lessons repository.LessonRepository
	users   repository.UserRepository
}

func New(lessons repository.LessonRepository, users repository.UserRepository) *Guard {
	return &Guard{lessons: lessons, users: users}
}

// OwnerOrAdmin passes when identity authored the lesson or holds the admin
// role. The lesson is returned so callers don't fetch it twice.
//
// A missing lesson is NotFound before any role lookup happens.
func (g *Guard) OwnerOrAdmin(ctx context.Context, lessonID, identity string) (*model.Lesson, error) {
	lesson, err := g.lessons.GetByID(ctx, lessonID)
	if err != nil {
		return nil, err
	}

	if identity != "" && lesson.Email == identity {
		return lesson, nil
	}

	admin, err := g.isAdmin(ctx, identity)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, apperror.Forbidden("only the author or an admin may modify this lesson")
	}
	return lesson, nil
}

// AdminOnly passes iff identity is a registered admin.
func (g *Guard) AdminOnly(ctx context.Context, identity string) error {
	admin, err := g.isAdmin(ctx, identity)
	if err != nil {
		return err
	}
	if !admin {
		return apperror.Forbidden("admin access required")
	}
	return nil
}

// isAdmin treats an identity with no user record as a non-admin.
func (g *Guard) isAdmin(ctx context.Context, identity string) (bool, error) {
	if identity == "" {
		return false, nil
	}
	user, err := g.users.GetByEmail(ctx, identity)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsAdmin(), nil
}
