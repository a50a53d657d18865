package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/sakif/life-journal/internal/apperror"
	"github.com/sakif/life-journal/internal/guard"
	"github.com/sakif/life-journal/internal/model"
	"github.com/sakif/life-journal/internal/repository"
)

// UserService handles user records keyed by email.
type UserService struct {
	users   repository.UserRepository
	lessons repository.LessonRepository
	guard   *guard.Guard
	logger  *slog.Logger
}

func NewUserService(
	users repository.UserRepository,
	lessons repository.LessonRepository,
	g *guard.Guard,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:   users,
		lessons: lessons,
		guard:   g,
		logger:  logger,
	}
}

// Upsert registers the user on first sight and only refreshes last_loggedIn
// afterwards. A client cannot pick its own role: new users always start as
// freeUser, and the role of an existing user is never touched here.
func (s *UserService) Upsert(ctx context.Context, user *model.User) (*model.User, bool, error) {
	user.Email = strings.TrimSpace(user.Email)
	if user.Email == "" {
		return nil, false, apperror.ValidationFailed("email", "email is required")
	}
	user.Name = strings.TrimSpace(user.Name)
	user.Role = model.RoleFree
	user.PaymentStatus = ""

	created, err := s.users.Upsert(ctx, user)
	if err != nil {
		s.logger.Error("failed to upsert user",
			slog.String("email", user.Email),
			slog.String("error", err.Error()),
		)
		return nil, false, fmt.Errorf("upserting user: %w", err)
	}

	if created {
		s.logger.Info("user registered", slog.String("email", user.Email))
	}
	return user, created, nil
}

// RoleStatus never fails with NotFound: an unknown email reads as a free,
// unpaid user, and a missing payment status reads as Unpaid.
func (s *UserService) RoleStatus(ctx context.Context, email string) (*model.RoleStatus, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}

	status := &model.RoleStatus{Role: model.RoleFree, PaymentStatus: model.PaymentUnpaid}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return status, nil
		}
		return nil, err
	}

	if user.Role != "" {
		status.Role = user.Role
	}
	if user.PaymentStatus != "" {
		status.PaymentStatus = user.PaymentStatus
	}
	return status, nil
}

// Profile returns the stored user or apperror.ErrNotFound.
func (s *UserService) Profile(ctx context.Context, email string) (*model.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	return s.users.GetByEmail(ctx, email)
}

// Favorites returns the lessons whose favorites set contains email.
func (s *UserService) Favorites(ctx context.Context, email string) ([]model.Lesson, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}

	lessons, err := s.lessons.List(ctx, repository.LessonFilter{FavoritedBy: email})
	if err != nil {
		return nil, fmt.Errorf("listing favorites of %s: %w", email, err)
	}
	return lessons, nil
}

// List returns every user. Admin only.
func (s *UserService) List(ctx context.Context, identity string) ([]model.User, error) {
	if err := s.guard.AdminOnly(ctx, identity); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

// UpdateRole lets an admin assign any of model.ValidRoles.
func (s *UserService) UpdateRole(ctx context.Context, identity, email, role string) (*model.User, error) {
	if err := s.guard.AdminOnly(ctx, identity); err != nil {
		return nil, err
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	role = strings.TrimSpace(role)
	if !slices.Contains(model.ValidRoles, role) {
		return nil, apperror.ValidationFailed("role",
			fmt.Sprintf("role must be one of %s", strings.Join(model.ValidRoles, ", ")))
	}

	if err := s.users.UpdateRole(ctx, email, role); err != nil {
		return nil, err
	}

	s.logger.Info("user role changed",
		slog.String("email", email),
		slog.String("role", role),
		slog.String("by", identity),
	)
	return s.users.GetByEmail(ctx, email)
}
