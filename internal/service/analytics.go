package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/life-journal/internal/guard"
	"github.com/sakif/life-journal/internal/model"
	"github.com/sakif/life-journal/internal/repository"
)

const (
	// DefaultTopContributors is N for the weekly ranking when none is configured.
	DefaultTopContributors = 3
	// MostSavedLimit is how many lessons the most-saved list shows.
	MostSavedLimit = 3
)

// AnalyticsService computes the read-only aggregates. Nothing is cached; every
// call runs its queries against the current store state.
type AnalyticsService struct {
	store  repository.Store
	guard  *guard.Guard
	topN   int
	now    func() time.Time
	logger *slog.Logger
}

// NewAnalyticsService ranks topN contributors per week. topN <= 0 selects
// DefaultTopContributors.
func NewAnalyticsService(store repository.Store, g *guard.Guard, topN int, logger *slog.Logger) *AnalyticsService {
	if topN <= 0 {
		topN = DefaultTopContributors
	}
	return &AnalyticsService{
		store:  store,
		guard:  g,
		topN:   topN,
		now:    time.Now,
		logger: logger,
	}
}

// StartOfWeek returns Monday 00:00 of the week containing t, in t's location.
func StartOfWeek(t time.Time) time.Time {
	// time.Weekday counts from Sunday=0; shift so Monday=0.
	offset := (int(t.Weekday()) + 6) % 7
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// StartOfDay returns 00:00 of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// TopContributorsThisWeek ranks authors by lessons created since Monday 00:00
// local time, inclusive.
func (s *AnalyticsService) TopContributorsThisWeek(ctx context.Context) ([]model.Contributor, error) {
	since := StartOfWeek(s.now())
	out, err := s.store.Analytics().TopContributors(ctx, since, s.topN)
	if err != nil {
		s.logger.Error("failed to aggregate top contributors", slog.String("error", err.Error()))
		return nil, fmt.Errorf("top contributors: %w", err)
	}
	return out, nil
}

// MostSaved returns the most favorited lessons.
func (s *AnalyticsService) MostSaved(ctx context.Context) ([]model.Lesson, error) {
	out, err := s.store.Analytics().MostFavorited(ctx, MostSavedLimit)
	if err != nil {
		s.logger.Error("failed to aggregate most saved lessons", slog.String("error", err.Error()))
		return nil, fmt.Errorf("most saved lessons: %w", err)
	}
	return out, nil
}

// Dashboard gathers the admin counters. The independent counts run
// concurrently; the first failure cancels the rest.
func (s *AnalyticsService) Dashboard(ctx context.Context, identity string) (*model.DashboardStats, error) {
	if err := s.guard.AdminOnly(ctx, identity); err != nil {
		return nil, err
	}

	now := s.now()
	stats := &model.DashboardStats{}
	g, ctx := errgroup.WithContext(ctx)

	lessons, users := s.store.Lessons(), s.store.Users()

	g.Go(func() (err error) {
		stats.TotalUsers, err = users.Count(ctx, "")
		return err
	})
	g.Go(func() (err error) {
		stats.PremiumUsers, err = users.Count(ctx, model.RolePremium)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalLessons, err = lessons.Count(ctx, repository.LessonFilter{})
		return err
	})
	g.Go(func() (err error) {
		stats.PublicLessons, err = lessons.Count(ctx, repository.LessonFilter{Privacy: model.PrivacyPublic})
		return err
	})
	g.Go(func() (err error) {
		stats.PrivateLessons, err = lessons.Count(ctx, repository.LessonFilter{Privacy: model.PrivacyPrivate})
		return err
	})
	g.Go(func() (err error) {
		stats.TotalReports, err = s.store.Reports().Count(ctx)
		return err
	})
	g.Go(func() (err error) {
		stats.LessonsToday, err = lessons.Count(ctx, repository.LessonFilter{CreatedSince: StartOfDay(now)})
		return err
	})
	g.Go(func() error {
		top, err := s.store.Analytics().TopContributors(ctx, StartOfWeek(now), 1)
		if err != nil {
			return err
		}
		if len(top) > 0 {
			stats.TopContributor = &top[0]
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		s.logger.Error("failed to build dashboard", slog.String("error", err.Error()))
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	return stats, nil
}
