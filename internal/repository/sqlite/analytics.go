package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/life-journal/internal/model"
	"github.com/sakif/life-journal/internal/repository"
)

var _ repository.AnalyticsRepository = (*AnalyticsStore)(nil)

// AnalyticsStore implements repository.AnalyticsRepository with GROUP BY
// queries. Nothing is cached.
type AnalyticsStore struct {
	conn *sql.DB
}

// TopContributors ranks authors by lessons created since the given instant.
// users.email is UNIQUE, so the LEFT JOIN never multiplies lesson rows.
func (s *AnalyticsStore) TopContributors(ctx context.Context, since time.Time, n int) ([]model.Contributor, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT l.email, COUNT(*) AS cnt,
		        COALESCE(MAX(u.name), ''), COALESCE(MAX(u.photo_url), '')
		 FROM lessons l
		 LEFT JOIN users u ON u.email = l.email
		 WHERE l.created_at >= ?
		 GROUP BY l.email
		 ORDER BY cnt DESC, l.email ASC
		 LIMIT ?`,
		toMillis(since), n,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: aggregating top contributors: %w", err)
	}
	defer rows.Close()

	out := []model.Contributor{}
	for rows.Next() {
		var c model.Contributor
		if err := rows.Scan(&c.Email, &c.Count, &c.Name, &c.Photo); err != nil {
			return nil, fmt.Errorf("sqlite: scanning contributor row: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating contributors: %w", err)
	}
	return out, nil
}

func (s *AnalyticsStore) MostFavorited(ctx context.Context, n int) ([]model.Lesson, error) {
	return queryLessons(ctx, s.conn,
		`SELECT `+lessonColumns+` FROM lessons l
		 WHERE l.favorites_count > 0
		 ORDER BY l.favorites_count DESC, l.created_at DESC
		 LIMIT ?`,
		n,
	)
}
