package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/life-journal/internal/model"
)

func TestTopContributors(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	// Monday 2025-06-09 00:00 UTC.
	weekStart := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	createTestUser(t, db, "ana@x.io", "Ana")
	createTestUser(t, db, "ben@x.io", "Ben")

	// Before the boundary: must not count.
	createTestLesson(t, db, model.Lesson{Email: "cat@x.io", CreatedAt: weekStart.Add(-time.Millisecond)})
	createTestLesson(t, db, model.Lesson{Email: "cat@x.io", CreatedAt: weekStart.Add(-time.Hour)})
	// On the boundary: inclusive.
	createTestLesson(t, db, model.Lesson{Email: "ana@x.io", CreatedAt: weekStart})
	createTestLesson(t, db, model.Lesson{Email: "ana@x.io", CreatedAt: weekStart.Add(24 * time.Hour)})
	createTestLesson(t, db, model.Lesson{Email: "ben@x.io", CreatedAt: weekStart.Add(2 * time.Hour)})
	createTestLesson(t, db, model.Lesson{Email: "cat@x.io", CreatedAt: weekStart.Add(3 * time.Hour)})

	got, err := db.Analytics().TopContributors(ctx, weekStart, 3)
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, model.Contributor{Email: "ana@x.io", Name: "Ana", Photo: "https://example.com/Ana.png", Count: 2}, got[0])
	// ben and cat tie on 1; email ascending breaks the tie.
	assert.Equal(t, "ben@x.io", got[1].Email)
	assert.Equal(t, "Ben", got[1].Name)
	assert.Equal(t, "cat@x.io", got[2].Email)
	assert.Equal(t, 1, got[2].Count)
	assert.Empty(t, got[2].Name, "authors without a user record have no name")

	top1, err := db.Analytics().TopContributors(ctx, weekStart, 1)
	require.NoError(t, err)
	assert.Len(t, top1, 1)
}

func TestTopContributors_EmptyWeek(t *testing.T) {
	db := newTestDB(t)

	got, err := db.Analytics().TopContributors(context.Background(), time.Now(), 3)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestMostFavorited(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	counts := map[string]int{"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4}
	ids := map[string]string{}
	for title, n := range counts {
		l := createTestLesson(t, db, model.Lesson{Title: title})
		ids[title] = l.ID
		for i := 0; i < n; i++ {
			_, err := db.Lessons().Toggle(ctx, l.ID, model.ReactionFavorites, string(rune('a'+i))+"@x.io")
			require.NoError(t, err)
		}
	}

	got, err := db.Analytics().MostFavorited(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{ids["four"], ids["three"], ids["two"]}, lessonIDs(got))

	all, err := db.Analytics().MostFavorited(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 4, "lessons without favorites are excluded")
}
