package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/life-journal/internal/apperror"
	"github.com/sakif/life-journal/internal/model"
)

func TestCommentCreateAndList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	lessonID := newID()
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, db.Comments().Create(ctx, &model.Comment{LessonID: lessonID, Text: "first", CreatedAt: base}))
	require.NoError(t, db.Comments().Create(ctx, &model.Comment{LessonID: lessonID, Text: "second", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, db.Comments().Create(ctx, &model.Comment{LessonID: newID(), Text: "elsewhere"}))

	got, err := db.Comments().ListByLesson(ctx, lessonID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "second", got[0].Text)
	assert.Equal(t, "first", got[1].Text)
	assert.True(t, got[1].CreatedAt.Equal(base))
}

func TestCommentListByLesson_Empty(t *testing.T) {
	db := newTestDB(t)

	got, err := db.Comments().ListByLesson(context.Background(), newID())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCommentDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	c := &model.Comment{LessonID: newID(), Text: "bye"}
	require.NoError(t, db.Comments().Create(ctx, c))

	require.NoError(t, db.Comments().Delete(ctx, c.ID))
	assert.ErrorIs(t, db.Comments().Delete(ctx, c.ID), apperror.ErrNotFound)
	assert.ErrorIs(t, db.Comments().Delete(ctx, "nope"), apperror.ErrValidation)
}

func TestReportCreateListCount(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	lessonID := newID()

	// The same reporter may report the same lesson repeatedly.
	for i := 0; i < 2; i++ {
		r := &model.LessonReport{LessonID: lessonID, ReporterUserID: "r@x.io", Reason: "spam"}
		require.NoError(t, db.Reports().Create(ctx, r))
		assert.NotEmpty(t, r.ID)
		assert.False(t, r.Timestamp.IsZero())
	}

	reports, err := db.Reports().List(ctx)
	require.NoError(t, err)
	assert.Len(t, reports, 2)

	n, err := db.Reports().Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
