package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/life-journal/internal/apperror"
	"github.com/sakif/life-journal/internal/model"
	"github.com/sakif/life-journal/internal/repository"
)

var _ repository.LessonRepository = (*LessonStore)(nil)

// LessonStore implements repository.LessonRepository.
type LessonStore struct {
	conn *sql.DB
}

// lessonColumns selects a full lesson document. The two subqueries fold the
// reaction rows back into JSON arrays so one row scans into one model.Lesson.
const lessonColumns = `
	l.id, l.title, l.description, l.category, l.emotional_tone, l.privacy,
	l.access_level, l.image, l.email, l.author_name, l.author_photo,
	l.likes_count, l.favorites_count, l.created_at, l.updated_at, l.extra,
	(SELECT json_group_array(r.identity) FROM lesson_reactions r
	  WHERE r.lesson_id = l.id AND r.reaction = 'likes'),
	(SELECT json_group_array(r.identity) FROM lesson_reactions r
	  WHERE r.lesson_id = l.id AND r.reaction = 'favorites')`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLesson(row rowScanner) (*model.Lesson, error) {
	var (
		l                model.Lesson
		createdAt        int64
		updatedAt        sql.NullInt64
		likes, favorites string
		extra            string
	)
	err := row.Scan(
		&l.ID, &l.Title, &l.Description, &l.Category, &l.EmotionalTone, &l.Privacy,
		&l.AccessLevel, &l.Image, &l.Email, &l.AuthorName, &l.AuthorPhoto,
		&l.LikesCount, &l.FavoritesCount, &createdAt, &updatedAt, &extra,
		&likes, &favorites,
	)
	if err != nil {
		return nil, err
	}

	l.CreatedAt = fromMillis(createdAt)
	if updatedAt.Valid {
		t := fromMillis(updatedAt.Int64)
		l.UpdatedAt = &t
	}
	if err := json.Unmarshal([]byte(likes), &l.Likes); err != nil {
		return nil, fmt.Errorf("decoding likes: %w", err)
	}
	if err := json.Unmarshal([]byte(favorites), &l.Favorites); err != nil {
		return nil, fmt.Errorf("decoding favorites: %w", err)
	}
	if err := json.Unmarshal([]byte(extra), &l.Extra); err != nil {
		return nil, fmt.Errorf("decoding extra fields: %w", err)
	}
	if len(l.Extra) == 0 {
		l.Extra = nil
	}
	return &l, nil
}

// Create inserts a lesson. The reaction sets always start empty regardless of
// what the caller put in them, so the counters start consistent at zero.
func (s *LessonStore) Create(ctx context.Context, lesson *model.Lesson) error {
	lesson.ID = newID()
	if lesson.CreatedAt.IsZero() {
		lesson.CreatedAt = time.Now()
	}
	lesson.Likes, lesson.LikesCount = []string{}, 0
	lesson.Favorites, lesson.FavoritesCount = []string{}, 0
	lesson.UpdatedAt = nil

	extra, err := encodeExtra(lesson.Extra)
	if err != nil {
		return err
	}

	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO lessons (id, title, description, category, emotional_tone, privacy,
			access_level, image, email, author_name, author_photo, created_at, extra)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lesson.ID,
		lesson.Title,
		lesson.Description,
		lesson.Category,
		lesson.EmotionalTone,
		lesson.Privacy,
		lesson.AccessLevel,
		lesson.Image,
		lesson.Email,
		lesson.AuthorName,
		lesson.AuthorPhoto,
		toMillis(lesson.CreatedAt),
		extra,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating lesson: %w", err)
	}

	return nil
}

// GetByID returns apperror.ErrValidation for a malformed id and
// apperror.ErrNotFound for a well-formed id with no lesson.
func (s *LessonStore) GetByID(ctx context.Context, id string) (*model.Lesson, error) {
	if err := checkID("lesson", id); err != nil {
		return nil, err
	}
	return getLesson(ctx, s.conn, id)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getLesson(ctx context.Context, q querier, id string) (*model.Lesson, error) {
	lesson, err := scanLesson(q.QueryRowContext(ctx,
		`SELECT `+lessonColumns+` FROM lessons l WHERE l.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("lesson", id)
		}
		return nil, fmt.Errorf("sqlite: getting lesson %s: %w", id, err)
	}
	return lesson, nil
}

// lessonWhere renders a LessonFilter as a WHERE clause. The category/tone pair
// is OR-ed together; everything else is AND-ed.
func lessonWhere(f repository.LessonFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)

	if f.Email != "" {
		clauses = append(clauses, "l.email = ?")
		args = append(args, f.Email)
	}

	switch {
	case f.Category != "" && f.EmotionalTone != "":
		clauses = append(clauses, "(l.category = ? OR l.emotional_tone = ?)")
		args = append(args, f.Category, f.EmotionalTone)
	case f.Category != "":
		clauses = append(clauses, "l.category = ?")
		args = append(args, f.Category)
	case f.EmotionalTone != "":
		clauses = append(clauses, "l.emotional_tone = ?")
		args = append(args, f.EmotionalTone)
	}

	if f.Privacy != "" {
		clauses = append(clauses, "l.privacy = ?")
		args = append(args, f.Privacy)
	}
	if f.FavoritedBy != "" {
		clauses = append(clauses, `EXISTS (SELECT 1 FROM lesson_reactions r
			WHERE r.lesson_id = l.id AND r.reaction = 'favorites' AND r.identity = ?)`)
		args = append(args, f.FavoritedBy)
	}
	if !f.CreatedSince.IsZero() {
		clauses = append(clauses, "l.created_at >= ?")
		args = append(args, toMillis(f.CreatedSince))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// List returns matching lessons, newest first.
func (s *LessonStore) List(ctx context.Context, filter repository.LessonFilter) ([]model.Lesson, error) {
	where, args := lessonWhere(filter)
	query := `SELECT ` + lessonColumns + ` FROM lessons l` + where +
		` ORDER BY l.created_at DESC, l.id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	return queryLessons(ctx, s.conn, query, args...)
}

func queryLessons(ctx context.Context, conn *sql.DB, query string, args ...any) ([]model.Lesson, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing lessons: %w", err)
	}
	defer rows.Close()

	lessons := []model.Lesson{}
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning lesson row: %w", err)
		}
		lessons = append(lessons, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating lessons: %w", err)
	}

	return lessons, nil
}

// updateColumns maps the JSON names of model.LessonUpdate to columns. Only
// these literals are ever interpolated into the SET clause.
var updateColumns = map[string]string{
	"title":         "title",
	"description":   "description",
	"category":      "category",
	"emotionalTone": "emotional_tone",
	"privacy":       "privacy",
	"accessLevel":   "access_level",
	"image":         "image",
}

// Update writes the fields present in upd and stamps updated_at. Absent
// fields keep their stored value. Extra fields are merged key by key into
// the extra column.
func (s *LessonStore) Update(ctx context.Context, id string, upd model.LessonUpdate) (*model.Lesson, error) {
	if err := checkID("lesson", id); err != nil {
		return nil, err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning update: %w", err)
	}
	defer tx.Rollback()

	sets := []string{"updated_at = ?"}
	args := []any{toMillis(time.Now())}
	for _, f := range upd.Fields() {
		sets = append(sets, updateColumns[f.Name]+" = ?")
		args = append(args, f.Value)
	}

	if len(upd.Extra) > 0 {
		var raw string
		err := tx.QueryRowContext(ctx, `SELECT extra FROM lessons WHERE id = ?`, id).Scan(&raw)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, apperror.NotFound("lesson", id)
			}
			return nil, fmt.Errorf("sqlite: reading extra fields of lesson %s: %w", id, err)
		}

		current := map[string]any{}
		if err := json.Unmarshal([]byte(raw), &current); err != nil {
			return nil, fmt.Errorf("sqlite: decoding extra fields of lesson %s: %w", id, err)
		}
		for k, v := range upd.Extra {
			current[k] = v
		}
		merged, err := encodeExtra(current)
		if err != nil {
			return nil, err
		}
		sets = append(sets, "extra = ?")
		args = append(args, merged)
	}

	args = append(args, id)
	result, err := tx.ExecContext(ctx,
		`UPDATE lessons SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating lesson %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, apperror.NotFound("lesson", id)
	}

	lesson, err := getLesson(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing update: %w", err)
	}
	return lesson, nil
}

func encodeExtra(extra map[string]any) (string, error) {
	if len(extra) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(extra)
	if err != nil {
		return "", fmt.Errorf("sqlite: encoding extra fields: %w", err)
	}
	return string(b), nil
}

// Delete removes the lesson and its reaction rows. Comments and reports that
// point at it are left alone.
func (s *LessonStore) Delete(ctx context.Context, id string) error {
	if err := checkID("lesson", id); err != nil {
		return err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning delete: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `DELETE FROM lessons WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting lesson %s: %w", id, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound("lesson", id)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM lesson_reactions WHERE lesson_id = ?`, id); err != nil {
		return fmt.Errorf("sqlite: deleting reactions of lesson %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing delete: %w", err)
	}
	return nil
}

// countColumn maps a reaction set to its counter column. Column names cannot
// be bound as parameters, so only these two literals are ever interpolated.
func countColumn(set model.ReactionSet) (string, error) {
	switch set {
	case model.ReactionLikes:
		return "likes_count", nil
	case model.ReactionFavorites:
		return "favorites_count", nil
	}
	return "", apperror.ValidationFailed("set", fmt.Sprintf("unknown reaction set %q", set))
}

// Toggle flips membership and moves the counter inside one transaction. The
// DELETE doubles as the membership test: one affected row means the identity
// was present and is now gone, zero means it was absent and gets inserted.
func (s *LessonStore) Toggle(ctx context.Context, id string, set model.ReactionSet, identity string) (*model.ToggleResult, error) {
	if err := checkID("lesson", id); err != nil {
		return nil, err
	}
	col, err := countColumn(set)
	if err != nil {
		return nil, err
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning toggle: %w", err)
	}
	defer tx.Rollback()

	var count int
	err = tx.QueryRowContext(ctx, `SELECT `+col+` FROM lessons WHERE id = ?`, id).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("lesson", id)
		}
		return nil, fmt.Errorf("sqlite: reading %s of lesson %s: %w", col, id, err)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM lesson_reactions WHERE lesson_id = ? AND reaction = ? AND identity = ?`,
		id, string(set), identity,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: removing %s reaction: %w", set, err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}

	toggle := &model.ToggleResult{Active: false, Delta: -1}
	if removed == 0 {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO lesson_reactions (lesson_id, reaction, identity) VALUES (?, ?, ?)`,
			id, string(set), identity,
		); err != nil {
			return nil, fmt.Errorf("sqlite: adding %s reaction: %w", set, err)
		}
		toggle = &model.ToggleResult{Active: true, Delta: 1}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE lessons SET `+col+` = `+col+` + ? WHERE id = ?`, toggle.Delta, id,
	); err != nil {
		return nil, fmt.Errorf("sqlite: updating %s of lesson %s: %w", col, id, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing toggle: %w", err)
	}

	toggle.Count = count + toggle.Delta
	return toggle, nil
}

// Count counts lessons matching filter. Limit is ignored.
func (s *LessonStore) Count(ctx context.Context, filter repository.LessonFilter) (int64, error) {
	where, args := lessonWhere(filter)

	var n int64
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM lessons l`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting lessons: %w", err)
	}
	return n, nil
}
