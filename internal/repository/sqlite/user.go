package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/life-journal/internal/apperror"
	"github.com/sakif/life-journal/internal/model"
	"github.com/sakif/life-journal/internal/repository"
)

// compile-time check that *UserStore implements repository.UserRepository
var _ repository.UserRepository = (*UserStore)(nil)

// UserStore implements repository.UserRepository.
type UserStore struct {
	conn *sql.DB
}

const userColumns = `id, email, name, photo_url, role, payment_status, created_at, last_logged_in`

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u                     model.User
		createdAt, lastLogged int64
	)
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PhotoURL,
		&u.Role,
		&u.PaymentStatus,
		&createdAt,
		&lastLogged,
	); err != nil {
		return nil, err
	}
	u.CreatedAt = fromMillis(createdAt)
	u.LastLoggedIn = fromMillis(lastLogged)
	return &u, nil
}

// Upsert inserts a user keyed by email or, when one exists, refreshes
// last_logged_in only. Name, photo and role of an existing user are untouched.
//
// The lookup and the write share a transaction so two first logins with the
// same email cannot both take the INSERT path.
func (s *UserStore) Upsert(ctx context.Context, user *model.User) (bool, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning upsert: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	created := false

	var existingID string
	err = tx.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, user.Email).Scan(&existingID)
	switch {
	case err == nil:
		_, err = tx.ExecContext(ctx,
			`UPDATE users SET last_logged_in = ? WHERE id = ?`,
			toMillis(now), existingID,
		)
		if err != nil {
			return false, fmt.Errorf("sqlite: refreshing login of %s: %w", user.Email, err)
		}

	case errors.Is(err, sql.ErrNoRows):
		if user.Role == "" {
			user.Role = model.RoleFree
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO users (id, email, name, photo_url, role, payment_status, created_at, last_logged_in)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			newID(),
			user.Email,
			user.Name,
			user.PhotoURL,
			user.Role,
			user.PaymentStatus,
			toMillis(now),
			toMillis(now),
		)
		if err != nil {
			return false, fmt.Errorf("sqlite: inserting user %s: %w", user.Email, err)
		}
		created = true

	default:
		return false, fmt.Errorf("sqlite: looking up user %s: %w", user.Email, err)
	}

	stored, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, user.Email))
	if err != nil {
		return false, fmt.Errorf("sqlite: reloading user %s: %w", user.Email, err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing upsert: %w", err)
	}

	*user = *stored
	return created, nil
}

// GetByEmail returns apperror.ErrNotFound when no user has this email.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	u, err := scanUser(s.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", email, err)
	}
	return u, nil
}

// List returns every user, newest first.
func (s *UserStore) List(ctx context.Context) ([]model.User, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating users: %w", err)
	}
	return users, nil
}

func (s *UserStore) UpdateRole(ctx context.Context, email, role string) error {
	result, err := s.conn.ExecContext(ctx, `UPDATE users SET role = ? WHERE email = ?`, role, email)
	if err != nil {
		return fmt.Errorf("sqlite: updating role of %s: %w", email, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", email)
	}
	return nil
}

// MarkPaid is idempotent: SQLite reports matched rows, so a repeat call on an
// already-paid user still returns matched=true.
func (s *UserStore) MarkPaid(ctx context.Context, email string) (bool, error) {
	result, err := s.conn.ExecContext(ctx,
		`UPDATE users SET payment_status = ?, role = ? WHERE email = ?`,
		model.PaymentPaid, model.RolePremium, email,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: marking %s paid: %w", email, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n > 0, nil
}

func (s *UserStore) Count(ctx context.Context, role string) (int64, error) {
	query, args := `SELECT COUNT(*) FROM users`, []any{}
	if role != "" {
		query += ` WHERE role = ?`
		args = append(args, role)
	}

	var n int64
	if err := s.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting users: %w", err)
	}
	return n, nil
}
