// Package sqlite implements the repository interfaces on an embedded SQLite
// database. It backs local development (STORE_DRIVER=sqlite) and the test
// suites of the service and handler layers; production runs on MongoDB.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which means you need a C compiler installed and
// cross-compilation becomes painful. modernc.org/sqlite is a pure Go translation
// of the SQLite C code: no C compiler needed, it works everywhere Go works.
//
// DOCUMENTS AS ROWS:
// A lesson document carries two identity sets (likes, favorites). Here they live
// in the lesson_reactions table, one row per (lesson, set, identity); the
// primary key makes duplicate membership impossible. The cached counters stay
// on the lessons row and move in the same transaction as the set row.
//
// Timestamps are stored as INTEGER unix milliseconds so range predicates
// (created_at >= ?) compare numerically.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/life-journal/internal/apperror"
	"github.com/sakif/life-journal/internal/repository"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and hands out the per-collection stores.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/life-journal.db" → file-based database (persistent)
//   - ":memory:"             → in-memory database (tests)
//
// The pool is limited to one connection. SQLite serialises writers anyway, and
// every ":memory:" connection would otherwise see its own empty database.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while a write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Wait for a competing writer instead of failing with SQLITE_BUSY.
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close(_ context.Context) error {
	return db.conn.Close()
}

// Ping checks that the database is still reachable.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite: ping: %w", err)
	}
	return nil
}

func (db *DB) Lessons() repository.LessonRepository     { return &LessonStore{conn: db.conn} }
func (db *DB) Users() repository.UserRepository         { return &UserStore{conn: db.conn} }
func (db *DB) Comments() repository.CommentRepository   { return &CommentStore{conn: db.conn} }
func (db *DB) Reports() repository.ReportRepository     { return &ReportStore{conn: db.conn} }
func (db *DB) Analytics() repository.AnalyticsRepository { return &AnalyticsStore{conn: db.conn} }

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id             TEXT PRIMARY KEY,
			email          TEXT NOT NULL UNIQUE,
			name           TEXT NOT NULL DEFAULT '',
			photo_url      TEXT NOT NULL DEFAULT '',
			role           TEXT NOT NULL,
			payment_status TEXT NOT NULL DEFAULT '',
			created_at     INTEGER NOT NULL,
			last_logged_in INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS lessons (
			id              TEXT PRIMARY KEY,
			title           TEXT NOT NULL DEFAULT '',
			description     TEXT NOT NULL DEFAULT '',
			category        TEXT NOT NULL DEFAULT '',
			emotional_tone  TEXT NOT NULL DEFAULT '',
			privacy         TEXT NOT NULL DEFAULT '',
			access_level    TEXT NOT NULL DEFAULT '',
			image           TEXT NOT NULL DEFAULT '',
			email           TEXT NOT NULL DEFAULT '',
			author_name     TEXT NOT NULL DEFAULT '',
			author_photo    TEXT NOT NULL DEFAULT '',
			likes_count     INTEGER NOT NULL DEFAULT 0,
			favorites_count INTEGER NOT NULL DEFAULT 0,
			created_at      INTEGER NOT NULL,
			updated_at      INTEGER,
			extra           TEXT NOT NULL DEFAULT '{}'
		);
		CREATE INDEX IF NOT EXISTS idx_lessons_created_at ON lessons(created_at);
		CREATE INDEX IF NOT EXISTS idx_lessons_email ON lessons(email);
		CREATE INDEX IF NOT EXISTS idx_lessons_favorites_count ON lessons(favorites_count);

		CREATE TABLE IF NOT EXISTS lesson_reactions (
			lesson_id TEXT NOT NULL,
			reaction  TEXT NOT NULL,
			identity  TEXT NOT NULL,
			PRIMARY KEY (lesson_id, reaction, identity)
		);
		CREATE INDEX IF NOT EXISTS idx_lesson_reactions_identity ON lesson_reactions(reaction, identity);
	`)
	if err != nil {
		return fmt.Errorf("creating lessons tables: %w", err)
	}

	// Databases created before extra fields were kept lack the column.
	var hasExtra int
	err = db.conn.QueryRow(
		`SELECT COUNT(*) FROM pragma_table_info('lessons') WHERE name = 'extra'`,
	).Scan(&hasExtra)
	if err != nil {
		return fmt.Errorf("inspecting lessons table: %w", err)
	}
	if hasExtra == 0 {
		if _, err := db.conn.Exec(`ALTER TABLE lessons ADD COLUMN extra TEXT NOT NULL DEFAULT '{}'`); err != nil {
			return fmt.Errorf("adding lessons.extra: %w", err)
		}
	}

	// lesson_id on comments and reports is a weak reference: no FOREIGN KEY,
	// deleting a lesson leaves them behind.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS comments (
			id         TEXT PRIMARY KEY,
			lesson_id  TEXT NOT NULL,
			user_id    TEXT NOT NULL DEFAULT '',
			user_name  TEXT NOT NULL DEFAULT '',
			user_photo TEXT NOT NULL DEFAULT '',
			text       TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_comments_lesson_id ON comments(lesson_id, created_at);

		CREATE TABLE IF NOT EXISTS lesson_reports (
			id               TEXT PRIMARY KEY,
			lesson_id        TEXT NOT NULL,
			reporter_user_id TEXT NOT NULL,
			reporter_name    TEXT NOT NULL DEFAULT '',
			reason           TEXT NOT NULL,
			timestamp        INTEGER NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating comments and reports tables: %w", err)
	}

	return nil
}

// newID generates a document id. xids are 20 URL-safe characters and sort by
// creation time.
func newID() string {
	return xid.New().String()
}

// checkID rejects ids that could never have been produced by newID.
func checkID(resource, id string) error {
	if _, err := xid.FromString(id); err != nil {
		return apperror.InvalidID(resource, id)
	}
	return nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
