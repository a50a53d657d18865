package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/sakif/life-journal/internal/guard"
	"github.com/sakif/life-journal/internal/model"
	"github.com/sakif/life-journal/internal/repository/sqlite"
)

// =========================================================================
// SHARED HELPERS
// =========================================================================
//
// The services are exercised over a real in-memory SQLite store rather than
// hand-written fakes for every repository: the store is fast, and it keeps
// the toggle and aggregation semantics honest. Only the payment processor,
// an external collaborator, is faked (see payment_test.go).

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("sqlite.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close(context.Background()) })
	return db
}

// seedUser registers email and, when role is not freeUser, promotes it.
func seedUser(t *testing.T, db *sqlite.DB, email, name, role string) {
	t.Helper()
	ctx := context.Background()
	if _, err := db.Users().Upsert(ctx, &model.User{Email: email, Name: name}); err != nil {
		t.Fatalf("Upsert(%s) error = %v", email, err)
	}
	if role != "" && role != model.RoleFree {
		if err := db.Users().UpdateRole(ctx, email, role); err != nil {
			t.Fatalf("UpdateRole(%s) error = %v", email, err)
		}
	}
}

func newTestGuard(db *sqlite.DB) *guard.Guard {
	return guard.New(db.Lessons(), db.Users())
}
