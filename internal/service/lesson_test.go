package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/life-journal/internal/apperror"
	"github.com/sakif/life-journal/internal/model"
	"github.com/sakif/life-journal/internal/repository"
	"github.com/sakif/life-journal/internal/repository/sqlite"
)

func newTestLessonService(t *testing.T) (*LessonService, *sqlite.DB) {
	t.Helper()
	db := newTestStore(t)
	seedUser(t, db, "author@x.io", "Author", model.RoleFree)
	seedUser(t, db, "admin@x.io", "Admin", model.RoleAdmin)
	seedUser(t, db, "reader@x.io", "Reader", model.RoleFree)
	return NewLessonService(db.Lessons(), db.Reports(), newTestGuard(db), testLogger()), db
}

func ptr[T any](v T) *T { return &v }

func createLesson(t *testing.T, svc *LessonService, l model.Lesson) *model.Lesson {
	t.Helper()
	got, err := svc.Create(context.Background(), &l)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return got
}

// =========================================================================
// CREATE / GET / LIST
// =========================================================================

func TestLessonCreate_KeepsClientAuthor(t *testing.T) {
	svc, _ := newTestLessonService(t)

	l := createLesson(t, svc, model.Lesson{Title: "On patience", Email: "author@x.io", Privacy: model.PrivacyPublic})

	got, err := svc.Get(context.Background(), l.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Email != "author@x.io" {
		t.Errorf("Email = %q, want %q", got.Email, "author@x.io")
	}
}

func TestLessonGet_Errors(t *testing.T) {
	svc, _ := newTestLessonService(t)

	tests := []struct {
		name string
		id   string
		want error
	}{
		{"empty id", "  ", apperror.ErrValidation},
		{"malformed id", "not-an-id", apperror.ErrValidation},
		{"unknown id", "d1bnq0o5sf3ljnrp8k0g", apperror.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Get(context.Background(), tt.id)
			if !errors.Is(err, tt.want) {
				t.Errorf("Get(%q) error = %v, want %v", tt.id, err, tt.want)
			}
		})
	}
}

func TestLessonList_CategoryOrTone(t *testing.T) {
	svc, _ := newTestLessonService(t)

	createLesson(t, svc, model.Lesson{Title: "a", Category: "career", EmotionalTone: "sad"})
	createLesson(t, svc, model.Lesson{Title: "b", Category: "family", EmotionalTone: "hopeful"})
	createLesson(t, svc, model.Lesson{Title: "c", Category: "family", EmotionalTone: "sad"})

	got, err := svc.List(context.Background(), repository.LessonFilter{Category: "career", EmotionalTone: "hopeful"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("List() returned %d lessons, want the union of 2", len(got))
	}
	for _, l := range got {
		if l.Title == "c" {
			t.Error("List() returned a lesson matching neither category nor tone")
		}
	}
}

func TestLessonListPublic(t *testing.T) {
	svc, _ := newTestLessonService(t)

	createLesson(t, svc, model.Lesson{Title: "open", Privacy: model.PrivacyPublic})
	createLesson(t, svc, model.Lesson{Title: "diary", Privacy: model.PrivacyPrivate})

	got, err := svc.ListPublic(context.Background(), 0)
	if err != nil {
		t.Fatalf("ListPublic() error = %v", err)
	}
	if len(got) != 1 || got[0].Title != "open" {
		t.Errorf("ListPublic() = %+v, want only the public lesson", got)
	}
}

func TestLessonCreate_AccessLevel(t *testing.T) {
	svc, _ := newTestLessonService(t)

	for _, level := range []string{"", model.AccessFree, model.AccessPremium} {
		l := createLesson(t, svc, model.Lesson{Title: "ok", AccessLevel: level})
		if l.AccessLevel != level {
			t.Errorf("AccessLevel = %q, want %q", l.AccessLevel, level)
		}
	}

	_, err := svc.Create(context.Background(), &model.Lesson{Title: "bad", AccessLevel: "gold"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("Create(accessLevel=gold) error = %v, want ErrValidation", err)
	}
}

func TestLessonCreate_KeepsExtraFields(t *testing.T) {
	svc, _ := newTestLessonService(t)

	l := createLesson(t, svc, model.Lesson{Title: "t", Extra: map[string]any{"mood": "calm"}})
	got, err := svc.Get(context.Background(), l.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Extra["mood"] != "calm" {
		t.Errorf("Extra = %v, want mood=calm", got.Extra)
	}
}

func TestLessonCreate_RejectsOperatorFieldNames(t *testing.T) {
	svc, _ := newTestLessonService(t)

	for _, key := range []string{"$where", "a.b"} {
		_, err := svc.Create(context.Background(), &model.Lesson{Extra: map[string]any{key: 1}})
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("Create(extra %q) error = %v, want ErrValidation", key, err)
		}
	}
}

// =========================================================================
// UPDATE / DELETE (guarded)
// =========================================================================

func TestLessonUpdate_PartialKeepsOmittedFields(t *testing.T) {
	svc, _ := newTestLessonService(t)
	ctx := context.Background()
	l := createLesson(t, svc, model.Lesson{
		Title:         "v1",
		Description:   "what I learned",
		Category:      "career",
		EmotionalTone: "hopeful",
		Privacy:       model.PrivacyPublic,
		Email:         "author@x.io",
	})

	got, err := svc.Update(ctx, l.ID, "author@x.io", model.LessonUpdate{Title: ptr("renamed")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	want := model.Lesson{
		Title:         "renamed",
		Description:   "what I learned",
		Category:      "career",
		EmotionalTone: "hopeful",
		Privacy:       model.PrivacyPublic,
	}
	if got.Title != want.Title || got.Description != want.Description ||
		got.Category != want.Category || got.EmotionalTone != want.EmotionalTone ||
		got.Privacy != want.Privacy {
		t.Errorf("Update() = %+v, want omitted fields kept as in %+v", got, want)
	}
}

func TestLessonUpdate_InvalidContent(t *testing.T) {
	svc, _ := newTestLessonService(t)
	ctx := context.Background()
	l := createLesson(t, svc, model.Lesson{Title: "v1", Email: "author@x.io"})

	tests := []struct {
		name string
		upd  model.LessonUpdate
	}{
		{"unknown access level", model.LessonUpdate{AccessLevel: ptr("gold")}},
		{"operator field name", model.LessonUpdate{Extra: map[string]any{"$inc": 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(ctx, l.ID, "author@x.io", tt.upd)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("Update() error = %v, want ErrValidation", err)
			}
		})
	}

	got, err := svc.Get(ctx, l.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.UpdatedAt != nil {
		t.Error("a rejected update must not touch the lesson")
	}
}

func TestLessonUpdate_OwnerAndAdmin(t *testing.T) {
	svc, _ := newTestLessonService(t)
	l := createLesson(t, svc, model.Lesson{Title: "v1", Email: "author@x.io"})

	for _, who := range []string{"author@x.io", "admin@x.io"} {
		got, err := svc.Update(context.Background(), l.ID, who, model.LessonUpdate{Title: ptr("by " + who)})
		if err != nil {
			t.Fatalf("Update() by %s error = %v", who, err)
		}
		if got.Title != "by "+who {
			t.Errorf("Title = %q, want %q", got.Title, "by "+who)
		}
	}
}

func TestLessonUpdate_ForbiddenLeavesLessonUnchanged(t *testing.T) {
	svc, _ := newTestLessonService(t)
	ctx := context.Background()
	l := createLesson(t, svc, model.Lesson{Title: "original", Email: "author@x.io"})

	_, err := svc.Update(ctx, l.ID, "reader@x.io", model.LessonUpdate{Title: ptr("hijacked")})
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("Update() error = %v, want ErrForbidden", err)
	}

	err = svc.Delete(ctx, l.ID, "reader@x.io")
	if !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("Delete() error = %v, want ErrForbidden", err)
	}

	got, err := svc.Get(ctx, l.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != "original" || got.UpdatedAt != nil {
		t.Errorf("lesson changed after rejected attempts: %+v", got)
	}
}

func TestLessonDelete_NotFoundBeforeForbidden(t *testing.T) {
	svc, _ := newTestLessonService(t)

	err := svc.Delete(context.Background(), "d1bnq0o5sf3ljnrp8k0g", "reader@x.io")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete() error = %v, want ErrNotFound", err)
	}
}

func TestLessonDelete_Owner(t *testing.T) {
	svc, _ := newTestLessonService(t)
	ctx := context.Background()
	l := createLesson(t, svc, model.Lesson{Email: "author@x.io"})

	if err := svc.Delete(ctx, l.ID, "author@x.io"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.Get(ctx, l.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// TOGGLES
// =========================================================================

func TestToggleLike_Parity(t *testing.T) {
	svc, _ := newTestLessonService(t)
	ctx := context.Background()
	l := createLesson(t, svc, model.Lesson{})

	for n := 1; n <= 6; n++ {
		res, err := svc.ToggleLike(ctx, l.ID, "reader@x.io")
		if err != nil {
			t.Fatalf("ToggleLike() #%d error = %v", n, err)
		}
		wantActive := n%2 == 1
		if res.Active != wantActive {
			t.Errorf("toggle #%d Active = %v, want %v", n, res.Active, wantActive)
		}
		if res.Count != n%2 {
			t.Errorf("toggle #%d Count = %d, want %d", n, res.Count, n%2)
		}
	}
}

func TestToggleFavorite_RequiresUserID(t *testing.T) {
	svc, _ := newTestLessonService(t)
	l := createLesson(t, svc, model.Lesson{})

	_, err := svc.ToggleFavorite(context.Background(), l.ID, " ")
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("ToggleFavorite() error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// REPORTS
// =========================================================================

func TestReport_Validation(t *testing.T) {
	svc, _ := newTestLessonService(t)
	l := createLesson(t, svc, model.Lesson{})

	tests := []struct {
		name   string
		report model.LessonReport
		field  string
	}{
		{"missing reporter", model.LessonReport{Reason: "spam"}, "reporterUserId"},
		{"missing reason", model.LessonReport{ReporterUserID: "r@x.io", Reason: "   "}, "reason"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Report(context.Background(), l.ID, &tt.report)
			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Report() error = %v, want validation error", err)
			}
			if appErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.field)
			}
		})
	}
}

func TestReport_RepeatsAreKeptAndAdminCanList(t *testing.T) {
	svc, _ := newTestLessonService(t)
	ctx := context.Background()
	l := createLesson(t, svc, model.Lesson{})

	for i := 0; i < 2; i++ {
		if _, err := svc.Report(ctx, l.ID, &model.LessonReport{ReporterUserID: "reader@x.io", Reason: "spam"}); err != nil {
			t.Fatalf("Report() error = %v", err)
		}
	}

	if _, err := svc.Reports(ctx, "reader@x.io"); !errors.Is(err, apperror.ErrForbidden) {
		t.Errorf("Reports() by non-admin error = %v, want ErrForbidden", err)
	}

	reports, err := svc.Reports(ctx, "admin@x.io")
	if err != nil {
		t.Fatalf("Reports() error = %v", err)
	}
	if len(reports) != 2 {
		t.Errorf("Reports() returned %d, want 2", len(reports))
	}
}
