package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/life-journal/internal/apperror"
	"github.com/sakif/life-journal/internal/auth"
	"github.com/sakif/life-journal/internal/guard"
	"github.com/sakif/life-journal/internal/handler"
	"github.com/sakif/life-journal/internal/model"
	"github.com/sakif/life-journal/internal/payment"
	"github.com/sakif/life-journal/internal/repository/sqlite"
	"github.com/sakif/life-journal/internal/service"
)

// =========================================================================
// TEST API
// =========================================================================
//
// testAPI mounts the real handlers on a chi router (chi.URLParam only works
// behind one) over an in-memory SQLite store. Bearer tokens are minted with
// a real TokenService, so authentication runs end to end.

const testSecret = "handler-test-secret-0123456789"

type testAPI struct {
	router *chi.Mux
	db     *sqlite.DB
	tokens *auth.TokenService
	proc   *fakeProcessor
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(context.Background()) })

	tokens, err := auth.NewTokenService(testSecret)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	proc := newFakeProcessor()
	g := guard.New(db.Lessons(), db.Users())

	lessons := handler.NewLessonHandler(
		service.NewLessonService(db.Lessons(), db.Reports(), g, logger), tokens, logger)
	users := handler.NewUserHandler(
		service.NewUserService(db.Users(), db.Lessons(), g, logger), tokens, logger)
	comments := handler.NewCommentHandler(service.NewCommentService(db.Comments(), logger), logger)
	analytics := handler.NewAnalyticsHandler(
		service.NewAnalyticsService(db, g, service.DefaultTopContributors, logger), tokens, logger)
	payments := handler.NewPaymentHandler(service.NewPaymentService(proc, db.Users(), logger), logger)
	home := handler.NewHomeHandler(db, logger)

	r := chi.NewRouter()
	r.Get("/", home.HandleRoot)
	r.Get("/health", home.HandleHealth)

	r.Get("/lessons", lessons.HandleList)
	r.Post("/lessons", lessons.HandleCreate)
	r.Get("/lessons/public", lessons.HandleListPublic)
	r.Get("/lessons/{id}", lessons.HandleGet)
	r.Put("/lessons/{id}", lessons.HandleUpdate)
	r.Delete("/lessons/{id}", lessons.HandleDelete)
	r.Patch("/lessons/{id}/like", lessons.HandleLike)
	r.Patch("/lessons/{id}/favorite", lessons.HandleFavorite)
	r.Post("/lessons/{id}/report", lessons.HandleReport)
	r.Get("/admin/reports", lessons.HandleListReports)

	r.Post("/users", users.HandleUpsert)
	r.Get("/users/role/{email}", users.HandleRole)
	r.Get("/users/favorites/{email}", users.HandleFavorites)
	r.Get("/users/{email}", users.HandleProfile)
	r.Get("/admin/users", users.HandleList)
	r.Patch("/admin/users/{email}/role", users.HandleUpdateRole)

	r.Post("/comments", comments.HandleCreate)
	r.Get("/comments", comments.HandleList)
	r.Delete("/comments/{id}", comments.HandleDelete)

	r.Get("/analytics/top-contributors-week", analytics.HandleTopContributors)
	r.Get("/analytics/most-saved-lessons", analytics.HandleMostSaved)
	r.Get("/admin/analytics", analytics.HandleDashboard)

	r.Post("/payment-checkout-session", payments.HandleCheckout)
	r.Patch("/payment/success", payments.HandleSuccess)
	r.Post("/webhook", payments.HandleWebhook)

	return &testAPI{router: r, db: db, tokens: tokens, proc: proc}
}

// do sends a request. body may be nil, a string (sent raw) or any value
// (JSON encoded). token may be empty.
func (a *testAPI) do(t *testing.T, method, target string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	a.router.ServeHTTP(rr, req)
	return rr
}

func (a *testAPI) token(t *testing.T, email string) string {
	t.Helper()
	tok, err := a.tokens.Generate(email)
	require.NoError(t, err)
	return tok
}

// seedUser registers email with the given role.
func (a *testAPI) seedUser(t *testing.T, email, role string) {
	t.Helper()
	ctx := context.Background()
	_, err := a.db.Users().Upsert(ctx, &model.User{Email: email, Name: email})
	require.NoError(t, err)
	if role != model.RoleFree {
		require.NoError(t, a.db.Users().UpdateRole(ctx, email, role))
	}
}

func (a *testAPI) seedLesson(t *testing.T, email, title, privacy string) *model.Lesson {
	t.Helper()
	l := &model.Lesson{
		Title:         title,
		Description:   "what " + title + " taught me",
		Category:      "growth",
		EmotionalTone: "hopeful",
		Privacy:       privacy,
		Email:         email,
	}
	require.NoError(t, a.db.Lessons().Create(context.Background(), l))
	return l
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}

// =========================================================================
// FAKE PROCESSOR
// =========================================================================

type fakeProcessor struct {
	sessions map[string]*payment.Session
	event    *payment.Event
	lastItem payment.CartItem
}

func newFakeProcessor() *fakeProcessor {
	return &fakeProcessor{sessions: make(map[string]*payment.Session)}
}

func (f *fakeProcessor) CreateCheckoutSession(_ context.Context, item payment.CartItem) (*payment.Session, error) {
	f.lastItem = item
	s := &payment.Session{ID: "cs_test_1", URL: "https://checkout.example/cs_test_1", Email: item.Email}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeProcessor) GetSession(_ context.Context, id string) (*payment.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, apperror.NotFound("payment session", id)
	}
	return s, nil
}

func (f *fakeProcessor) ParseWebhook(_ []byte, signature string) (*payment.Event, error) {
	if signature != "valid" {
		return nil, apperror.ValidationFailed("Stripe-Signature", "webhook signature verification failed")
	}
	return f.event, nil
}
