package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/life-journal/internal/auth"
	"github.com/sakif/life-journal/internal/service"
)

// AnalyticsHandler serves the aggregate views.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
	verifier  auth.Verifier
	logger    *slog.Logger
}

func NewAnalyticsHandler(analytics *service.AnalyticsService, verifier auth.Verifier, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, verifier: verifier, logger: logger}
}

// HTTP: GET /analytics/top-contributors-week
func (h *AnalyticsHandler) HandleTopContributors(w http.ResponseWriter, r *http.Request) {
	out, err := h.analytics.TopContributorsThisWeek(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HTTP: GET /analytics/most-saved-lessons
func (h *AnalyticsHandler) HandleMostSaved(w http.ResponseWriter, r *http.Request) {
	out, err := h.analytics.MostSaved(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HTTP: GET /admin/analytics
// AUTH: Authorization: Bearer <token> (admin)
func (h *AnalyticsHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.Authenticate(r, h.verifier)
	if err != nil {
		writeError(w, err)
		return
	}

	stats, err := h.analytics.Dashboard(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
