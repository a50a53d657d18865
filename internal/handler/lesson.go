package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/life-journal/internal/apperror"
	"github.com/sakif/life-journal/internal/auth"
	"github.com/sakif/life-journal/internal/model"
	"github.com/sakif/life-journal/internal/repository"
	"github.com/sakif/life-journal/internal/service"
)

// LessonHandler serves /lessons and the admin report listing.
type LessonHandler struct {
	lessons  *service.LessonService
	verifier auth.Verifier
	logger   *slog.Logger
}

func NewLessonHandler(lessons *service.LessonService, verifier auth.Verifier, logger *slog.Logger) *LessonHandler {
	return &LessonHandler{lessons: lessons, verifier: verifier, logger: logger}
}

// parseLimit reads ?limit=. Absent, zero or negative means no limit.
func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed("limit", "limit must be an integer")
	}
	return n, nil
}

// HandleList returns lessons, newest first.
//
// HTTP: GET /lessons?email=&category=&emotionalTone=&privacy=&limit=
//
// category and emotionalTone together match lessons having EITHER value.
func (h *LessonHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	lessons, err := h.lessons.List(r.Context(), repository.LessonFilter{
		Email:         q.Get("email"),
		Category:      q.Get("category"),
		EmotionalTone: q.Get("emotionalTone"),
		Privacy:       q.Get("privacy"),
		Limit:         limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lessons)
}

// HandleListPublic is the public feed.
//
// HTTP: GET /lessons/public?limit=
func (h *LessonHandler) HandleListPublic(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}

	lessons, err := h.lessons.ListPublic(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lessons)
}

// HTTP: GET /lessons/{id}
func (h *LessonHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	lesson, err := h.lessons.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}

// HandleCreate stores the lesson as sent, including its author email.
//
// HTTP: POST /lessons
func (h *LessonHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var lesson model.Lesson
	if err := readJSON(w, r, &lesson); err != nil {
		writeError(w, err)
		return
	}

	created, err := h.lessons.Create(r.Context(), &lesson)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleUpdate writes the fields present in the body; absent ones are left
// as stored. Author or admin only.
//
// HTTP: PUT /lessons/{id}
// AUTH: Authorization: Bearer <token>
func (h *LessonHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.Authenticate(r, h.verifier)
	if err != nil {
		writeError(w, err)
		return
	}

	var upd model.LessonUpdate
	if err := readJSON(w, r, &upd); err != nil {
		writeError(w, err)
		return
	}

	lesson, err := h.lessons.Update(r.Context(), chi.URLParam(r, "id"), identity, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lesson)
}

// HTTP: DELETE /lessons/{id}
// AUTH: Authorization: Bearer <token>
func (h *LessonHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.Authenticate(r, h.verifier)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.lessons.Delete(r.Context(), chi.URLParam(r, "id"), identity); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DeletedResponse{Deleted: true})
}

// toggleRequest is the body of the like and favorite toggles.
type toggleRequest struct {
	UserID string `json:"userId"`
}

// HTTP: PATCH /lessons/{id}/like
// REQUEST BODY: {"userId": "ana@example.com"}
func (h *LessonHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.lessons.ToggleLike(r.Context(), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HTTP: PATCH /lessons/{id}/favorite
// REQUEST BODY: {"userId": "ana@example.com"}
func (h *LessonHandler) HandleFavorite(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.lessons.ToggleFavorite(r.Context(), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HTTP: POST /lessons/{id}/report
// REQUEST BODY: {"reporterUserId": "...", "reporterName": "...", "reason": "..."}
func (h *LessonHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	var report model.LessonReport
	if err := readJSON(w, r, &report); err != nil {
		writeError(w, err)
		return
	}

	created, err := h.lessons.Report(r.Context(), chi.URLParam(r, "id"), &report)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// HandleListReports is the moderation queue.
//
// HTTP: GET /admin/reports
// AUTH: Authorization: Bearer <token> (admin)
func (h *LessonHandler) HandleListReports(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.Authenticate(r, h.verifier)
	if err != nil {
		writeError(w, err)
		return
	}

	reports, err := h.lessons.Reports(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}
