// Package handler contains the HTTP request handlers of the API.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the incoming HTTP request (path params, query, body, headers)
//  2. Authenticate the caller where the route is protected
//  3. Call the service layer
//  4. Write the HTTP response (status code, headers, JSON body)
//
// Handlers hold no business rules. Each resource gets its own struct so its
// dependencies are explicit and it can be tested on its own.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger is satisfied by repository.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HomeHandler serves the liveness and readiness endpoints.
type HomeHandler struct {
	store  Pinger
	logger *slog.Logger
}

func NewHomeHandler(store Pinger, logger *slog.Logger) *HomeHandler {
	return &HomeHandler{store: store, logger: logger}
}

// HandleRoot is the liveness text.
//
// HTTP: GET /
func (h *HomeHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Welcome to The Life Journal!"))
}

// HandleHealth reports readiness: 200 when the store answers a ping within
// two seconds, 503 otherwise.
//
// HTTP: GET /health
func (h *HomeHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
