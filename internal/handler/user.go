package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/life-journal/internal/auth"
	"github.com/sakif/life-journal/internal/model"
	"github.com/sakif/life-journal/internal/service"
)

// UserHandler serves /users and the admin user management routes.
type UserHandler struct {
	users    *service.UserService
	verifier auth.Verifier
	logger   *slog.Logger
}

func NewUserHandler(users *service.UserService, verifier auth.Verifier, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, verifier: verifier, logger: logger}
}

// HandleUpsert registers a user on first login and refreshes last_loggedIn
// afterwards. 201 when created, 200 when the user already existed.
//
// HTTP: POST /users
// REQUEST BODY: {"email": "...", "name": "...", "photoURL": "..."}
func (h *UserHandler) HandleUpsert(w http.ResponseWriter, r *http.Request) {
	var user model.User
	if err := readJSON(w, r, &user); err != nil {
		writeError(w, err)
		return
	}

	stored, created, err := h.users.Upsert(r.Context(), &user)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, stored)
}

// HandleRole returns role and payment status, defaulting to freeUser/Unpaid.
//
// HTTP: GET /users/role/{email}
func (h *UserHandler) HandleRole(w http.ResponseWriter, r *http.Request) {
	status, err := h.users.RoleStatus(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// HTTP: GET /users/favorites/{email}
func (h *UserHandler) HandleFavorites(w http.ResponseWriter, r *http.Request) {
	lessons, err := h.users.Favorites(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lessons)
}

// HTTP: GET /users/{email}
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Profile(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HTTP: GET /admin/users
// AUTH: Authorization: Bearer <token> (admin)
func (h *UserHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.Authenticate(r, h.verifier)
	if err != nil {
		writeError(w, err)
		return
	}

	users, err := h.users.List(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type roleRequest struct {
	Role string `json:"role"`
}

// HTTP: PATCH /admin/users/{email}/role
// REQUEST BODY: {"role": "Premium"}
// AUTH: Authorization: Bearer <token> (admin)
func (h *UserHandler) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	identity, err := auth.Authenticate(r, h.verifier)
	if err != nil {
		writeError(w, err)
		return
	}

	var req roleRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.users.UpdateRole(r.Context(), identity, chi.URLParam(r, "email"), req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
