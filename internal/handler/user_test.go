package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/life-journal/internal/model"
)

// ===== UPSERT =====

func TestUserHandler_Upsert(t *testing.T) {
	api := newTestAPI(t)

	body := map[string]string{"email": "ana@x.io", "name": "Ana", "photoURL": "https://x.io/ana.png"}

	rr := api.do(t, http.MethodPost, "/users", body, "")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	first := decode[model.User](t, rr)
	assert.Equal(t, model.RoleFree, first.Role)
	assert.Empty(t, first.PaymentStatus)

	// A second login changes nothing but last_loggedIn, even if the client
	// tries to smuggle in a role.
	rr = api.do(t, http.MethodPost, "/users",
		map[string]string{"email": "ana@x.io", "name": "Someone Else", "role": "admin"}, "")
	require.Equal(t, http.StatusOK, rr.Code)
	second := decode[model.User](t, rr)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ana", second.Name)
	assert.Equal(t, model.RoleFree, second.Role)
	assert.False(t, second.LastLoggedIn.Before(first.LastLoggedIn))
}

func TestUserHandler_UpsertRequiresEmail(t *testing.T) {
	api := newTestAPI(t)

	rr := api.do(t, http.MethodPost, "/users", map[string]string{"name": "Anon"}, "")

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// ===== ROLE / PROFILE / FAVORITES =====

func TestUserHandler_Role(t *testing.T) {
	api := newTestAPI(t)
	api.seedUser(t, "pro@x.io", model.RolePremium)

	t.Run("unknown user gets defaults", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/users/role/nobody@x.io", nil, "")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"role":"freeUser","paymentStatus":"Unpaid"}`, rr.Body.String())
	})

	t.Run("stored role", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/users/role/pro@x.io", nil, "")
		require.Equal(t, http.StatusOK, rr.Code)
		got := decode[model.RoleStatus](t, rr)
		assert.Equal(t, model.RolePremium, got.Role)
		assert.Equal(t, model.PaymentUnpaid, got.PaymentStatus)
	})
}

func TestUserHandler_Profile(t *testing.T) {
	api := newTestAPI(t)
	api.seedUser(t, "ana@x.io", model.RoleFree)

	rr := api.do(t, http.MethodGet, "/users/ana@x.io", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ana@x.io", decode[model.User](t, rr).Email)

	rr = api.do(t, http.MethodGet, "/users/ghost@x.io", nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUserHandler_Favorites(t *testing.T) {
	api := newTestAPI(t)
	kept := api.seedLesson(t, "ana@x.io", "Kept", model.PrivacyPublic)
	api.seedLesson(t, "ana@x.io", "Skipped", model.PrivacyPublic)

	_, err := api.db.Lessons().Toggle(context.Background(), kept.ID, model.ReactionFavorites, "ben@x.io")
	require.NoError(t, err)

	rr := api.do(t, http.MethodGet, "/users/favorites/ben@x.io", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	favs := decode[[]model.Lesson](t, rr)
	require.Len(t, favs, 1)
	assert.Equal(t, kept.ID, favs[0].ID)
}

// ===== ADMIN =====

func TestUserHandler_AdminRoutes(t *testing.T) {
	api := newTestAPI(t)
	api.seedUser(t, "ana@x.io", model.RoleFree)
	api.seedUser(t, "root@x.io", model.RoleAdmin)

	t.Run("list requires a token", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/admin/users", nil, "")
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("list requires admin", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/admin/users", nil, api.token(t, "ana@x.io"))
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("unknown identity is not admin", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/admin/users", nil, api.token(t, "stranger@x.io"))
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("admin lists", func(t *testing.T) {
		rr := api.do(t, http.MethodGet, "/admin/users", nil, api.token(t, "root@x.io"))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Len(t, decode[[]model.User](t, rr), 2)
	})

	t.Run("admin promotes", func(t *testing.T) {
		rr := api.do(t, http.MethodPatch, "/admin/users/ana@x.io/role",
			map[string]string{"role": model.RolePremium}, api.token(t, "root@x.io"))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, model.RolePremium, decode[model.User](t, rr).Role)
	})

	t.Run("invalid role", func(t *testing.T) {
		rr := api.do(t, http.MethodPatch, "/admin/users/ana@x.io/role",
			map[string]string{"role": "superuser"}, api.token(t, "root@x.io"))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown target", func(t *testing.T) {
		rr := api.do(t, http.MethodPatch, "/admin/users/ghost@x.io/role",
			map[string]string{"role": model.RolePremium}, api.token(t, "root@x.io"))
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}
