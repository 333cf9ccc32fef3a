package controller

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type profile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func TestMeReturnsProfileWithoutPassword(t *testing.T) {
	tokens := newTokens(t)
	router := newTestRouter(tokens, newMemUsers(), nil)
	id := registerUser(t, router, "alice", "alice@example.com", "Secret123")

	resp := doJSON(t, router, http.MethodGet, "/api/users/me", bearer(t, tokens, id, "alice"), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.NotContains(t, resp.Body.String(), "password")
	assert.Equal(t, profile{ID: id, Username: "alice", Email: "alice@example.com"}, decode[profile](t, resp))
}

func TestMeForDeletedUser(t *testing.T) {
	tokens := newTokens(t)
	router := newTestRouter(tokens, newMemUsers(), nil)

	resp := doJSON(t, router, http.MethodGet, "/api/users/me", bearer(t, tokens, 99, "ghost"), nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "User not found", decode[message](t, resp).Message)
}

func TestMeRequiresToken(t *testing.T) {
	router := newTestRouter(newTokens(t), newMemUsers(), nil)

	resp := doJSON(t, router, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	resp = doJSON(t, router, http.MethodGet, "/api/users/me", "Bearer garbage", nil)
	assert.Equal(t, http.StatusForbidden, resp.Code)
}

func TestUpdateMe(t *testing.T) {
	tokens := newTokens(t)
	router := newTestRouter(tokens, newMemUsers(), nil)
	alice := registerUser(t, router, "alice", "alice@example.com", "Secret123")
	registerUser(t, router, "bob", "bob@example.com", "Secret123")
	auth := bearer(t, tokens, alice, "alice")

	t.Run("empty body", func(t *testing.T) {
		resp := doJSON(t, router, http.MethodPatch, "/api/users/me", auth, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "No fields to update", decode[message](t, resp).Message)
	})

	t.Run("email held by another user", func(t *testing.T) {
		resp := doJSON(t, router, http.MethodPatch, "/api/users/me", auth, map[string]string{"email": "bob@example.com"})
		assert.Equal(t, http.StatusConflict, resp.Code)
	})

	t.Run("own current values are not a conflict", func(t *testing.T) {
		resp := doJSON(t, router, http.MethodPatch, "/api/users/me", auth, map[string]string{"username": "alice"})
		assert.Equal(t, http.StatusOK, resp.Code)
	})

	t.Run("overlong value", func(t *testing.T) {
		resp := doJSON(t, router, http.MethodPatch, "/api/users/me", auth, map[string]string{"email": strings.Repeat("e", 256)})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, "Email must be at most 255 characters", decode[message](t, resp).Message)
	})

	t.Run("partial update keeps other field", func(t *testing.T) {
		resp := doJSON(t, router, http.MethodPatch, "/api/users/me", auth, map[string]string{"username": "alicia"})
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, profile{ID: alice, Username: "alicia", Email: "alice@example.com"}, decode[profile](t, resp))
		assert.NotContains(t, resp.Body.String(), "password")
	})
}
