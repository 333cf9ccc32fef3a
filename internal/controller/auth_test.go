package controller

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	Message string `json:"message"`
}

func registerUser(t *testing.T, router http.Handler, username, email, password string) int64 {
	t.Helper()
	resp := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username, "email": email, "password": password,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	out := decode[struct {
		Message string `json:"message"`
		UserID  int64  `json:"userId"`
	}](t, resp)
	assert.Equal(t, "User registered successfully", out.Message)
	return out.UserID
}

func TestRegisterOnceThenConflict(t *testing.T) {
	tokens := newTokens(t)
	users := newMemUsers()
	router := newTestRouter(tokens, users, nil)

	id := registerUser(t, router, "alice", "alice@example.com", "Secret123")
	assert.Equal(t, int64(1), id)
	assert.NotEqual(t, "Secret123", users.rows[id].Password, "password is stored hashed")

	for name, body := range map[string]map[string]string{
		"same username": {"username": "alice", "email": "other@example.com", "password": "x"},
		"same email":    {"username": "other", "email": "alice@example.com", "password": "x"},
	} {
		t.Run(name, func(t *testing.T) {
			resp := doJSON(t, router, http.MethodPost, "/api/auth/register", "", body)
			assert.Equal(t, http.StatusConflict, resp.Code)
			assert.Equal(t, "Username or email already exists", decode[message](t, resp).Message)
		})
	}
	assert.Len(t, users.rows, 1)
}

func TestRegisterValidation(t *testing.T) {
	router := newTestRouter(newTokens(t), newMemUsers(), nil)

	cases := map[string]any{
		"missing password": map[string]string{"username": "a", "email": "a@example.com"},
		"empty username":   map[string]string{"username": "", "email": "a@example.com", "password": "p"},
		"malformed json":   "{",
		"no body":          nil,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp := doJSON(t, router, http.MethodPost, "/api/auth/register", "", body)
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Equal(t, "All fields are required", decode[message](t, resp).Message)
		})
	}
}

func TestRegisterStoreFailureIsGeneric(t *testing.T) {
	users := newMemUsers()
	users.err = errors.New("pq: connection refused at 10.0.0.5")
	router := newTestRouter(newTokens(t), users, nil)

	resp := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "Secret123",
	})
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, "Server error", decode[message](t, resp).Message)
	assert.NotContains(t, resp.Body.String(), "10.0.0.5")
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	tokens := newTokens(t)
	router := newTestRouter(tokens, newMemUsers(), nil)
	id := registerUser(t, router, "alice", "alice@example.com", "Secret123")

	resp := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "Secret123",
	})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.NotContains(t, resp.Body.String(), "password")

	out := decode[struct {
		Message string `json:"message"`
		Token   string `json:"token"`
		User    struct {
			ID       int64  `json:"id"`
			Username string `json:"username"`
			Email    string `json:"email"`
		} `json:"user"`
	}](t, resp)
	assert.Equal(t, "Login successful", out.Message)
	assert.Equal(t, id, out.User.ID)
	assert.Equal(t, "alice@example.com", out.User.Email)

	claim, err := tokens.Verify(out.Token)
	require.NoError(t, err)
	assert.Equal(t, id, claim.ID)
	assert.Equal(t, "alice", claim.Username)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	router := newTestRouter(newTokens(t), newMemUsers(), nil)
	registerUser(t, router, "alice", "alice@example.com", "Secret123")

	wrongPassword := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "alice", "password": "secret123",
	})
	unknownUser := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": "bob", "password": "Secret123",
	})

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	assert.Equal(t, wrongPassword.Body.String(), unknownUser.Body.String())
	assert.Equal(t, "Invalid credentials", decode[message](t, unknownUser).Message)
}

func TestLoginValidation(t *testing.T) {
	router := newTestRouter(newTokens(t), newMemUsers(), nil)

	resp := doJSON(t, router, http.MethodPost, "/api/auth/login", "", map[string]string{"username": "alice"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.True(t, strings.HasPrefix(decode[message](t, resp).Message, "Username and password"))
}

func TestRegisterRejectsOverlongFields(t *testing.T) {
	users := newMemUsers()
	router := newTestRouter(newTokens(t), users, nil)

	tests := []struct {
		name     string
		username string
		email    string
		password string
		want     string
	}{
		{"password over 72 chars", "alice", "a@x.io", strings.Repeat("p", 80), "Password must be at most 72 characters"},
		{"password over 72 bytes", "alice", "a@x.io", strings.Repeat("€", 30), "Password must be at most 72 bytes"},
		{"username over 255", strings.Repeat("u", 256), "a@x.io", "Secret123", "Username must be at most 255 characters"},
		{"email over 255", "alice", strings.Repeat("e", 251) + "@x.io", "Secret123", "Email must be at most 255 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, router, http.MethodPost, "/api/auth/register", "", map[string]string{
				"username": tt.username, "email": tt.email, "password": tt.password,
			})
			assert.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Equal(t, tt.want, decode[message](t, resp).Message)
		})
	}
	assert.Empty(t, users.rows)

	registerUser(t, router, "alice", "a@x.io", strings.Repeat("p", 72))
}
