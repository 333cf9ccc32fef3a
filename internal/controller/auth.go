package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"todo-summary/internal/auth"
	"todo-summary/internal/models"
	"todo-summary/internal/repository"
	"todo-summary/pkg/logger"

	"github.com/gin-gonic/gin"
)

const msgInvalidCredentials = "Invalid credentials"

// UserStore is the account storage used by the auth and user handlers.
type UserStore interface {
	Exists(ctx context.Context, username, email string) (bool, error)
	Create(ctx context.Context, username, email, passwordHash string) (int64, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	TakenByOther(ctx context.Context, selfID int64, patch models.UserPatch) (bool, error)
	Update(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error)
}

// TokenIssuer signs bearer tokens.
type TokenIssuer interface {
	Issue(id auth.Identity) (string, error)
}

// Auth serves registration and login.
type Auth struct {
	users  UserStore
	tokens TokenIssuer

	decoyOnce sync.Once
	decoy     string
}

// NewAuth returns the auth handlers.
func NewAuth(users UserStore, tokens TokenIssuer) *Auth {
	return &Auth{users: users, tokens: tokens}
}

// Register creates an account: 201 {message, userId}.
func (h *Auth) Register(c *gin.Context) {
	ctx := c.Request.Context()
	var body struct {
		Username string `json:"username" binding:"required,max=255"`
		Email    string `json:"email" binding:"required,max=255"`
		Password string `json:"password" binding:"required,max=72"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondMessage(c, http.StatusBadRequest, bindProblem(err, "All fields are required"))
		return
	}

	exists, err := h.users.Exists(ctx, body.Username, body.Email)
	if err != nil {
		serverError(c, "Register lookup", err)
		return
	}
	if exists {
		respondMessage(c, http.StatusConflict, "Username or email already exists")
		return
	}

	hash, err := auth.HashPassword(body.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		respondMessage(c, http.StatusBadRequest,
			fmt.Sprintf("Password must be at most %d bytes", auth.MaxPasswordBytes))
		return
	}
	if err != nil {
		serverError(c, "Register hash", err)
		return
	}
	id, err := h.users.Create(ctx, body.Username, body.Email, hash)
	if errors.Is(err, repository.ErrConflict) {
		respondMessage(c, http.StatusConflict, "Username or email already exists")
		return
	}
	if err != nil {
		serverError(c, "Register insert", err)
		return
	}

	logger.Info(ctx, "User registered", "user_id", id)
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"userId":  id,
	})
}

// Login exchanges credentials for a token: 200 {message, token, user}.
// Unknown usernames and wrong passwords get the same answer.
func (h *Auth) Login(c *gin.Context) {
	ctx := c.Request.Context()
	var body struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondMessage(c, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := h.users.GetByUsername(ctx, body.Username)
	if errors.Is(err, repository.ErrNotFound) {
		auth.CheckPassword(h.decoyHash(), body.Password)
		respondMessage(c, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}
	if err != nil {
		serverError(c, "Login lookup", err)
		return
	}
	if !auth.CheckPassword(user.Password, body.Password) {
		respondMessage(c, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	token, err := h.tokens.Issue(auth.Identity{ID: user.ID, Username: user.Username})
	if err != nil {
		serverError(c, "Login token", err)
		return
	}
	user.Password = ""

	logger.Info(ctx, "User logged in", "user_id", user.ID)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   token,
		"user":    user,
	})
}

// decoyHash is compared against when the username is unknown so both
// failure paths cost one bcrypt comparison.
func (h *Auth) decoyHash() string {
	h.decoyOnce.Do(func() {
		h.decoy, _ = auth.HashPassword("decoy-password-for-unknown-users")
	})
	return h.decoy
}
