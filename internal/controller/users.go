package controller

import (
	"errors"
	"net/http"

	"todo-summary/internal/models"
	"todo-summary/internal/repository"

	"github.com/gin-gonic/gin"
)

// Users serves the caller's own profile.
type Users struct {
	users UserStore
}

// NewUsers returns the profile handlers.
func NewUsers(users UserStore) *Users {
	return &Users{users: users}
}

// Me returns the caller's profile without the password.
func (h *Users) Me(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	user, err := h.users.GetByID(c.Request.Context(), id.ID)
	if errors.Is(err, repository.ErrNotFound) {
		respondMessage(c, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		serverError(c, "Get profile", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMe changes username and/or email, refusing values another user holds.
func (h *Users) UpdateMe(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	var patch models.UserPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondMessage(c, http.StatusBadRequest, bindProblem(err, "No fields to update"))
		return
	}
	if patch.Empty() {
		respondMessage(c, http.StatusBadRequest, "No fields to update")
		return
	}

	taken, err := h.users.TakenByOther(ctx, id.ID, patch)
	if err != nil {
		serverError(c, "Update profile lookup", err)
		return
	}
	if taken {
		respondMessage(c, http.StatusConflict, "Username or email already exists")
		return
	}

	user, err := h.users.Update(ctx, id.ID, patch)
	switch {
	case errors.Is(err, repository.ErrConflict):
		respondMessage(c, http.StatusConflict, "Username or email already exists")
	case errors.Is(err, repository.ErrNotFound):
		respondMessage(c, http.StatusNotFound, "User not found")
	case err != nil:
		serverError(c, "Update profile", err)
	default:
		c.JSON(http.StatusOK, user)
	}
}
