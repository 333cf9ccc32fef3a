package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"todo-summary/internal/auth"
	"todo-summary/internal/middleware"
	"todo-summary/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

const msgServerError = "Server error"

func respondMessage(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"message": message})
}

// serverError logs err with the request logger and hides it from the caller.
func serverError(c *gin.Context, op string, err error) {
	logger.Error(c.Request.Context(), op+" failed", "error", err)
	respondMessage(c, http.StatusInternalServerError, msgServerError)
}

// bindProblem is the 400 message for a failed bind. Length limits are named;
// anything else gets fallback.
func bindProblem(err error, fallback string) string {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		for _, f := range fields {
			if f.Tag() == "max" {
				return fmt.Sprintf("%s must be at most %s characters", f.Field(), f.Param())
			}
		}
	}
	return fallback
}

// caller returns the authenticated identity, answering 401 when absent.
func caller(c *gin.Context) (auth.Identity, bool) {
	id, ok := middleware.Identity(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, "Authentication required")
	}
	return id, ok
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	return id, err == nil && id > 0
}
