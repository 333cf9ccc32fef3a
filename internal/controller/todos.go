package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"todo-summary/internal/cache"
	"todo-summary/internal/models"
	"todo-summary/internal/queue"
	"todo-summary/internal/repository"
	"todo-summary/pkg/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"
)

const msgTodoNotFound = "Todo not found"

// TodoStore is the owner-scoped todo storage.
type TodoStore interface {
	ListByOwner(ctx context.Context, userID int64) ([]models.Todo, error)
	Create(ctx context.Context, userID int64, title string, completed bool) (*models.Todo, error)
	Get(ctx context.Context, id, userID int64) (*models.Todo, error)
	Update(ctx context.Context, id, userID int64, patch models.TodoPatch) (*models.Todo, error)
	Delete(ctx context.Context, id, userID int64) error
	Summary(ctx context.Context, userID int64) (models.TodoSummary, error)
}

// EventPublisher receives an event after each successful todo write.
type EventPublisher interface {
	Publish(ctx context.Context, ev models.TodoEvent) error
}

// Todos serves the caller's todos. Every operation is scoped to the caller;
// other users' rows answer 404.
type Todos struct {
	todos  TodoStore
	cache  *cache.Cache
	events EventPublisher
	loads  singleflight.Group
}

// NewTodos returns the todo handlers. c and events may be nil.
func NewTodos(todos TodoStore, c *cache.Cache, events EventPublisher) *Todos {
	return &Todos{todos: todos, cache: c, events: events}
}

// List returns the caller's todos newest first, cache-first as raw bytes.
func (h *Todos) List(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if b, ok := h.cache.GetTodos(ctx, id.ID); ok {
		c.Data(http.StatusOK, "application/json; charset=utf-8", b)
		return
	}
	v, err, _ := h.loads.Do(listLoadKey(id.ID), func() (any, error) {
		loadCtx := context.WithoutCancel(ctx)
		gen, cacheable := h.cache.Generation(loadCtx, id.ID)
		todos, err := h.todos.ListByOwner(loadCtx, id.ID)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(todos)
		if err != nil {
			return nil, err
		}
		if cacheable {
			h.cache.SetTodos(loadCtx, id.ID, gen, b)
		}
		return b, nil
	})
	if err != nil {
		serverError(c, "List todos", err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", v.([]byte))
}

// Create adds a todo owned by the caller: 201 with the stored row.
func (h *Todos) Create(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	var body struct {
		Title     *string `json:"title"`
		Completed *bool   `json:"completed"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondMessage(c, http.StatusBadRequest, "Title is required")
		return
	}
	if body.Title == nil || *body.Title == "" {
		respondMessage(c, http.StatusBadRequest, "Title is required")
		return
	}
	completed := body.Completed != nil && *body.Completed

	todo, err := h.todos.Create(ctx, id.ID, *body.Title, completed)
	if err != nil {
		serverError(c, "Create todo", err)
		return
	}
	h.afterWrite(ctx, models.TodoCreated, todo.ID, id.ID)
	logger.Info(ctx, "Todo created", "todo_id", todo.ID, "user_id", id.ID)
	c.JSON(http.StatusCreated, todo)
}

// Get returns one of the caller's todos.
func (h *Todos) Get(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	todoID, ok := parseID(c.Param("id"))
	if !ok {
		respondMessage(c, http.StatusNotFound, msgTodoNotFound)
		return
	}
	todo, err := h.todos.Get(c.Request.Context(), todoID, id.ID)
	if errors.Is(err, repository.ErrNotFound) {
		respondMessage(c, http.StatusNotFound, msgTodoNotFound)
		return
	}
	if err != nil {
		serverError(c, "Get todo", err)
		return
	}
	c.JSON(http.StatusOK, todo)
}

// Update applies a partial update and returns the stored row.
func (h *Todos) Update(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	todoID, ok := parseID(c.Param("id"))
	if !ok {
		respondMessage(c, http.StatusNotFound, msgTodoNotFound)
		return
	}
	var patch models.TodoPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		respondMessage(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	if invalid := patchProblem(patch); invalid != "" {
		// Ownership is reported before input problems.
		if _, err := h.todos.Get(ctx, todoID, id.ID); errors.Is(err, repository.ErrNotFound) {
			respondMessage(c, http.StatusNotFound, msgTodoNotFound)
			return
		} else if err != nil {
			serverError(c, "Update todo lookup", err)
			return
		}
		respondMessage(c, http.StatusBadRequest, invalid)
		return
	}

	todo, err := h.todos.Update(ctx, todoID, id.ID, patch)
	if errors.Is(err, repository.ErrNotFound) {
		respondMessage(c, http.StatusNotFound, msgTodoNotFound)
		return
	}
	if err != nil {
		serverError(c, "Update todo", err)
		return
	}
	h.afterWrite(ctx, models.TodoUpdated, todo.ID, id.ID)
	c.JSON(http.StatusOK, todo)
}

func patchProblem(p models.TodoPatch) string {
	if p.Empty() {
		return "No fields to update"
	}
	if p.Title != nil && *p.Title == "" {
		return "Title cannot be empty"
	}
	return ""
}

// Delete removes one of the caller's todos.
func (h *Todos) Delete(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	todoID, ok := parseID(c.Param("id"))
	if !ok {
		respondMessage(c, http.StatusNotFound, msgTodoNotFound)
		return
	}
	err := h.todos.Delete(ctx, todoID, id.ID)
	if errors.Is(err, repository.ErrNotFound) {
		respondMessage(c, http.StatusNotFound, msgTodoNotFound)
		return
	}
	if err != nil {
		serverError(c, "Delete todo", err)
		return
	}
	h.afterWrite(ctx, models.TodoDeleted, todoID, id.ID)
	respondMessage(c, http.StatusOK, "Todo deleted successfully")
}

// Summary returns {total, completed, pending} for the caller.
func (h *Todos) Summary(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if s, ok := h.cache.GetSummary(ctx, id.ID); ok {
		c.JSON(http.StatusOK, s)
		return
	}
	v, err, _ := h.loads.Do(summaryLoadKey(id.ID), func() (any, error) {
		loadCtx := context.WithoutCancel(ctx)
		gen, cacheable := h.cache.Generation(loadCtx, id.ID)
		s, err := h.todos.Summary(loadCtx, id.ID)
		if err != nil {
			return nil, err
		}
		if cacheable {
			h.cache.SetSummary(loadCtx, id.ID, gen, s)
		}
		return s, nil
	})
	if err != nil {
		serverError(c, "Summarize todos", err)
		return
	}
	c.JSON(http.StatusOK, v.(models.TodoSummary))
}

func listLoadKey(userID int64) string    { return "todos:" + strconv.FormatInt(userID, 10) }
func summaryLoadKey(userID int64) string { return "summary:" + strconv.FormatInt(userID, 10) }

// afterWrite drops the owner's cached views before the response is sent and
// announces the change. Loads already in flight are detached so later reads
// start a fresh one. Publishing failures never fail the request.
func (h *Todos) afterWrite(ctx context.Context, eventType string, todoID, userID int64) {
	h.cache.Invalidate(ctx, userID)
	h.loads.Forget(listLoadKey(userID))
	h.loads.Forget(summaryLoadKey(userID))
	if h.events == nil {
		return
	}
	if err := h.events.Publish(ctx, queue.NewEvent(eventType, todoID, userID)); err != nil {
		logger.Warn(ctx, "Todo event publish failed", "error", err, "type", eventType, "todo_id", todoID)
	}
}
