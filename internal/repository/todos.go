package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"todo-summary/internal/models"
	"todo-summary/pkg/logger"

	"github.com/lib/pq"
)

const todoColumns = `id, title, completed, user_id, created_at`

const (
	updateTodoTitle = `UPDATE todos SET title = $1 WHERE id = $2 AND user_id = $3 RETURNING ` + todoColumns

	updateTodoCompleted = `UPDATE todos SET completed = $1 WHERE id = $2 AND user_id = $3 RETURNING ` + todoColumns

	updateTodoTitleCompleted = `UPDATE todos SET title = $1, completed = $2 WHERE id = $3 AND user_id = $4 RETURNING ` + todoColumns
)

// Todos reads and writes todo rows. Every statement is scoped by owner.
type Todos struct {
	db *sql.DB
}

// NewTodos returns a todo repository backed by the given pool.
func NewTodos(db *sql.DB) *Todos {
	return &Todos{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (*models.Todo, error) {
	var t models.Todo
	if err := row.Scan(&t.ID, &t.Title, &t.Completed, &t.UserID, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByOwner returns the owner's todos, newest first. It never returns nil on success.
func (r *Todos) ListByOwner(ctx context.Context, userID int64) ([]models.Todo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		logger.Error(ctx, "Repository ListByOwner failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()
	todos := make([]models.Todo, 0)
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			logger.Error(ctx, "Repository scan todo failed", "error", err)
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		todos = append(todos, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return todos, nil
}

// Create inserts a todo owned by userID and returns the stored row.
func (r *Todos) Create(ctx context.Context, userID int64, title string, completed bool) (*models.Todo, error) {
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO todos (title, completed, user_id) VALUES ($1, $2, $3) RETURNING `+todoColumns,
		title, completed, userID)
	t, err := scanTodo(row)
	if err != nil {
		logger.Error(ctx, "Repository Create failed", "error", err, "user_id", userID)
		return nil, fmt.Errorf("create todo: %w", err)
	}
	return t, nil
}

// Get returns the todo with id if userID owns it, otherwise ErrNotFound.
func (r *Todos) Get(ctx context.Context, id, userID int64) (*models.Todo, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE id = $1 AND user_id = $2`, id, userID)
	t, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Error(ctx, "Repository Get failed", "error", err, "id", id)
		return nil, fmt.Errorf("get todo: %w", err)
	}
	return t, nil
}

// Update applies the supplied fields of patch to the owner's todo and returns
// the row as stored afterwards.
func (r *Todos) Update(ctx context.Context, id, userID int64, patch models.TodoPatch) (*models.Todo, error) {
	var row *sql.Row
	switch {
	case patch.Title != nil && patch.Completed != nil:
		row = r.db.QueryRowContext(ctx, updateTodoTitleCompleted, *patch.Title, *patch.Completed, id, userID)
	case patch.Title != nil:
		row = r.db.QueryRowContext(ctx, updateTodoTitle, *patch.Title, id, userID)
	case patch.Completed != nil:
		row = r.db.QueryRowContext(ctx, updateTodoCompleted, *patch.Completed, id, userID)
	default:
		return nil, ErrEmptyPatch
	}
	t, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Error(ctx, "Repository Update failed", "error", err, "id", id)
		return nil, fmt.Errorf("update todo: %w", err)
	}
	return t, nil
}

// Delete removes the owner's todo, or returns ErrNotFound if nothing matched.
func (r *Todos) Delete(ctx context.Context, id, userID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		logger.Error(ctx, "Repository Delete failed", "error", err, "id", id)
		return fmt.Errorf("delete todo: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete todo: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Summary counts the owner's todos.
func (r *Todos) Summary(ctx context.Context, userID int64) (models.TodoSummary, error) {
	var s models.TodoSummary
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE completed) FROM todos WHERE user_id = $1`, userID).
		Scan(&s.Total, &s.Completed)
	if err != nil {
		logger.Error(ctx, "Repository Summary failed", "error", err, "user_id", userID)
		return s, fmt.Errorf("summarize todos: %w", err)
	}
	s.Pending = s.Total - s.Completed
	return s, nil
}

// BulkCreate loads titles for userID in one COPY and returns how many rows were written.
// Used by the seed command; rows are created not completed.
func (r *Todos) BulkCreate(ctx context.Context, userID int64, titles []string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("bulk create todos: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("todos", "title", "completed", "user_id"))
	if err != nil {
		return 0, fmt.Errorf("prepare copy: %w", err)
	}
	for _, title := range titles {
		if _, err := stmt.ExecContext(ctx, title, false, userID); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("copy todo: %w", err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return 0, fmt.Errorf("flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return 0, fmt.Errorf("close copy: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit copy: %w", err)
	}
	return len(titles), nil
}
