package models

import "time"

// Todo represents a todo item. UserID is fixed at creation.
type Todo struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TodoPatch carries the fields of a partial update; nil means "leave unchanged".
type TodoPatch struct {
	Title     *string `json:"title"`
	Completed *bool   `json:"completed"`
}

// Empty reports whether the patch would change nothing.
func (p TodoPatch) Empty() bool {
	return p.Title == nil && p.Completed == nil
}

// TodoSummary counts a user's todos.
type TodoSummary struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Pending   int64 `json:"pending"`
}

// Todo event types published after a successful write.
const (
	TodoCreated = "todo.created"
	TodoUpdated = "todo.updated"
	TodoDeleted = "todo.deleted"
)

// TodoEvent is the message payload for Kafka.
type TodoEvent struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	TodoID     int64     `json:"todo_id"`
	UserID     int64     `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
