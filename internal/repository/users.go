package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"todo-summary/internal/models"
	"todo-summary/pkg/logger"
)

const profileColumns = `id, username, email, created_at`

const (
	otherHasUsername      = `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 AND id <> $2)`
	otherHasEmail         = `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND id <> $2)`
	otherHasUsernameEmail = `SELECT EXISTS (SELECT 1 FROM users WHERE (username = $1 OR email = $2) AND id <> $3)`

	updateUsername      = `UPDATE users SET username = $1 WHERE id = $2 RETURNING ` + profileColumns
	updateEmail         = `UPDATE users SET email = $1 WHERE id = $2 RETURNING ` + profileColumns
	updateUsernameEmail = `UPDATE users SET username = $1, email = $2 WHERE id = $3 RETURNING ` + profileColumns
)

// Users reads and writes account rows.
type Users struct {
	db *sql.DB
}

// NewUsers returns a user repository backed by the given pool.
func NewUsers(db *sql.DB) *Users {
	return &Users{db: db}
}

func scanProfile(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Exists reports whether any user already has username or email.
func (r *Users) Exists(ctx context.Context, username, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE username = $1 OR email = $2)`, username, email).Scan(&exists)
	if err != nil {
		logger.Error(ctx, "Repository Exists failed", "error", err)
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// Create inserts a user with an already hashed password and returns its id.
// A unique violation from the store is reported as ErrConflict.
func (r *Users) Create(ctx context.Context, username, email, passwordHash string) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (username, email, password) VALUES ($1, $2, $3) RETURNING id`,
		username, email, passwordHash).Scan(&id)
	if isUniqueViolation(err) {
		return 0, ErrConflict
	}
	if err != nil {
		logger.Error(ctx, "Repository CreateUser failed", "error", err)
		return 0, fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetByUsername returns the user including the password hash, for login.
func (r *Users) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, email, password, created_at FROM users WHERE username = $1`, username).
		Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Error(ctx, "Repository GetByUsername failed", "error", err)
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetByID returns the profile without the password hash.
func (r *Users) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := scanProfile(r.db.QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Error(ctx, "Repository GetByID failed", "error", err, "id", id)
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// TakenByOther reports whether a user other than selfID holds any field in patch.
func (r *Users) TakenByOther(ctx context.Context, selfID int64, patch models.UserPatch) (bool, error) {
	var row *sql.Row
	switch {
	case patch.Username != "" && patch.Email != "":
		row = r.db.QueryRowContext(ctx, otherHasUsernameEmail, patch.Username, patch.Email, selfID)
	case patch.Username != "":
		row = r.db.QueryRowContext(ctx, otherHasUsername, patch.Username, selfID)
	case patch.Email != "":
		row = r.db.QueryRowContext(ctx, otherHasEmail, patch.Email, selfID)
	default:
		return false, nil
	}
	var taken bool
	if err := row.Scan(&taken); err != nil {
		logger.Error(ctx, "Repository TakenByOther failed", "error", err, "id", selfID)
		return false, fmt.Errorf("check profile conflict: %w", err)
	}
	return taken, nil
}

// Update applies the supplied profile fields and returns the refreshed profile.
func (r *Users) Update(ctx context.Context, id int64, patch models.UserPatch) (*models.User, error) {
	var row *sql.Row
	switch {
	case patch.Username != "" && patch.Email != "":
		row = r.db.QueryRowContext(ctx, updateUsernameEmail, patch.Username, patch.Email, id)
	case patch.Username != "":
		row = r.db.QueryRowContext(ctx, updateUsername, patch.Username, id)
	case patch.Email != "":
		row = r.db.QueryRowContext(ctx, updateEmail, patch.Email, id)
	default:
		return nil, ErrEmptyPatch
	}
	u, err := scanProfile(row)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, ErrNotFound
	case isUniqueViolation(err):
		return nil, ErrConflict
	case err != nil:
		logger.Error(ctx, "Repository UpdateUser failed", "error", err, "id", id)
		return nil, fmt.Errorf("update user: %w", err)
	}
	return u, nil
}
