package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound means no row matched, including rows owned by someone else.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a unique username or email is already taken.
	ErrConflict = errors.New("already exists")
	// ErrEmptyPatch means an update carried no fields.
	ErrEmptyPatch = errors.New("no fields to update")
)

const uniqueViolation = pq.ErrorCode("23505")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
