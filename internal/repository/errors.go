package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"fintrack/internal/model"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrDuplicateMessage aliases the model sentinel so callers outside the
	// storage layer do not need to import this package.
	ErrDuplicateMessage = model.ErrDuplicateMessage
)

const uniqueViolation = "23505"

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
