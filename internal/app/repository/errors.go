package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrLinkNotFound signals that the requested short link does not exist.
	ErrLinkNotFound = errors.New("link not found")
	// ErrDuplicateSlug is returned by Create when the slug is already taken.
	ErrDuplicateSlug = errors.New("duplicate slug")
	// ErrDuplicateClick is returned when a click with the same event id was already stored.
	ErrDuplicateClick = errors.New("duplicate click event")
)

const pgUniqueViolation = "23505"

// isUniqueViolation recognises unique-index failures from Postgres and SQLite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
