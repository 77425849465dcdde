package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound        = errors.New("requested resource not found")
	ErrUnauthorized    = errors.New("unauthorized access")
	ErrForbidden       = errors.New("forbidden access")
	ErrBadRequest      = errors.New("bad request")
	ErrConflict        = errors.New("resource conflict")
	ErrInternalServer  = errors.New("internal server error")
	ErrTooManyRequests = errors.New("too many requests")
)

// Auth flow errors. Each wraps one of the generic errors above so
// HTTPStatusFromError can map it without knowing about it.
var (
	ErrMissingField          = fmt.Errorf("username and password required: %w", ErrBadRequest)
	ErrDuplicateUser         = fmt.Errorf("username already exists: %w", ErrConflict)
	ErrInvalidCredentials    = fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	ErrInvalidOrExpiredToken = fmt.Errorf("invalid or expired token: %w", ErrUnauthorized)
	ErrPasswordTooLong       = fmt.Errorf("password too long: %w", ErrBadRequest)
)

// PgUniqueViolation is the SQLSTATE for unique constraint violations.
const PgUniqueViolation = "23505"

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrBadRequest) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConflict) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrTooManyRequests) {
		return http.StatusTooManyRequests
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == PgUniqueViolation {
		return http.StatusConflict
	}

	return http.StatusInternalServerError
}

// PublicMessage returns the message safe to show a client for err.
// Anything that maps to a 5xx collapses to a generic message.
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingField):
		return "username and password required"
	case errors.Is(err, ErrDuplicateUser):
		return "username already exists"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid credentials"
	case errors.Is(err, ErrPasswordTooLong):
		return "password too long"
	case errors.Is(err, ErrTooManyRequests):
		return "too many attempts"
	}

	status := HTTPStatusFromError(err)
	if status >= http.StatusInternalServerError {
		return "internal server error"
	}
	return http.StatusText(status)
}
