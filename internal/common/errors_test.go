package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"missing field", ErrMissingField, http.StatusBadRequest},
		{"duplicate user", ErrDuplicateUser, http.StatusConflict},
		{"invalid credentials", ErrInvalidCredentials, http.StatusUnauthorized},
		{"wrapped invalid credentials", fmt.Errorf("login: %w", ErrInvalidCredentials), http.StatusUnauthorized},
		{"not found", ErrNotFound, http.StatusNotFound},
		{"forbidden", ErrForbidden, http.StatusForbidden},
		{"throttled", ErrTooManyRequests, http.StatusTooManyRequests},
		{"unique violation", &pgconn.PgError{Code: PgUniqueViolation}, http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatusFromError(tc.err))
		})
	}
}

func TestPublicMessage_HidesInternalErrors(t *testing.T) {
	err := fmt.Errorf("pgUserRepository.Save: %w", errors.New("connection refused to 10.0.0.3"))
	assert.Equal(t, "internal server error", PublicMessage(err))
}

func TestPublicMessage_InvalidCredentials(t *testing.T) {
	assert.Equal(t, "invalid credentials", PublicMessage(fmt.Errorf("x: %w", ErrInvalidCredentials)))
}
