package middleware

import (
	"authgate/internal/common"
	"authgate/internal/domain/model"
	"authgate/internal/platform/metrics"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/jwtauth/v5"
)

type contextKey string

const IdentityCtxKey contextKey = "identity"

// TokenValidator is the part of security.TokenService the filter needs.
type TokenValidator interface {
	Validate(token string) bool
	ExtractSubject(token string) (string, error)
}

// UserLookup resolves a token subject to its current user record.
type UserLookup interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

// IdentityFilter attaches the caller's identity to the request context when
// the request carries a valid bearer token. It never rejects a request;
// RequireIdentity and RequireRole do that.
func IdentityFilter(tokens TokenValidator, users UserLookup, m *metrics.AuthMetrics, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := jwtauth.TokenFromHeader(r)
			if token == "" {
				m.TokenValidations.WithLabelValues(metrics.ResultAbsent).Inc()
				next.ServeHTTP(w, r)
				return
			}

			if !tokens.Validate(token) {
				m.TokenValidations.WithLabelValues(metrics.ResultInvalid).Inc()
				next.ServeHTTP(w, r)
				return
			}

			username, err := tokens.ExtractSubject(token)
			if err != nil {
				// Expired between Validate and ExtractSubject.
				m.TokenValidations.WithLabelValues(metrics.ResultInvalid).Inc()
				next.ServeHTTP(w, r)
				return
			}

			user, err := users.FindByUsername(r.Context(), username)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					m.TokenValidations.WithLabelValues(metrics.ResultInvalid).Inc()
				} else {
					m.TokenValidations.WithLabelValues(metrics.ResultError).Inc()
					log.ErrorContext(r.Context(), "identity lookup failed", "username", username, "error", err)
				}
				next.ServeHTTP(w, r)
				return
			}

			m.TokenValidations.WithLabelValues(metrics.ResultSuccess).Inc()
			identity := model.Identity{Username: user.Username, Roles: slices.Clone(user.Roles)}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, IdentityCtxKey, identity)
}

// IdentityFromContext returns the identity attached by IdentityFilter.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(IdentityCtxKey).(model.Identity)
	return identity, ok
}

func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFromContext(r.Context()); !ok {
			common.RespondWithError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole answers 401 without an identity and 403 when the identity
// lacks role.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				common.RespondWithError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !identity.HasRole(role) {
				common.RespondWithError(w, http.StatusForbidden, role+" access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
