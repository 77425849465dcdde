package handler

import (
	"authgate/internal/api/middleware"
	"authgate/internal/app/service"
	"authgate/internal/common/security"
	"authgate/internal/domain/model"
	"authgate/internal/domain/repository"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAdminRouter(t *testing.T) (http.Handler, repository.AuthEventRepository) {
	t.Helper()
	hasher, err := security.NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	users := service.NewUserService(repository.NewMemoryUserRepository(), hasher)
	_, err = users.BootstrapAdmin(context.Background(), "root", "pw")
	require.NoError(t, err)

	events := repository.NewMemoryAuthEventRepository()
	r := chi.NewRouter()
	NewAdminHandler(users, service.NewAuditService(events)).RegisterRoutes(r)
	return r, events
}

func TestAdminHandler_GetUser(t *testing.T) {
	r, _ := newAdminRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/root", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "root", body["username"])
	assert.ElementsMatch(t, []any{"user", "admin"}, body["roles"])
	assert.Contains(t, body, "created_at")
	assert.NotContains(t, rec.Body.String(), "$2a$")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/ghost", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminHandler_ListAuthEvents(t *testing.T) {
	r, events := newAdminRouter(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		e := service.NewAuthEvent(model.AuthEventLoginFailed, "alice", "")
		require.NoError(t, events.Create(ctx, &e))
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth-events?limit=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got []model.AuthEvent
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 2)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth-events?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMeHandler(t *testing.T) {
	r := chi.NewRouter()
	NewMeHandler().RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req = req.WithContext(middleware.WithIdentity(req.Context(), model.Identity{Username: "alice", Roles: []string{"user"}}))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"username":"alice","roles":["user"]}`, rec.Body.String())
}
