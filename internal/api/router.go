package api

import (
	"authgate/internal/api/handler"
	"authgate/internal/api/middleware"
	"authgate/internal/common"
	"authgate/internal/domain/model"
	"authgate/internal/platform/metrics"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

type RouterDeps struct {
	Auth    handler.AuthFlows
	Users   middleware.UserLookup
	Tokens  middleware.TokenValidator
	Admin   *handler.AdminHandler
	Metrics *metrics.AuthMetrics
	Log     *slog.Logger
}

// NewRouter serves /auth anonymously; everything under /api requires an
// identity bound by the identity filter.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Log))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))
	r.Use(middleware.IdentityFilter(deps.Tokens, deps.Users, deps.Metrics, deps.Log))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := middleware.IdentityFromContext(r.Context()); !ok {
			common.RespondWithError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		common.RespondWithError(w, http.StatusNotFound, "not found")
	})

	r.Route("/auth", handler.NewAuthHandler(deps.Auth).RegisterRoutes)

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.RequireIdentity)

		handler.NewMeHandler().RegisterRoutes(api)

		if deps.Admin != nil {
			api.Route("/admin", func(admin chi.Router) {
				admin.Use(middleware.RequireRole(model.RoleAdmin))
				deps.Admin.RegisterRoutes(admin)
			})
		}
	})

	return r
}
