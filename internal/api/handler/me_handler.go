package handler

import (
	"authgate/internal/api/middleware"
	"authgate/internal/common"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MeHandler reports the identity bound to the current request.
type MeHandler struct{}

func NewMeHandler() *MeHandler {
	return &MeHandler{}
}

func (h *MeHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.me)
}

func (h *MeHandler) me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	common.RespondWithJSON(w, http.StatusOK, identity)
}
