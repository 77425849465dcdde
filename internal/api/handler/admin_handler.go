package handler

import (
	"authgate/internal/app/service"
	"authgate/internal/common"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type AdminHandler struct {
	userService  *service.UserService
	auditService *service.AuditService
}

func NewAdminHandler(userService *service.UserService, auditService *service.AuditService) *AdminHandler {
	return &AdminHandler{userService: userService, auditService: auditService}
}

// RegisterRoutes expects to be mounted behind middleware.RequireRole.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/users/{username}", h.getUser)
	r.Get("/auth-events", h.listAuthEvents)
}

func (h *AdminHandler) getUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	user, err := h.userService.GetByUsername(r.Context(), username)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, user)
}

func (h *AdminHandler) listAuthEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			common.RespondWithError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	events, err := h.auditService.ListRecent(r.Context(), limit)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, events)
}
