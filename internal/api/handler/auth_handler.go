package handler

import (
	"authgate/internal/app/service"
	"authgate/internal/common"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// AuthFlows is the registration and login surface of service.AuthService.
type AuthFlows interface {
	Register(ctx context.Context, req service.RegisterRequest) (*service.RegisterResponse, error)
	Login(ctx context.Context, req service.LoginRequest) (*service.LoginResponse, error)
}

type AuthHandler struct {
	authService AuthFlows
}

func NewAuthHandler(authService AuthFlows) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/login", h.login)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	req.RemoteAddr = r.RemoteAddr

	resp, err := h.authService.Register(r.Context(), req)
	if err != nil {
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	req.RemoteAddr = r.RemoteAddr

	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		var throttled *service.ThrottledError
		if errors.As(err, &throttled) {
			secs := int(math.Ceil(throttled.RetryAfter.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
		}
		common.RespondWithDomainError(w, err)
		return
	}
	common.RespondWithJSON(w, http.StatusOK, resp)
}
