package handler

import (
	"log/slog"
	"net/http"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
	"github.com/kushtati/kushtati-immo-api/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	responder
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, logger *slog.Logger, debug bool) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		authService: authService,
		responder:   responder{logger: logger, debug: debug},
	}
}

// AuthResponse carries the credential issued on register and login.
type AuthResponse struct {
	Message string `json:"message"`
	*service.AuthResult
}

// UserResponse wraps a single account.
type UserResponse struct {
	User *domain.User `json:"user"`
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.authService.Register(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusCreated, AuthResponse{Message: "account created", AuthResult: result})
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.authService.Login(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, AuthResponse{Message: "login successful", AuthResult: result})
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.Me(r.Context(), principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, UserResponse{User: user})
}
