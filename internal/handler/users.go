package handler

import (
	"log/slog"
	"net/http"

	"github.com/kushtati/kushtati-immo-api/internal/domain"
	"github.com/kushtati/kushtati-immo-api/internal/service"
)

// UserHandler serves profiles and the owner and tenant directories.
type UserHandler struct {
	users *service.UserService
	responder
}

func NewUserHandler(users *service.UserService, logger *slog.Logger, debug bool) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserHandler{users: users, responder: responder{logger: logger, debug: debug}}
}

// UsersResponse wraps a directory listing.
type UsersResponse struct {
	Users []*domain.User `json:"users"`
}

// UpdateUserResponse is returned by a successful profile update.
type UpdateUserResponse struct {
	Message string       `json:"message"`
	User    *domain.User `json:"user"`
}

// DeleteResponse reports what a cascading delete removed.
type DeleteResponse struct {
	Message string                 `json:"message"`
	Deleted *domain.CascadeSummary `json:"deleted"`
}

// Get handles GET /api/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetProfile(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, UserResponse{User: user})
}

// Update handles PUT /api/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateUserInput
	if err := decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.users.UpdateProfile(r.Context(), principal(r), r.PathValue("id"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, UpdateUserResponse{Message: "profile updated", User: user})
}

// Delete handles DELETE /api/users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	summary, err := h.users.DeleteAccount(r.Context(), principal(r), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, DeleteResponse{Message: "account deleted", Deleted: summary})
}

// List handles GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListAll(r.Context(), principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, UsersResponse{Users: users})
}

// Owners handles GET /api/users/owners/list
func (h *UserHandler) Owners(w http.ResponseWriter, r *http.Request) {
	owners, err := h.users.ListOwners(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, UsersResponse{Users: owners})
}

// Tenants handles GET /api/users/tenants/list
func (h *UserHandler) Tenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.users.ListTenants(r.Context(), principal(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.write(w, http.StatusOK, UsersResponse{Users: tenants})
}
