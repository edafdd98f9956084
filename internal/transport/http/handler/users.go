package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/auth-api/internal/application/user"
	"github.com/auth-api/internal/pkg/validate"
	"github.com/go-chi/chi/v5"
)

// UserHandler handles user directory and administration endpoints.
type UserHandler struct {
	svc user.Service
}

func NewUserHandler(svc user.Service) *UserHandler { return &UserHandler{svc: svc} }

// GetProfile returns the public projection of any user.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.GetPublicProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// List returns a cursor-paginated page of users. Admin only.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	users, next, err := h.svc.List(r.Context(), int32(limit), r.URL.Query().Get("cursor"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserListEnvelope{Data: users, NextCursor: next})
}

// ChangeRole assigns a new role to the user with the given email. Superadmin only.
func (h *UserHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	var req user.ChangeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	u, err := h.svc.ChangeRole(r.Context(), req.Email, req.Role)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
