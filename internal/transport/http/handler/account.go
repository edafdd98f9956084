package handler

import (
	"encoding/json"
	"net/http"

	"github.com/auth-api/internal/application/auth"
	"github.com/auth-api/internal/application/user"
	"github.com/auth-api/internal/config"
	"github.com/auth-api/internal/domain"
	"github.com/auth-api/internal/pkg/validate"
	"github.com/auth-api/internal/transport/http/middleware"
)

// maxAvatarSize caps avatar uploads at 5 MiB.
const maxAvatarSize = 5 << 20

// AccountHandler handles the authenticated caller's own account.
type AccountHandler struct {
	users user.Service
	auth  auth.Service
	cfg   *config.Config
}

func NewAccountHandler(users user.Service, authSvc auth.Service, cfg *config.Config) *AccountHandler {
	return &AccountHandler{users: users, auth: authSvc, cfg: cfg}
}

type deleteAccountRequest struct {
	Reason string `json:"reason"`
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u, err := h.users.Get(r.Context(), ident.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	u, err := h.users.UpdateProfile(r.Context(), ident.UserID, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *AccountHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req auth.UpdatePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.auth.UpdatePassword(r.Context(), ident.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "password updated"})
}

// UploadAvatar accepts a multipart form with a "file" field, stores the image
// and returns the new URL.
func (h *AccountHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxAvatarSize)
	if err := r.ParseMultipartForm(maxAvatarSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing 'file' field")
		return
	}
	defer file.Close()

	url, err := h.users.UploadAvatar(r.Context(), ident.UserID, header.Filename, file, header.Header.Get("Content-Type"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"picture": url})
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req deleteAccountRequest
	if r.Body != nil {
		// Body is optional; a bare DELETE works too.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if err := h.auth.DeleteAccount(r.Context(), ident.UserID, req.Reason); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "account deleted"})
}
