package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/auth-api/internal/domain"
)

// httpError maps a domain error to its HTTP status. Unknown errors become a
// generic 500 so internal detail never reaches the client; the full error is
// logged server-side instead.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrOTPExpired):
		writeError(w, http.StatusUnauthorized, "code expired, request a new one")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, domain.ErrUnverified):
		writeError(w, http.StatusForbidden, "email not verified")
	case errors.Is(err, domain.ErrReuseDetected):
		writeError(w, http.StatusForbidden, "session revoked")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("internal error", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
