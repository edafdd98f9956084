package handler

import (
	"encoding/json"
	"net/http"

	"github.com/auth-api/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AuthEnvelope wraps responses that issue a session. The refresh token is
// deliberately absent: it travels only in the http-only cookie.
type AuthEnvelope struct {
	AccessToken string       `json:"access_token"`
	User        *domain.User `json:"user,omitempty"`
}

// UserListEnvelope wraps paginated user list responses. NextCursor is empty
// on the last page.
type UserListEnvelope struct {
	Data       []domain.User `json:"data"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}
