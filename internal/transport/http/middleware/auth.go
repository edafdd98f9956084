package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/auth-api/internal/domain"
	jwtinfra "github.com/auth-api/internal/infrastructure/jwt"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller attached to the request context.
// Role comes from the freshly loaded user record, not the token, so role
// changes and deletions take effect without waiting for token expiry.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// TokenVerifier validates an access token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*jwtinfra.Claims, error)
}

// UserLoader fetches the current user record for a verified token.
type UserLoader interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

// Auth returns middleware that validates the Bearer token, reloads the user,
// and injects the resolved identity into the request context. Every failure
// mode returns the same 401 body so nothing about account state leaks.
func Auth(verifier TokenVerifier, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			claims, err := verifier.Verify(strings.TrimPrefix(authHeader, "Bearer "))
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			u, err := users.Get(r.Context(), claims.UserID)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			ident := &Identity{UserID: u.UserID, Email: u.Email, Role: u.Role}
			ctx := context.WithValue(r.Context(), identityKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext extracts the authenticated identity from the request context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	i, ok := ctx.Value(identityKey).(*Identity)
	return i, ok
}

// WithIdentity returns a context carrying ident. Exposed for handler tests.
func WithIdentity(ctx context.Context, ident *Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}
