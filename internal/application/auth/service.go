package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/auth-api/internal/application/otp"
	"github.com/auth-api/internal/domain"
	googleinfra "github.com/auth-api/internal/infrastructure/google"
	"github.com/auth-api/internal/pkg/id"
	pkgtoken "github.com/auth-api/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// UserRepository is the credential store interface the auth service requires.
type UserRepository interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByGoogleSub(ctx context.Context, sub string) (*domain.User, error)
	Put(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

// RefreshTokenRepository is the refresh-token store interface the auth service requires.
type RefreshTokenRepository interface {
	Put(ctx context.Context, t *domain.RefreshToken) error
	Get(ctx context.Context, token string) (*domain.RefreshToken, error)
	Rotate(ctx context.Context, oldToken string, replacement *domain.RefreshToken) error
	Revoke(ctx context.Context, token string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

// Mailer delivers OTP emails. Delivery failures surface as errors and roll the
// issued code back; an unreachable code must never be the only verification path.
type Mailer interface {
	SendEmail(to, subject, body string) error
}

// GoogleVerifier validates a Google ID token and extracts its claims.
type GoogleVerifier interface {
	Verify(ctx context.Context, token string) (*googleinfra.Payload, error)
}

// AccessTokenSigner mints signed short-lived access tokens.
type AccessTokenSigner interface {
	Sign(userID, role string) (string, error)
}

// AlertPublisher surfaces security events to operators. May be nil.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, subject, message string) error
}

// AuthResult is a freshly issued session: the user plus an access/refresh pair.
type AuthResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

type Service interface {
	Register(ctx context.Context, req domain.RegisterRequest) error
	VerifyEmail(ctx context.Context, email, code string) (*AuthResult, error)
	ResendOTP(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	LoginWithGoogle(ctx context.Context, idToken string) (*AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	DeleteAccount(ctx context.Context, userID, reason string) error
}

// ServiceDeps bundles the collaborators for NewService.
type ServiceDeps struct {
	UserRepo        UserRepository
	TokenRepo       RefreshTokenRepository
	OTP             otp.Service
	Mailer          Mailer
	Google          GoogleVerifier
	Signer          AccessTokenSigner
	Alerts          AlertPublisher
	RefreshTokenTTL time.Duration
}

type service struct {
	users      UserRepository
	tokens     RefreshTokenRepository
	otp        otp.Service
	mailer     Mailer
	google     GoogleVerifier
	signer     AccessTokenSigner
	alerts     AlertPublisher
	refreshTTL time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:      deps.UserRepo,
		tokens:     deps.TokenRepo,
		otp:        deps.OTP,
		mailer:     deps.Mailer,
		google:     deps.Google,
		signer:     deps.Signer,
		alerts:     deps.Alerts,
		refreshTTL: deps.RefreshTokenTTL,
	}
}

// Register stages an unverified user and emails a verification code.
// No session is issued until the code is confirmed. Re-registering an email
// that is still unverified refreshes the staged credentials instead of failing.
func (s *service) Register(ctx context.Context, req domain.RegisterRequest) error {
	email := normalizeEmail(req.Email)

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Verified || existing.GoogleSub != "" {
			return fmt.Errorf("email already in use: %w", domain.ErrConflict)
		}
		// Unverified leftover from an abandoned registration: take it over.
		if err := s.users.Update(ctx, existing.UserID, map[string]interface{}{
			"password_hash": string(hash),
			"name":          req.Name,
		}); err != nil {
			return err
		}
	case errors.Is(err, domain.ErrNotFound):
		now := time.Now().UTC()
		u := &domain.User{
			UserID:       id.New(),
			Email:        email,
			PasswordHash: string(hash),
			Name:         req.Name,
			Role:         domain.RoleUser,
			Verified:     false,
			Bio:          req.Bio,
			Picture:      req.Picture,
			Linkedin:     req.Linkedin,
			Github:       req.Github,
			Instagram:    req.Instagram,
			Facebook:     req.Facebook,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.users.Put(ctx, u); err != nil {
			return err
		}
	default:
		return err
	}

	return s.issueAndSendOTP(ctx, email, "Verify your account", "Your verification code is: %s")
}

// VerifyEmail consumes the registration OTP and promotes the user to verified,
// returning their first session. OTP failures propagate unchanged with no
// state mutation.
func (s *service) VerifyEmail(ctx context.Context, email, code string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if err := s.otp.Verify(ctx, email, code); err != nil {
		return nil, err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, u.UserID, map[string]interface{}{"verified": true}); err != nil {
		return nil, err
	}
	u.Verified = true
	return s.issueTokenPair(ctx, u)
}

// ResendOTP replaces the live verification code for email and re-delivers it.
// Unknown and already-verified emails report the same silent success as
// ForgotPassword so the endpoint cannot be used to probe for accounts.
func (s *service) ResendOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if u.Verified {
		return nil
	}
	return s.issueAndSendOTP(ctx, email, "New verification code", "Your new code is: %s")
}

// Login authenticates email/password credentials. Unknown email, missing
// password hash, and wrong password all produce the same error so callers
// cannot enumerate accounts.
func (s *service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil || !u.HasPassword() ||
		bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("incorrect email or password: %w", domain.ErrUnauthorized)
	}
	if !u.Verified {
		return nil, fmt.Errorf("email not confirmed: %w", domain.ErrUnverified)
	}
	return s.issueTokenPair(ctx, u)
}

// LoginWithGoogle verifies the provider token and finds-or-creates the account.
// Matching an existing password-only account by email is ambiguous identity
// and is rejected; the owner must log in with their password first.
func (s *service) LoginWithGoogle(ctx context.Context, idToken string) (*AuthResult, error) {
	p, err := s.google.Verify(ctx, idToken)
	if err != nil {
		return nil, err
	}

	u, err := s.users.GetByGoogleSub(ctx, p.Sub)
	switch {
	case err == nil:
		// Known federated account.
	case errors.Is(err, domain.ErrNotFound):
		u, err = s.findOrCreateByEmail(ctx, p)
		if err != nil {
			return nil, err
		}
	default:
		return nil, err
	}
	return s.issueTokenPair(ctx, u)
}

func (s *service) findOrCreateByEmail(ctx context.Context, p *googleinfra.Payload) (*domain.User, error) {
	// Linking (or creating) by email trusts the provider's email claim, so
	// an unverified claim must not match an account: that is the federated
	// account-takeover vector.
	if !p.EmailVerified {
		return nil, fmt.Errorf("provider has not verified the email: %w", domain.ErrUnauthorized)
	}
	email := normalizeEmail(p.Email)
	u, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.HasPassword() && u.GoogleSub == "" {
			return nil, fmt.Errorf("account exists with a password; use password login: %w", domain.ErrConflict)
		}
		// Link: the provider vouches for the email, so mark verified.
		updates := map[string]interface{}{
			"google_sub": p.Sub,
			"verified":   true,
		}
		if p.Picture != "" {
			updates["picture"] = p.Picture
		}
		if err := s.users.Update(ctx, u.UserID, updates); err != nil {
			return nil, err
		}
		u.GoogleSub = p.Sub
		u.Verified = true
		return u, nil
	case errors.Is(err, domain.ErrNotFound):
		now := time.Now().UTC()
		u = &domain.User{
			UserID:    id.New(),
			Email:     email,
			Name:      p.Name,
			Role:      domain.RoleUser,
			Verified:  true,
			GoogleSub: p.Sub,
			Picture:   p.Picture,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.users.Put(ctx, u); err != nil {
			return nil, err
		}
		return u, nil
	default:
		return nil, err
	}
}

// Refresh rotates a refresh token: the presented token is revoked and replaced
// in one atomic step. Presenting an already-revoked token is treated as theft —
// every token for its owner is revoked before the error is returned.
func (s *service) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	rec, err := s.tokens.Get(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}
	if rec.Revoked {
		return nil, s.handleReuse(ctx, rec.UserID)
	}
	if rec.Expired(time.Now()) {
		return nil, fmt.Errorf("refresh token expired: %w", domain.ErrUnauthorized)
	}

	u, err := s.users.Get(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("account no longer exists: %w", domain.ErrUnauthorized)
		}
		return nil, err
	}

	newToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	replacement := &domain.RefreshToken{
		Token:     newToken,
		UserID:    u.UserID,
		ExpiresAt: time.Now().Add(s.refreshTTL).Unix(),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.tokens.Rotate(ctx, refreshToken, replacement); err != nil {
		if errors.Is(err, domain.ErrReuseDetected) {
			// Lost a rotation race: someone else consumed this token first.
			return nil, s.handleReuse(ctx, u.UserID)
		}
		return nil, err
	}

	access, err := s.signer.Sign(u.UserID, u.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u, AccessToken: access, RefreshToken: newToken}, nil
}

// handleReuse revokes every token for userID and returns ErrReuseDetected.
// A failed bulk revoke escalates instead — returning the security error while
// other tokens stay live would mask an open hole.
func (s *service) handleReuse(ctx context.Context, userID string) error {
	slog.Warn("refresh token reuse detected, revoking all sessions", "user_id", userID)
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke all tokens after reuse detection: %w", err)
	}
	if s.alerts != nil {
		if err := s.alerts.PublishAlert(ctx, "Refresh token reuse detected",
			fmt.Sprintf("All sessions for user %s were revoked after a rotated refresh token was presented again.", userID)); err != nil {
			slog.Error("failed to publish reuse alert", "user_id", userID, "err", err)
		}
	}
	return domain.ErrReuseDetected
}

// Logout revokes the presented token. Idempotent: unknown or already-revoked
// tokens are not an error.
func (s *service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	err := s.tokens.Revoke(ctx, refreshToken)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	return err
}

// ForgotPassword emails a reset code. Always succeeds from the caller's point
// of view so the endpoint cannot be used to probe for accounts. Does not
// require the account to be verified.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	return s.issueAndSendOTP(ctx, u.Email, "Reset Password Code", "Your password reset code is: %s")
}

// ResetPassword consumes the reset OTP and replaces the password hash.
func (s *service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	if err := s.otp.Verify(ctx, email, code); err != nil {
		return err
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.Update(ctx, u.UserID, map[string]interface{}{"password_hash": string(hash)})
}

// UpdatePassword replaces the hash for an authenticated user after re-checking
// the current password.
func (s *service) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !u.HasPassword() ||
		bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(currentPassword)) != nil {
		return fmt.Errorf("current password is incorrect: %w", domain.ErrUnauthorized)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.Update(ctx, userID, map[string]interface{}{"password_hash": string(hash)})
}

// DeleteAccount revokes every session and anonymizes the record. Tokens go
// first: if anonymization fails the caller can retry, but lingering sessions
// after a "deleted" account would be worse.
func (s *service) DeleteAccount(ctx context.Context, userID, reason string) error {
	if err := s.tokens.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions on account deletion: %w", err)
	}
	bio := "Account deleted."
	if reason != "" {
		bio = "Account deleted. Reason: " + reason
	}
	// google_sub is nil, not "": it keys a sparse index, so the attribute
	// must be removed rather than set empty.
	return s.users.Update(ctx, userID, map[string]interface{}{
		"email":         fmt.Sprintf("deleted_%s_%d@deleted.invalid", userID, time.Now().Unix()),
		"name":          "Deleted User",
		"password_hash": "",
		"google_sub":    nil,
		"verified":      false,
		"picture":       "",
		"bio":           bio,
	})
}

// issueTokenPair persists a new refresh token row and then signs the access
// token. The refresh row is written before anything is returned so no token
// the client holds is ever unrecorded.
func (s *service) issueTokenPair(ctx context.Context, u *domain.User) (*AuthResult, error) {
	refresh, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	rec := &domain.RefreshToken{
		Token:     refresh,
		UserID:    u.UserID,
		ExpiresAt: time.Now().Add(s.refreshTTL).Unix(),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.tokens.Put(ctx, rec); err != nil {
		return nil, err
	}
	access, err := s.signer.Sign(u.UserID, u.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: u, AccessToken: access, RefreshToken: refresh}, nil
}

// issueAndSendOTP stages a code and delivers it. A failed send rolls the code
// back so an undeliverable OTP never becomes the only path forward.
func (s *service) issueAndSendOTP(ctx context.Context, email, subject, bodyFormat string) error {
	code, err := s.otp.Issue(ctx, email)
	if err != nil {
		return err
	}
	if err := s.mailer.SendEmail(email, subject, fmt.Sprintf(bodyFormat, code)); err != nil {
		if delErr := s.otp.Invalidate(ctx, email); delErr != nil {
			slog.Error("failed to roll back otp after send failure", "email", email, "err", delErr)
		}
		return fmt.Errorf("send otp email: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
