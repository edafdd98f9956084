package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/auth-api/internal/domain"
)

// Repository is the minimal store interface the OTP service requires.
type Repository interface {
	Put(ctx context.Context, o *domain.OTP) error
	Get(ctx context.Context, email string) (*domain.OTP, error)
	Delete(ctx context.Context, email string) error
}

// Service issues and verifies one-time codes. Codes are keyed by email, so at
// most one is live per address at any time; issuing supersedes the previous one.
type Service interface {
	Issue(ctx context.Context, email string) (string, error)
	Verify(ctx context.Context, email, code string) error
	// Invalidate discards the live code for email without consuming it. Used
	// to roll back an issued code when its delivery email could not be sent.
	Invalidate(ctx context.Context, email string) error
}

type service struct {
	repo   Repository
	window time.Duration
}

func NewService(repo Repository, window time.Duration) Service {
	return &service{repo: repo, window: window}
}

// Issue generates a 6-digit code and persists it against email. The table is
// keyed by email, so the Put replaces any earlier code for the same address.
func (s *service) Issue(ctx context.Context, email string) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64())

	now := time.Now().UTC()
	o := &domain.OTP{
		Email:     email,
		Code:      code,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(s.window).Unix(),
	}
	if err := s.repo.Put(ctx, o); err != nil {
		return "", err
	}
	return code, nil
}

// Verify checks code against the live OTP for email. A successful match
// consumes the code; an expired code is deleted on sight.
func (s *service) Verify(ctx context.Context, email, code string) error {
	o, err := s.repo.Get(ctx, email)
	if err != nil {
		return err
	}
	if o.ExpiresAt < time.Now().Unix() {
		if err := s.repo.Delete(ctx, email); err != nil {
			slog.Warn("failed to delete stale otp", "email", email, "err", err)
		}
		return fmt.Errorf("code expired: %w", domain.ErrOTPExpired)
	}
	if subtle.ConstantTimeCompare([]byte(o.Code), []byte(code)) != 1 {
		return fmt.Errorf("code mismatch: %w", domain.ErrUnauthorized)
	}
	if err := s.repo.Delete(ctx, email); err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	return nil
}

func (s *service) Invalidate(ctx context.Context, email string) error {
	return s.repo.Delete(ctx, email)
}
