package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")

	// ErrUnverified means the credentials were correct but the email has not
	// been confirmed yet.
	ErrUnverified = errors.New("email not verified")

	// ErrOTPExpired means a code existed but its window has elapsed.
	ErrOTPExpired = errors.New("otp expired")

	// ErrReuseDetected means an already-rotated refresh token was presented
	// again. All tokens for the owner are revoked before this is returned.
	ErrReuseDetected = errors.New("refresh token reuse detected")
)
