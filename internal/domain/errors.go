package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)

// Auth-specific errors. Each wraps one of the sentinels above so errors.Is
// resolves both the specific cause and its HTTP class.
var (
	ErrInvalidCredentials = fmt.Errorf("invalid email or password: %w", ErrUnauthorized)
	ErrInvalidOTP         = fmt.Errorf("invalid or expired OTP: %w", ErrUnauthorized)
	ErrWeakPassword       = fmt.Errorf("password must be at least 8 characters and contain an uppercase letter, a digit and a symbol: %w", ErrBadRequest)
)
