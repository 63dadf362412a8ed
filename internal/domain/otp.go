package domain

import (
	"crypto/subtle"
	"fmt"
	"time"
)

// OTPFlow names why a code was issued. Only the first-login flow clears the
// first-login flag when the new password is set.
type OTPFlow string

const (
	OTPFlowFirstLogin     OTPFlow = "first-login"
	OTPFlowForgotPassword OTPFlow = "forgot-password"
)

func ParseOTPFlow(s string) (OTPFlow, error) {
	switch f := OTPFlow(s); f {
	case OTPFlowFirstLogin, OTPFlowForgotPassword:
		return f, nil
	default:
		return "", fmt.Errorf("invalid flow %q: %w", s, ErrBadRequest)
	}
}

// CredentialState is the derived position of a user in the credential lifecycle.
type CredentialState string

const (
	StateUnprovisioned     CredentialState = "UNPROVISIONED"
	StatePendingFirstLogin CredentialState = "PENDING_FIRST_LOGIN"
	StateOTPIssued         CredentialState = "OTP_ISSUED"
	StateActive            CredentialState = "ACTIVE"
)

// State derives the credential state of u at now. A nil user is unprovisioned.
func (u *User) State(now time.Time) CredentialState {
	switch {
	case u == nil:
		return StateUnprovisioned
	case u.HasLiveOTP(now):
		return StateOTPIssued
	case u.FirstLogin:
		return StatePendingFirstLogin
	default:
		return StateActive
	}
}

// HasLiveOTP reports whether a code is stored and not yet expired.
func (u *User) HasLiveOTP(now time.Time) bool {
	return u.OTP != nil && u.OTPExpiry != nil && now.Before(*u.OTPExpiry)
}

// OTPMatches reports whether code equals the stored code and now is strictly
// before the stored expiry.
func (u *User) OTPMatches(code string, now time.Time) bool {
	if !u.HasLiveOTP(now) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*u.OTP), []byte(code)) == 1
}
