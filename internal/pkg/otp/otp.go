package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

const (
	minCode = 100000
	span    = 900000 // codes fall in [100000, 999999]
)

// Generate returns a 6-digit numeric code drawn uniformly from crypto/rand.
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+minCode), nil
}

// Subject is the email subject used for every code delivery.
const Subject = "Your verification code"

// EmailBody renders the message carrying code. The code is the only secret in it.
func EmailBody(code string, ttl time.Duration) string {
	return fmt.Sprintf("Your verification code is %s.\n\nIt expires in %d minutes. If you did not request it, you can ignore this email.\n",
		code, int(ttl.Minutes()))
}
