package domain

import "unicode"

const minPasswordLength = 8

// ValidatePassword enforces the password policy: at least 8 characters with
// one ASCII uppercase letter, one ASCII digit and one visible symbol that is
// neither a letter, a digit nor an underscore.
func ValidatePassword(pw string) error {
	if len([]rune(pw)) < minPasswordLength {
		return ErrWeakPassword
	}
	var upper, digit, symbol bool
	for _, r := range pw {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case isSymbol(r):
			symbol = true
		}
	}
	if !upper || !digit || !symbol {
		return ErrWeakPassword
	}
	return nil
}

func isSymbol(r rune) bool {
	if r == '_' || unicode.IsSpace(r) || unicode.IsControl(r) {
		return false
	}
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}
