package service

import (
	"strings"
	"unicode"

	apperr "coachportal/pkg/errors"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt ignores everything past 72 bytes
)

// validatePassword enforces length plus at least one letter and one digit.
func validatePassword(pw string) error {
	if len(pw) < minPasswordLen || len(pw) > maxPasswordLen {
		return apperr.Validationf("password must be between %d and %d characters", minPasswordLen, maxPasswordLen)
	}
	var letter, digit bool
	for _, r := range pw {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return apperr.Validation("password must contain at least one letter and one digit")
	}
	return nil
}

// normalizeEmail trims and lower-cases an address.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// required returns a ValidationError naming the first empty field.
func required(fields ...[2]string) error {
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			return apperr.Validation("missing required field: " + f[0])
		}
	}
	return nil
}
