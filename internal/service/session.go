package service

import "time"

// Session is the authenticated caller, established by the auth middleware
// from a verified access token and passed explicitly into every operation.
type Session struct {
	AccountID string
	TokenID   string
	ExpiresAt time.Time
}

// valid reports whether s identifies an account.
func (s *Session) valid() bool {
	return s != nil && s.AccountID != ""
}
