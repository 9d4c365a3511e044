package service

import (
	"coachportal/pkg/database"
	apperr "coachportal/pkg/errors"
)

// Domain errors. Each wraps a taxonomy kind from pkg/errors so handlers map
// them with errors.Is on the kind.
var (
	ErrNotAuthenticated    = apperr.New(apperr.ErrUnauthenticated, "not authenticated")
	ErrInvalidCredentials  = apperr.New(apperr.ErrUnauthenticated, "invalid email or password")
	ErrInvalidRefreshToken = apperr.New(apperr.ErrUnauthenticated, "invalid or expired refresh token")
	ErrProfileMissing      = apperr.New(apperr.ErrUnauthenticated, "account has no portal profile")
	ErrNoPermission        = apperr.New(apperr.ErrForbidden, "you do not have permission to perform this action")
	ErrRoleRequired        = apperr.New(apperr.ErrForbidden, "your role does not allow this action")

	ErrEmailTaken          = apperr.New(apperr.ErrValidation, "an account with this email already exists")
	ErrWrongPassword       = apperr.New(apperr.ErrValidation, "current password is incorrect")
	ErrInvalidResetToken   = apperr.New(apperr.ErrExpired, "password reset link is invalid or has expired")
	ErrResetUnavailable    = apperr.New(apperr.ErrUpstream, "password reset is unavailable")
	ErrAccountNotFound     = apperr.New(apperr.ErrNotFound, "account not found")
	ErrStudentNotFound     = apperr.New(apperr.ErrNotFound, "student not found")
	ErrAdminNotFound       = apperr.New(apperr.ErrNotFound, "admin not found")
	ErrNoteNotFound        = apperr.New(apperr.ErrNotFound, "note not found")
	ErrInvitationNotFound  = apperr.New(apperr.ErrNotFound, "invitation not found")
	ErrInvitationExpired   = apperr.New(apperr.ErrExpired, "invitation has expired")
	ErrInvitationAccepted  = apperr.New(apperr.ErrAlreadyAccepted, "invitation has already been accepted")
	ErrInvitationEmail     = apperr.New(apperr.ErrValidation, "email does not match the invitation")
	ErrSessionsOutOfRange  = apperr.New(apperr.ErrInvalidRange, "sessions must satisfy 0 <= used <= total")
	ErrNotificationSending = apperr.New(apperr.ErrUpstream, "failed to send email")
)

// notificationWarning is attached to a successful response whose email
// could not be delivered.
const notificationWarning = "record saved, notification failed"

// storeErr maps a repository error: record-not-found becomes notFound,
// anything else is an upstream failure.
func storeErr(op string, err error, notFound error) error {
	if database.IsNotFound(err) && notFound != nil {
		return notFound
	}
	return apperr.Upstream(op, err)
}

