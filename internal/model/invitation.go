package model

import "time"

// InvitationTTL is the redemption window, reset on every resend.
const InvitationTTL = 7 * 24 * time.Hour

// InvitationStatus is derived, never stored.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationExpired  InvitationStatus = "expired"
	InvitationAccepted InvitationStatus = "accepted"
)

// Invitation is a single-use token that provisions a student (table invitations).
type Invitation struct {
	ID         string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email      string    `gorm:"type:varchar(255);not null"                     json:"email"`
	Token      string    `gorm:"type:varchar(64);not null;uniqueIndex"          json:"-"`
	AdminID    string    `gorm:"type:uuid;not null;index"                       json:"admin_id"`
	IsAccepted bool      `gorm:"not null;default:false"                         json:"is_accepted"`
	CreatedAt  time.Time `gorm:"not null"                                       json:"created_at"`
	ExpiresAt  time.Time `gorm:"not null"                                       json:"expires_at"`
	UpdatedAt  time.Time `gorm:"not null"                                       json:"updated_at"`
}

// TableName overrides the table name.
func (Invitation) TableName() string { return "invitations" }

// ResetWindow starts a fresh redemption window at now.
func (i *Invitation) ResetWindow(now time.Time) {
	i.CreatedAt = now
	i.ExpiresAt = now.Add(InvitationTTL)
}

// IsExpired reports whether now is past the expiry.
func (i *Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Status derives the lifecycle state at now.
func (i *Invitation) Status(now time.Time) InvitationStatus {
	switch {
	case i.IsAccepted:
		return InvitationAccepted
	case i.IsExpired(now):
		return InvitationExpired
	default:
		return InvitationPending
	}
}
