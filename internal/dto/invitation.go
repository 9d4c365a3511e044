package dto

// ── invitations ──

// CreateInvitationRequest invites a student by email.
type CreateInvitationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// AcceptInvitationRequest redeems an invitation token.
type AcceptInvitationRequest struct {
	Token     string `json:"token"      binding:"required"`
	Email     string `json:"email"      binding:"required,email"`
	Password  string `json:"password"   binding:"required"`
	FirstName string `json:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name"  binding:"required,max=100"`
}

// InvitationListRequest filters the admin invitation list.
type InvitationListRequest struct {
	Mine bool `form:"mine"`
}

// InvitationResponse is an invitation with its derived status.
type InvitationResponse struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	AdminID    string `json:"admin_id"`
	IsAccepted bool   `json:"is_accepted"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
	ExpiresAt  string `json:"expires_at"`
	// InviteURL is set only for the creating admin on create and resend.
	InviteURL string `json:"invite_url,omitempty"`

	Warning string `json:"-"`
}

// InvitationValidateResponse backs the public invite page.
type InvitationValidateResponse struct {
	Email     string `json:"email"`
	Status    string `json:"status"`
	Valid     bool   `json:"valid"`
	ExpiresAt string `json:"expires_at"`
}

// AcceptInvitationResponse is the provisioned student.
type AcceptInvitationResponse struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
