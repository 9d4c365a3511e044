package dto

// ── notifications ──

// SendInvitationEmailRequest re-delivers an invitation email.
type SendInvitationEmailRequest struct {
	InvitationID string `json:"invitation_id" binding:"required,uuid"`
}

// SendNoteNotificationRequest re-delivers a note email to the note's
// recipient.
type SendNoteNotificationRequest struct {
	NoteID   string `json:"note_id"   binding:"required,uuid"`
	IsUpdate bool   `json:"is_update"`
}
