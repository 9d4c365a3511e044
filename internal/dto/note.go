package dto

// ── notes ──

// CreateNoteRequest creates a note. StudentID is required for admins;
// AdminID is optional for students and defaults to the first admin.
type CreateNoteRequest struct {
	StudentID string `json:"student_id" binding:"omitempty,uuid"`
	AdminID   string `json:"admin_id"   binding:"omitempty,uuid"`
	Title     string `json:"title"      binding:"required,max=200"`
	Content   string `json:"content"    binding:"required"`
}

// UpdateNoteRequest edits title and content.
type UpdateNoteRequest struct {
	Title   string `json:"title"   binding:"required,max=200"`
	Content string `json:"content" binding:"required"`
}

// NoteListRequest filters the note list.
type NoteListRequest struct {
	PaginationRequest
	// Direction is from_student or to_student; empty means both.
	Direction string `form:"direction"  binding:"omitempty,oneof=from_student to_student"`
	StudentID string `form:"student_id" binding:"omitempty,uuid"`
}

// NoteResponse is a note with both parties.
type NoteResponse struct {
	ID               string           `json:"id"`
	UserID           string           `json:"user_id"`
	AdminID          string           `json:"admin_id"`
	Title            string           `json:"title"`
	Content          string           `json:"content"`
	IsRead           bool             `json:"is_read"`
	CreatedByStudent bool             `json:"created_by_student"`
	CreatedAt        string           `json:"created_at"`
	UpdatedAt        string           `json:"updated_at"`
	Student          *ProfileResponse `json:"student,omitempty"`
	Admin            *ProfileResponse `json:"admin,omitempty"`

	Warning string `json:"-"`
}
