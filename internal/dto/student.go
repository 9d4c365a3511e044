package dto

// ── students & dashboards ──

// StudentResponse is a roster entry.
type StudentResponse struct {
	ID        string         `json:"id"`
	Email     string         `json:"email"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	JoinedAt  string         `json:"joined_at"`
	Ledger    LedgerResponse `json:"ledger"`
}

// AdminDashboardResponse summarizes the portal for an admin.
type AdminDashboardResponse struct {
	StudentCount       int64 `json:"student_count"`
	TotalSessions      int64 `json:"total_sessions"`
	NoteCount          int64 `json:"note_count"`
	PendingInvitations int64 `json:"pending_invitations"`
}

// StudentDashboardResponse summarizes a student's own view.
type StudentDashboardResponse struct {
	Profile     ProfileResponse `json:"profile"`
	Ledger      LedgerResponse  `json:"ledger"`
	NoteCount   int64           `json:"note_count"`
	RecentNotes []NoteResponse  `json:"recent_notes"`
}

// FirstAdminResponse is the default coach id.
type FirstAdminResponse struct {
	ID string `json:"id"`
}
