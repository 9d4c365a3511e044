package dto

// ── pagination ──

// PaginationRequest is the shared page/page_size query.
type PaginationRequest struct {
	Page     int `form:"page"      binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// GetPage returns the page, defaulting to 1.
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize returns the page size, defaulting to 20.
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 20
	}
	return p.PageSize
}

// GetOffset returns the row offset for the page.
func (p *PaginationRequest) GetOffset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// ── shared responses ──

// ProfileResponse is a profile as returned to clients.
type ProfileResponse struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// UserResponse is the current user (GET /auth/me).
type UserResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
}

// LedgerResponse is a student's session balance.
type LedgerResponse struct {
	UserID            string `json:"user_id"`
	TotalSessions     int    `json:"total_sessions"`
	UsedSessions      int    `json:"used_sessions"`
	RemainingSessions int    `json:"remaining_sessions"`
}

// NotificationResult reports an email delivery attempt.
type NotificationResult struct {
	MessageID string `json:"message_id"`
}
