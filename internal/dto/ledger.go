package dto

// ── session ledger ──

// AllocateSessionsRequest overwrites both counters. Pointers distinguish a
// missing field from zero.
type AllocateSessionsRequest struct {
	TotalSessions *int `json:"total_sessions" binding:"required"`
	UsedSessions  *int `json:"used_sessions"  binding:"required"`
}
