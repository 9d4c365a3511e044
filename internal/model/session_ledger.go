package model

// SessionLedger tracks allocated vs. consumed coaching sessions for one
// student (table session_ledgers). At most one row per student.
type SessionLedger struct {
	ID            string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID        string `gorm:"type:uuid;not null;uniqueIndex"                 json:"user_id"`
	TotalSessions int    `gorm:"not null;default:0"                             json:"total_sessions"`
	UsedSessions  int    `gorm:"not null;default:0"                             json:"used_sessions"`
	Timestamps
}

// TableName overrides the table name.
func (SessionLedger) TableName() string { return "session_ledgers" }

// Remaining returns unused sessions.
func (l *SessionLedger) Remaining() int {
	if l == nil || l.UsedSessions > l.TotalSessions {
		return 0
	}
	return l.TotalSessions - l.UsedSessions
}
