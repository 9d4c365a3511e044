package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"coachportal/internal/model"
)

// SessionLedgerRepository accesses session_ledgers.
type SessionLedgerRepository interface {
	GetByUserID(ctx context.Context, userID string) (*model.SessionLedger, error)
	// Upsert inserts the ledger or overwrites both counters of the existing row.
	Upsert(ctx context.Context, ledger *model.SessionLedger) error
	ListByUserIDs(ctx context.Context, userIDs []string) ([]model.SessionLedger, error)
	SumTotalSessions(ctx context.Context) (int64, error)
}

type sessionLedgerRepo struct {
	db *gorm.DB
}

// NewSessionLedgerRepo creates a SessionLedgerRepository.
func NewSessionLedgerRepo(db *gorm.DB) SessionLedgerRepository {
	return &sessionLedgerRepo{db: db}
}

func (r *sessionLedgerRepo) GetByUserID(ctx context.Context, userID string) (*model.SessionLedger, error) {
	var ledger model.SessionLedger
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&ledger).Error
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

func (r *sessionLedgerRepo) Upsert(ctx context.Context, ledger *model.SessionLedger) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_sessions", "used_sessions", "updated_at"}),
		}).
		Create(ledger).Error
}

func (r *sessionLedgerRepo) ListByUserIDs(ctx context.Context, userIDs []string) ([]model.SessionLedger, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var ledgers []model.SessionLedger
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Find(&ledgers).Error
	return ledgers, err
}

func (r *sessionLedgerRepo) SumTotalSessions(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.SessionLedger{}).
		Select("COALESCE(SUM(total_sessions), 0)").
		Scan(&total).Error
	return total, err
}
