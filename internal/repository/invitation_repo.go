package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"coachportal/internal/model"
)

// InvitationListFilters narrows List.
type InvitationListFilters struct {
	AdminID string
	Email   string
}

// InvitationRepository accesses invitations.
type InvitationRepository interface {
	Create(ctx context.Context, inv *model.Invitation) error
	GetByID(ctx context.Context, id string) (*model.Invitation, error)
	GetByToken(ctx context.Context, token string) (*model.Invitation, error)
	// GetByTokenForUpdate locks the row with SELECT ... FOR UPDATE. It must
	// run on a transaction-bound repository (Repository.WithTx).
	GetByTokenForUpdate(ctx context.Context, token string) (*model.Invitation, error)
	List(ctx context.Context, filters *InvitationListFilters) ([]model.Invitation, error)
	// UpdateWindow writes created_at, expires_at and token.
	UpdateWindow(ctx context.Context, inv *model.Invitation) error
	// MarkAccepted flips is_accepted; gorm.ErrRecordNotFound when the row is
	// gone or already accepted.
	MarkAccepted(ctx context.Context, id string) error
	// DeletePending deletes the row only while is_accepted = false;
	// gorm.ErrRecordNotFound otherwise.
	DeletePending(ctx context.Context, id string) error
	CountPending(ctx context.Context) (int64, error)
}

type invitationRepo struct {
	db *gorm.DB
}

// NewInvitationRepo creates an InvitationRepository.
func NewInvitationRepo(db *gorm.DB) InvitationRepository {
	return &invitationRepo{db: db}
}

func (r *invitationRepo) Create(ctx context.Context, inv *model.Invitation) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *invitationRepo) GetByID(ctx context.Context, id string) (*model.Invitation, error) {
	var inv model.Invitation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invitationRepo) GetByToken(ctx context.Context, token string) (*model.Invitation, error) {
	var inv model.Invitation
	err := r.db.WithContext(ctx).
		Where("token = ?", token).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invitationRepo) GetByTokenForUpdate(ctx context.Context, token string) (*model.Invitation, error) {
	var inv model.Invitation
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token = ?", token).
		First(&inv).Error
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// List returns newest first.
func (r *invitationRepo) List(ctx context.Context, filters *InvitationListFilters) ([]model.Invitation, error) {
	var invs []model.Invitation
	db := r.db.WithContext(ctx)
	if filters != nil {
		if filters.AdminID != "" {
			db = db.Where("admin_id = ?", filters.AdminID)
		}
		if filters.Email != "" {
			db = db.Where("LOWER(email) = LOWER(?)", filters.Email)
		}
	}
	err := db.Order("created_at DESC").Find(&invs).Error
	return invs, err
}

func (r *invitationRepo) UpdateWindow(ctx context.Context, inv *model.Invitation) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&model.Invitation{}).
		Where("id = ?", inv.ID).
		Updates(map[string]interface{}{
			"token":      inv.Token,
			"created_at": inv.CreatedAt,
			"expires_at": inv.ExpiresAt,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	inv.UpdatedAt = now
	return nil
}

func (r *invitationRepo) MarkAccepted(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Model(&model.Invitation{}).
		Where("id = ? AND is_accepted = ?", id, false).
		Updates(map[string]interface{}{
			"is_accepted": true,
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *invitationRepo) DeletePending(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND is_accepted = ?", id, false).
		Delete(&model.Invitation{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *invitationRepo) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Invitation{}).
		Where("is_accepted = ?", false).
		Count(&n).Error
	return n, err
}
