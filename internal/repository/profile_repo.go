package repository

import (
	"context"

	"gorm.io/gorm"

	"coachportal/internal/model"
)

// ProfileRepository accesses profiles.
type ProfileRepository interface {
	Create(ctx context.Context, profile *model.Profile) error
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	// FirstByRole returns the oldest profile with role.
	FirstByRole(ctx context.Context, role model.Role) (*model.Profile, error)
	ListByRole(ctx context.Context, role model.Role) ([]model.Profile, error)
	CountByRole(ctx context.Context, role model.Role) (int64, error)
}

type profileRepo struct {
	db *gorm.DB
}

// NewProfileRepo creates a ProfileRepository.
func NewProfileRepo(db *gorm.DB) ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) Create(ctx context.Context, profile *model.Profile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *profileRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *profileRepo) FirstByRole(ctx context.Context, role model.Role) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).
		Where("role = ?", role).
		Order("created_at ASC").
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListByRole returns newest first.
func (r *profileRepo) ListByRole(ctx context.Context, role model.Role) ([]model.Profile, error) {
	var profiles []model.Profile
	err := r.db.WithContext(ctx).
		Where("role = ?", role).
		Order("created_at DESC").
		Find(&profiles).Error
	return profiles, err
}

func (r *profileRepo) CountByRole(ctx context.Context, role model.Role) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Profile{}).
		Where("role = ?", role).
		Count(&n).Error
	return n, err
}
