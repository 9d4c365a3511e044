package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"coachportal/internal/model"
)

// NoteListFilters narrows List. Nil CreatedByStudent means both directions.
type NoteListFilters struct {
	StudentID        string
	CreatedByStudent *bool
}

// NoteRepository accesses notes.
type NoteRepository interface {
	Create(ctx context.Context, note *model.Note) error
	GetByID(ctx context.Context, id string) (*model.Note, error)
	// UpdateContent writes title and content only.
	UpdateContent(ctx context.Context, note *model.Note) error
	MarkRead(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filters *NoteListFilters, offset, limit int) ([]model.Note, int64, error)
	Count(ctx context.Context, filters *NoteListFilters) (int64, error)
}

type noteRepo struct {
	db *gorm.DB
}

// NewNoteRepo creates a NoteRepository.
func NewNoteRepo(db *gorm.DB) NoteRepository {
	return &noteRepo{db: db}
}

func (r *noteRepo) Create(ctx context.Context, note *model.Note) error {
	return r.db.WithContext(ctx).Omit("Student", "Admin").Create(note).Error
}

func (r *noteRepo) GetByID(ctx context.Context, id string) (*model.Note, error) {
	var note model.Note
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Admin").
		Where("id = ?", id).
		First(&note).Error
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *noteRepo) UpdateContent(ctx context.Context, note *model.Note) error {
	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&model.Note{}).
		Where("id = ?", note.ID).
		Updates(map[string]interface{}{
			"title":      note.Title,
			"content":    note.Content,
			"updated_at": now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	note.UpdatedAt = now
	return nil
}

func (r *noteRepo) MarkRead(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Model(&model.Note{}).
		Where("id = ?", id).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *noteRepo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.Note{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// List returns newest first with both parties preloaded.
func (r *noteRepo) List(ctx context.Context, filters *NoteListFilters, offset, limit int) ([]model.Note, int64, error) {
	var notes []model.Note
	var total int64

	db := r.applyFilters(r.db.WithContext(ctx).Model(&model.Note{}), filters)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Student").
		Preload("Admin").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&notes).Error; err != nil {
		return nil, 0, err
	}

	return notes, total, nil
}

func (r *noteRepo) Count(ctx context.Context, filters *NoteListFilters) (int64, error) {
	var n int64
	err := r.applyFilters(r.db.WithContext(ctx).Model(&model.Note{}), filters).Count(&n).Error
	return n, err
}

func (r *noteRepo) applyFilters(db *gorm.DB, filters *NoteListFilters) *gorm.DB {
	if filters == nil {
		return db
	}
	if filters.StudentID != "" {
		db = db.Where("user_id = ?", filters.StudentID)
	}
	if filters.CreatedByStudent != nil {
		db = db.Where("created_by_student = ?", *filters.CreatedByStudent)
	}
	return db
}
