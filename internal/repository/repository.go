package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository aggregates every table repository.
type Repository struct {
	db *gorm.DB

	Account    AccountRepository
	Profile    ProfileRepository
	Invitation InvitationRepository
	Ledger     SessionLedgerRepository
	Note       NoteRepository
}

// NewRepository builds all repositories on db.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:         db,
		Account:    NewAccountRepo(db),
		Profile:    NewProfileRepo(db),
		Invitation: NewInvitationRepo(db),
		Ledger:     NewSessionLedgerRepo(db),
		Note:       NewNoteRepo(db),
	}
}

// BeginTx starts a transaction. It returns a nil tx when the Repository was
// assembled without a database (unit tests with in-memory repositories);
// callers treat a nil tx as "no transaction".
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx returns a Repository bound to tx. A nil tx returns r unchanged.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}
