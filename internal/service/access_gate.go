package service

import (
	"context"

	"go.uber.org/zap"

	"coachportal/internal/model"
	"coachportal/internal/repository"
	"coachportal/pkg/database"
	apperr "coachportal/pkg/errors"
)

// AccessGate resolves a caller's Profile and decides whether it may act.
// Role and ownership always come from the stored profile, never from
// anything the client sends.
type AccessGate interface {
	// Resolve returns the caller's profile or ErrNotAuthenticated.
	Resolve(ctx context.Context, sess *Session) (*model.Profile, error)
	// Authorize fails with Unauthenticated for a nil caller, Forbidden when
	// requiredRole is set and differs, and Forbidden when resourceOwnerID is
	// set and is not the caller.
	Authorize(caller *model.Profile, requiredRole model.Role, resourceOwnerID string) error

	CanMutateInvitation(caller *model.Profile, inv *model.Invitation) error
	CanReadLedger(caller *model.Profile, studentID string) error
	CanViewNote(caller *model.Profile, note *model.Note) error
	CanMutateNote(caller *model.Profile, note *model.Note) error
	CanDeleteNote(caller *model.Profile, note *model.Note) error
	CanMarkNoteRead(caller *model.Profile, note *model.Note) error
}

type accessGate struct {
	profiles         repository.ProfileRepository
	authorOnlyDelete bool
	logger           *zap.Logger
}

// NewAccessGate creates an AccessGate. authorOnlyDelete narrows note
// deletion to the note's author.
func NewAccessGate(profiles repository.ProfileRepository, authorOnlyDelete bool, logger *zap.Logger) AccessGate {
	return &accessGate{profiles: profiles, authorOnlyDelete: authorOnlyDelete, logger: logger}
}

func (g *accessGate) Resolve(ctx context.Context, sess *Session) (*model.Profile, error) {
	if !sess.valid() {
		return nil, ErrNotAuthenticated
	}
	profile, err := g.profiles.GetByID(ctx, sess.AccountID)
	if err != nil {
		if database.IsNotFound(err) {
			g.logger.Warn("session without profile", zap.String("account_id", sess.AccountID))
			return nil, ErrProfileMissing
		}
		g.logger.Error("load profile failed", zap.Error(err))
		return nil, apperr.Upstream("load profile", err)
	}
	return profile, nil
}

func (g *accessGate) Authorize(caller *model.Profile, requiredRole model.Role, resourceOwnerID string) error {
	if caller == nil || caller.ID == "" {
		return ErrNotAuthenticated
	}
	if requiredRole != "" && caller.Role != requiredRole {
		return ErrRoleRequired
	}
	if resourceOwnerID != "" && caller.ID != resourceOwnerID {
		return ErrNoPermission
	}
	return nil
}

// CanMutateInvitation: admin and creator.
func (g *accessGate) CanMutateInvitation(caller *model.Profile, inv *model.Invitation) error {
	return g.Authorize(caller, model.RoleAdmin, inv.AdminID)
}

// CanReadLedger: any admin, or the student themselves.
func (g *accessGate) CanReadLedger(caller *model.Profile, studentID string) error {
	if caller.IsAdmin() {
		return nil
	}
	return g.Authorize(caller, model.RoleStudent, studentID)
}

// CanViewNote: any admin, or the student the note concerns.
func (g *accessGate) CanViewNote(caller *model.Profile, note *model.Note) error {
	if caller.IsAdmin() {
		return nil
	}
	return g.Authorize(caller, model.RoleStudent, note.UserID)
}

// CanMutateNote: only the recorded author.
func (g *accessGate) CanMutateNote(caller *model.Profile, note *model.Note) error {
	return g.Authorize(caller, note.AuthorRole(), note.AuthorID())
}

func (g *accessGate) CanDeleteNote(caller *model.Profile, note *model.Note) error {
	if g.authorOnlyDelete {
		return g.CanMutateNote(caller, note)
	}
	return g.CanViewNote(caller, note)
}

// CanMarkNoteRead: only the recipient.
func (g *accessGate) CanMarkNoteRead(caller *model.Profile, note *model.Note) error {
	role := model.RoleStudent
	if note.CreatedByStudent {
		role = model.RoleAdmin
	}
	return g.Authorize(caller, role, note.RecipientID())
}
