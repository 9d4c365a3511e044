package service

import (
	"context"

	"go.uber.org/zap"

	"coachportal/internal/dto"
	"coachportal/internal/model"
	"coachportal/internal/repository"
	apperr "coachportal/pkg/errors"
)

// NotificationService re-delivers emails on explicit request. Unlike the
// implicit notifications after a mutation, a failure here is an error.
type NotificationService interface {
	// SendInvitationEmail re-sends the invite link without touching its dates.
	SendInvitationEmail(ctx context.Context, sess *Session, req *dto.SendInvitationEmailRequest) (*dto.NotificationResult, error)
	// SendNoteNotification emails the note's recipient; the recipient is
	// always derived from the note.
	SendNoteNotification(ctx context.Context, sess *Session, req *dto.SendNoteNotificationRequest) (*dto.NotificationResult, error)
}

type notificationService struct {
	repo   *repository.Repository
	gate   AccessGate
	mail   *portalMail
	logger *zap.Logger
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(repo *repository.Repository, gate AccessGate, mail *portalMail, logger *zap.Logger) NotificationService {
	return &notificationService{repo: repo, gate: gate, mail: mail, logger: logger}
}

func (s *notificationService) SendInvitationEmail(ctx context.Context, sess *Session, req *dto.SendInvitationEmailRequest) (*dto.NotificationResult, error) {
	caller, err := s.gate.Resolve(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(caller, model.RoleAdmin, ""); err != nil {
		return nil, err
	}

	inv, err := s.repo.Invitation.GetByID(ctx, req.InvitationID)
	if err != nil {
		return nil, storeErr("lookup invitation", err, ErrInvitationNotFound)
	}
	if err := s.gate.CanMutateInvitation(caller, inv); err != nil {
		return nil, err
	}
	if inv.IsAccepted {
		return nil, ErrInvitationAccepted
	}

	id, err := s.mail.invitation(ctx, inv, caller)
	if err != nil {
		s.logger.Warn("invitation email failed", zap.String("invitation_id", inv.ID), zap.Error(err))
		return nil, apperr.Upstream("send invitation email", err)
	}
	return &dto.NotificationResult{MessageID: id}, nil
}

func (s *notificationService) SendNoteNotification(ctx context.Context, sess *Session, req *dto.SendNoteNotificationRequest) (*dto.NotificationResult, error) {
	caller, err := s.gate.Resolve(ctx, sess)
	if err != nil {
		return nil, err
	}

	note, err := s.repo.Note.GetByID(ctx, req.NoteID)
	if err != nil {
		return nil, storeErr("load note", err, ErrNoteNotFound)
	}
	// Only the author notifies the other party.
	if err := s.gate.CanMutateNote(caller, note); err != nil {
		return nil, err
	}

	id, err := s.mail.note(ctx, note, req.IsUpdate)
	if err != nil {
		s.logger.Warn("note notification failed", zap.String("note_id", note.ID), zap.Error(err))
		return nil, apperr.Upstream("send note notification", err)
	}
	return &dto.NotificationResult{MessageID: id}, nil
}
