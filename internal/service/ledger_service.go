package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"coachportal/internal/dto"
	"coachportal/internal/model"
	"coachportal/internal/repository"
	"coachportal/pkg/database"
	apperr "coachportal/pkg/errors"
)

// LedgerService manages per-student session credits.
type LedgerService interface {
	// Allocate overwrites both counters; it never merges with the previous
	// values.
	Allocate(ctx context.Context, sess *Session, studentID string, req *dto.AllocateSessionsRequest) (*dto.LedgerResponse, error)
	// Read returns zeros for a student without a ledger row.
	Read(ctx context.Context, sess *Session, studentID string) (*dto.LedgerResponse, error)
}

type ledgerService struct {
	repo   *repository.Repository
	gate   AccessGate
	logger *zap.Logger
}

// NewLedgerService creates a LedgerService.
func NewLedgerService(repo *repository.Repository, gate AccessGate, logger *zap.Logger) LedgerService {
	return &ledgerService{repo: repo, gate: gate, logger: logger}
}

func (s *ledgerService) Allocate(ctx context.Context, sess *Session, studentID string, req *dto.AllocateSessionsRequest) (*dto.LedgerResponse, error) {
	caller, err := s.gate.Resolve(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(caller, model.RoleAdmin, ""); err != nil {
		return nil, err
	}

	if req == nil || req.TotalSessions == nil || req.UsedSessions == nil {
		return nil, apperr.Validation("missing required field: total_sessions and used_sessions")
	}
	total, used := *req.TotalSessions, *req.UsedSessions
	if used < 0 || total < 0 || used > total {
		return nil, ErrSessionsOutOfRange
	}

	if _, err := s.loadStudent(ctx, studentID); err != nil {
		return nil, err
	}

	ledger := &model.SessionLedger{
		UserID:        studentID,
		TotalSessions: total,
		UsedSessions:  used,
		Timestamps:    model.Timestamps{UpdatedAt: time.Now().UTC()},
	}
	if err := s.repo.Ledger.Upsert(ctx, ledger); err != nil {
		s.logger.Error("upsert session ledger failed", zap.String("student_id", studentID), zap.Error(err))
		return nil, apperr.Upstream("save session ledger", err)
	}

	s.logger.Info("sessions allocated",
		zap.String("student_id", studentID),
		zap.String("admin_id", caller.ID),
		zap.Int("total", total),
		zap.Int("used", used),
	)
	return toLedgerResponse(studentID, ledger), nil
}

func (s *ledgerService) Read(ctx context.Context, sess *Session, studentID string) (*dto.LedgerResponse, error) {
	caller, err := s.gate.Resolve(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := s.gate.CanReadLedger(caller, studentID); err != nil {
		return nil, err
	}
	if caller.IsAdmin() {
		if _, err := s.loadStudent(ctx, studentID); err != nil {
			return nil, err
		}
	}

	ledger, err := s.repo.Ledger.GetByUserID(ctx, studentID)
	if err != nil {
		if database.IsNotFound(err) {
			return toLedgerResponse(studentID, nil), nil
		}
		return nil, apperr.Upstream("load session ledger", err)
	}
	return toLedgerResponse(studentID, ledger), nil
}

func (s *ledgerService) loadStudent(ctx context.Context, id string) (*model.Profile, error) {
	return loadStudent(ctx, s.repo.Profile, id)
}

// loadStudent returns the profile only if it exists and is a student.
func loadStudent(ctx context.Context, profiles repository.ProfileRepository, id string) (*model.Profile, error) {
	if id == "" {
		return nil, apperr.Validation("missing required field: student_id")
	}
	p, err := profiles.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("load student", err, ErrStudentNotFound)
	}
	if p.Role != model.RoleStudent {
		return nil, ErrStudentNotFound
	}
	return p, nil
}

func toLedgerResponse(studentID string, l *model.SessionLedger) *dto.LedgerResponse {
	resp := &dto.LedgerResponse{UserID: studentID}
	if l != nil {
		resp.TotalSessions = l.TotalSessions
		resp.UsedSessions = l.UsedSessions
		resp.RemainingSessions = l.Remaining()
	}
	return resp
}
