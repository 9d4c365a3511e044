package service

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"coachportal/internal/dto"
	"coachportal/internal/model"
	"coachportal/internal/repository"
	"coachportal/pkg/database"
	apperr "coachportal/pkg/errors"
)

const recentNotesLimit = 3

// DashboardService builds the landing-page summaries.
type DashboardService interface {
	Admin(ctx context.Context, sess *Session) (*dto.AdminDashboardResponse, error)
	Student(ctx context.Context, sess *Session) (*dto.StudentDashboardResponse, error)
}

type dashboardService struct {
	repo   *repository.Repository
	gate   AccessGate
	logger *zap.Logger
}

// NewDashboardService creates a DashboardService.
func NewDashboardService(repo *repository.Repository, gate AccessGate, logger *zap.Logger) DashboardService {
	return &dashboardService{repo: repo, gate: gate, logger: logger}
}

func (s *dashboardService) Admin(ctx context.Context, sess *Session) (*dto.AdminDashboardResponse, error) {
	caller, err := s.gate.Resolve(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(caller, model.RoleAdmin, ""); err != nil {
		return nil, err
	}

	// The four counts are independent.
	var resp dto.AdminDashboardResponse
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		resp.StudentCount, err = s.repo.Profile.CountByRole(gctx, model.RoleStudent)
		return apperr.Upstream("count students", err)
	})
	g.Go(func() (err error) {
		resp.TotalSessions, err = s.repo.Ledger.SumTotalSessions(gctx)
		return apperr.Upstream("sum sessions", err)
	})
	g.Go(func() (err error) {
		resp.NoteCount, err = s.repo.Note.Count(gctx, nil)
		return apperr.Upstream("count notes", err)
	})
	g.Go(func() (err error) {
		resp.PendingInvitations, err = s.repo.Invitation.CountPending(gctx)
		return apperr.Upstream("count invitations", err)
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("admin dashboard failed", zap.Error(err))
		return nil, err
	}
	return &resp, nil
}

func (s *dashboardService) Student(ctx context.Context, sess *Session) (*dto.StudentDashboardResponse, error) {
	caller, err := s.gate.Resolve(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(caller, model.RoleStudent, ""); err != nil {
		return nil, err
	}

	ledger, err := s.repo.Ledger.GetByUserID(ctx, caller.ID)
	if err != nil && !database.IsNotFound(err) {
		return nil, apperr.Upstream("load session ledger", err)
	}

	notes, total, err := s.repo.Note.List(ctx, &repository.NoteListFilters{StudentID: caller.ID}, 0, recentNotesLimit)
	if err != nil {
		return nil, apperr.Upstream("list notes", err)
	}
	recent := make([]dto.NoteResponse, 0, len(notes))
	for i := range notes {
		recent = append(recent, *toNoteResponse(&notes[i]))
	}

	return &dto.StudentDashboardResponse{
		Profile:     *toProfileResponse(caller),
		Ledger:      *toLedgerResponse(caller.ID, ledger),
		NoteCount:   total,
		RecentNotes: recent,
	}, nil
}
