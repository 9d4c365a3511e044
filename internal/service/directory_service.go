package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"coachportal/internal/dto"
	"coachportal/internal/model"
	"coachportal/internal/repository"
	apperr "coachportal/pkg/errors"
)

// DirectoryService looks up students and admins.
type DirectoryService interface {
	// ListStudents returns the roster with each student's balance. Admin only.
	ListStudents(ctx context.Context, sess *Session) ([]dto.StudentResponse, error)
	// GetStudent is open to admins and the student themselves.
	GetStudent(ctx context.Context, sess *Session, id string) (*dto.StudentResponse, error)
	// ExportStudents renders the roster as .xlsx and returns a file name.
	ExportStudents(ctx context.Context, sess *Session) (*bytes.Buffer, string, error)
	// FirstAdmin is the default coach for student-written notes.
	FirstAdmin(ctx context.Context, sess *Session) (*dto.FirstAdminResponse, error)
	GetAdmin(ctx context.Context, sess *Session, id string) (*dto.AdminResponse, error)
}

type directoryService struct {
	repo     *repository.Repository
	gate     AccessGate
	identity IdentityProvider
	logger   *zap.Logger
}

// NewDirectoryService creates a DirectoryService.
func NewDirectoryService(repo *repository.Repository, gate AccessGate, identity IdentityProvider, logger *zap.Logger) DirectoryService {
	return &directoryService{repo: repo, gate: gate, identity: identity, logger: logger}
}

func (s *directoryService) ListStudents(ctx context.Context, sess *Session) ([]dto.StudentResponse, error) {
	caller, err := s.gate.Resolve(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(caller, model.RoleAdmin, ""); err != nil {
		return nil, err
	}
	return s.roster(ctx)
}

func (s *directoryService) GetStudent(ctx context.Context, sess *Session, id string) (*dto.StudentResponse, error) {
	caller, err := s.gate.Resolve(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := s.gate.CanReadLedger(caller, id); err != nil {
		return nil, err
	}

	student, err := loadStudent(ctx, s.repo.Profile, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.join(ctx, []model.Profile{*student})
	if err != nil {
		return nil, err
	}
	return &rows[0], nil
}

func (s *directoryService) ExportStudents(ctx context.Context, sess *Session) (*bytes.Buffer, string, error) {
	students, err := s.ListStudents(ctx, sess)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Students"
	idx, _ := f.NewSheet(sheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheet, "A", "C", 20)
	f.SetColWidth(sheet, "D", "D", 32)
	f.SetColWidth(sheet, "E", "G", 12)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4F46E5"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	headers := []string{"First name", "Last name", "Joined", "Email", "Total", "Used", "Remaining"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	f.SetCellStyle(sheet, "A1", "G1", headerStyle)

	for r, st := range students {
		row := r + 2
		values := []interface{}{
			st.FirstName, st.LastName, st.JoinedAt, st.Email,
			st.Ledger.TotalSessions, st.Ledger.UsedSessions, st.Ledger.RemainingSessions,
		}
		for c, v := range values {
			cell, _ := excelize.CoordinatesToCellName(c+1, row)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		s.logger.Error("write roster workbook failed", zap.Error(err))
		return nil, "", apperr.Upstream("generate workbook", err)
	}

	filename := fmt.Sprintf("students-%s.xlsx", time.Now().UTC().Format("20060102"))
	return buf, filename, nil
}

func (s *directoryService) FirstAdmin(ctx context.Context, sess *Session) (*dto.FirstAdminResponse, error) {
	if _, err := s.gate.Resolve(ctx, sess); err != nil {
		return nil, err
	}
	admin, err := s.repo.Profile.FirstByRole(ctx, model.RoleAdmin)
	if err != nil {
		return nil, storeErr("find admin", err, ErrAdminNotFound)
	}
	return &dto.FirstAdminResponse{ID: admin.ID}, nil
}

func (s *directoryService) GetAdmin(ctx context.Context, sess *Session, id string) (*dto.AdminResponse, error) {
	if _, err := s.gate.Resolve(ctx, sess); err != nil {
		return nil, err
	}
	admin, err := s.repo.Profile.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("load admin", err, ErrAdminNotFound)
	}
	if !admin.IsAdmin() {
		return nil, ErrAdminNotFound
	}
	account, err := s.identity.LookupByID(ctx, admin.ID)
	if err != nil {
		return nil, err
	}
	return &dto.AdminResponse{
		ID:        admin.ID,
		Email:     account.Email,
		FirstName: admin.FirstName,
		LastName:  admin.LastName,
	}, nil
}

func (s *directoryService) roster(ctx context.Context) ([]dto.StudentResponse, error) {
	students, err := s.repo.Profile.ListByRole(ctx, model.RoleStudent)
	if err != nil {
		return nil, apperr.Upstream("list students", err)
	}
	return s.join(ctx, students)
}

// join attaches email and ledger to each profile with one query per table.
func (s *directoryService) join(ctx context.Context, students []model.Profile) ([]dto.StudentResponse, error) {
	ids := make([]string, len(students))
	for i := range students {
		ids[i] = students[i].ID
	}

	accounts, err := s.repo.Account.ListByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Upstream("list accounts", err)
	}
	emails := make(map[string]string, len(accounts))
	for _, a := range accounts {
		emails[a.ID] = a.Email
	}

	ledgers, err := s.repo.Ledger.ListByUserIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Upstream("list session ledgers", err)
	}
	byUser := make(map[string]*model.SessionLedger, len(ledgers))
	for i := range ledgers {
		byUser[ledgers[i].UserID] = &ledgers[i]
	}

	result := make([]dto.StudentResponse, 0, len(students))
	for _, st := range students {
		result = append(result, dto.StudentResponse{
			ID:        st.ID,
			Email:     emails[st.ID],
			FirstName: st.FirstName,
			LastName:  st.LastName,
			JoinedAt:  st.CreatedAt.Format(time.RFC3339),
			Ledger:    *toLedgerResponse(st.ID, byUser[st.ID]),
		})
	}
	return result, nil
}
