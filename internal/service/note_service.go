package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"coachportal/internal/dto"
	"coachportal/internal/model"
	"coachportal/internal/repository"
	"coachportal/pkg/database"
	apperr "coachportal/pkg/errors"
)

// NoteParams names both parties of a new note explicitly.
type NoteParams struct {
	UserID           string
	AdminID          string
	Title            string
	Content          string
	CreatedByStudent bool
}

// NoteService manages the notes exchanged between an admin and a student.
type NoteService interface {
	// Create fills in the parties from the caller: a student writes to the
	// given admin (default: the first admin), an admin writes as themself
	// to the given student.
	Create(ctx context.Context, sess *Session, req *dto.CreateNoteRequest) (*dto.NoteResponse, error)
	// CreateNote requires the caller to be the named author.
	CreateNote(ctx context.Context, sess *Session, p NoteParams) (*dto.NoteResponse, error)
	Get(ctx context.Context, sess *Session, id string) (*dto.NoteResponse, error)
	List(ctx context.Context, sess *Session, req *dto.NoteListRequest) ([]dto.NoteResponse, int64, error)
	Update(ctx context.Context, sess *Session, id string, req *dto.UpdateNoteRequest) (*dto.NoteResponse, error)
	Delete(ctx context.Context, sess *Session, id string) error
	MarkRead(ctx context.Context, sess *Session, id string) error
}

type noteService struct {
	repo   *repository.Repository
	gate   AccessGate
	mail   *portalMail
	logger *zap.Logger
}

// NewNoteService creates a NoteService.
func NewNoteService(repo *repository.Repository, gate AccessGate, mail *portalMail, logger *zap.Logger) NoteService {
	return &noteService{repo: repo, gate: gate, mail: mail, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *noteService) Create(ctx context.Context, sess *Session, req *dto.CreateNoteRequest) (*dto.NoteResponse, error) {
	caller, err := s.gate.Resolve(ctx, sess)
	if err != nil {
		return nil, err
	}

	p := NoteParams{Title: req.Title, Content: req.Content}
	switch caller.Role {
	case model.RoleStudent:
		p.UserID = caller.ID
		p.CreatedByStudent = true
		p.AdminID = req.AdminID
		if p.AdminID == "" {
			first, err := s.repo.Profile.FirstByRole(ctx, model.RoleAdmin)
			if err != nil {
				return nil, storeErr("find admin", err, ErrAdminNotFound)
			}
			p.AdminID = first.ID
		}
	case model.RoleAdmin:
		p.UserID = req.StudentID
		p.AdminID = req.AdminID
		if p.AdminID == "" {
			p.AdminID = caller.ID
		}
	default:
		return nil, ErrRoleRequired
	}

	return s.create(ctx, caller, p)
}

func (s *noteService) CreateNote(ctx context.Context, sess *Session, p NoteParams) (*dto.NoteResponse, error) {
	caller, err := s.gate.Resolve(ctx, sess)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, caller, p)
}

func (s *noteService) create(ctx context.Context, caller *model.Profile, p NoteParams) (*dto.NoteResponse, error) {
	authorRole, authorID := model.RoleAdmin, p.AdminID
	if p.CreatedByStudent {
		authorRole, authorID = model.RoleStudent, p.UserID
	}
	if err := s.gate.Authorize(caller, authorRole, authorID); err != nil {
		return nil, err
	}

	title, content := strings.TrimSpace(p.Title), strings.TrimSpace(p.Content)
	if err := required(
		[2]string{"student_id", p.UserID},
		[2]string{"admin_id", p.AdminID},
		[2]string{"title", title},
		[2]string{"content", content},
	); err != nil {
		return nil, err
	}

	student, err := loadStudent(ctx, s.repo.Profile, p.UserID)
	if err != nil {
		return nil, err
	}
	admin, err := s.repo.Profile.GetByID(ctx, p.AdminID)
	if err != nil {
		return nil, storeErr("load admin", err, ErrAdminNotFound)
	}
	if !admin.IsAdmin() {
		return nil, ErrAdminNotFound
	}

	note := &model.Note{
		UserID:           student.ID,
		AdminID:          admin.ID,
		Title:            title,
		Content:          content,
		CreatedByStudent: p.CreatedByStudent,
	}
	if err := s.repo.Note.Create(ctx, note); err != nil {
		s.logger.Error("create note failed", zap.Error(err))
		return nil, apperr.Upstream("create note", err)
	}
	note.Student, note.Admin = student, admin

	s.logger.Info("note created",
		zap.String("note_id", note.ID),
		zap.String("author_id", note.AuthorID()),
	)

	_, sendErr := s.mail.note(ctx, note, false)
	resp := toNoteResponse(note)
	resp.Warning = s.mail.soft("note created", sendErr, zap.String("note_id", note.ID))
	return resp, nil
}

// ────────────────────── Get / List ──────────────────────

func (s *noteService) Get(ctx context.Context, sess *Session, id string) (*dto.NoteResponse, error) {
	caller, note, err := s.load(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.CanViewNote(caller, note); err != nil {
		return nil, err
	}
	return toNoteResponse(note), nil
}

// List shows admins every note and students only their own.
func (s *noteService) List(ctx context.Context, sess *Session, req *dto.NoteListRequest) ([]dto.NoteResponse, int64, error) {
	caller, err := s.gate.Resolve(ctx, sess)
	if err != nil {
		return nil, 0, err
	}

	filters := &repository.NoteListFilters{StudentID: req.StudentID}
	if !caller.IsAdmin() {
		if req.StudentID != "" && req.StudentID != caller.ID {
			return nil, 0, ErrNoPermission
		}
		filters.StudentID = caller.ID
	}
	switch req.Direction {
	case "from_student":
		filters.CreatedByStudent = boolPtr(true)
	case "to_student":
		filters.CreatedByStudent = boolPtr(false)
	case "":
	default:
		return nil, 0, apperr.Validationf("unknown direction %q", req.Direction)
	}

	notes, total, err := s.repo.Note.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		return nil, 0, apperr.Upstream("list notes", err)
	}

	result := make([]dto.NoteResponse, 0, len(notes))
	for i := range notes {
		result = append(result, *toNoteResponse(&notes[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *noteService) Update(ctx context.Context, sess *Session, id string, req *dto.UpdateNoteRequest) (*dto.NoteResponse, error) {
	caller, note, err := s.load(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if err := s.gate.CanMutateNote(caller, note); err != nil {
		return nil, err
	}

	title, content := strings.TrimSpace(req.Title), strings.TrimSpace(req.Content)
	if err := required([2]string{"title", title}, [2]string{"content", content}); err != nil {
		return nil, err
	}

	note.Title, note.Content = title, content
	if err := s.repo.Note.UpdateContent(ctx, note); err != nil {
		return nil, storeErr("update note", err, ErrNoteNotFound)
	}

	_, sendErr := s.mail.note(ctx, note, true)
	resp := toNoteResponse(note)
	resp.Warning = s.mail.soft("note updated", sendErr, zap.String("note_id", note.ID))
	return resp, nil
}

// ────────────────────── Delete / MarkRead ──────────────────────

func (s *noteService) Delete(ctx context.Context, sess *Session, id string) error {
	caller, note, err := s.load(ctx, sess, id)
	if err != nil {
		return err
	}
	if err := s.gate.CanDeleteNote(caller, note); err != nil {
		return err
	}
	if err := s.repo.Note.Delete(ctx, note.ID); err != nil {
		return storeErr("delete note", err, ErrNoteNotFound)
	}
	s.logger.Info("note deleted", zap.String("note_id", note.ID), zap.String("by", caller.ID))
	return nil
}

func (s *noteService) MarkRead(ctx context.Context, sess *Session, id string) error {
	caller, note, err := s.load(ctx, sess, id)
	if err != nil {
		return err
	}
	if err := s.gate.CanMarkNoteRead(caller, note); err != nil {
		return err
	}
	if note.IsRead {
		return nil
	}
	if err := s.repo.Note.MarkRead(ctx, note.ID); err != nil {
		return storeErr("mark note read", err, ErrNoteNotFound)
	}
	return nil
}

// ────────────────────── helpers ──────────────────────

func (s *noteService) load(ctx context.Context, sess *Session, id string) (*model.Profile, *model.Note, error) {
	caller, err := s.gate.Resolve(ctx, sess)
	if err != nil {
		return nil, nil, err
	}
	note, err := s.repo.Note.GetByID(ctx, id)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, nil, ErrNoteNotFound
		}
		return nil, nil, apperr.Upstream("load note", err)
	}
	return caller, note, nil
}

func toNoteResponse(n *model.Note) *dto.NoteResponse {
	return &dto.NoteResponse{
		ID:               n.ID,
		UserID:           n.UserID,
		AdminID:          n.AdminID,
		Title:            n.Title,
		Content:          n.Content,
		IsRead:           n.IsRead,
		CreatedByStudent: n.CreatedByStudent,
		CreatedAt:        n.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        n.UpdatedAt.Format(time.RFC3339),
		Student:          toProfileResponse(n.Student),
		Admin:            toProfileResponse(n.Admin),
	}
}

func toProfileResponse(p *model.Profile) *dto.ProfileResponse {
	if p == nil {
		return nil
	}
	return &dto.ProfileResponse{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Role:      string(p.Role),
	}
}

func boolPtr(b bool) *bool { return &b }
