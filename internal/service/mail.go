package service

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"coachportal/config"
	"coachportal/internal/model"
	"coachportal/internal/notify"
	"coachportal/internal/repository"
)

// portalMail builds notification payloads from domain records and hands
// them to the notifier. Callers decide whether a failure is a soft warning
// or an error.
type portalMail struct {
	cfg      *config.Config
	repo     *repository.Repository
	identity IdentityProvider
	notifier notify.Notifier
	logger   *zap.Logger
}

func (m *portalMail) inviteURL(token string) string {
	return strings.TrimRight(m.cfg.Server.BaseURL, "/") + "/invite/" + url.PathEscape(token)
}

func (m *portalMail) dashboardURL() string {
	return strings.TrimRight(m.cfg.Server.BaseURL, "/") + "/dashboard"
}

func (m *portalMail) resetURL(token string) string {
	return strings.TrimRight(m.cfg.Server.BaseURL, "/") + "/update-password?token=" + url.QueryEscape(token)
}

func (m *portalMail) adminName(admin *model.Profile) string {
	if name := admin.FullName(); name != "" {
		return name
	}
	return m.cfg.Mail.AdminDisplayName
}

// invitation emails the invite link on behalf of admin.
func (m *portalMail) invitation(ctx context.Context, inv *model.Invitation, admin *model.Profile) (string, error) {
	return m.notifier.Notify(ctx, notify.KindInvitation, inv.Email, notify.Payload{
		InviteURL: m.inviteURL(inv.Token),
		AdminName: m.adminName(admin),
	})
}

// note emails the party that did not write the note.
func (m *portalMail) note(ctx context.Context, note *model.Note, isUpdate bool) (string, error) {
	student, admin, err := m.noteParties(ctx, note)
	if err != nil {
		return "", err
	}

	payload := notify.Payload{
		NoteTitle: note.Title,
		PortalURL: m.dashboardURL(),
		IsUpdate:  isUpdate,
	}
	kind := notify.KindNoteToStudent
	recipient := student
	if note.CreatedByStudent {
		kind = notify.KindNoteToAdmin
		recipient = admin
		payload.StudentName = student.FullName()
	} else {
		payload.AdminName = m.adminName(admin)
	}

	account, err := m.identity.LookupByID(ctx, recipient.ID)
	if err != nil {
		return "", fmt.Errorf("lookup recipient email: %w", err)
	}
	return m.notifier.Notify(ctx, kind, account.Email, payload)
}

func (m *portalMail) passwordReset(ctx context.Context, email, token string) (string, error) {
	return m.notifier.Notify(ctx, notify.KindPasswordReset, email, notify.Payload{
		ResetURL: m.resetURL(token),
	})
}

func (m *portalMail) noteParties(ctx context.Context, note *model.Note) (*model.Profile, *model.Profile, error) {
	student, admin := note.Student, note.Admin
	var err error
	if student == nil {
		if student, err = m.repo.Profile.GetByID(ctx, note.UserID); err != nil {
			return nil, nil, fmt.Errorf("load student profile: %w", err)
		}
	}
	if admin == nil {
		if admin, err = m.repo.Profile.GetByID(ctx, note.AdminID); err != nil {
			return nil, nil, fmt.Errorf("load admin profile: %w", err)
		}
	}
	return student, admin, nil
}

// soft converts a delivery error into the warning attached to a successful
// response.
func (m *portalMail) soft(op string, err error, fields ...zap.Field) string {
	if err == nil {
		return ""
	}
	m.logger.Warn(op+": notification failed", append(fields, zap.Error(err))...)
	return notificationWarning
}
