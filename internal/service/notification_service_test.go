package service

import (
	"context"
	"errors"
	"testing"

	"coachportal/internal/dto"
	"coachportal/internal/notify"
	apperr "coachportal/pkg/errors"
)

func TestNotification_SendInvitationEmail(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addAdmin(t, "Di")
	other := env.addAdmin(t, "Alex")
	ctx := context.Background()

	inv, err := env.svc.Invitation.Create(ctx, sessionFor(admin), &dto.CreateInvitationRequest{Email: "new@example.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	stored := *env.invitations.invitations[inv.ID]

	res, err := env.svc.Notification.SendInvitationEmail(ctx, sessionFor(admin), &dto.SendInvitationEmailRequest{InvitationID: inv.ID})
	if err != nil {
		t.Fatalf("SendInvitationEmail: %v", err)
	}
	if res.MessageID == "" {
		t.Error("expected a message id")
	}
	if mail := env.notifier.last(); mail.kind != notify.KindInvitation || mail.payload.InviteURL != inv.InviteURL {
		t.Errorf("unexpected email %+v", mail)
	}
	if after := env.invitations.invitations[inv.ID]; !after.ExpiresAt.Equal(stored.ExpiresAt) || after.Token != stored.Token {
		t.Error("sending must not touch the invitation")
	}

	if _, err := env.svc.Notification.SendInvitationEmail(ctx, sessionFor(other), &dto.SendInvitationEmailRequest{InvitationID: inv.ID}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("other admin: want Forbidden, got %v", err)
	}
	if _, err := env.svc.Notification.SendInvitationEmail(ctx, sessionFor(admin), &dto.SendInvitationEmailRequest{InvitationID: "missing"}); !errors.Is(err, ErrInvitationNotFound) {
		t.Errorf("missing: want ErrInvitationNotFound, got %v", err)
	}

	env.invitations.invitations[inv.ID].IsAccepted = true
	if _, err := env.svc.Notification.SendInvitationEmail(ctx, sessionFor(admin), &dto.SendInvitationEmailRequest{InvitationID: inv.ID}); !errors.Is(err, apperr.ErrAlreadyAccepted) {
		t.Errorf("accepted: want AlreadyAccepted, got %v", err)
	}
}

func TestNotification_SendFailureIsAnError(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addAdmin(t, "Di")
	ctx := context.Background()

	inv, _ := env.svc.Invitation.Create(ctx, sessionFor(admin), &dto.CreateInvitationRequest{Email: "new@example.com"})
	env.notifier.err = errors.New("smtp down")

	_, err := env.svc.Notification.SendInvitationEmail(ctx, sessionFor(admin), &dto.SendInvitationEmailRequest{InvitationID: inv.ID})
	if !errors.Is(err, apperr.ErrUpstream) {
		t.Fatalf("want UpstreamFailure, got %v", err)
	}
}

func TestNotification_SendNoteNotification(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addAdmin(t, "Di")
	sam := env.addStudent(t, "Sam")
	ctx := context.Background()

	note, err := env.svc.Note.Create(ctx, sessionFor(sam), &dto.CreateNoteRequest{Title: "Question", Content: "?"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := env.svc.Notification.SendNoteNotification(ctx, sessionFor(sam), &dto.SendNoteNotificationRequest{NoteID: note.ID, IsUpdate: true}); err != nil {
		t.Fatalf("SendNoteNotification: %v", err)
	}
	mail := env.notifier.last()
	if mail.kind != notify.KindNoteToAdmin || mail.to != "di@example.com" || !mail.payload.IsUpdate {
		t.Errorf("unexpected email %+v", mail)
	}

	if _, err := env.svc.Notification.SendNoteNotification(ctx, sessionFor(admin), &dto.SendNoteNotificationRequest{NoteID: note.ID}); !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("recipient: want Forbidden, got %v", err)
	}
	if _, err := env.svc.Notification.SendNoteNotification(ctx, sessionFor(sam), &dto.SendNoteNotificationRequest{NoteID: "missing"}); !errors.Is(err, ErrNoteNotFound) {
		t.Errorf("missing: want ErrNoteNotFound, got %v", err)
	}
}
