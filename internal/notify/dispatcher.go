package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"coachportal/pkg/mailer"
	"coachportal/pkg/metrics"
)

// Kind selects the email template.
type Kind string

const (
	KindInvitation    Kind = "invitation"
	KindNoteToStudent Kind = "note-to-student"
	KindNoteToAdmin   Kind = "note-to-admin"
	KindPasswordReset Kind = "password-reset"
)

// Kinds lists every supported Kind.
var Kinds = []Kind{KindInvitation, KindNoteToStudent, KindNoteToAdmin, KindPasswordReset}

// Payload carries template values. Each kind reads only its own fields.
type Payload struct {
	InviteURL   string
	AdminName   string
	StudentName string
	NoteTitle   string
	PortalURL   string
	IsUpdate    bool
	ResetURL    string
}

// Notifier sends a templated email and returns the provider message id.
type Notifier interface {
	Notify(ctx context.Context, kind Kind, to string, p Payload) (string, error)
}

// Dispatcher renders a template per kind and hands it to the mailer.
// Delivery is at-most-once: failures are logged and returned, never retried.
type Dispatcher struct {
	mailer  mailer.Mailer
	catalog *Catalog
	logger  *zap.Logger
}

// NewDispatcher loads the template catalog.
func NewDispatcher(m mailer.Mailer, logger *zap.Logger) (*Dispatcher, error) {
	catalog, err := LoadCatalog()
	if err != nil {
		return nil, err
	}
	return &Dispatcher{mailer: m, catalog: catalog, logger: logger}, nil
}

// Notify renders kind and hands it to the mailer. Failures are returned,
// not logged; the caller decides whether they are fatal.
func (d *Dispatcher) Notify(ctx context.Context, kind Kind, to string, p Payload) (string, error) {
	if to == "" {
		return "", fmt.Errorf("notify %s: recipient email is empty", kind)
	}

	subject, html, err := d.catalog.Render(kind, p)
	if err != nil {
		metrics.Notifications.WithLabelValues(string(kind), "failed").Inc()
		return "", err
	}

	id, err := d.mailer.Send(ctx, to, subject, html)
	if err != nil {
		metrics.Notifications.WithLabelValues(string(kind), "failed").Inc()
		return "", fmt.Errorf("email service error: %w", err)
	}

	metrics.Notifications.WithLabelValues(string(kind), "sent").Inc()
	d.logger.Debug("email dispatched", zap.String("kind", string(kind)), zap.String("message_id", id))
	return id, nil
}
