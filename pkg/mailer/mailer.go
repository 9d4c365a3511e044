package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"coachportal/config"
)

// Mailer is the email provider boundary: send(to, subject, html) → message id.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) (string, error)
}

// New returns an SMTP mailer, or a logging mailer when no SMTP host is configured.
func New(cfg *config.MailConfig, logger *zap.Logger) Mailer {
	if cfg.SMTPHost == "" {
		logger.Warn("mail.smtp_host not set, emails will only be logged")
		return &LogMailer{logger: logger}
	}
	return &SMTPMailer{cfg: *cfg, logger: logger}
}

// SMTPMailer delivers mail over SMTP with STARTTLS when offered.
type SMTPMailer struct {
	cfg    config.MailConfig
	logger *zap.Logger
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, html string) (string, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return "", fmt.Errorf("invalid sender %q: %w", m.cfg.From, err)
	}
	if err := msg.To(to); err != nil {
		return "", fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, html)

	id := messageID(m.cfg.From)
	msg.SetMessageIDWithValue(id)

	opts := []mail.Option{
		mail.WithPort(m.cfg.SMTPPort),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.SMTPHost, opts...)
	if err != nil {
		return "", fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}

	m.logger.Info("email sent", zap.String("to", to), zap.String("message_id", id))
	return id, nil
}

// LogMailer writes emails to the log instead of sending them. Used in
// development when SMTP is not configured.
type LogMailer struct {
	logger *zap.Logger
}

func (m *LogMailer) Send(_ context.Context, to, subject, html string) (string, error) {
	id := messageID("localhost")
	m.logger.Info("email (not sent)",
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("html_bytes", len(html)),
		zap.String("message_id", id),
	)
	return id, nil
}

// messageID builds "<uuid>@<sender domain>".
func messageID(from string) string {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 {
		domain = strings.TrimRight(from[at+1:], "> ")
	}
	return uuid.NewString() + "@" + domain
}
