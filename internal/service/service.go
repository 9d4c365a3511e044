package service

import (
	"go.uber.org/zap"

	"coachportal/config"
	"coachportal/internal/notify"
	"coachportal/internal/repository"
	"coachportal/pkg/jwt"
)

// Service aggregates every service.
type Service struct {
	Identity     IdentityProvider
	Gate         AccessGate
	Auth         AuthService
	Invitation   InvitationService
	Ledger       LedgerService
	Note         NoteService
	Directory    DirectoryService
	Dashboard    DashboardService
	Notification NotificationService
}

// NewService wires the services. tokens may be nil when Redis is not
// available.
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	tokens TokenStore,
	notifier notify.Notifier,
	logger *zap.Logger,
) *Service {
	identity := NewIdentityProvider(repo.Account, jwtMgr, tokens, cfg.Auth.PasswordResetTTL, logger.Named("identity"))
	gate := NewAccessGate(repo.Profile, cfg.Notes.AuthorOnlyDelete, logger.Named("gate"))
	mail := &portalMail{cfg: cfg, repo: repo, identity: identity, notifier: notifier, logger: logger.Named("mail")}

	return &Service{
		Identity:     identity,
		Gate:         gate,
		Auth:         NewAuthService(repo, identity, mail, logger),
		Invitation:   NewInvitationService(cfg, repo, gate, identity, mail, logger.Named("invitation")),
		Ledger:       NewLedgerService(repo, gate, logger.Named("ledger")),
		Note:         NewNoteService(repo, gate, mail, logger.Named("note")),
		Directory:    NewDirectoryService(repo, gate, identity, logger),
		Dashboard:    NewDashboardService(repo, gate, logger),
		Notification: NewNotificationService(repo, gate, mail, logger),
	}
}
