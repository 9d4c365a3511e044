package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"coachportal/config"
	"coachportal/internal/dto"
	"coachportal/internal/model"
	"coachportal/internal/repository"
	"coachportal/pkg/database"
	apperr "coachportal/pkg/errors"
	"coachportal/pkg/metrics"
)

// InvitationService manages the invitation lifecycle:
// created → (resent)* → redeemed | expired | withdrawn.
type InvitationService interface {
	Create(ctx context.Context, sess *Session, req *dto.CreateInvitationRequest) (*dto.InvitationResponse, error)
	Resend(ctx context.Context, sess *Session, id string) (*dto.InvitationResponse, error)
	Withdraw(ctx context.Context, sess *Session, id string) error
	List(ctx context.Context, sess *Session, req *dto.InvitationListRequest) ([]dto.InvitationResponse, error)
	// Validate and Redeem are public: they take no session.
	Validate(ctx context.Context, token string) (*dto.InvitationValidateResponse, error)
	Redeem(ctx context.Context, req *dto.AcceptInvitationRequest) (*dto.AcceptInvitationResponse, error)
}

type invitationService struct {
	cfg      *config.Config
	repo     *repository.Repository
	gate     AccessGate
	identity IdentityProvider
	mail     *portalMail
	logger   *zap.Logger
}

// NewInvitationService creates an InvitationService.
func NewInvitationService(
	cfg *config.Config,
	repo *repository.Repository,
	gate AccessGate,
	identity IdentityProvider,
	mail *portalMail,
	logger *zap.Logger,
) InvitationService {
	return &invitationService{cfg: cfg, repo: repo, gate: gate, identity: identity, mail: mail, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *invitationService) Create(ctx context.Context, sess *Session, req *dto.CreateInvitationRequest) (*dto.InvitationResponse, error) {
	caller, err := s.gate.Resolve(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(caller, model.RoleAdmin, ""); err != nil {
		return nil, err
	}

	email := normalizeEmail(req.Email)
	if err := required([2]string{"email", email}); err != nil {
		return nil, err
	}
	if _, err := s.repo.Account.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !database.IsNotFound(err) {
		return nil, apperr.Upstream("check existing account", err)
	}

	token, err := newToken()
	if err != nil {
		return nil, apperr.Upstream("generate invitation token", err)
	}

	inv := &model.Invitation{Email: email, Token: token, AdminID: caller.ID}
	inv.ResetWindow(time.Now().UTC())
	inv.UpdatedAt = inv.CreatedAt
	if err := s.repo.Invitation.Create(ctx, inv); err != nil {
		s.logger.Error("create invitation failed", zap.Error(err))
		return nil, apperr.Upstream("create invitation", err)
	}
	metrics.InvitationEvents.WithLabelValues("created").Inc()

	s.logger.Info("invitation created",
		zap.String("invitation_id", inv.ID),
		zap.String("admin_id", caller.ID),
	)

	_, sendErr := s.mail.invitation(ctx, inv, caller)
	resp := s.toResponse(inv, time.Now())
	resp.InviteURL = s.mail.inviteURL(inv.Token)
	resp.Warning = s.mail.soft("invitation created", sendErr, zap.String("invitation_id", inv.ID))
	return resp, nil
}

// ────────────────────── Resend ──────────────────────

// Resend starts a fresh 7-day window and re-delivers the email. The token
// is kept unless invitation.rotate_token_on_resend is set.
func (s *invitationService) Resend(ctx context.Context, sess *Session, id string) (*dto.InvitationResponse, error) {
	caller, inv, err := s.loadForMutation(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if inv.IsAccepted {
		return nil, ErrInvitationAccepted
	}

	if s.cfg.Invitation.RotateTokenOnResend {
		token, err := newToken()
		if err != nil {
			return nil, apperr.Upstream("generate invitation token", err)
		}
		inv.Token = token
	}
	inv.ResetWindow(time.Now().UTC())

	if err := s.repo.Invitation.UpdateWindow(ctx, inv); err != nil {
		return nil, storeErr("update invitation", err, ErrInvitationNotFound)
	}
	metrics.InvitationEvents.WithLabelValues("resent").Inc()

	_, sendErr := s.mail.invitation(ctx, inv, caller)
	resp := s.toResponse(inv, time.Now())
	resp.InviteURL = s.mail.inviteURL(inv.Token)
	resp.Warning = s.mail.soft("invitation resent", sendErr, zap.String("invitation_id", inv.ID))
	return resp, nil
}

// ────────────────────── Withdraw ──────────────────────

func (s *invitationService) Withdraw(ctx context.Context, sess *Session, id string) error {
	_, inv, err := s.loadForMutation(ctx, sess, id)
	if err != nil {
		return err
	}
	if inv.IsAccepted {
		return ErrInvitationAccepted
	}

	if err := s.repo.Invitation.DeletePending(ctx, inv.ID); err != nil {
		if database.IsNotFound(err) {
			// Accepted or withdrawn since we read it.
			return ErrInvitationAccepted
		}
		return apperr.Upstream("delete invitation", err)
	}
	metrics.InvitationEvents.WithLabelValues("withdrawn").Inc()
	s.logger.Info("invitation withdrawn", zap.String("invitation_id", inv.ID))
	return nil
}

// ────────────────────── List ──────────────────────

func (s *invitationService) List(ctx context.Context, sess *Session, req *dto.InvitationListRequest) ([]dto.InvitationResponse, error) {
	caller, err := s.gate.Resolve(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := s.gate.Authorize(caller, model.RoleAdmin, ""); err != nil {
		return nil, err
	}

	filters := &repository.InvitationListFilters{}
	if req != nil && req.Mine {
		filters.AdminID = caller.ID
	}
	invs, err := s.repo.Invitation.List(ctx, filters)
	if err != nil {
		return nil, apperr.Upstream("list invitations", err)
	}

	now := time.Now()
	result := make([]dto.InvitationResponse, 0, len(invs))
	for i := range invs {
		result = append(result, *s.toResponse(&invs[i], now))
	}
	return result, nil
}

// ────────────────────── Validate ──────────────────────

func (s *invitationService) Validate(ctx context.Context, token string) (*dto.InvitationValidateResponse, error) {
	if err := required([2]string{"token", token}); err != nil {
		return nil, err
	}
	inv, err := s.repo.Invitation.GetByToken(ctx, token)
	if err != nil {
		return nil, storeErr("lookup invitation", err, ErrInvitationNotFound)
	}

	status := inv.Status(time.Now())
	return &dto.InvitationValidateResponse{
		Email:     inv.Email,
		Status:    string(status),
		Valid:     status == model.InvitationPending,
		ExpiresAt: inv.ExpiresAt.Format(time.RFC3339),
	}, nil
}

// ────────────────────── Redeem ──────────────────────

// Redeem provisions a student from an invitation. The account is created
// first; profile, zeroed ledger and the accepted flag are then written in
// one transaction with the invitation row locked. If that transaction
// fails the account is deleted again.
func (s *invitationService) Redeem(ctx context.Context, req *dto.AcceptInvitationRequest) (*dto.AcceptInvitationResponse, error) {
	if err := required(
		[2]string{"token", req.Token},
		[2]string{"email", req.Email},
		[2]string{"password", req.Password},
		[2]string{"first_name", req.FirstName},
		[2]string{"last_name", req.LastName},
	); err != nil {
		return nil, err
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	inv, err := s.repo.Invitation.GetByToken(ctx, req.Token)
	if err != nil {
		return nil, storeErr("lookup invitation", err, ErrInvitationNotFound)
	}
	if err := checkRedeemable(inv, time.Now()); err != nil {
		return nil, err
	}
	email := normalizeEmail(req.Email)
	if !strings.EqualFold(inv.Email, email) {
		return nil, ErrInvitationEmail
	}

	account, err := s.identity.SignUp(ctx, email, req.Password)
	if err != nil {
		metrics.InvitationEvents.WithLabelValues("redeem_failed").Inc()
		if errors.Is(err, ErrEmailTaken) {
			return nil, s.signUpConflict(ctx, req.Token, err)
		}
		return nil, err
	}

	profile := &model.Profile{
		ID:        account.ID,
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Role:      model.RoleStudent,
	}
	if err := s.provision(ctx, req.Token, profile); err != nil {
		metrics.InvitationEvents.WithLabelValues("redeem_failed").Inc()
		s.compensate(ctx, account.ID, inv.ID, err)
		return nil, err
	}

	metrics.InvitationEvents.WithLabelValues("redeemed").Inc()
	s.logger.Info("invitation redeemed",
		zap.String("invitation_id", inv.ID),
		zap.String("student_id", account.ID),
	)

	return &dto.AcceptInvitationResponse{
		UserID:    account.ID,
		Email:     account.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
	}, nil
}

func (s *invitationService) provision(ctx context.Context, token string, profile *model.Profile) error {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return apperr.Upstream("begin transaction", err)
	}
	committed := false
	defer func() {
		if tx != nil && !committed {
			tx.Rollback()
		}
	}()
	txRepo := s.repo.WithTx(tx)

	// Re-check under the row lock: a concurrent redemption or withdrawal may
	// have happened since the first read.
	inv, err := txRepo.Invitation.GetByTokenForUpdate(ctx, token)
	if err != nil {
		return storeErr("lock invitation", err, ErrInvitationNotFound)
	}
	if err := checkRedeemable(inv, time.Now()); err != nil {
		return err
	}

	if err := txRepo.Profile.Create(ctx, profile); err != nil {
		return apperr.Upstream("create profile", err)
	}
	if err := txRepo.Ledger.Upsert(ctx, &model.SessionLedger{UserID: profile.ID}); err != nil {
		return apperr.Upstream("create session ledger", err)
	}
	if err := txRepo.Invitation.MarkAccepted(ctx, inv.ID); err != nil {
		return storeErr("accept invitation", err, ErrInvitationAccepted)
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			return apperr.Upstream("commit redemption", err)
		}
	}
	committed = true
	return nil
}

// signUpConflict explains a taken email during redemption. A concurrent
// redemption of the same token creates the account before taking the row
// lock, so the loser learns of it here and reports the invitation state.
func (s *invitationService) signUpConflict(ctx context.Context, token string, cause error) error {
	inv, err := s.repo.Invitation.GetByToken(ctx, token)
	if err != nil {
		return storeErr("lookup invitation", err, ErrInvitationNotFound)
	}
	if err := checkRedeemable(inv, time.Now()); err != nil {
		return err
	}
	return cause
}

func (s *invitationService) compensate(ctx context.Context, accountID, invitationID string, cause error) {
	if err := s.identity.DeleteAccount(ctx, accountID); err != nil {
		s.logger.Error("redemption compensation failed, account needs manual reconciliation",
			zap.String("account_id", accountID),
			zap.String("invitation_id", invitationID),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return
	}
	s.logger.Warn("redemption rolled back",
		zap.String("account_id", accountID),
		zap.String("invitation_id", invitationID),
		zap.Error(cause),
	)
}

// checkRedeemable reports why inv cannot be redeemed at now. Acceptance is
// checked first so a used token never reports Expired.
func checkRedeemable(inv *model.Invitation, now time.Time) error {
	switch inv.Status(now) {
	case model.InvitationAccepted:
		return ErrInvitationAccepted
	case model.InvitationExpired:
		return ErrInvitationExpired
	}
	return nil
}

// ────────────────────── helpers ──────────────────────

func (s *invitationService) loadForMutation(ctx context.Context, sess *Session, id string) (*model.Profile, *model.Invitation, error) {
	caller, err := s.gate.Resolve(ctx, sess)
	if err != nil {
		return nil, nil, err
	}
	if err := s.gate.Authorize(caller, model.RoleAdmin, ""); err != nil {
		return nil, nil, err
	}
	inv, err := s.repo.Invitation.GetByID(ctx, id)
	if err != nil {
		return nil, nil, storeErr("lookup invitation", err, ErrInvitationNotFound)
	}
	if err := s.gate.CanMutateInvitation(caller, inv); err != nil {
		return nil, nil, err
	}
	return caller, inv, nil
}

func (s *invitationService) toResponse(inv *model.Invitation, now time.Time) *dto.InvitationResponse {
	return &dto.InvitationResponse{
		ID:         inv.ID,
		Email:      inv.Email,
		AdminID:    inv.AdminID,
		IsAccepted: inv.IsAccepted,
		Status:     string(inv.Status(now)),
		CreatedAt:  inv.CreatedAt.Format(time.RFC3339),
		ExpiresAt:  inv.ExpiresAt.Format(time.RFC3339),
	}
}
