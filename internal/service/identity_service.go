package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"coachportal/internal/model"
	"coachportal/internal/repository"
	"coachportal/pkg/database"
	apperr "coachportal/pkg/errors"
	"coachportal/pkg/jwt"
	"coachportal/pkg/redis"
)

// TokenStore keeps revoked token ids and password reset tokens.
// *redis.Client implements it.
type TokenStore interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
	StoreResetToken(ctx context.Context, tokenHash, accountID string, ttl time.Duration) error
	ConsumeResetToken(ctx context.Context, tokenHash string) (string, error)
}

// TokenPair is an issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// IdentityProvider owns accounts and credentials. Everything else refers
// to an account by id only.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string) (*model.Account, error)
	SignIn(ctx context.Context, email, password string, rememberMe bool) (*model.Account, *TokenPair, error)
	SignOut(ctx context.Context, sess *Session, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*model.Account, *TokenPair, error)
	UpdatePassword(ctx context.Context, sess *Session, newPassword string) error
	VerifyPassword(ctx context.Context, sess *Session, password string) error
	GetUser(ctx context.Context, sess *Session) (*model.Account, error)
	// LookupByID is the privileged lookup; it takes no session.
	LookupByID(ctx context.Context, id string) (*model.Account, error)
	// DeleteAccount removes an account and cascades to its profile. Used to
	// compensate a failed invitation redemption.
	DeleteAccount(ctx context.Context, id string) error
	// RequestPasswordReset issues a one-time reset token. An unknown email
	// returns ErrAccountNotFound.
	RequestPasswordReset(ctx context.Context, email string) (string, *model.Account, error)
	ResetPassword(ctx context.Context, token, newPassword string) (*model.Account, error)
}

type identityProvider struct {
	accounts repository.AccountRepository
	jwtMgr   *jwt.Manager
	tokens   TokenStore
	resetTTL time.Duration
	cost     int
	logger   *zap.Logger
}

// NewIdentityProvider creates an IdentityProvider backed by the accounts
// table. tokens may be nil, which disables revocation and password reset.
func NewIdentityProvider(
	accounts repository.AccountRepository,
	jwtMgr *jwt.Manager,
	tokens TokenStore,
	resetTTL time.Duration,
	logger *zap.Logger,
) IdentityProvider {
	return &identityProvider{
		accounts: accounts,
		jwtMgr:   jwtMgr,
		tokens:   tokens,
		resetTTL: resetTTL,
		cost:     bcrypt.DefaultCost,
		logger:   logger,
	}
}

func (p *identityProvider) SignUp(ctx context.Context, email, password string) (*model.Account, error) {
	email = normalizeEmail(email)
	if err := required([2]string{"email", email}); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return nil, apperr.Upstream("hash password", err)
	}

	account := &model.Account{Email: email, PasswordHash: string(hash)}
	if err := p.accounts.Create(ctx, account); err != nil {
		if database.IsUniqueViolation(err, "accounts_email_key") {
			return nil, ErrEmailTaken
		}
		p.logger.Error("create account failed", zap.Error(err))
		return nil, apperr.Upstream("create account", err)
	}

	p.logger.Info("account created", zap.String("account_id", account.ID))
	return account, nil
}

func (p *identityProvider) SignIn(ctx context.Context, email, password string, rememberMe bool) (*model.Account, *TokenPair, error) {
	account, err := p.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if database.IsNotFound(err) {
			return nil, nil, ErrInvalidCredentials
		}
		p.logger.Error("lookup account failed", zap.Error(err))
		return nil, nil, apperr.Upstream("lookup account", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	pair, err := p.issue(account.ID, rememberMe)
	if err != nil {
		return nil, nil, err
	}
	return account, pair, nil
}

func (p *identityProvider) SignOut(ctx context.Context, sess *Session, refreshToken string) error {
	if !sess.valid() {
		return ErrNotAuthenticated
	}
	if p.tokens == nil {
		return nil
	}

	if sess.TokenID != "" {
		if err := p.tokens.BlacklistToken(ctx, sess.TokenID, time.Until(sess.ExpiresAt)); err != nil {
			p.logger.Error("blacklist access token failed", zap.Error(err))
			return apperr.Upstream("revoke session", err)
		}
	}

	if refreshToken != "" {
		// An unparsable refresh token is already useless.
		if claims, err := p.jwtMgr.ParseToken(refreshToken); err == nil && claims.AccountID == sess.AccountID {
			if err := p.tokens.BlacklistToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
				p.logger.Error("blacklist refresh token failed", zap.Error(err))
				return apperr.Upstream("revoke session", err)
			}
		}
	}
	return nil
}

// Refresh rotates the pair: the presented refresh token is revoked.
func (p *identityProvider) Refresh(ctx context.Context, refreshToken string) (*model.Account, *TokenPair, error) {
	claims, err := p.jwtMgr.ParseToken(refreshToken)
	if err != nil || claims.TokenType != jwt.TokenTypeRefresh {
		return nil, nil, ErrInvalidRefreshToken
	}

	if p.tokens != nil {
		revoked, err := p.tokens.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			return nil, nil, apperr.Upstream("check token", err)
		}
		if revoked {
			return nil, nil, ErrInvalidRefreshToken
		}
	}

	account, err := p.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, nil, ErrInvalidRefreshToken
		}
		return nil, nil, apperr.Upstream("lookup account", err)
	}

	pair, err := p.issue(account.ID, claims.RememberMe)
	if err != nil {
		return nil, nil, err
	}

	if p.tokens != nil {
		if err := p.tokens.BlacklistToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
			p.logger.Warn("revoke rotated refresh token failed", zap.Error(err))
		}
	}
	return account, pair, nil
}

func (p *identityProvider) UpdatePassword(ctx context.Context, sess *Session, newPassword string) error {
	if !sess.valid() {
		return ErrNotAuthenticated
	}
	return p.setPassword(ctx, sess.AccountID, newPassword)
}

func (p *identityProvider) VerifyPassword(ctx context.Context, sess *Session, password string) error {
	account, err := p.GetUser(ctx, sess)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

func (p *identityProvider) GetUser(ctx context.Context, sess *Session) (*model.Account, error) {
	if !sess.valid() {
		return nil, ErrNotAuthenticated
	}
	account, err := p.accounts.GetByID(ctx, sess.AccountID)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrNotAuthenticated
		}
		return nil, apperr.Upstream("lookup account", err)
	}
	return account, nil
}

func (p *identityProvider) LookupByID(ctx context.Context, id string) (*model.Account, error) {
	account, err := p.accounts.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr("lookup account", err, ErrAccountNotFound)
	}
	return account, nil
}

func (p *identityProvider) DeleteAccount(ctx context.Context, id string) error {
	if err := p.accounts.Delete(ctx, id); err != nil {
		return apperr.Upstream("delete account", err)
	}
	p.logger.Info("account deleted", zap.String("account_id", id))
	return nil
}

func (p *identityProvider) RequestPasswordReset(ctx context.Context, email string) (string, *model.Account, error) {
	if p.tokens == nil {
		return "", nil, ErrResetUnavailable
	}

	account, err := p.accounts.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", nil, storeErr("lookup account", err, ErrAccountNotFound)
	}

	token, err := newToken()
	if err != nil {
		return "", nil, apperr.Upstream("generate reset token", err)
	}
	if err := p.tokens.StoreResetToken(ctx, hashToken(token), account.ID, p.resetTTL); err != nil {
		p.logger.Error("store reset token failed", zap.Error(err))
		return "", nil, apperr.Upstream("store reset token", err)
	}
	return token, account, nil
}

func (p *identityProvider) ResetPassword(ctx context.Context, token, newPassword string) (*model.Account, error) {
	if p.tokens == nil {
		return nil, ErrResetUnavailable
	}
	// Validate before consuming so a weak password does not burn the link.
	if err := validatePassword(newPassword); err != nil {
		return nil, err
	}

	accountID, err := p.tokens.ConsumeResetToken(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, redis.ErrResetTokenNotFound) {
			return nil, ErrInvalidResetToken
		}
		return nil, apperr.Upstream("consume reset token", err)
	}

	if err := p.setPassword(ctx, accountID, newPassword); err != nil {
		return nil, err
	}
	return p.LookupByID(ctx, accountID)
}

func (p *identityProvider) setPassword(ctx context.Context, accountID, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return apperr.Upstream("hash password", err)
	}
	if err := p.accounts.UpdatePassword(ctx, accountID, string(hash)); err != nil {
		return storeErr("update password", err, ErrAccountNotFound)
	}
	p.logger.Info("password updated", zap.String("account_id", accountID))
	return nil
}

func (p *identityProvider) issue(accountID string, rememberMe bool) (*TokenPair, error) {
	access, err := p.jwtMgr.GenerateAccessToken(accountID)
	if err != nil {
		p.logger.Error("sign access token failed", zap.Error(err))
		return nil, apperr.Upstream("sign access token", err)
	}
	refresh, err := p.jwtMgr.GenerateRefreshToken(accountID, rememberMe)
	if err != nil {
		p.logger.Error("sign refresh token failed", zap.Error(err))
		return nil, apperr.Upstream("sign refresh token", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: p.jwtMgr.AccessTokenTTL()}, nil
}
