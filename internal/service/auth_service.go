package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"coachportal/internal/dto"
	"coachportal/internal/model"
	"coachportal/internal/repository"
	"coachportal/pkg/database"
	apperr "coachportal/pkg/errors"
)

// AuthService is the portal-facing side of the identity provider: it
// joins accounts with profiles and drives the password reset email.
type AuthService interface {
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error)
	Refresh(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error)
	Logout(ctx context.Context, sess *Session, req *dto.LogoutRequest) error
	GetCurrentUser(ctx context.Context, sess *Session) (*dto.UserResponse, error)
	ChangePassword(ctx context.Context, sess *Session, req *dto.ChangePasswordRequest) error
	// RequestPasswordReset succeeds for unknown emails too.
	RequestPasswordReset(ctx context.Context, req *dto.ResetPasswordRequest) error
	UpdatePassword(ctx context.Context, req *dto.UpdatePasswordRequest) (*dto.UpdatePasswordResponse, error)
}

type authService struct {
	repo     *repository.Repository
	identity IdentityProvider
	mail     *portalMail
	logger   *zap.Logger
}

// NewAuthService creates an AuthService.
func NewAuthService(repo *repository.Repository, identity IdentityProvider, mail *portalMail, logger *zap.Logger) AuthService {
	return &authService{repo: repo, identity: identity, mail: mail, logger: logger}
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	account, pair, err := s.identity.SignIn(ctx, req.Email, req.Password, req.RememberMe)
	if err != nil {
		return nil, err
	}

	profile, err := s.profileOf(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("login", zap.String("account_id", account.ID), zap.String("role", string(profile.Role)))
	return toTokenResponse(account, profile, pair), nil
}

func (s *authService) Refresh(ctx context.Context, req *dto.RefreshTokenRequest) (*dto.TokenResponse, error) {
	account, pair, err := s.identity.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return nil, err
	}
	profile, err := s.profileOf(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	return toTokenResponse(account, profile, pair), nil
}

func (s *authService) Logout(ctx context.Context, sess *Session, req *dto.LogoutRequest) error {
	var refresh string
	if req != nil {
		refresh = req.RefreshToken
	}
	return s.identity.SignOut(ctx, sess, refresh)
}

func (s *authService) GetCurrentUser(ctx context.Context, sess *Session) (*dto.UserResponse, error) {
	account, err := s.identity.GetUser(ctx, sess)
	if err != nil {
		return nil, err
	}
	profile, err := s.profileOf(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	resp := toUserResponse(account, profile)
	return &resp, nil
}

func (s *authService) ChangePassword(ctx context.Context, sess *Session, req *dto.ChangePasswordRequest) error {
	if err := validatePassword(req.NewPassword); err != nil {
		return err
	}
	if err := s.identity.VerifyPassword(ctx, sess, req.CurrentPassword); err != nil {
		return err
	}
	return s.identity.UpdatePassword(ctx, sess, req.NewPassword)
}

func (s *authService) RequestPasswordReset(ctx context.Context, req *dto.ResetPasswordRequest) error {
	token, account, err := s.identity.RequestPasswordReset(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			s.logger.Info("password reset for unknown email")
			return nil
		}
		return err
	}

	if _, err := s.mail.passwordReset(ctx, account.Email, token); err != nil {
		s.logger.Warn("password reset email failed", zap.String("account_id", account.ID), zap.Error(err))
	}
	return nil
}

func (s *authService) UpdatePassword(ctx context.Context, req *dto.UpdatePasswordRequest) (*dto.UpdatePasswordResponse, error) {
	account, err := s.identity.ResetPassword(ctx, req.Token, req.Password)
	if err != nil {
		return nil, err
	}
	profile, err := s.profileOf(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	return &dto.UpdatePasswordResponse{Role: string(profile.Role)}, nil
}

func (s *authService) profileOf(ctx context.Context, accountID string) (*model.Profile, error) {
	profile, err := s.repo.Profile.GetByID(ctx, accountID)
	if err != nil {
		if database.IsNotFound(err) {
			return nil, ErrProfileMissing
		}
		return nil, apperr.Upstream("load profile", err)
	}
	return profile, nil
}

func toTokenResponse(account *model.Account, profile *model.Profile, pair *TokenPair) *dto.TokenResponse {
	return &dto.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    int(pair.ExpiresIn.Seconds()),
		User:         toUserResponse(account, profile),
	}
}

func toUserResponse(account *model.Account, profile *model.Profile) dto.UserResponse {
	return dto.UserResponse{
		ID:        account.ID,
		Email:     account.Email,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Role:      string(profile.Role),
	}
}
