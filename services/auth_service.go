package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/princinho/moviebackend/apperr"
	"github.com/princinho/moviebackend/models"
	"github.com/princinho/moviebackend/notify"
	"github.com/princinho/moviebackend/store"
	"github.com/princinho/moviebackend/utils"
	"go.uber.org/zap"
)

type AuthResult struct {
	Token string
	User  *models.User
}

// AuthService runs the login guard and the password and verification
// flows on top of the credential store.
type AuthService struct {
	creds  *CredentialStore
	users  store.UserRepository
	tokens *utils.TokenIssuer
	mailer notify.Mailer
	logger *zap.Logger
}

func NewAuthService(creds *CredentialStore, users store.UserRepository, tokens *utils.TokenIssuer, mailer notify.Mailer, logger *zap.Logger) *AuthService {
	return &AuthService{creds: creds, users: users, tokens: tokens, mailer: mailer, logger: logger}
}

func (s *AuthService) Register(ctx context.Context, name, email, password string) (*AuthResult, error) {
	user, verifyToken, err := s.creds.Register(ctx, name, email, password)
	if err != nil {
		return nil, err
	}

	if err := s.mailer.SendVerification(ctx, user, verifyToken); err != nil {
		// the account exists either way; the user can still log in
		s.logger.Error("send verification email", zap.String("user_id", user.ID.Hex()), zap.Error(err))
	}

	token, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID.Hex()))
	return &AuthResult{Token: token, User: user}, nil
}

// Login checks, in order: that the account exists, is not locked, is
// active, and that the password matches. A locked account is rejected
// without touching its counter.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if s.creds.IsLocked(user) {
		return nil, apperr.ErrAccountLocked
	}
	if !user.IsActive {
		return nil, apperr.ErrAccountDeactivated
	}

	if !s.creds.VerifyPassword(user, password) {
		updated, err := s.creds.RecordFailedAttempt(ctx, user)
		if err != nil {
			return nil, err
		}
		if s.creds.IsLocked(updated) {
			s.logger.Warn("account locked after failed logins",
				zap.String("user_id", user.ID.Hex()),
				zap.Int("attempts", updated.LoginAttempts),
			)
		}
		return nil, apperr.ErrInvalidCredentials
	}

	if err := s.creds.RecordSuccess(ctx, user); err != nil {
		return nil, err
	}
	token, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	now := s.creds.Now()
	user.LoginAttempts = 0
	user.LockUntil = nil
	user.LastLogin = &now
	return &AuthResult{Token: token, User: user}, nil
}

// Authenticate resolves a bearer token to a live, usable account.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperr.ErrTokenMissing
	}
	userID, err := s.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			return nil, apperr.ErrTokenExpired
		}
		return nil, apperr.ErrInvalidToken
	}
	id, ok := utils.ParseObjectID(userID)
	if !ok {
		return nil, apperr.ErrInvalidToken
	}

	user, err := s.creds.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.ErrUserNotFoundToken
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !user.IsActive {
		return nil, apperr.ErrAccountDeactivated
	}
	if s.creds.IsLocked(user) {
		return nil, apperr.ErrAccountLocked
	}
	return user, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, apperr.ErrInvalidVerificationToken
	}
	user, err := s.users.ConsumeEmailVerification(ctx, utils.HashToken(token), s.creds.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.ErrInvalidVerificationToken
		}
		return nil, fmt.Errorf("verify email: %w", err)
	}
	s.logger.Info("email verified", zap.String("user_id", user.ID.Hex()))
	return user, nil
}

// ForgotPassword never reports whether email belongs to an account.
// Failures for a real account are logged, not returned.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) {
	user, err := s.creds.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Error("forgot password lookup", zap.Error(err))
		}
		return
	}

	raw, digest, err := utils.GenerateToken()
	if err != nil {
		s.logger.Error("forgot password token", zap.Error(err))
		return
	}
	expires := s.creds.Now().Add(PasswordResetTTL)
	if err := s.users.SetPasswordReset(ctx, user.ID, digest, expires); err != nil {
		s.logger.Error("store reset token", zap.String("user_id", user.ID.Hex()), zap.Error(err))
		return
	}
	if err := s.mailer.SendPasswordReset(ctx, user, raw); err != nil {
		s.logger.Error("send reset email", zap.String("user_id", user.ID.Hex()), zap.Error(err))
		return
	}
	s.logger.Info("password reset issued", zap.String("user_id", user.ID.Hex()))
}

// ResetPassword validates the token and replaces the password in a single
// store operation, so a token can be redeemed at most once.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return apperr.ErrInvalidResetToken
	}
	hash, err := s.creds.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user, err := s.users.ConsumePasswordReset(ctx, utils.HashToken(token), hash, s.creds.Now())
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.ErrInvalidResetToken
		}
		return fmt.Errorf("reset password: %w", err)
	}
	s.logger.Info("password reset", zap.String("user_id", user.ID.Hex()))
	return nil
}

func (s *AuthService) ChangePassword(ctx context.Context, user *models.User, current, next string) error {
	if !s.creds.VerifyPassword(user, current) {
		return apperr.ErrInvalidCurrentPassword
	}
	hash, err := s.creds.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash, s.creds.Now()); err != nil {
		return fmt.Errorf("change password: %w", err)
	}
	s.logger.Info("password changed", zap.String("user_id", user.ID.Hex()))
	return nil
}
