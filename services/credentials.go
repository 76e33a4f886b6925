package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/princinho/moviebackend/apperr"
	"github.com/princinho/moviebackend/models"
	"github.com/princinho/moviebackend/store"
	"github.com/princinho/moviebackend/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	EmailVerificationTTL = 24 * time.Hour
	PasswordResetTTL     = time.Hour
)

// CredentialStore owns user records and the failed-login counter.
type CredentialStore struct {
	users   store.UserRepository
	hasher  utils.PasswordHasher
	lockout store.LockoutPolicy
	now     func() time.Time
}

func NewCredentialStore(users store.UserRepository, hasher utils.PasswordHasher, lockout store.LockoutPolicy, now func() time.Time) *CredentialStore {
	if now == nil {
		now = time.Now
	}
	return &CredentialStore{users: users, hasher: hasher, lockout: lockout, now: now}
}

func (s *CredentialStore) Now() time.Time {
	return s.now().UTC()
}

// Register creates an active, unverified user and returns it together with
// the raw email verification token.
func (s *CredentialStore) Register(ctx context.Context, name, email, password string) (*models.User, string, error) {
	email = utils.NormalizeEmail(email)

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, "", apperr.ErrUserExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}
	raw, digest, err := utils.GenerateToken()
	if err != nil {
		return nil, "", err
	}

	now := s.Now()
	expires := now.Add(EmailVerificationTTL)
	user := &models.User{
		ID:                       bson.NewObjectID(),
		Name:                     utils.NormalizeName(name),
		Email:                    email,
		PasswordHash:             hash,
		Role:                     models.RoleUser,
		IsActive:                 true,
		IsEmailVerified:          false,
		EmailVerificationToken:   digest,
		EmailVerificationExpires: &expires,
		Preferences:              map[string]any{},
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, "", apperr.ErrUserExists
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}
	return user, raw, nil
}

func (s *CredentialStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.users.FindByEmail(ctx, utils.NormalizeEmail(email))
}

func (s *CredentialStore) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *CredentialStore) VerifyPassword(user *models.User, password string) bool {
	return s.hasher.Compare(user.PasswordHash, password)
}

func (s *CredentialStore) IsLocked(user *models.User) bool {
	return user.IsLocked(s.Now())
}

func (s *CredentialStore) RecordFailedAttempt(ctx context.Context, user *models.User) (*models.User, error) {
	updated, err := s.users.IncrementFailedLogins(ctx, user.ID, s.lockout, s.Now())
	if err != nil {
		return nil, fmt.Errorf("record failed attempt: %w", err)
	}
	return updated, nil
}

func (s *CredentialStore) RecordSuccess(ctx context.Context, user *models.User) error {
	if err := s.users.ResetFailedLogins(ctx, user.ID, s.Now()); err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return nil
}

func (s *CredentialStore) HashPassword(password string) (string, error) {
	return s.hasher.Hash(password)
}

// SeedAdmin makes sure an admin account exists for email. It never
// overwrites an existing account.
func (s *CredentialStore) SeedAdmin(ctx context.Context, name, email, password string) (bool, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}
	now := s.Now()
	return s.users.EnsureAdmin(ctx, &models.User{
		Name:         utils.NormalizeName(name),
		Email:        utils.NormalizeEmail(email),
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}
