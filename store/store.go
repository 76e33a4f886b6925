// Package store declares the persistence contracts shared by the Mongo
// repositories and the in-memory implementation used in tests.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/princinho/moviebackend/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var (
	ErrNotFound       = errors.New("store: not found")
	ErrDuplicateEmail = errors.New("store: duplicate email")
)

// LockoutPolicy controls the failed-login counter.
type LockoutPolicy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

var DefaultLockoutPolicy = LockoutPolicy{MaxAttempts: 5, LockDuration: 2 * time.Hour}

type ProfileUpdate struct {
	Name        *string
	Bio         *string
	Location    *string
	DateOfBirth *time.Time
}

type AccountUpdate struct {
	Role     *models.Role
	IsActive *bool
}

type UserListFilter struct {
	Search string
	Skip   int64
	Limit  int64
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// IncrementFailedLogins bumps the counter in a single storage-side
	// operation and opens a lockout window once the policy threshold is
	// reached. A stale lockout restarts the counter at 1.
	IncrementFailedLogins(ctx context.Context, id bson.ObjectID, policy LockoutPolicy, now time.Time) (*models.User, error)
	ResetFailedLogins(ctx context.Context, id bson.ObjectID, now time.Time) error

	SetPasswordReset(ctx context.Context, id bson.ObjectID, tokenHash string, expires time.Time) error
	// ConsumePasswordReset validates and clears the reset token while
	// replacing the hash, in one operation.
	ConsumePasswordReset(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*models.User, error)
	ConsumeEmailVerification(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	UpdatePassword(ctx context.Context, id bson.ObjectID, passwordHash string, now time.Time) error

	UpdateProfile(ctx context.Context, id bson.ObjectID, upd ProfileUpdate, now time.Time) (*models.User, error)
	UpdatePreferences(ctx context.Context, id bson.ObjectID, prefs map[string]any, now time.Time) (*models.User, error)
	UpdateAccount(ctx context.Context, id bson.ObjectID, upd AccountUpdate, now time.Time) (*models.User, error)

	List(ctx context.Context, filter UserListFilter) ([]models.User, int64, error)
	Delete(ctx context.Context, id bson.ObjectID) error

	// EnsureAdmin inserts user only when no account has its email.
	EnsureAdmin(ctx context.Context, user *models.User) (bool, error)
}

type HistoryRepository interface {
	Insert(ctx context.Context, rec *models.RecommendationQuery) error
	ListByUser(ctx context.Context, userID bson.ObjectID, skip, limit int64) ([]models.RecommendationQuery, error)
	DeleteByUser(ctx context.Context, userID bson.ObjectID) (int64, error)
}
