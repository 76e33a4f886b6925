// Package memstore implements the store contracts in process memory. Each
// repository serializes access with a mutex, which gives the same
// single-document atomicity the Mongo repositories get from the server.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/princinho/moviebackend/models"
	"github.com/princinho/moviebackend/store"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type Users struct {
	mu    sync.Mutex
	byID  map[bson.ObjectID]*models.User
	email map[string]bson.ObjectID
}

func NewUsers() *Users {
	return &Users{
		byID:  make(map[bson.ObjectID]*models.User),
		email: make(map[string]bson.ObjectID),
	}
}

var _ store.UserRepository = (*Users)(nil)

func clone(u *models.User) *models.User {
	cp := *u
	if u.Preferences != nil {
		cp.Preferences = make(map[string]any, len(u.Preferences))
		for k, v := range u.Preferences {
			cp.Preferences[k] = v
		}
	}
	return &cp
}

func timePtr(t time.Time) *time.Time { return &t }

func (s *Users) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.email[user.Email]; taken {
		return store.ErrDuplicateEmail
	}
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	s.byID[user.ID] = clone(user)
	s.email[user.Email] = user.ID
	return nil
}

func (s *Users) FindByID(_ context.Context, id bson.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(u), nil
}

func (s *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.email[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(s.byID[id]), nil
}

// update applies fn to the stored user under the lock.
func (s *Users) update(id bson.ObjectID, fn func(u *models.User)) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	fn(u)
	return clone(u), nil
}

func (s *Users) IncrementFailedLogins(_ context.Context, id bson.ObjectID, policy store.LockoutPolicy, now time.Time) (*models.User, error) {
	return s.update(id, func(u *models.User) {
		if u.LockUntil != nil && !u.LockUntil.After(now) {
			u.LoginAttempts = 1
			u.LockUntil = nil
		} else {
			u.LoginAttempts++
		}
		if u.LoginAttempts >= policy.MaxAttempts && !u.IsLocked(now) {
			u.LockUntil = timePtr(now.Add(policy.LockDuration))
		}
		u.UpdatedAt = now
	})
}

func (s *Users) ResetFailedLogins(_ context.Context, id bson.ObjectID, now time.Time) error {
	_, err := s.update(id, func(u *models.User) {
		u.LoginAttempts = 0
		u.LockUntil = nil
		u.LastLogin = timePtr(now)
		u.UpdatedAt = now
	})
	return err
}

func (s *Users) SetPasswordReset(_ context.Context, id bson.ObjectID, tokenHash string, expires time.Time) error {
	_, err := s.update(id, func(u *models.User) {
		u.PasswordResetToken = tokenHash
		u.PasswordResetExpires = timePtr(expires)
	})
	return err
}

func (s *Users) findByToken(match func(u *models.User) bool) (bson.ObjectID, bool) {
	for id, u := range s.byID {
		if match(u) {
			return id, true
		}
	}
	return bson.NilObjectID, false
}

func (s *Users) ConsumePasswordReset(_ context.Context, tokenHash, passwordHash string, now time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.findByToken(func(u *models.User) bool {
		return u.PasswordResetToken == tokenHash && u.PasswordResetExpires != nil && u.PasswordResetExpires.After(now)
	})
	if !ok {
		return nil, store.ErrNotFound
	}
	u := s.byID[id]
	u.PasswordHash = passwordHash
	u.PasswordResetToken = ""
	u.PasswordResetExpires = nil
	u.UpdatedAt = now
	return clone(u), nil
}

func (s *Users) ConsumeEmailVerification(_ context.Context, tokenHash string, now time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.findByToken(func(u *models.User) bool {
		return u.EmailVerificationToken == tokenHash && u.EmailVerificationExpires != nil && u.EmailVerificationExpires.After(now)
	})
	if !ok {
		return nil, store.ErrNotFound
	}
	u := s.byID[id]
	u.IsEmailVerified = true
	u.EmailVerificationToken = ""
	u.EmailVerificationExpires = nil
	u.UpdatedAt = now
	return clone(u), nil
}

func (s *Users) UpdatePassword(_ context.Context, id bson.ObjectID, passwordHash string, now time.Time) error {
	_, err := s.update(id, func(u *models.User) {
		u.PasswordHash = passwordHash
		u.PasswordResetToken = ""
		u.PasswordResetExpires = nil
		u.UpdatedAt = now
	})
	return err
}

func (s *Users) UpdateProfile(_ context.Context, id bson.ObjectID, upd store.ProfileUpdate, now time.Time) (*models.User, error) {
	return s.update(id, func(u *models.User) {
		if upd.Name != nil {
			u.Name = *upd.Name
		}
		if upd.Bio != nil {
			u.Profile.Bio = *upd.Bio
		}
		if upd.Location != nil {
			u.Profile.Location = *upd.Location
		}
		if upd.DateOfBirth != nil {
			u.Profile.DateOfBirth = timePtr(*upd.DateOfBirth)
		}
		u.UpdatedAt = now
	})
}

func (s *Users) UpdatePreferences(_ context.Context, id bson.ObjectID, prefs map[string]any, now time.Time) (*models.User, error) {
	return s.update(id, func(u *models.User) {
		u.Preferences = prefs
		u.UpdatedAt = now
	})
}

func (s *Users) UpdateAccount(_ context.Context, id bson.ObjectID, upd store.AccountUpdate, now time.Time) (*models.User, error) {
	return s.update(id, func(u *models.User) {
		if upd.Role != nil {
			u.Role = *upd.Role
		}
		if upd.IsActive != nil {
			u.IsActive = *upd.IsActive
		}
		u.UpdatedAt = now
	})
}

func (s *Users) List(_ context.Context, filter store.UserListFilter) ([]models.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	needle := strings.ToLower(filter.Search)
	matched := make([]models.User, 0, len(s.byID))
	for _, u := range s.byID {
		if needle != "" &&
			!strings.Contains(strings.ToLower(u.Name), needle) &&
			!strings.Contains(strings.ToLower(u.Email), needle) {
			continue
		}
		matched = append(matched, *clone(u))
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.Hex() > matched[j].ID.Hex()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	return window(matched, filter.Skip, filter.Limit), total, nil
}

func (s *Users) Delete(_ context.Context, id bson.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(s.email, u.Email)
	delete(s.byID, id)
	return nil
}

func (s *Users) EnsureAdmin(_ context.Context, user *models.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.email[user.Email]; exists {
		return false, nil
	}
	admin := clone(user)
	if admin.ID.IsZero() {
		admin.ID = bson.NewObjectID()
	}
	admin.Role = models.RoleAdmin
	admin.IsActive = true
	admin.IsEmailVerified = true
	s.byID[admin.ID] = admin
	s.email[admin.Email] = admin.ID
	return true, nil
}

func window[T any](items []T, skip, limit int64) []T {
	if skip < 0 || skip >= int64(len(items)) {
		return []T{}
	}
	items = items[skip:]
	if limit > 0 && limit < int64(len(items)) {
		items = items[:limit]
	}
	return items
}
