package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/princinho/moviebackend/apperr"
	"github.com/princinho/moviebackend/archive"
	"github.com/princinho/moviebackend/models"
	"github.com/princinho/moviebackend/store"
	"github.com/princinho/moviebackend/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"
)

const (
	DefaultUserPage = 10
	MaxUserPage     = 100
)

type UserPage struct {
	Users       []models.User
	Total       int64
	CurrentPage int
	TotalPages  int
}

type ProfileInput struct {
	Name        *string
	Bio         *string
	Location    *string
	DateOfBirth *time.Time
}

type AccountInput struct {
	Role     *models.Role
	IsActive *bool
}

// UserService covers self-service profile edits and admin account
// management. Every entry point goes through Authorize.
type UserService struct {
	users    store.UserRepository
	history  store.HistoryRepository
	archiver archive.Archiver
	logger   *zap.Logger
	now      func() time.Time
}

func NewUserService(users store.UserRepository, history store.HistoryRepository, archiver archive.Archiver, logger *zap.Logger, now func() time.Time) *UserService {
	if now == nil {
		now = time.Now
	}
	if archiver == nil {
		archiver = archive.Nop{}
	}
	return &UserService{users: users, history: history, archiver: archiver, logger: logger, now: now}
}

func (s *UserService) load(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.ErrUserNotFound
	}
	return err
}

func (s *UserService) Get(ctx context.Context, actor *models.User, id bson.ObjectID) (*models.User, error) {
	if err := Authorize(actor, id, CapAccessOwn); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

func (s *UserService) List(ctx context.Context, actor *models.User, search string, page, limit int) (*UserPage, error) {
	if err := Authorize(actor, bson.NilObjectID, CapListUsers); err != nil {
		return nil, err
	}
	page, limit, skip := utils.Paginate(page, limit, DefaultUserPage, MaxUserPage)
	users, total, err := s.users.List(ctx, store.UserListFilter{
		Search: search,
		Skip:   skip,
		Limit:  int64(limit),
	})
	if err != nil {
		return nil, err
	}
	return &UserPage{
		Users:       users,
		Total:       total,
		CurrentPage: page,
		TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, actor *models.User, id bson.ObjectID, in ProfileInput) (*models.User, error) {
	if err := Authorize(actor, id, CapAccessOwn); err != nil {
		return nil, err
	}
	upd := store.ProfileUpdate{
		Bio:         in.Bio,
		Location:    in.Location,
		DateOfBirth: in.DateOfBirth,
	}
	if in.Name != nil {
		name := utils.NormalizeName(*in.Name)
		upd.Name = &name
	}
	user, err := s.users.UpdateProfile(ctx, id, upd, s.now().UTC())
	return user, notFound(err)
}

func (s *UserService) UpdatePreferences(ctx context.Context, actor *models.User, id bson.ObjectID, prefs map[string]any) (*models.User, error) {
	if err := Authorize(actor, id, CapAccessOwn); err != nil {
		return nil, err
	}
	if prefs == nil {
		prefs = map[string]any{}
	}
	user, err := s.users.UpdatePreferences(ctx, id, prefs, s.now().UTC())
	return user, notFound(err)
}

func (s *UserService) UpdateAccount(ctx context.Context, actor *models.User, id bson.ObjectID, in AccountInput) (*models.User, error) {
	if err := Authorize(actor, id, CapManageAccount); err != nil {
		return nil, err
	}
	if in.Role != nil && !in.Role.Valid() {
		return nil, apperr.ErrValidation.WithDetails([]map[string]string{{"field": "role", "message": "unknown role"}})
	}
	user, err := s.users.UpdateAccount(ctx, id, store.AccountUpdate{Role: in.Role, IsActive: in.IsActive}, s.now().UTC())
	if err != nil {
		return nil, notFound(err)
	}
	s.logger.Info("account updated",
		zap.String("actor_id", actor.ID.Hex()),
		zap.String("user_id", id.Hex()),
		zap.String("role", string(user.Role)),
		zap.Bool("active", user.IsActive),
	)
	return user, nil
}

// Delete removes the account and its history. The history is archived
// first; if archiving fails nothing is deleted.
func (s *UserService) Delete(ctx context.Context, actor *models.User, id bson.ObjectID) error {
	if err := Authorize(actor, id, CapDeleteAccount); err != nil {
		return err
	}
	user, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	records, err := s.history.ListByUser(ctx, id, 0, 0)
	if err != nil {
		return fmt.Errorf("load history for archive: %w", err)
	}
	if err := s.archiver.Archive(ctx, user, records); err != nil {
		return fmt.Errorf("archive history: %w", err)
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	removed, err := s.history.DeleteByUser(ctx, id)
	if err != nil {
		// the account is gone; leftover records are unreachable but logged
		s.logger.Error("history cascade failed", zap.String("user_id", id.Hex()), zap.Error(err))
		return nil
	}
	s.logger.Info("account deleted",
		zap.String("actor_id", actor.ID.Hex()),
		zap.String("user_id", id.Hex()),
		zap.Int64("history_removed", removed),
	)
	return nil
}
