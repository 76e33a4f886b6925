package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/princinho/moviebackend/models"
	"github.com/princinho/moviebackend/store"
	"github.com/princinho/moviebackend/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type UserRepository struct {
	col *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{col: db.Collection(UsersCollection)}
}

var _ store.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID.IsZero() {
		user.ID = bson.NewObjectID()
	}
	if _, err := r.col.InsertOne(ctx, user); err != nil {
		if utils.IsDuplicateKey(err) {
			return store.ErrDuplicateEmail
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := r.col.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) findOneAndUpdate(ctx context.Context, filter bson.M, update any) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.User
	if err := r.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &user, nil
}

// IncrementFailedLogins runs as an update pipeline so the expiry reset, the
// increment and the threshold check all happen in one document write.
func (r *UserRepository) IncrementFailedLogins(ctx context.Context, id bson.ObjectID, policy store.LockoutPolicy, now time.Time) (*models.User, error) {
	lockExpired := bson.M{"$and": bson.A{
		bson.M{"$eq": bson.A{bson.M{"$type": "$lockUntil"}, "date"}},
		bson.M{"$lte": bson.A{"$lockUntil", now}},
	}}
	lockActive := bson.M{"$and": bson.A{
		bson.M{"$eq": bson.A{bson.M{"$type": "$lockUntil"}, "date"}},
		bson.M{"$gt": bson.A{"$lockUntil", now}},
	}}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"loginAttempts": bson.M{"$cond": bson.A{
				lockExpired,
				1,
				bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$loginAttempts", 0}}, 1}},
			}},
			"lockUntil": bson.M{"$cond": bson.A{lockExpired, "$$REMOVE", "$lockUntil"}},
			"updatedAt": now,
		}}},
		{{Key: "$set", Value: bson.M{
			"lockUntil": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{
					bson.M{"$gte": bson.A{"$loginAttempts", policy.MaxAttempts}},
					bson.M{"$not": bson.A{lockActive}},
				}},
				now.Add(policy.LockDuration),
				"$lockUntil",
			}},
		}}},
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, pipeline)
}

func (r *UserRepository) ResetFailedLogins(ctx context.Context, id bson.ObjectID, now time.Time) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set":   bson.M{"loginAttempts": 0, "lastLogin": now, "updatedAt": now},
		"$unset": bson.M{"lockUntil": ""},
	})
	if err != nil {
		return fmt.Errorf("reset login attempts: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetPasswordReset(ctx context.Context, id bson.ObjectID, tokenHash string, expires time.Time) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"passwordResetToken": tokenHash, "passwordResetExpires": expires},
	})
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *UserRepository) ConsumePasswordReset(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*models.User, error) {
	filter := bson.M{
		"passwordResetToken":   tokenHash,
		"passwordResetExpires": bson.M{"$gt": now},
	}
	update := bson.M{
		"$set":   bson.M{"passwordHash": passwordHash, "updatedAt": now},
		"$unset": bson.M{"passwordResetToken": "", "passwordResetExpires": ""},
	}
	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *UserRepository) ConsumeEmailVerification(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	filter := bson.M{
		"emailVerificationToken":   tokenHash,
		"emailVerificationExpires": bson.M{"$gt": now},
	}
	update := bson.M{
		"$set":   bson.M{"isEmailVerified": true, "updatedAt": now},
		"$unset": bson.M{"emailVerificationToken": "", "emailVerificationExpires": ""},
	}
	return r.findOneAndUpdate(ctx, filter, update)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id bson.ObjectID, passwordHash string, now time.Time) error {
	res, err := r.col.UpdateByID(ctx, id, bson.M{
		"$set":   bson.M{"passwordHash": passwordHash, "updatedAt": now},
		"$unset": bson.M{"passwordResetToken": "", "passwordResetExpires": ""},
	})
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id bson.ObjectID, upd store.ProfileUpdate, now time.Time) (*models.User, error) {
	set := bson.M{"updatedAt": now}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Bio != nil {
		set["profile.bio"] = *upd.Bio
	}
	if upd.Location != nil {
		set["profile.location"] = *upd.Location
	}
	if upd.DateOfBirth != nil {
		set["profile.dateOfBirth"] = *upd.DateOfBirth
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

func (r *UserRepository) UpdatePreferences(ctx context.Context, id bson.ObjectID, prefs map[string]any, now time.Time) (*models.User, error) {
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"preferences": prefs, "updatedAt": now},
	})
}

func (r *UserRepository) UpdateAccount(ctx context.Context, id bson.ObjectID, upd store.AccountUpdate, now time.Time) (*models.User, error) {
	set := bson.M{"updatedAt": now}
	if upd.Role != nil {
		set["role"] = *upd.Role
	}
	if upd.IsActive != nil {
		set["isActive"] = *upd.IsActive
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

func (r *UserRepository) List(ctx context.Context, filter store.UserListFilter) ([]models.User, int64, error) {
	query := bson.M{}
	if filter.Search != "" {
		pattern := bson.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
		query["$or"] = bson.A{
			bson.M{"name": pattern},
			bson.M{"email": pattern},
		}
	}

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(filter.Skip).
		SetLimit(filter.Limit)

	cursor, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer cursor.Close(ctx)

	users := make([]models.User, 0)
	if err := cursor.All(ctx, &users); err != nil {
		return nil, 0, fmt.Errorf("decode users: %w", err)
	}
	return users, total, nil
}

func (r *UserRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// EnsureAdmin only inserts if no account has the admin's email.
func (r *UserRepository) EnsureAdmin(ctx context.Context, user *models.User) (bool, error) {
	filter := bson.M{"email": user.Email}
	update := bson.M{
		"$setOnInsert": bson.M{
			"name":            user.Name,
			"email":           user.Email,
			"passwordHash":    user.PasswordHash,
			"role":            models.RoleAdmin,
			"isActive":        true,
			"isEmailVerified": true,
			"loginAttempts":   0,
			"profile":         bson.M{},
			"createdAt":       user.CreatedAt,
			"updatedAt":       user.UpdatedAt,
		},
	}

	opts := options.UpdateOne().SetUpsert(true)

	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return false, fmt.Errorf("seed admin upsert failed: %w", err)
	}
	return res.UpsertedCount == 1, nil
}
