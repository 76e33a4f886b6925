package database

import (
	"context"
	"fmt"

	"github.com/princinho/moviebackend/models"
	"github.com/princinho/moviebackend/store"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type HistoryRepository struct {
	col *mongo.Collection
}

func NewHistoryRepository(db *mongo.Database) *HistoryRepository {
	return &HistoryRepository{col: db.Collection(HistoryCollection)}
}

var _ store.HistoryRepository = (*HistoryRepository)(nil)

func (r *HistoryRepository) Insert(ctx context.Context, rec *models.RecommendationQuery) error {
	if rec.ID.IsZero() {
		rec.ID = bson.NewObjectID()
	}
	if _, err := r.col.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (r *HistoryRepository) ListByUser(ctx context.Context, userID bson.ObjectID, skip, limit int64) ([]models.RecommendationQuery, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cursor, err := r.col.Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]models.RecommendationQuery, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return records, nil
}

func (r *HistoryRepository) DeleteByUser(ctx context.Context, userID bson.ObjectID) (int64, error) {
	res, err := r.col.DeleteMany(ctx, bson.M{"user": userID})
	if err != nil {
		return 0, fmt.Errorf("delete history: %w", err)
	}
	return res.DeletedCount, nil
}
