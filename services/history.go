package services

import (
	"context"
	"fmt"
	"time"

	"github.com/princinho/moviebackend/models"
	"github.com/princinho/moviebackend/store"
	"github.com/princinho/moviebackend/utils"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const MaxHistoryPage = 50

type HistoryLedger struct {
	history store.HistoryRepository
	now     func() time.Time
}

func NewHistoryLedger(history store.HistoryRepository, now func() time.Time) *HistoryLedger {
	if now == nil {
		now = time.Now
	}
	return &HistoryLedger{history: history, now: now}
}

// Record appends one entry. Identical queries are stored again.
func (l *HistoryLedger) Record(ctx context.Context, userID bson.ObjectID, command string, query models.SearchQuery, results []models.Candidate) (*models.RecommendationQuery, error) {
	rec := &models.RecommendationQuery{
		ID:              bson.NewObjectID(),
		User:            userID,
		Command:         command,
		SearchQuery:     query,
		Recommendations: results,
		CreatedAt:       l.now().UTC(),
	}
	if err := l.history.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("record history: %w", err)
	}
	return rec, nil
}

// List returns target's entries newest first, after checking actor may
// see them. page starts at 1; limit is clamped to MaxHistoryPage.
func (l *HistoryLedger) List(ctx context.Context, actor *models.User, target bson.ObjectID, page, limit int) ([]models.RecommendationQuery, error) {
	if err := Authorize(actor, target, CapAccessOwn); err != nil {
		return nil, err
	}
	_, limit, skip := utils.Paginate(page, limit, MaxHistoryPage, MaxHistoryPage)
	return l.history.ListByUser(ctx, target, skip, int64(limit))
}
