package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/princinho/moviebackend/models"
	"github.com/princinho/moviebackend/store"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type History struct {
	mu      sync.Mutex
	records []models.RecommendationQuery
	// FailInsert makes Insert return this error when set.
	FailInsert error
}

func NewHistory() *History {
	return &History{}
}

var _ store.HistoryRepository = (*History)(nil)

func (h *History) Insert(_ context.Context, rec *models.RecommendationQuery) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.FailInsert != nil {
		return h.FailInsert
	}
	if rec.ID.IsZero() {
		rec.ID = bson.NewObjectID()
	}
	cp := *rec
	cp.Recommendations = append([]models.Candidate(nil), rec.Recommendations...)
	h.records = append(h.records, cp)
	return nil
}

func (h *History) ListByUser(_ context.Context, userID bson.ObjectID, skip, limit int64) ([]models.RecommendationQuery, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	// walk backwards so later inserts win timestamp ties
	out := make([]models.RecommendationQuery, 0)
	for i := len(h.records) - 1; i >= 0; i-- {
		if h.records[i].User == userID {
			out = append(out, h.records[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return window(out, skip, limit), nil
}

func (h *History) DeleteByUser(_ context.Context, userID bson.ObjectID) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	kept := h.records[:0]
	var n int64
	for _, r := range h.records {
		if r.User == userID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	h.records = kept
	return n, nil
}

// Len returns the number of stored records across all users.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}
