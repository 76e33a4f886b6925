package models

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	CommandRecommend = "recommend"
	CommandDiscover  = "discover"
)

// Candidate is one ranked entry produced by the recommendation worker.
// Field names mirror the worker's output.
type Candidate struct {
	Title           string   `bson:"Title" json:"Title"`
	Year            *float64 `bson:"Year,omitempty" json:"Year,omitempty"`
	Language        string   `bson:"Language,omitempty" json:"Language,omitempty"`
	Genre           string   `bson:"Genre,omitempty" json:"Genre,omitempty"`
	Rating          *float64 `bson:"Rating,omitempty" json:"Rating,omitempty"`
	SimilarityScore *float64 `bson:"similarity_score,omitempty" json:"similarity_score,omitempty"`
}

// UnmarshalJSON accepts either a bare title string or a full object.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	var title string
	if err := json.Unmarshal(data, &title); err == nil {
		if title == "" {
			return fmt.Errorf("candidate: empty title")
		}
		*c = Candidate{Title: title}
		return nil
	}

	type plain Candidate
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("candidate: %w", err)
	}
	if p.Title == "" {
		return fmt.Errorf("candidate: missing Title")
	}
	*c = Candidate(p)
	return nil
}

type SearchQuery struct {
	MovieName     string   `bson:"movieName,omitempty" json:"movieName,omitempty"`
	MovieLanguage string   `bson:"movieLanguage,omitempty" json:"movieLanguage,omitempty"`
	YearGap       string   `bson:"yearGap,omitempty" json:"yearGap,omitempty"`
	Genres        []string `bson:"genres,omitempty" json:"genres,omitempty"`
	Languages     []string `bson:"languages,omitempty" json:"languages,omitempty"`
	K             int      `bson:"k" json:"k"`
}

// RecommendationQuery is one immutable history record, written only after
// the worker produced a successful result.
type RecommendationQuery struct {
	ID              bson.ObjectID `bson:"_id,omitempty" json:"id"`
	User            bson.ObjectID `bson:"user" json:"user"`
	Command         string        `bson:"command" json:"command"`
	SearchQuery     SearchQuery   `bson:"searchQuery" json:"searchQuery"`
	Recommendations []Candidate   `bson:"recommendations" json:"recommendations"`
	CreatedAt       time.Time     `bson:"createdAt" json:"createdAt"`
}
