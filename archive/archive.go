// Package archive snapshots a user's recommendation history before the
// account is deleted.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"github.com/princinho/moviebackend/models"
	"google.golang.org/api/option"
)

type Archiver interface {
	Archive(ctx context.Context, user *models.User, records []models.RecommendationQuery) error
}

// Nop is used when no bucket is configured.
type Nop struct{}

func (Nop) Archive(context.Context, *models.User, []models.RecommendationQuery) error { return nil }

type Snapshot struct {
	UserID     string                       `json:"userId"`
	Email      string                       `json:"email"`
	ArchivedAt time.Time                    `json:"archivedAt"`
	History    []models.RecommendationQuery `json:"history"`
}

type GCS struct {
	client *storage.Client
	bucket string
	now    func() time.Time
}

// NewGCSClient opens a storage client, using the service account file at
// credentialsPath (relative to the working directory) when one is given.
func NewGCSClient(ctx context.Context, credentialsPath string) (*storage.Client, error) {
	if credentialsPath == "" {
		return storage.NewClient(ctx)
	}
	if !filepath.IsAbs(credentialsPath) {
		wd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		credentialsPath = filepath.Join(wd, credentialsPath)
	}
	return storage.NewClient(ctx, option.WithAuthCredentialsFile(option.ServiceAccount, credentialsPath))
}

func NewGCS(client *storage.Client, bucket string) *GCS {
	return &GCS{client: client, bucket: bucket, now: time.Now}
}

func ObjectName(userID string, at time.Time) string {
	return fmt.Sprintf("history-archive/%s/%d-%s.json", userID, at.UTC().Unix(), uuid.New().String())
}

func (g *GCS) Archive(ctx context.Context, user *models.User, records []models.RecommendationQuery) error {
	now := g.now().UTC()
	snap := Snapshot{
		UserID:     user.ID.Hex(),
		Email:      user.Email,
		ArchivedAt: now,
		History:    records,
	}

	writer := g.client.Bucket(g.bucket).Object(ObjectName(snap.UserID, now)).NewWriter(ctx)
	writer.ContentType = "application/json"
	writer.CacheControl = "no-cache"

	if err := json.NewEncoder(writer).Encode(snap); err != nil {
		_ = writer.Close()
		return fmt.Errorf("archive encode: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("archive upload: %w", err)
	}
	return nil
}
