package storage

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Uploader relocates audio bytes into permanent storage and returns a stable
// URL usable later for retrieval. The object name doubles as the key for
// Remove.
type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedURL string, err error)
}

type Remover interface {
	Remove(ctx context.Context, objectName string) error
}

// Store is the permanent audio area: distinct from the temp arena, shared
// across requests, and relied on for its own concurrency safety.
type Store interface {
	Uploader
	Remover
}

// NewFromEnv picks GCS when AUDIO_BUCKET is set, a local directory
// otherwise (AUDIO_STORAGE_DIR, default ./data/audio).
func NewFromEnv(ctx context.Context) (Store, error) {
	if bucket := os.Getenv("AUDIO_BUCKET"); bucket != "" {
		s, err := NewGCSStore(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("storage: gcs init: %w", err)
		}
		return s, nil
	}
	dir := os.Getenv("AUDIO_STORAGE_DIR")
	if dir == "" {
		dir = "./data/audio"
	}
	return NewLocalStore(dir, os.Getenv("AUDIO_BASE_URL"))
}
