package storage

import (
	"context"
	"fmt"

	"github.com/newdaybreak/careers/config"
)

// Backend names accepted in STORAGE_BACKEND.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendMinio  = "minio"
	BackendGCS    = "gcs"
)

// NewFromConfig builds the configured object storage and makes sure its bucket
// exists. It returns nil, nil when the backend is "none".
func NewFromConfig(ctx context.Context, cfg config.StorageConfig) (*Storage, error) {
	var backend ObjectStorage
	switch cfg.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendMemory:
		backend = NewMemoryStorage("memory")
	case BackendMinio:
		client, err := NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("minio: %w", err)
		}
		backend = client
	case BackendGCS:
		client, err := NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, fmt.Errorf("gcs: %w", err)
		}
		backend = client
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}

	s := NewStorage(backend)
	if err := s.EnsureBucket(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("ensure bucket %s: %w", s.Bucket(), err)
	}
	return s, nil
}
