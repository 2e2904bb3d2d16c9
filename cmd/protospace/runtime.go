package main

import (
	"context"
	"fmt"
	"log/slog"

	"protospace/internal/blobstore"
	"protospace/internal/config"
	"protospace/internal/core"
	"protospace/internal/store"
)

// localRuntime is the store and prototype service used by commands that work
// on the database directly instead of through the HTTP API.
type localRuntime struct {
	store   *store.Store
	service *core.Service
}

func openLocalRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*localRuntime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not initialized")
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("db path is required")
	}

	logger.Debug("opening database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	return &localRuntime{store: st, service: core.NewService(st, blobs, logger)}, nil
}

func (rt *localRuntime) Close() error {
	return rt.store.Close()
}

func openBlobStore(ctx context.Context, cfg *config.Config) (blobstore.BlobStore, error) {
	switch cfg.Blobs.Backend {
	case config.BlobBackendS3:
		return blobstore.NewS3Store(ctx, blobstore.S3Options{
			Bucket:    cfg.Blobs.S3Bucket,
			Region:    cfg.Blobs.S3Region,
			Endpoint:  cfg.Blobs.S3Endpoint,
			AccessKey: cfg.Blobs.S3AccessKey,
			SecretKey: cfg.Blobs.S3SecretKey,
		})
	case config.BlobBackendLocal, "":
		return blobstore.NewLocalCAS(cfg.BlobRoot())
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Blobs.Backend)
	}
}
