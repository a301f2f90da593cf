// Package blob stores component source and documentation as opaque keyed blobs.
//
// Keys are written once (immutable version keys) or overwritten in place
// (alias keys). Backends: badger (local directory or in-memory), S3, GCS.
package blob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/hpungsan/kiln/internal/config"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("blob not found")

// Store is a key-addressed blob store.
type Store interface {
	// Put writes data under key, replacing any existing value.
	Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error

	// Get returns the bytes stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Head reports whether key exists.
	Head(ctx context.Context, key string) (bool, error)

	Close() error
}

// New opens the backend selected by cfg.BlobBackend. Relative badger
// directories resolve against baseDir.
func New(ctx context.Context, cfg *config.Config, baseDir string, logger *slog.Logger) (Store, error) {
	switch cfg.BlobBackend {
	case "", config.BlobBackendBadger:
		dir := cfg.BadgerDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(baseDir, dir)
		}
		return OpenBadger(BadgerConfig{Path: dir, SyncWrites: true, Logger: logger})
	case config.BlobBackendS3:
		return NewS3(ctx, cfg.S3)
	case config.BlobBackendGCS:
		return NewGCS(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}
