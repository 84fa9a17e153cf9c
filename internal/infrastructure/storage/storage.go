// Package storage keeps product media on the local filesystem or in an
// S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	catalogapp "github.com/shop/backend/internal/application/catalog"
	"github.com/shop/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// maxKeyAttempts bounds the search for a free key when names collide
const maxKeyAttempts = 10

// ErrInvalidKey is returned for empty, absolute or escaping keys
var ErrInvalidKey = errors.New("invalid storage key")

// NewMediaStorage builds the backend selected by cfg.Backend
func NewMediaStorage(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (catalogapp.MediaStorage, error) {
	switch cfg.Backend {
	case "", config.StorageLocal:
		return NewLocalStorage(cfg.MediaRoot, cfg.MediaURL)
	case config.StorageS3:
		s, err := NewS3Storage(ctx, cfg.S3, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if cfg.S3.CreateBucket {
			if err := s.EnsureBucket(ctx); err != nil {
				return nil, err
			}
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// cleanKey normalises key to a slash separated relative path
func cleanKey(key string) (string, error) {
	key = strings.ReplaceAll(key, "\\", "/")
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

// alternativeKey inserts a random suffix before the extension:
// images/a.jpg becomes images/a_1b2c3d4.jpg
func alternativeKey(key string) string {
	ext := path.Ext(key)
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:7]
	return strings.TrimSuffix(key, ext) + "_" + suffix + ext
}

// joinURL joins a base URL and a key with exactly one slash between them
func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
