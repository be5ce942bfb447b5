package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/joshnies/datadoc/config"
	"github.com/joshnies/datadoc/constants"
)

// Object storage that published files are uploaded to.
type Store interface {
	// Human-readable destination, e.g. "s3://bucket".
	Name() string
	Upload(ctx context.Context, key string, r io.Reader, size int64) error
	Close() error
}

// Open the store selected by the storage config.
func NewStore(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("no storage bucket configured")
	}

	switch cfg.Provider {
	case config.StorageProviderS3, "":
		return NewS3Store(ctx, cfg)
	case config.StorageProviderStorj:
		return NewStorjStore(ctx, cfg)
	}
	return nil, fmt.Errorf("unsupported storage provider %q", cfg.Provider)
}

func contentType(key string) string {
	if strings.HasSuffix(key, constants.CompressedExt) {
		return "application/zstd"
	}
	return "application/json"
}
