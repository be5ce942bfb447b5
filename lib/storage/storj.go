package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/joshnies/datadoc/config"
	"storj.io/uplink"
)

// Storj DCS project opened from an access grant.
type StorjStore struct {
	bucket  string
	project *uplink.Project
}

func NewStorjStore(ctx context.Context, cfg config.StorageConfig) (*StorjStore, error) {
	if cfg.StorjAccessGrant == "" {
		return nil, fmt.Errorf("no storj access grant configured")
	}

	access, err := uplink.ParseAccess(cfg.StorjAccessGrant)
	if err != nil {
		return nil, fmt.Errorf("parse storj access grant: %w", err)
	}

	project, err := uplink.OpenProject(ctx, access)
	if err != nil {
		return nil, fmt.Errorf("open storj project: %w", err)
	}

	if _, err := project.EnsureBucket(ctx, cfg.Bucket); err != nil {
		project.Close()
		return nil, fmt.Errorf("ensure bucket %s: %w", cfg.Bucket, err)
	}

	return &StorjStore{bucket: cfg.Bucket, project: project}, nil
}

func (s *StorjStore) Name() string {
	return "sj://" + s.bucket
}

func (s *StorjStore) Upload(ctx context.Context, key string, r io.Reader, _ int64) error {
	upload, err := s.project.UploadObject(ctx, s.bucket, key, nil)
	if err != nil {
		return err
	}

	if _, err := io.Copy(upload, r); err != nil {
		_ = upload.Abort()
		return fmt.Errorf("upload %s: %w", key, err)
	}

	return upload.Commit()
}

func (s *StorjStore) Close() error {
	return s.project.Close()
}
