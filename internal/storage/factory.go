package storage

import (
	"context"
	"fmt"
	"strings"
)

const (
	TypeLocal = "local"
	TypeS3    = "s3"
)

type Config struct {
	Type      string
	Dir       string
	URLPrefix string
	S3        S3Config
}

// New creates the storage backend named by cfg.Type and makes sure its
// upload location exists.
func New(ctx context.Context, cfg Config) (ObjectStorage, error) {
	switch strings.ToLower(cfg.Type) {
	case "", TypeLocal:
		return NewLocalStorage(cfg.Dir, cfg.URLPrefix)
	case TypeS3:
		s, err := NewS3Storage(ctx, &cfg.S3)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
