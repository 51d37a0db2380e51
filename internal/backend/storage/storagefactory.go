package storage

import (
	"context"
	"fmt"
)

// Config selects and configures a storage backend
type Config struct {
	Type    string   `yaml:"type"`
	Root    string   `yaml:"root"`
	LockDir string   `yaml:"lockDir"`
	S3      S3Config `yaml:"s3"`
}

func NewStorage(ctx context.Context, cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", "filesystem":
		return NewFileSystemStorage(cfg.Root)
	case "s3":
		return NewS3Storage(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}
