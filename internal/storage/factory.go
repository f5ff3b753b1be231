package storage

import (
	"context"
	"fmt"

	"github.com/Juanex7890/senalmaq2-sub000/internal/config"
)

type FactoryResult struct {
	Driver  string
	Storage Storage // nil when archiving is disabled
}

func FromConfig(ctx context.Context, cfg *config.Config) (FactoryResult, error) {
	switch cfg.ArchiveDriver {
	case "", config.ArchiveNone:
		return FactoryResult{Driver: config.ArchiveNone}, nil

	case config.ArchiveLocal:
		return FactoryResult{Driver: config.ArchiveLocal, Storage: NewLocal(cfg.ArchiveLocalDir)}, nil

	case config.ArchiveS3:
		s, err := NewS3(ctx, S3Config{
			Region: cfg.AWSRegion,
			Bucket: cfg.ArchiveS3Bucket,
			Prefix: cfg.ArchiveS3Prefix,
		})
		if err != nil {
			return FactoryResult{}, err
		}
		return FactoryResult{Driver: config.ArchiveS3, Storage: s}, nil

	default:
		return FactoryResult{}, fmt.Errorf("unknown ARCHIVE_DRIVER: %s", cfg.ArchiveDriver)
	}
}
