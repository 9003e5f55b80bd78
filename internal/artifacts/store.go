// Package artifacts persists the process-wide side state written by each
// refresh: the last refresh timestamp and the rendered summary image.
//
// Two backends exist. FileStore keeps both under a local cache directory;
// ObjectStore keeps them in an S3-compatible bucket. Absence of either
// artifact is a normal state, reported with ok=false rather than an error.
package artifacts

import (
	"context"
	"fmt"

	"github.com/tbourn/go-country-currency/internal/config"
)

// Artifact names, used as file names or object keys.
const (
	TimestampName = "last_refreshed.txt"
	ImageName     = "summary.png"
)

// Store reads and writes the refresh side state.
type Store interface {
	SaveTimestamp(ctx context.Context, ts string) error
	LoadTimestamp(ctx context.Context) (ts string, ok bool, err error)
	SaveImage(ctx context.Context, png []byte) error
	LoadImage(ctx context.Context) (png []byte, ok bool, err error)
}

// New builds the Store selected by cfg.Backend. The minio backend also
// makes sure the bucket exists.
func New(ctx context.Context, cfg config.ArtifactsConfig) (Store, error) {
	switch cfg.Backend {
	case config.ArtifactsFile, "":
		return NewFileStore(cfg.CacheDir), nil
	case config.ArtifactsMinio:
		client, err := NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		s := NewObjectStore(client, cfg.Minio.Bucket, cfg.Minio.Prefix)
		if err := s.EnsureBucket(ctx, cfg.Minio.Region); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported artifact backend %q", cfg.Backend)
	}
}
