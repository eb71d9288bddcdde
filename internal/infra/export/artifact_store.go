package export

import (
	"context"
	"log/slog"
	"path/filepath"

	"farmlink/config"
	"farmlink/internal/domain/entity"
	"farmlink/internal/domain/service"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
)

// artifactStore writes export artifacts to the user's downloads area through
// a blob bucket, creating the directory when absent.
type artifactStore struct {
	dir    string
	bucket *blob.Bucket
	logger *slog.Logger
}

// StoreParams holds dependencies for the artifact store.
type StoreParams struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Logger *slog.Logger
}

// NewArtifactStore opens the downloads bucket.
func NewArtifactStore(params StoreParams) (service.ArtifactStore, error) {
	dir := params.Config.Storage.DownloadsDir
	bucket, err := fileblob.OpenBucket(dir, &fileblob.Options{CreateDir: true})
	if err != nil {
		return nil, errors.Wrap(err, "open downloads bucket")
	}

	params.Lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return bucket.Close()
		},
	})

	return &artifactStore{dir: dir, bucket: bucket, logger: params.Logger}, nil
}

// newArtifactStoreWithBucket wraps an existing bucket. Used by tests.
func newArtifactStoreWithBucket(dir string, bucket *blob.Bucket, logger *slog.Logger) service.ArtifactStore {
	return &artifactStore{dir: dir, bucket: bucket, logger: logger}
}

// SaveDownload writes the artifact and returns its location.
func (s *artifactStore) SaveDownload(ctx context.Context, artifact entity.ExportArtifact) (string, error) {
	opts := &blob.WriterOptions{ContentType: artifact.MIMEType}
	if err := s.bucket.WriteAll(ctx, artifact.Name, artifact.Content, opts); err != nil {
		return "", errors.Wrapf(err, "write artifact %s", artifact.Name)
	}

	location := filepath.Join(s.dir, artifact.Name)
	s.logger.Info("export artifact saved",
		slog.String("name", artifact.Name),
		slog.Int("bytes", len(artifact.Content)),
	)

	return location, nil
}
