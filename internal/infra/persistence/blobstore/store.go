// Package blobstore contains the concrete implementation of the persistence
// layer using gocloud blob buckets. Every value is one whole-blob JSON
// document; mutations rewrite the blob completely.
package blobstore

import (
	"context"
	"encoding/json"

	"farmlink/config"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/gcerrors"
)

// Blob keys for the persisted client state.
const (
	keyToken         = "token"
	keyUserID        = "userId"
	keyDeviceToken   = "expoPushToken"
	keyPreferences   = "notificationPreferences"
	keyNotifications = "localNotifications"
)

// Store wraps a blob bucket holding the client's key/value state.
type Store struct {
	bucket *blob.Bucket
}

// Params holds dependencies for the store.
type Params struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
}

// New opens the data directory as a fileblob bucket, creating it when absent.
func New(params Params) (*Store, error) {
	bucket, err := fileblob.OpenBucket(params.Config.Storage.DataDir, &fileblob.Options{
		CreateDir: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open data bucket")
	}

	params.Lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return bucket.Close()
		},
	})

	return &Store{bucket: bucket}, nil
}

// NewWithBucket wraps an existing bucket. Used by tests.
func NewWithBucket(bucket *blob.Bucket) *Store {
	return &Store{bucket: bucket}
}

// readJSON loads the blob under key into out. found is false when the key
// does not exist.
func (s *Store) readJSON(ctx context.Context, key string, out any) (found bool, err error) {
	data, err := s.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return false, nil
		}

		return false, errors.Wrapf(err, "read blob %s", key)
	}

	if err := json.Unmarshal(data, out); err != nil {
		// A corrupt blob is treated as absent; the next write replaces it.
		return false, nil
	}

	return true, nil
}

// writeJSON serializes v and rewrites the blob under key.
func (s *Store) writeJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshal blob %s", key)
	}

	if err := s.bucket.WriteAll(ctx, key, data, nil); err != nil {
		return errors.Wrapf(err, "write blob %s", key)
	}

	return nil
}

// delete removes the blob under key. Missing keys are not an error.
func (s *Store) delete(ctx context.Context, key string) error {
	err := s.bucket.Delete(ctx, key)
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return errors.Wrapf(err, "delete blob %s", key)
	}

	return nil
}
