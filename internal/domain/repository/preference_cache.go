package repository

import (
	"context"

	"farmlink/internal/domain/entity"
)

// PreferenceCache is the local side of the preference reconciler. Load
// reports found=false when nothing has been cached yet.
type PreferenceCache interface {
	Load(ctx context.Context) (prefs entity.PreferenceSet, found bool, err error)
	Save(ctx context.Context, prefs entity.PreferenceSet) error
	Clear(ctx context.Context) error
}
