package usecase

import (
	"context"

	"farmlink/internal/domain/entity"
)

// SaveResult reports where a preference write landed. LocalOnly is set when
// the local store committed but the backend could not be reached; the write
// still counts as successful from the user's perspective.
type SaveResult struct {
	LocalOnly bool
}

// PreferenceRead is the outcome of a preference read, including whether the
// values came from the server or the local fallback.
type PreferenceRead struct {
	Prefs                  entity.PreferenceSet
	FromServer             bool
	NeedsTokenRegistration bool
}

// PreferenceUsecase reconciles notification preferences between the local
// store and the backend. Local writes are the commit point; server failures
// degrade to local-only without rolling back.
type PreferenceUsecase interface {
	Read(ctx context.Context) (PreferenceRead, error)
	Save(ctx context.Context, prefs entity.PreferenceSet) (SaveResult, error)

	// SaveKey updates a single recognized key and persists the full set.
	SaveKey(ctx context.Context, key string, value any) (SaveResult, error)

	// SendTest asks the backend to deliver a test notification here.
	SendTest(ctx context.Context) error
}
