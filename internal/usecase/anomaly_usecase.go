package usecase

import (
	"context"

	"farmlink/internal/domain/entity"
)

// SeverityFilter narrows the displayed feed. The zero value shows everything.
type SeverityFilter string

const (
	FilterAll      SeverityFilter = "all"
	FilterCritical SeverityFilter = "critical"
	FilterWarning  SeverityFilter = "warning"
	FilterInfo     SeverityFilter = "info"
)

// AnomalyUsecase merges server anomaly history with the local notification
// journal into one de-duplicated feed ordered by timestamp descending.
type AnomalyUsecase interface {
	// Load fetches and merges the feed. Without an auth token only the local
	// journal is returned.
	Load(ctx context.Context) ([]entity.AnomalyEvent, error)

	// Filter applies the severity filter to the last loaded feed.
	Filter(filter SeverityFilter) []entity.AnomalyEvent

	// Resolve marks the event resolved: local events are marked read in the
	// journal, server events are resolved on the backend with a note. The
	// in-memory feed updates optimistically; resolving an already resolved
	// event is a no-op.
	Resolve(ctx context.Context, id string) error

	// DeleteOne removes the event from the feed. Local events leave the
	// journal; server events leave only the in-memory projection and
	// re-surface on the next load unless resolved.
	DeleteOne(ctx context.Context, id string) error

	// DeleteAll clears the journal and empties the projection.
	DeleteAll(ctx context.Context) error

	// Stats summarizes anomaly history over the trailing days window.
	Stats(ctx context.Context, days int) (entity.AnomalyStats, error)
}
