package repository

import (
	"context"

	"farmlink/internal/domain/entity"
)

// NotificationCacheLimit bounds the local notification journal. The oldest
// entries are evicted beyond this size.
const NotificationCacheLimit = 100

// NotificationCache is the bounded, most-recent-first journal of locally
// delivered notifications. Every mutation rewrites the whole serialized blob;
// callers must serialize access through a single coordinator.
type NotificationCache interface {
	// Append prepends the notification. An entry with the same ID is
	// replaced in place rather than duplicated.
	Append(ctx context.Context, n entity.LocalNotification) error

	// List returns the journal ordered most-recent-first.
	List(ctx context.Context) ([]entity.LocalNotification, error)

	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) error
	Remove(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}
