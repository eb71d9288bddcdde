package blobstore

import (
	"context"

	"farmlink/internal/domain/entity"
	"farmlink/internal/domain/repository"
)

// notificationCache implements the bounded journal on a single blob. At most
// 100 entries, most-recent-first; every mutation rewrites the whole blob.
type notificationCache struct {
	store *Store
}

// NewNotificationCache is the constructor for notificationCache.
func NewNotificationCache(store *Store) repository.NotificationCache {
	return &notificationCache{store: store}
}

func (c *notificationCache) Append(ctx context.Context, n entity.LocalNotification) error {
	list, err := c.load(ctx)
	if err != nil {
		return err
	}

	// Re-delivery of the same id replaces the entry instead of duplicating.
	filtered := make([]entity.LocalNotification, 0, len(list)+1)
	filtered = append(filtered, n)
	for _, existing := range list {
		if existing.ID != n.ID {
			filtered = append(filtered, existing)
		}
	}

	if len(filtered) > repository.NotificationCacheLimit {
		filtered = filtered[:repository.NotificationCacheLimit]
	}

	return c.store.writeJSON(ctx, keyNotifications, filtered)
}

func (c *notificationCache) List(ctx context.Context) ([]entity.LocalNotification, error) {
	return c.load(ctx)
}

func (c *notificationCache) MarkRead(ctx context.Context, id string) error {
	return c.update(ctx, func(list []entity.LocalNotification) []entity.LocalNotification {
		for i := range list {
			if list[i].ID == id {
				list[i].Read = true
			}
		}

		return list
	})
}

func (c *notificationCache) MarkAllRead(ctx context.Context) error {
	return c.update(ctx, func(list []entity.LocalNotification) []entity.LocalNotification {
		for i := range list {
			list[i].Read = true
		}

		return list
	})
}

func (c *notificationCache) Remove(ctx context.Context, id string) error {
	return c.update(ctx, func(list []entity.LocalNotification) []entity.LocalNotification {
		filtered := list[:0]
		for _, n := range list {
			if n.ID != id {
				filtered = append(filtered, n)
			}
		}

		return filtered
	})
}

func (c *notificationCache) Clear(ctx context.Context) error {
	return c.store.writeJSON(ctx, keyNotifications, []entity.LocalNotification{})
}

func (c *notificationCache) load(ctx context.Context) ([]entity.LocalNotification, error) {
	var list []entity.LocalNotification
	if _, err := c.store.readJSON(ctx, keyNotifications, &list); err != nil {
		return nil, err
	}

	return list, nil
}

func (c *notificationCache) update(ctx context.Context, mutate func([]entity.LocalNotification) []entity.LocalNotification) error {
	list, err := c.load(ctx)
	if err != nil {
		return err
	}

	return c.store.writeJSON(ctx, keyNotifications, mutate(list))
}
