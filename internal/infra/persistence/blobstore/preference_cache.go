package blobstore

import (
	"context"

	"farmlink/internal/domain/entity"
	"farmlink/internal/domain/repository"
)

// preferenceCache implements the local side of the preference reconciler.
type preferenceCache struct {
	store *Store
}

// NewPreferenceCache is the constructor for preferenceCache.
func NewPreferenceCache(store *Store) repository.PreferenceCache {
	return &preferenceCache{store: store}
}

func (c *preferenceCache) Load(ctx context.Context) (entity.PreferenceSet, bool, error) {
	var prefs entity.PreferenceSet
	found, err := c.store.readJSON(ctx, keyPreferences, &prefs)
	if err != nil {
		return entity.DefaultPreferences(), false, err
	}
	if !found {
		return entity.DefaultPreferences(), false, nil
	}

	return prefs, true, nil
}

func (c *preferenceCache) Save(ctx context.Context, prefs entity.PreferenceSet) error {
	return c.store.writeJSON(ctx, keyPreferences, prefs)
}

func (c *preferenceCache) Clear(ctx context.Context) error {
	return c.store.delete(ctx, keyPreferences)
}
