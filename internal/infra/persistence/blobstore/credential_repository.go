package blobstore

import (
	"context"

	"farmlink/internal/domain/repository"
)

// credentialRepository implements repository.CredentialRepository on the
// blob store. Each key is its own blob; writes are last-write-wins.
type credentialRepository struct {
	store *Store
}

// NewCredentialRepository is the constructor for credentialRepository.
func NewCredentialRepository(store *Store) repository.CredentialRepository {
	return &credentialRepository{store: store}
}

func (repo *credentialRepository) Token(ctx context.Context) (string, error) {
	return repo.readString(ctx, keyToken)
}

func (repo *credentialRepository) SaveToken(ctx context.Context, token string) error {
	return repo.store.writeJSON(ctx, keyToken, token)
}

func (repo *credentialRepository) DeleteToken(ctx context.Context) error {
	return repo.store.delete(ctx, keyToken)
}

func (repo *credentialRepository) UserID(ctx context.Context) (string, error) {
	return repo.readString(ctx, keyUserID)
}

func (repo *credentialRepository) SaveUserID(ctx context.Context, id string) error {
	return repo.store.writeJSON(ctx, keyUserID, id)
}

func (repo *credentialRepository) DeleteUserID(ctx context.Context) error {
	return repo.store.delete(ctx, keyUserID)
}

func (repo *credentialRepository) DeviceToken(ctx context.Context) (string, error) {
	return repo.readString(ctx, keyDeviceToken)
}

func (repo *credentialRepository) SaveDeviceToken(ctx context.Context, token string) error {
	return repo.store.writeJSON(ctx, keyDeviceToken, token)
}

func (repo *credentialRepository) readString(ctx context.Context, key string) (string, error) {
	var value string
	found, err := repo.store.readJSON(ctx, key, &value)
	if err != nil {
		return "", err
	}
	if !found {
		return "", nil
	}

	return value, nil
}
