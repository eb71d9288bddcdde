// Package repository defines the persistence contracts consumed by the use cases.
package repository

import "context"

// CredentialRepository persists the bearer token, user id, and cached device
// token. Reads return the empty string when a key is absent. Writes are
// last-write-wins; there is no cross-key atomicity.
type CredentialRepository interface {
	Token(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string) error
	DeleteToken(ctx context.Context) error

	UserID(ctx context.Context) (string, error)
	SaveUserID(ctx context.Context, id string) error
	DeleteUserID(ctx context.Context) error

	DeviceToken(ctx context.Context) (string, error)
	SaveDeviceToken(ctx context.Context, token string) error
}
