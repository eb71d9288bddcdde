package service

import (
	"context"
	"time"

	"farmlink/internal/domain/entity"
)

// SignInResult is the backend's answer to a credential sign-in. UserID may be
// empty on older backends; callers fall back to decoding the token payload.
type SignInResult struct {
	Token  string
	UserID string
}

// RegisterTokenRequest binds a device token to a user on the backend.
type RegisterTokenRequest struct {
	UserID      string
	DeviceToken string
	Device      entity.DeviceInfo
}

// AnomalyQuery filters the anomaly history endpoint.
type AnomalyQuery struct {
	Limit      int
	Page       int
	Sort       string
	DeviceID   string
	Resolved   *bool
	AlertLevel string
}

// FarmBackend is the platform REST API consumed by this client. Failures are
// classified with the error kinds in internal/domain/errors; a missing push
// registration surfaces as KindNotRegistered.
type FarmBackend interface {
	SignIn(ctx context.Context, email, password string) (SignInResult, error)

	RegisterPushToken(ctx context.Context, bearer string, req RegisterTokenRequest) error

	// FetchPreferences returns the raw server record so the caller can merge
	// the present keys onto defaults.
	FetchPreferences(ctx context.Context, bearer string) (map[string]any, error)
	SavePreferences(ctx context.Context, bearer string, prefs entity.PreferenceSet) error
	SendTestNotification(ctx context.Context, bearer string) error

	// AnomalyHistory returns raw records; field names drift across backend
	// versions, so normalization happens at ingest.
	AnomalyHistory(ctx context.Context, bearer string, q AnomalyQuery) ([]map[string]any, error)
	AnomalyStats(ctx context.Context, bearer string, days int) (entity.AnomalyStats, error)
	ResolveAnomaly(ctx context.Context, bearer, id, notes string) error

	DeviceData(ctx context.Context, bearer, deviceID string, start, end time.Time, limit int) ([]entity.TimeSeriesRow, error)
}
