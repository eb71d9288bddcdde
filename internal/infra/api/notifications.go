package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"farmlink/internal/domain/entity"
	domainerrors "farmlink/internal/domain/errors"
	"farmlink/internal/domain/service"
)

type registerTokenRequest struct {
	UserID        string            `json:"userId"`
	ExpoPushToken string            `json:"expoPushToken"`
	DeviceInfo    entity.DeviceInfo `json:"deviceInfo"`
}

// RegisterPushToken binds the device token to the user on the backend.
func (c *Client) RegisterPushToken(ctx context.Context, bearer string, req service.RegisterTokenRequest) error {
	_, err := c.do(ctx, http.MethodPost, "/api/notifications/register-token", bearer, registerTokenRequest{
		UserID:        req.UserID,
		ExpoPushToken: req.DeviceToken,
		DeviceInfo:    req.Device.Normalize(),
	}, nil)
	if err != nil {
		return err
	}

	c.logger.Info("push token registered", slog.String("userId", req.UserID))

	return nil
}

// FetchPreferences returns the raw server preference record. A 404 or a
// needsRegistration signal maps to KindNotRegistered.
func (c *Client) FetchPreferences(ctx context.Context, bearer string) (map[string]any, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/notifications/preferences", bearer, nil, nil)
	if err != nil {
		return nil, err
	}

	data, err := unwrapEnvelope(body)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if len(data) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, domainerrors.Wrap(domainerrors.KindTransient, "malformed preference record", err)
		}
	}

	return raw, nil
}

// SavePreferences PUTs the full preference set.
func (c *Client) SavePreferences(ctx context.Context, bearer string, prefs entity.PreferenceSet) error {
	_, err := c.do(ctx, http.MethodPut, "/api/notifications/preferences", bearer, prefs, nil)

	return err
}

// SendTestNotification asks the backend to push a test notification to this
// installation.
func (c *Client) SendTestNotification(ctx context.Context, bearer string) error {
	_, err := c.do(ctx, http.MethodPost, "/api/notifications/test", bearer, nil, nil)

	return err
}
