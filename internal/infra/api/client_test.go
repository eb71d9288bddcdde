package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"farmlink/config"
	domainerrors "farmlink/internal/domain/errors"
	"farmlink/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.API.BaseURL = server.URL
	cfg.API.Timeout = 2 * time.Second

	return NewClient(cfg, slog.Default())
}

func TestSignIn_Success(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/signin", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "grower@example.com", req["email"])

		json.NewEncoder(w).Encode(map[string]string{"token": "bearer-abc", "userId": "user-1"})
	}))

	result, err := client.SignIn(context.Background(), "grower@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "bearer-abc", result.Token)
	assert.Equal(t, "user-1", result.UserID)
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.SignIn(context.Background(), "grower@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, domainerrors.KindAuthInvalid, domainerrors.KindOf(err))
}

func TestFetchPreferences_BearerAndMerge(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer bearer-abc", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data":    map[string]any{"soundEnabled": false},
		})
	}))

	raw, err := client.FetchPreferences(context.Background(), "bearer-abc")
	require.NoError(t, err)
	assert.Equal(t, false, raw["soundEnabled"])
}

func TestFetchPreferences_NeedsRegistration(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success":           false,
			"error":             "no preferences found",
			"needsRegistration": true,
		})
	}))

	_, err := client.FetchPreferences(context.Background(), "bearer-abc")
	require.Error(t, err)
	assert.Equal(t, domainerrors.KindNotRegistered, domainerrors.KindOf(err))
}

func TestFetchPreferences_NotFoundMapsToNotRegistered(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := client.FetchPreferences(context.Background(), "bearer-abc")
	require.Error(t, err)
	assert.Equal(t, domainerrors.KindNotRegistered, domainerrors.KindOf(err))
}

func TestRegisterPushToken_Payload(t *testing.T) {
	var got registerTokenRequest
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/notifications/register-token", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))

	err := client.RegisterPushToken(context.Background(), "bearer-abc", service.RegisterTokenRequest{
		UserID:      "user-1",
		DeviceToken: "device-xyz",
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, "device-xyz", got.ExpoPushToken)

	// Missing device fields are reported as "unknown".
	assert.Equal(t, "unknown", got.DeviceInfo.Platform)
	assert.Equal(t, "unknown", got.DeviceInfo.DeviceName)
}

func TestAnomalyHistory_QueryAndRawRecords(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/anomaly/history", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Equal(t, "1", r.URL.Query().Get("page"))

		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": map[string]any{
				"anomalies": []map[string]any{
					{"_id": "a1", "alertLevel": "red", "detection_method": "ml_based"},
				},
				"pagination": map[string]any{"page": 1},
			},
		})
	}))

	records, err := client.AnomalyHistory(context.Background(), "bearer-abc", service.AnomalyQuery{Limit: 100, Page: 1})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "red", records[0]["alertLevel"])
	assert.Equal(t, "ml_based", records[0]["detection_method"])
}

func TestResolveAnomaly_PathAndNote(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/api/anomaly/resolve/a1", r.URL.Path)

		var req resolveRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "resolved from mobile app", req.Notes)
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, client.ResolveAnomaly(context.Background(), "bearer-abc", "a1", "resolved from mobile app"))
}

func TestDeviceData_SortedAscendingAndVariantFields(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/devices/sensor-1/data", r.URL.Path)
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("startDate"))
		assert.Equal(t, "2024-01-02", r.URL.Query().Get("endDate"))
		assert.Equal(t, "10000", r.URL.Query().Get("limit"))

		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"timestamp": "2024-01-01T12:00:00Z", "temperature": 24.5, "dew_point": 12.1},
				{"timestamp": "2024-01-01T06:00:00Z", "temperature": 21.0, "humidity": 60.0},
				{"timestamp": "garbage"},
			},
		})
	}))

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	rows, err := client.DeviceData(context.Background(), "bearer-abc", "sensor-1", start, end, 10000)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.True(t, rows[0].Timestamp.Before(rows[1].Timestamp))
	require.NotNil(t, rows[1].DewPoint)
	assert.InDelta(t, 12.1, *rows[1].DewPoint, 0.001)
	assert.Nil(t, rows[0].DewPoint)
}

func TestDo_TransientCarriesServerMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "database unavailable"})
	}))

	err := client.SendTestNotification(context.Background(), "bearer-abc")
	require.Error(t, err)
	assert.Equal(t, domainerrors.KindTransient, domainerrors.KindOf(err))
	assert.Contains(t, err.Error(), "database unavailable")
}

func TestDo_OfflineClassification(t *testing.T) {
	cfg := &config.Config{}
	cfg.API.BaseURL = "http://127.0.0.1:1" // nothing listens here
	cfg.API.Timeout = 500 * time.Millisecond
	client := NewClient(cfg, slog.Default())

	err := client.SendTestNotification(context.Background(), "bearer-abc")
	require.Error(t, err)
	assert.Equal(t, domainerrors.KindNetworkOffline, domainerrors.KindOf(err))
}
