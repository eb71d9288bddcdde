package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"farmlink/internal/domain/entity"
	domainerrors "farmlink/internal/domain/errors"
	"farmlink/internal/domain/service"
)

type resolveRequest struct {
	Notes string `json:"notes"`
}

type anomalyHistoryData struct {
	Anomalies  []map[string]any `json:"anomalies"`
	Pagination json.RawMessage  `json:"pagination"`
}

// AnomalyHistory fetches one page of anomaly records. Records stay raw maps;
// field names drift across backend versions and are normalized at ingest.
func (c *Client) AnomalyHistory(ctx context.Context, bearer string, q service.AnomalyQuery) ([]map[string]any, error) {
	query := url.Values{}
	if q.Limit > 0 {
		query.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Page > 0 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	if q.Sort != "" {
		query.Set("sort", q.Sort)
	}
	if q.DeviceID != "" {
		query.Set("deviceId", q.DeviceID)
	}
	if q.Resolved != nil {
		query.Set("resolved", strconv.FormatBool(*q.Resolved))
	}
	if q.AlertLevel != "" {
		query.Set("alertLevel", q.AlertLevel)
	}

	body, err := c.do(ctx, http.MethodGet, "/api/anomaly/history", bearer, nil, query)
	if err != nil {
		return nil, err
	}

	data, err := unwrapEnvelope(body)
	if err != nil {
		return nil, err
	}

	var payload anomalyHistoryData
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, domainerrors.Wrap(domainerrors.KindTransient, "malformed anomaly history", err)
	}

	return payload.Anomalies, nil
}

// AnomalyStats fetches the anomaly summary over the trailing N days.
func (c *Client) AnomalyStats(ctx context.Context, bearer string, days int) (entity.AnomalyStats, error) {
	query := url.Values{}
	query.Set("days", strconv.Itoa(days))

	body, err := c.do(ctx, http.MethodGet, "/api/anomaly/stats", bearer, nil, query)
	if err != nil {
		return entity.AnomalyStats{}, err
	}

	data, err := unwrapEnvelope(body)
	if err != nil {
		return entity.AnomalyStats{}, err
	}

	var stats entity.AnomalyStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return entity.AnomalyStats{}, domainerrors.Wrap(domainerrors.KindTransient, "malformed anomaly stats", err)
	}

	return stats, nil
}

// ResolveAnomaly marks a server-side anomaly resolved with a note.
func (c *Client) ResolveAnomaly(ctx context.Context, bearer, id, notes string) error {
	_, err := c.do(ctx, http.MethodPut, "/api/anomaly/resolve/"+url.PathEscape(id), bearer, resolveRequest{
		Notes: notes,
	}, nil)

	return err
}
