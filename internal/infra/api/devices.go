package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"farmlink/internal/domain/entity"
	domainerrors "farmlink/internal/domain/errors"
)

// timeSeriesRecord tolerates the field-name variants seen across backend
// versions for dew point.
type timeSeriesRecord struct {
	Timestamp    string   `json:"timestamp"`
	Temperature  *float64 `json:"temperature"`
	Humidity     *float64 `json:"humidity"`
	DewPoint     *float64 `json:"dewPoint"`
	DewPointSnek *float64 `json:"dew_point"`
	VPD          *float64 `json:"vpd"`
}

type deviceDataResponse struct {
	Data []timeSeriesRecord `json:"data"`
}

// DeviceData fetches a sensor's samples for the inclusive day range, sorted
// ascending by timestamp. Unparseable rows are skipped.
func (c *Client) DeviceData(ctx context.Context, bearer, deviceID string, start, end time.Time, limit int) ([]entity.TimeSeriesRow, error) {
	query := url.Values{}
	query.Set("startDate", start.Format("2006-01-02"))
	query.Set("endDate", end.Format("2006-01-02"))
	query.Set("limit", strconv.Itoa(limit))

	body, err := c.do(ctx, http.MethodGet, "/api/devices/"+url.PathEscape(deviceID)+"/data", bearer, nil, query)
	if err != nil {
		return nil, err
	}

	var resp deviceDataResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, domainerrors.Wrap(domainerrors.KindTransient, "malformed device data", err)
	}

	rows := make([]entity.TimeSeriesRow, 0, len(resp.Data))
	for _, record := range resp.Data {
		ts, err := parseTimestamp(record.Timestamp)
		if err != nil {
			continue
		}

		dewPoint := record.DewPoint
		if dewPoint == nil {
			dewPoint = record.DewPointSnek
		}

		rows = append(rows, entity.TimeSeriesRow{
			Timestamp:   ts,
			Temperature: record.Temperature,
			Humidity:    record.Humidity,
			DewPoint:    dewPoint,
			VPD:         record.VPD,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Timestamp.Before(rows[j].Timestamp)
	})

	return rows, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}

	return time.Time{}, domainerrors.New(domainerrors.KindTransient, "unparseable timestamp "+s)
}
