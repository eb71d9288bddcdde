package export

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"farmlink/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocloud.dev/blob/fileblob"
)

func f(v float64) *float64 { return &v }

func twoSensorSeries() []entity.SensorSeries {
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	return []entity.SensorSeries{
		{
			SensorID:   "a",
			SensorName: "Greenhouse A",
			Rows: []entity.TimeSeriesRow{
				{Timestamp: base, Temperature: f(21.5)},
				{Timestamp: base.Add(time.Hour), Temperature: f(22)},
				{Timestamp: base.Add(2 * time.Hour), Temperature: f(23.25)},
			},
		},
		{
			SensorID:   "b",
			SensorName: "Greenhouse B",
			Rows: []entity.TimeSeriesRow{
				{Timestamp: base, Temperature: f(19)},
				{Timestamp: base.Add(time.Hour), Temperature: nil},
			},
		},
	}
}

func TestWriteCSV_TwoSensorsOneMetric(t *testing.T) {
	data, err := WriteCSV(twoSensorSeries(), []entity.Metric{entity.MetricTemperature})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	require.Len(t, lines, 6) // header + 3 rows of A + 2 rows of B

	assert.Equal(t, "Sensor,Timestamp,Temperature (°C)", lines[0])

	// A's rows precede B's rows.
	assert.True(t, strings.HasPrefix(lines[1], "Greenhouse A,"))
	assert.True(t, strings.HasPrefix(lines[4], "Greenhouse B,"))

	// Timestamps are ISO-8601, missing readings are empty cells.
	assert.Contains(t, lines[1], "2024-01-01T08:00:00Z")
	assert.True(t, strings.HasSuffix(lines[5], ","))
}

func TestWriteCSV_MetricColumnOrderIsFixed(t *testing.T) {
	// Request order must not leak into the column order.
	data, err := WriteCSV(twoSensorSeries(), []entity.Metric{
		entity.MetricVPD, entity.MetricTemperature, entity.MetricHumidity,
	})
	require.NoError(t, err)

	header := strings.Split(strings.TrimRight(string(data), "\n"), "\n")[0]
	assert.Equal(t, "Sensor,Timestamp,Temperature (°C),Humidity (%),VPD (kPa)", header)
}

func TestWriteCSV_ColumnCount(t *testing.T) {
	metrics := []entity.Metric{entity.MetricTemperature, entity.MetricDewPoint}
	data, err := WriteCSV(twoSensorSeries(), metrics)
	require.NoError(t, err)

	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		assert.Equal(t, 2+len(metrics), len(strings.Split(line, ",")))
	}
}

func TestComposePDF_ProducesDocumentWithChart(t *testing.T) {
	// A tiny valid PNG (1x1 transparent pixel).
	png := []byte{
		0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
		0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
		0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
		0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
		0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
	}

	meta := ReportMeta{
		Sensors:   []entity.Sensor{{ID: "a", Name: "Greenhouse A"}},
		Metrics:   []entity.Metric{entity.MetricTemperature},
		Start:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Generated: time.Date(2024, 1, 3, 10, 0, 0, 0, time.UTC),
	}

	data, err := ComposePDF(meta, png, "https://dash.example.com/reports/1")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
	assert.Greater(t, len(data), 1000)
}

func TestComposePDF_NoQRWithoutDashboardURL(t *testing.T) {
	meta := ReportMeta{
		Start:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Generated: time.Now(),
	}

	data, err := ComposePDF(meta, nil, "")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestArtifactStore_SaveDownload(t *testing.T) {
	dir := t.TempDir()
	bucket, err := fileblob.OpenBucket(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { bucket.Close() })

	store := newArtifactStoreWithBucket(dir, bucket, slog.Default())

	location, err := store.SaveDownload(context.Background(), entity.ExportArtifact{
		Name:     "export_2024-01-01_2024-01-02.csv",
		MIMEType: "text/csv",
		Content:  []byte("Sensor,Timestamp\n"),
	})
	require.NoError(t, err)
	assert.Contains(t, location, "export_2024-01-01_2024-01-02.csv")

	stored, err := bucket.ReadAll(context.Background(), "export_2024-01-01_2024-01-02.csv")
	require.NoError(t, err)
	assert.Equal(t, []byte("Sensor,Timestamp\n"), stored)
}
