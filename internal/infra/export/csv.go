// Package export serializes time-series exports to CSV and PDF artifacts.
package export

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"farmlink/internal/domain/entity"

	"github.com/pkg/errors"
)

// WriteCSV serializes every sensor's original (non-aligned) samples. The
// header is Sensor, Timestamp, then the selected metric columns in the fixed
// Temperature, Humidity, Dew Point, VPD order. Missing readings serialize as
// empty cells. Excel exports reuse these bytes unchanged.
func WriteCSV(series []entity.SensorSeries, metrics []entity.Metric) ([]byte, error) {
	ordered := orderMetrics(metrics)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := make([]string, 0, 2+len(ordered))
	header = append(header, "Sensor", "Timestamp")
	for _, m := range ordered {
		header = append(header, m.ColumnHeader())
	}
	if err := w.Write(header); err != nil {
		return nil, errors.Wrap(err, "write csv header")
	}

	for _, s := range series {
		for _, row := range s.Rows {
			record := make([]string, 0, len(header))
			record = append(record, s.SensorName, row.Timestamp.Format(time.RFC3339))
			for _, m := range ordered {
				record = append(record, formatReading(row.Value(m)))
			}
			if err := w.Write(record); err != nil {
				return nil, errors.Wrap(err, "write csv row")
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.Wrap(err, "flush csv")
	}

	return buf.Bytes(), nil
}

// orderMetrics filters MetricOrder down to the selected set, fixing the
// column order regardless of request order.
func orderMetrics(selected []entity.Metric) []entity.Metric {
	want := make(map[entity.Metric]bool, len(selected))
	for _, m := range selected {
		want[m] = true
	}

	ordered := make([]entity.Metric, 0, len(selected))
	for _, m := range entity.MetricOrder {
		if want[m] {
			ordered = append(ordered, m)
		}
	}

	return ordered
}

func formatReading(v *float64) string {
	if v == nil {
		return ""
	}

	return strconv.FormatFloat(*v, 'f', -1, 64)
}
