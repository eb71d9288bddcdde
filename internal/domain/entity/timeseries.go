package entity

import "time"

// Metric identifies an exportable sensor metric.
type Metric string

const (
	MetricTemperature Metric = "Temperature"
	MetricHumidity    Metric = "Humidity"
	MetricDewPoint    Metric = "Dew Point"
	MetricVPD         Metric = "VPD"
)

// MetricOrder is the fixed column order for export output.
var MetricOrder = []Metric{MetricTemperature, MetricHumidity, MetricDewPoint, MetricVPD}

// ColumnHeader returns the export column header for the metric.
func (m Metric) ColumnHeader() string {
	switch m {
	case MetricTemperature:
		return "Temperature (°C)"
	case MetricHumidity:
		return "Humidity (%)"
	case MetricDewPoint:
		return "Dew Point (°C)"
	case MetricVPD:
		return "VPD (kPa)"
	}

	return string(m)
}

// TimeSeriesRow is a single sample from a sensor's data endpoint. Absent
// metrics are nil.
type TimeSeriesRow struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature *float64  `json:"temperature,omitempty"`
	Humidity    *float64  `json:"humidity,omitempty"`
	DewPoint    *float64  `json:"dewPoint,omitempty"`
	VPD         *float64  `json:"vpd,omitempty"`
}

// Value returns the sample's reading for the metric, nil when absent.
func (r TimeSeriesRow) Value(m Metric) *float64 {
	switch m {
	case MetricTemperature:
		return r.Temperature
	case MetricHumidity:
		return r.Humidity
	case MetricDewPoint:
		return r.DewPoint
	case MetricVPD:
		return r.VPD
	}

	return nil
}

// SensorSeries is one sensor's fetched samples, sorted ascending by timestamp.
type SensorSeries struct {
	SensorID   string          `json:"sensorId"`
	SensorName string          `json:"sensorName"`
	Rows       []TimeSeriesRow `json:"rows"`
}

// ExportFormat selects the produced artifact type.
type ExportFormat string

const (
	FormatCSV   ExportFormat = "CSV"
	FormatExcel ExportFormat = "Excel"
	FormatPDF   ExportFormat = "PDF"
)

// Extension returns the artifact file extension for the format.
// CSV and Excel intentionally share bytes and extension; the product has not
// decided whether distinct artifacts are wanted.
func (f ExportFormat) Extension() string {
	if f == FormatPDF {
		return "pdf"
	}

	return "csv"
}

// Sensor identifies an exportable device.
type Sensor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ExportArtifact is a produced export file ready for delivery.
type ExportArtifact struct {
	Name     string
	MIMEType string
	Content  []byte
}
