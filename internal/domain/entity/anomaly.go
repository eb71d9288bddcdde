package entity

import (
	"strings"
	"time"
)

// Severity is the canonical alert severity of an anomaly event.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// EventSource distinguishes server-side anomaly history records from
// locally-delivered push notifications.
type EventSource string

const (
	SourceServer EventSource = "server"
	SourceLocal  EventSource = "local"
)

// SensorSnapshot captures the sensor readings attached to an anomaly.
type SensorSnapshot struct {
	Temperature *float64 `json:"temperature,omitempty"`
	Humidity    *float64 `json:"humidity,omitempty"`
	VPD         *float64 `json:"vpd,omitempty"`
	DewPoint    *float64 `json:"dewPoint,omitempty"`
}

// Empty reports whether every reading is absent.
func (s SensorSnapshot) Empty() bool {
	return s.Temperature == nil && s.Humidity == nil && s.VPD == nil && s.DewPoint == nil
}

// AnomalyEvent is the canonical event shape the feed exposes, merged from
// server anomaly history and the local notification journal.
type AnomalyEvent struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Message           string          `json:"message"`
	DeviceLabel       string          `json:"deviceLabel"`
	Severity          Severity        `json:"severity"`
	Timestamp         time.Time       `json:"timestamp"`
	Resolved          bool            `json:"resolved"`
	Confidence        float64         `json:"confidence,omitempty"`
	DetectionMethod   string          `json:"detectionMethod,omitempty"`
	MLBacked          bool            `json:"mlBacked"`
	RecommendedAction string          `json:"recommendedAction,omitempty"`
	Snapshot          *SensorSnapshot `json:"sensorSnapshot,omitempty"`
	Source            EventSource     `json:"source"`
	Read              bool            `json:"read"`
}

// MapSeverity derives the canonical severity from the server's color code and
// severity word. The color wins when both are present; the newer backend code
// paths report color exclusively.
func MapSeverity(alertLevel, severity string) Severity {
	switch strings.ToLower(alertLevel) {
	case "red":
		return SeverityCritical
	case "yellow":
		return SeverityWarning
	case "green":
		return SeverityInfo
	}

	switch strings.ToLower(severity) {
	case "critical", "high":
		return SeverityCritical
	case "medium":
		return SeverityWarning
	case "low":
		return SeverityInfo
	}

	return SeverityInfo
}

// anomalyTitles maps backend anomaly types to display titles.
var anomalyTitles = map[string]string{
	"sudden_spike":      "Sudden Spike Detected",
	"sudden_drop":       "Sudden Drop Detected",
	"sensor_failure":    "Sensor Failure",
	"gradual_drift":     "Gradual Drift Detected",
	"temperature_high":  "High Temperature Alert",
	"temperature_low":   "Low Temperature Alert",
	"humidity_high":     "High Humidity Alert",
	"humidity_low":      "Low Humidity Alert",
	"vpd_out_of_range":  "VPD Out of Range",
	"device_offline":    "Device Offline",
	"ml_detected":       "ML Anomaly Detected",
	"threshold_breach":  "Threshold Breach",
	"connection_lost":   "Connection Lost",
	"battery_low":       "Low Battery Warning",
	"calibration_drift": "Calibration Drift",
}

// TitleForAnomalyType returns the display title for a backend anomaly type.
// Unknown types fall back to "System Alert".
func TitleForAnomalyType(anomalyType string) string {
	if title, ok := anomalyTitles[strings.ToLower(anomalyType)]; ok {
		return title
	}

	return "System Alert"
}

// AnomalyStats summarizes anomaly history over a trailing window.
type AnomalyStats struct {
	TotalAnomalies  int              `json:"total_anomalies"`
	ResolvedCount   int              `json:"resolved_count"`
	UnresolvedCount int              `json:"unresolved_count"`
	AlertStats      []AlertLevelStat `json:"alertStats"`
}

// AlertLevelStat is a per-alert-level count within AnomalyStats.
type AlertLevelStat struct {
	AlertLevel string `json:"alertLevel"`
	Count      int    `json:"count"`
}
