package entity

import "time"

// NotificationChannel selects the delivery channel metadata for a local
// notification.
type NotificationChannel string

const (
	ChannelDefault  NotificationChannel = "default"
	ChannelCritical NotificationChannel = "critical"
	ChannelAnomaly  NotificationChannel = "anomaly"
)

// LocalNotification is an entry in the bounded local notification journal.
type LocalNotification struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Read      bool              `json:"read"`
}

// ToAnomalyEvent maps a journal entry to the canonical feed shape. Severity
// and device label are recovered from the payload data when present.
func (n LocalNotification) ToAnomalyEvent() AnomalyEvent {
	severity := MapSeverity(n.Data["alertLevel"], n.Data["severity"])

	return AnomalyEvent{
		ID:          n.ID,
		Title:       n.Title,
		Message:     n.Body,
		DeviceLabel: n.Data["deviceName"],
		Severity:    severity,
		Timestamp:   n.Timestamp,
		Resolved:    n.Read,
		Source:      SourceLocal,
		Read:        n.Read,
	}
}
