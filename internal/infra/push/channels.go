// Package push implements the platform push transports.
package push

import "farmlink/internal/domain/entity"

// channelSpec carries the delivery metadata registered for a notification
// channel at startup. The critical channel uses the highest importance.
type channelSpec struct {
	ID               entity.NotificationChannel
	Name             string
	Importance       string // FCM android priority bucket
	VibrationPattern []int64
	LightColor       string
	Sound            string
}

var channelSpecs = map[entity.NotificationChannel]channelSpec{
	entity.ChannelDefault: {
		ID:               entity.ChannelDefault,
		Name:             "General",
		Importance:       "high",
		VibrationPattern: []int64{0, 250, 250, 250},
		LightColor:       "#4CAF50",
		Sound:            "default",
	},
	entity.ChannelCritical: {
		ID:               entity.ChannelCritical,
		Name:             "Critical Alerts",
		Importance:       "max",
		VibrationPattern: []int64{0, 500, 250, 500, 250, 500},
		LightColor:       "#F44336",
		Sound:            "default",
	},
	entity.ChannelAnomaly: {
		ID:               entity.ChannelAnomaly,
		Name:             "Anomaly Alerts",
		Importance:       "high",
		VibrationPattern: []int64{0, 400, 200, 400},
		LightColor:       "#FF9800",
		Sound:            "default",
	},
}

// specFor resolves channel metadata, falling back to the default channel.
func specFor(channel entity.NotificationChannel) channelSpec {
	if spec, ok := channelSpecs[channel]; ok {
		return spec
	}

	return channelSpecs[entity.ChannelDefault]
}

// scheduleDelaySeconds is the fixed delay before a locally scheduled
// notification is delivered.
const scheduleDelaySeconds = 2
