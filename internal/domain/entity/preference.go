package entity

import (
	"strconv"
	"strings"
	"time"
)

// PreferenceSet holds the user's notification preferences. All keys are
// optional on the wire; absent keys take the documented defaults.
type PreferenceSet struct {
	Enabled           bool   `json:"enabled"`
	AnomalyAlerts     bool   `json:"anomalyAlerts"`
	CriticalOnly      bool   `json:"criticalOnly"`
	DeviceAlerts      bool   `json:"deviceAlerts"`
	SystemAlerts      bool   `json:"systemAlerts"`
	SoundEnabled      bool   `json:"soundEnabled"`
	VibrationEnabled  bool   `json:"vibrationEnabled"`
	QuietHoursEnabled bool   `json:"quietHoursEnabled"`
	QuietStart        string `json:"quietStart"` // Local wall-clock, "HH:MM".
	QuietEnd          string `json:"quietEnd"`   // Wraps past midnight when start > end.
}

// DefaultPreferences returns the documented defaults.
func DefaultPreferences() PreferenceSet {
	return PreferenceSet{
		Enabled:           true,
		AnomalyAlerts:     true,
		CriticalOnly:      false,
		DeviceAlerts:      true,
		SystemAlerts:      true,
		SoundEnabled:      true,
		VibrationEnabled:  true,
		QuietHoursEnabled: false,
		QuietStart:        "22:00",
		QuietEnd:          "07:00",
	}
}

// MergeOntoDefaults overlays the keys present in raw onto the defaults.
// Unknown keys are ignored; malformed values fall back to the default.
func MergeOntoDefaults(raw map[string]any) PreferenceSet {
	p := DefaultPreferences()
	if raw == nil {
		return p
	}

	boolKey := func(key string, dst *bool) {
		if v, ok := raw[key].(bool); ok {
			*dst = v
		}
	}
	timeKey := func(key string, dst *string) {
		if v, ok := raw[key].(string); ok && validClock(v) {
			*dst = v
		}
	}

	boolKey("enabled", &p.Enabled)
	boolKey("anomalyAlerts", &p.AnomalyAlerts)
	boolKey("criticalOnly", &p.CriticalOnly)
	boolKey("deviceAlerts", &p.DeviceAlerts)
	boolKey("systemAlerts", &p.SystemAlerts)
	boolKey("soundEnabled", &p.SoundEnabled)
	boolKey("vibrationEnabled", &p.VibrationEnabled)
	boolKey("quietHoursEnabled", &p.QuietHoursEnabled)
	timeKey("quietStart", &p.QuietStart)
	timeKey("quietEnd", &p.QuietEnd)

	return p
}

// QuietHoursActive reports whether the given local time falls inside the
// configured quiet window. A window whose start is after its end wraps past
// midnight.
func (p PreferenceSet) QuietHoursActive(now time.Time) bool {
	if !p.QuietHoursEnabled {
		return false
	}

	t := now.Hour()*60 + now.Minute()
	s, okS := clockMinutes(p.QuietStart)
	e, okE := clockMinutes(p.QuietEnd)
	if !okS || !okE {
		return false
	}

	if s <= e {
		return s <= t && t < e
	}

	return t >= s || t < e
}

// ShouldEmit applies the preference switches and the quiet-hours gate to an
// incoming event. The enabled master switch suppresses everything; below it,
// critical events bypass the remaining filters including quiet hours.
func (p PreferenceSet) ShouldEmit(severity Severity, now time.Time) bool {
	if !p.Enabled {
		return false
	}
	if severity == SeverityCritical {
		return true
	}
	if !p.AnomalyAlerts {
		return false
	}
	if p.CriticalOnly {
		return false
	}
	if p.QuietHoursActive(now) {
		return false
	}

	return true
}

func clockMinutes(s string) (int, bool) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}

	return h*60 + m, true
}

func validClock(s string) bool {
	_, ok := clockMinutes(s)

	return ok
}
