// Package entity contains the core business objects of the project.
package entity

// Credential is the persisted authentication triple for the signed-in user.
// UserID, when present, was derived from the payload of Token at sign-in.
type Credential struct {
	Token       string `json:"token"`        // Opaque bearer token issued by the platform backend.
	UserID      string `json:"user_id"`      // Stable user identifier extracted at sign-in.
	DeviceToken string `json:"device_token"` // Cached push device token for this installation.
}

// HasToken reports whether a bearer token is present.
func (c Credential) HasToken() bool {
	return c.Token != ""
}

// DeviceInfo describes this installation to the backend at push registration.
// Missing fields are reported as "unknown".
type DeviceInfo struct {
	Platform   string `json:"platform"`
	DeviceName string `json:"deviceName"`
	OSVersion  string `json:"osVersion"`
	AppVersion string `json:"appVersion"`
	DeviceID   string `json:"deviceId"`
}

// Normalize fills missing device fields with "unknown".
func (d DeviceInfo) Normalize() DeviceInfo {
	fill := func(s string) string {
		if s == "" {
			return "unknown"
		}
		return s
	}

	return DeviceInfo{
		Platform:   fill(d.Platform),
		DeviceName: fill(d.DeviceName),
		OSVersion:  fill(d.OSVersion),
		AppVersion: fill(d.AppVersion),
		DeviceID:   fill(d.DeviceID),
	}
}
