// Package service defines contracts for external collaborators of the use cases.
package service

import (
	"context"

	"farmlink/internal/domain/entity"
)

// PermissionStatus is the OS notification-permission state.
type PermissionStatus struct {
	Granted     bool
	CanAskAgain bool
}

// InboundNotification is a push delivered to this installation.
type InboundNotification struct {
	Title string
	Body  string
	Data  map[string]string
}

// LocalPush is a locally scheduled notification. Delivery happens after a
// short fixed delay on the selected channel.
type LocalPush struct {
	Title   string
	Body    string
	Data    map[string]string
	Channel entity.NotificationChannel
}

// ReceiveHandler consumes inbound notifications.
type ReceiveHandler func(n InboundNotification)

// CancelFunc tears down a subscription. Calling it more than once is safe.
type CancelFunc func()

// PushTransport abstracts the platform push subsystem. Implementations must
// never fail ObtainDeviceToken: on simulator builds or retrieval failure they
// return a recognizable synthetic placeholder instead.
type PushTransport interface {
	QueryPermission(ctx context.Context) (PermissionStatus, error)

	// RequestPermission prompts the user when possible. Repeated calls after
	// a grant return true without prompting.
	RequestPermission(ctx context.Context) (bool, error)

	ObtainDeviceToken(ctx context.Context, projectID string) string

	// Subscribe installs handlers for inbound deliveries and user responses.
	Subscribe(onReceive, onUserResponse ReceiveHandler) (CancelFunc, error)

	ScheduleLocal(ctx context.Context, push LocalPush) error

	// EnsureChannels creates the default, critical, and anomaly channels with
	// their importance, vibration, and light metadata. Idempotent.
	EnsureChannels(ctx context.Context) error
}

// SyntheticTokenPrefixes tag placeholder device tokens so callers can
// recognize them. Both forms are accepted by the backend as opaque.
const (
	SimulatorTokenPrefix = "simulator-push-token-"
	FallbackTokenPrefix  = "fallback-push-token-"
)
