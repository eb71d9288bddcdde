// Package usecase defines the application-facing contracts of the sync layer.
package usecase

import "context"

// RegistrationState is the push-registration state for the current session.
type RegistrationState string

const (
	StateUnknown             RegistrationState = "unknown"
	StateUnauthenticated     RegistrationState = "unauthenticated"
	StateNeedPermission      RegistrationState = "need_permission"
	StateNeedDeviceToken     RegistrationState = "need_device_token"
	StateNeedBackendRegister RegistrationState = "need_backend_register"
	StateRegistered          RegistrationState = "registered"
)

// RegistrationUsecase is the idempotent state machine that ensures the device
// token is known to the backend before preference or test-notification
// operations proceed. It is the sole serializer for permission, device-token,
// and backend-registration transitions.
type RegistrationUsecase interface {
	// EnsureRegistered drives the machine toward Registered as far as the
	// current permission and credential state allow, and returns the state
	// reached. Repeated calls are safe; a successful backend registration for
	// the current (user, deviceToken) pair is not repeated.
	EnsureRegistered(ctx context.Context) (RegistrationState, error)

	// State returns the last reached state without driving transitions.
	State() RegistrationState

	// Invalidate reverts a Registered machine to NeedBackendRegister, used
	// when the backend signals the registration went missing.
	Invalidate()

	// Reset returns the machine to Unknown, dropping the per-pair
	// registration memory. Called on sign-in so a rotated device token or a
	// new user is re-registered.
	Reset()
}
