package usecase

import "context"

// SessionUsecase owns the sign-in lifecycle and the lifetime of the push
// listeners that feed the notification journal.
type SessionUsecase interface {
	// Start wires inbound push listeners and, when a credential is already
	// stored, opportunistically drives registration. Never returns a hard
	// error for registration failures.
	Start(ctx context.Context) error

	// SignIn exchanges credentials for a token, persists it, and re-runs
	// registration for the new identity.
	SignIn(ctx context.Context, email, password string) error

	// SignOut clears the stored token and user id, cancels listeners, and
	// keeps the device token for the next sign-in.
	SignOut(ctx context.Context) error

	// Stop cancels push listeners. Safe to call more than once.
	Stop()
}
