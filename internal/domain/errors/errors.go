// Package errors defines the error kinds surfaced by the sync layer.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies a failure for the caller's recovery policy.
type Kind string

const (
	// KindNetworkOffline means the pre-flight connectivity check failed.
	KindNetworkOffline Kind = "network_offline"
	// KindTimeout means the request exceeded the fixed timeout.
	KindTimeout Kind = "timeout"
	// KindAuthRequired means no bearer token is in the credential store.
	KindAuthRequired Kind = "auth_required"
	// KindAuthInvalid means the server rejected the bearer token (401).
	KindAuthInvalid Kind = "auth_invalid"
	// KindNotRegistered means the backend signalled a missing push registration.
	KindNotRegistered Kind = "not_registered"
	// KindTransient covers other non-2xx responses.
	KindTransient Kind = "transient"
	// KindLocal covers OS, permission, and storage failures.
	KindLocal Kind = "local"
)

// SyncError is a classified failure with an optional server-provided message.
type SyncError struct {
	kind    Kind
	message string
	cause   error
}

// New creates a SyncError of the given kind.
func New(kind Kind, message string) *SyncError {
	return &SyncError{kind: kind, message: message}
}

// Wrap creates a SyncError of the given kind around a cause.
func Wrap(kind Kind, message string, cause error) *SyncError {
	return &SyncError{kind: kind, message: message, cause: cause}
}

func (e *SyncError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.message, e.cause)
	}

	return fmt.Sprintf("%s: %s", e.kind, e.message)
}

// Kind returns the failure classification.
func (e *SyncError) Kind() Kind {
	return e.kind
}

// Message returns the user-facing message.
func (e *SyncError) Message() string {
	return e.message
}

func (e *SyncError) Unwrap() error {
	return e.cause
}

// KindOf returns the classification of err, or KindTransient when err carries
// no SyncError in its tree.
func KindOf(err error) Kind {
	var se *SyncError
	if stderrors.As(err, &se) {
		return se.kind
	}

	return KindTransient
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Predefined errors for conditions with no extra context.
var (
	ErrAuthRequired  = New(KindAuthRequired, "sign in required")
	ErrAuthInvalid   = New(KindAuthInvalid, "session expired, sign in again")
	ErrNotRegistered = New(KindNotRegistered, "push registration missing")
	ErrOffline       = New(KindNetworkOffline, "network unavailable")
)
