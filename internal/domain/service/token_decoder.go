package service

// TokenDecoder extracts the user identifier from a compact signed token's
// payload. Signature, issuer, and expiry are the backend's responsibility.
// Malformed input yields the empty string, never an error.
type TokenDecoder interface {
	UserID(token string) string
}
