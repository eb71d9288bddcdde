// Package auth provides the unverified token payload decoder.
package auth

import (
	"log/slog"

	"farmlink/internal/domain/service"

	"github.com/golang-jwt/jwt/v5"
)

// payloadDecoder extracts the user id from a compact token's claims without
// verifying the signature. Trust is delegated to the backend, which validates
// every authenticated request.
type payloadDecoder struct {
	logger *slog.Logger
}

// NewPayloadDecoder creates the token payload decoder.
func NewPayloadDecoder(logger *slog.Logger) service.TokenDecoder {
	return &payloadDecoder{logger: logger}
}

// UserID returns the id claim of the token payload, or "" when the token is
// malformed or carries no recognizable id.
func (d *payloadDecoder) UserID(token string) string {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		d.logger.Debug("token payload decode failed", slog.Any("error", err))

		return ""
	}

	// Backends have shipped the identifier under different claim names.
	for _, key := range []string{"id", "userId", "user_id", "sub"} {
		if v, ok := claims[key].(string); ok && v != "" {
			return v
		}
	}

	return ""
}
