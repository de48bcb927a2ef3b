// Package common defines sentinel errors shared by the client and server
// layers of recipesync. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Payload and reference errors, reported per batch item.
	ErrUnknownEntityType = errors.New("unknown entity type")
	ErrInvalidPayload    = errors.New("invalid payload")
	ErrMissingReference  = errors.New("missing reference")

	// Auth errors.
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrAuthDisabled = errors.New("device enrollment is disabled")
)
