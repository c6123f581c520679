// Package common defines shared constants and sentinel errors used across
// casely components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors.
	ErrorInternal    = errors.New("internal error")
	ErrNotConfigured = errors.New("not configured")

	// Origin errors. ErrAuthRejected pauses ingestion until a new credential
	// is saved; the other two only abort the current unit of work.
	ErrAuthRejected      = errors.New("origin rejected credential")
	ErrTransport         = errors.New("origin transport error")
	ErrMalformedResponse = errors.New("malformed origin response")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
)
