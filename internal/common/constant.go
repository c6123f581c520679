package common

// StatusAuthRejected is the HTTP status the origin answers with when the
// bearer credential is no longer accepted.
const StatusAuthRejected = 209

// Metadata keys owned by the sync engine.
const (
	CursorKey     = "poll:contracts"
	CredentialKey = "auth"
)

// RequestIDHeaderName carries the per-request id on the public API.
const RequestIDHeaderName = "X-Request-Id"
