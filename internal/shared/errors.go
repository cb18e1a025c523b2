package shared

import "errors"

// Sentinel errors shared across the session and auth plumbing. Domain
// packages carry their own sentinels in internal/platform/httpx.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates a failed login attempt.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when a mutating request omits the token.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when the token does not match the session.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
