// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates failed authentication. Deliberately
	// undifferentiated: bad username and bad password look identical.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrAccessDenied indicates an authorization failure on a resource.
	ErrAccessDenied = errors.New("access denied")

	// ErrAlreadyExists indicates a unique constraint violation (username/email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrIdentityNotFound indicates the account behind a validated refresh
	// token no longer exists; fatal for that session.
	ErrIdentityNotFound = errors.New("identity not found")

	// ErrInvalidInput indicates a request that fails service-level validation
	// (blank required fields, unknown enum values). Maps to 400 at the edge.
	ErrInvalidInput = errors.New("invalid input")
)

// Access-token verification collapses every failure into this single sentinel
// so callers cannot distinguish signature, structure, and expiry problems.
var ErrTokenInvalid = errors.New("invalid token")

// Refresh-token lifecycle failures stay distinguishable: the value is opaque
// to clients, so its ledger state is not sensitive.
var (
	ErrTokenNotFound = errors.New("refresh token not found")
	ErrTokenRevoked  = errors.New("refresh token revoked")
	ErrTokenExpired  = errors.New("refresh token expired")
)
