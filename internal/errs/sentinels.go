// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., username taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidCredentials is the single reject reason for failed logins.
	// Unknown username and wrong password both map here.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrStoreUnavailable wraps connectivity failures and timeouts of the storage layer.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrUserVanished indicates the session user no longer exists in storage.
	ErrUserVanished = errors.New("user vanished")

	// ErrNoActiveSession indicates an operation requires a logged-in user.
	ErrNoActiveSession = errors.New("no active session")

	// ErrInvalidInput indicates caller-supplied data failed validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrGeneration indicates the recipe generator failed or returned nothing.
	ErrGeneration = errors.New("recipe generation failed")
)
