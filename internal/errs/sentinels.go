// Package errs contains sentinel errors shared by services and the HTTP layer.
package errs

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist or was removed.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a uniqueness violation (branch name, username within a branch).
	ErrConflict = errors.New("conflict")

	// ErrValidation indicates malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized indicates bad credentials or a missing/expired token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates an authenticated caller without permission.
	ErrForbidden = errors.New("forbidden")

	// ErrRateLimited indicates too many login attempts.
	ErrRateLimited = errors.New("rate limited")
)
