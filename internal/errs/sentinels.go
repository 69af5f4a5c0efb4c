// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation on a natural key.
	ErrAlreadyExists = errors.New("already exists")

	// ErrAlreadyRedeemed indicates the user has already redeemed this grant code.
	ErrAlreadyRedeemed = errors.New("grant already redeemed")

	// ErrGrantInactive indicates the grant is archived or expired.
	ErrGrantInactive = errors.New("grant inactive")

	// ErrUnauthenticated indicates a missing or unknown credential.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrTokenExpired indicates the credential was valid once but is no longer usable.
	ErrTokenExpired = errors.New("token expired")

	// ErrForbidden indicates the caller lacks the capability for the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrConstraintViolation indicates a storage constraint rejected the write.
	ErrConstraintViolation = errors.New("constraint violation")

	// ErrInvalidArgument indicates malformed caller input.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrRateLimited indicates a temporary lock due to repeated failures.
	ErrRateLimited = errors.New("rate limited")

	// ErrInvalidConfiguration indicates an unusable configuration value.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)
