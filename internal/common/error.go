// Package common defines shared sentinel errors and small helpers used
// across cartsync components. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound          = errors.New("not found")
	ErrDuplicateIdentity = errors.New("username or email already registered")

	// Credential / session errors.
	ErrInvalidCredential = errors.New("invalid credentials")
	ErrUnauthenticated   = errors.New("not authenticated")
	ErrMalformedToken    = errors.New("malformed token")

	// Validation errors (username/email/password format).
	ErrValidation = errors.New("validation error")

	// Vault errors.
	ErrDecryption = errors.New("decryption failed")

	// Reconciliation errors.
	ErrEmptyRemote = errors.New("no remote data to download")

	// Generic internal failure not attributable to caller input.
	ErrInternal = errors.New("internal error")
)
