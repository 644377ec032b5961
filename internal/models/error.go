package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Authentication failures. ErrInvalidCredentials is returned identically
	// for "no such account" and "wrong password" so callers cannot probe for
	// registered email addresses.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrAccountDeleted     = errors.New("account has been deleted")
	ErrAccountInactive    = errors.New("account is not active")
	ErrEmailNotVerified   = errors.New("email address not verified")

	// Token verification failures, distinguishable so callers can tell a
	// stale link apart from a forged one.
	ErrTokenExpired         = errors.New("token has expired")
	ErrTokenInvalid         = errors.New("token is malformed or has an invalid signature")
	ErrTokenPurposeMismatch = errors.New("token was issued for a different purpose")

	// ErrDispatchFailed means the mail collaborator rejected a send. During
	// registration it triggers the compensating rollback of the new account.
	ErrDispatchFailed = errors.New("failed to dispatch email")

	// ErrValidation covers malformed input such as a mismatched password
	// confirmation.
	ErrValidation = errors.New("validation failed")
)
