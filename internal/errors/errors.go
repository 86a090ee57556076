package errors

import (
	"errors"
	"time"
)

var (
	ErrTooManyLoginAttempts      = errors.New("too many failed login attempts")
	ErrInvalidCredentials        = errors.New("invalid credentials")
	ErrEmailAlreadyInUse         = errors.New("email already in use")
	ErrAccountLocked             = errors.New("account temporarily locked")
	ErrAccountDeactivated        = errors.New("account deactivated")
	ErrRefreshTokenNotFound      = errors.New("refresh token not found")
	ErrRefreshTokenExpired       = errors.New("refresh token expired")
	ErrDeviceFingerprintMismatch = errors.New("device fingerprint mismatch")
	ErrTokenExpired              = errors.New("token expired")
	ErrTokenInvalid              = errors.New("token invalid")
	ErrTokenWrongType            = errors.New("token type mismatch")
	ErrActionTokenInvalid        = errors.New("invalid or expired token")
	ErrWeakPassword              = errors.New("password does not meet requirements")
	ErrRateLimited               = errors.New("rate limit exceeded")
)

// AccountLockedError carries the lockout deadline so handlers can tell the
// client when to retry. It matches ErrAccountLocked under errors.Is.
type AccountLockedError struct {
	LockUntil time.Time
}

func (e *AccountLockedError) Error() string {
	return ErrAccountLocked.Error()
}

func (e *AccountLockedError) Unwrap() error {
	return ErrAccountLocked
}
