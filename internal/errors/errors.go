package errors

import (
	"errors"
	"fmt"
)

// Common error types for the session client and the reference auth API
var (
	// Storage errors
	ErrNotFound = errors.New("not found")

	// Token errors
	ErrInvalidToken        = errors.New("invalid token")
	ErrMalformedToken      = errors.New("malformed token")
	ErrMissingExpiry       = errors.New("token missing exp claim")
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenRevoked        = errors.New("token revoked")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Session errors
	ErrNoRefreshToken  = errors.New("no refresh token available")
	ErrRefreshRejected = errors.New("refresh rejected")
	ErrStaleRefresh    = errors.New("refresh result superseded")
	ErrLoginRejected   = errors.New("login rejected")

	// Authentication errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserBlocked        = errors.New("user is blocked")
	ErrUserNotFound       = errors.New("user not found")

	// Document errors
	ErrNoDocument = errors.New("no document available")

	// General errors
	ErrInvalidRequest = errors.New("invalid request")
	ErrInternal       = errors.New("internal error")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Join combines errs, discarding nils
func Join(errs ...error) error {
	return errors.Join(errs...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
