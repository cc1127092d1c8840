package errors

import (
	"errors"
	"fmt"
)

// Errors surfaced by the authsession command
var (
	// Configuration errors
	ErrNoTokenEndpoint = errors.New("no token endpoint configured: set TOKEN_URL or ISSUER_URL")
	ErrUnknownBackend  = errors.New("unknown store backend")

	// Session errors
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrRenewalPending = errors.New("session renewal did not finish in time")

	// Input errors
	ErrMissingUsername = errors.New("username cannot be empty")
	ErrMissingPassword = errors.New("password cannot be empty")
	ErrInvalidConsent  = errors.New("consent must be one of grant, revoke or show")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
