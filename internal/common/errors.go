// Package common defines shared constants and sentinel errors used across
// the client and server layers of omnidesk. Callers should use errors.Is and
// errors.As to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an update, delete or get matched zero rows
	// visible to the acting tenant.
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated is returned when a write or tenant-scoped read is
	// attempted without a session, or when the backend rejects the session.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrValidation marks input rejected before or by the backend.
	ErrValidation = errors.New("validation error")

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// RemoteError wraps a transport or server failure reported by the table
// backend. It never wraps ErrNotFound or ErrUnauthenticated.
type RemoteError struct {
	Op    string
	Table string
	Err   error
}

func (e *RemoteError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// NewRemoteError builds a RemoteError.
func NewRemoteError(op, table string, err error) *RemoteError {
	return &RemoteError{Op: op, Table: table, Err: err}
}

// IsRemote reports whether err carries a RemoteError anywhere in its chain.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// ValidationError describes a rejected field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
