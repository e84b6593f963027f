// Package xerrors provides the closed set of error kinds shared by every
// connectivity-core component.
package xerrors

import (
	"errors"
	"fmt"
)

// Kind is one of the eight error kinds named in the error handling design.
type Kind string

const (
	KindTransport      Kind = "transport"
	KindRateLimit      Kind = "rate_limit"
	KindAuthentication Kind = "authentication"
	KindValidation     Kind = "validation"
	KindDiscovery      Kind = "discovery"
	KindStore          Kind = "store"
	KindLockUnavailable Kind = "lock_unavailable"
	KindConfiguration  Kind = "configuration"
)

// CoreError wraps an error with the kind, operation, and optional cause.
type CoreError struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *CoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *CoreError) Unwrap() error { return e.Err }

// Is reports whether target is a *CoreError with the same Kind.
func (e *CoreError) Is(target error) bool {
	var ce *CoreError
	if errors.As(target, &ce) {
		return ce.Kind == e.Kind
	}
	return false
}

// New builds a CoreError with no cause.
func New(kind Kind, op, msg string) *CoreError {
	return &CoreError{Kind: kind, Op: op, Msg: msg}
}

// Wrap builds a CoreError carrying an upstream cause.
func Wrap(kind Kind, op, msg string, err error) *CoreError {
	return &CoreError{Kind: kind, Op: op, Msg: msg, Err: err}
}

// OfKind constructs a sentinel used purely for errors.Is comparisons.
func OfKind(kind Kind) *CoreError {
	return &CoreError{Kind: kind}
}

// KindOf extracts the Kind from err, if it is (or wraps) a *CoreError.
func KindOf(err error) (Kind, bool) {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}
