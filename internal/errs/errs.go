// Package errs classifies collaborator failures so handlers can map them to
// user-visible messages without inspecting provider-specific details.
package errs

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the failure category of a collaborator call.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConfigMissing means a required credential or setting is absent.
	KindConfigMissing
	// KindTimeout means the collaborator exceeded its deadline.
	KindTimeout
	// KindRateLimited means the upstream provider throttled the request.
	KindRateLimited
	// KindAuthRejected means the credential was rejected by the provider.
	KindAuthRejected
	// KindUnavailable means the provider returned a server-side failure.
	KindUnavailable
	// KindValidation means the user input was rejected before any call.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindConfigMissing:
		return "config_missing"
	case KindTimeout:
		return "timeout"
	case KindRateLimited:
		return "rate_limited"
	case KindAuthRejected:
		return "auth_rejected"
	case KindUnavailable:
		return "unavailable"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error carries a failure kind alongside the underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a classified error.
func New(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf builds a classified error from a format string.
func Newf(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the failure kind from an error chain. Context deadline
// errors classify as timeouts even when unwrapped from transport errors.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}
