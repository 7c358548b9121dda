package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies remote-call failures. The core treats all three the
// same way: record a human-readable message and stop the operation.
type ErrorKind string

const (
	KindUnavailable ErrorKind = "unavailable"
	KindRejected    ErrorKind = "rejected"
	KindNotFound    ErrorKind = "not_found"
)

// ServiceError is a failure from one of the remote collaborators.
type ServiceError struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Op, e.Message, e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v (%s)", e.Op, e.Err, e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a classified remote-call failure.
func NewServiceError(kind ErrorKind, op, message string, err error) *ServiceError {
	return &ServiceError{Kind: kind, Op: op, Message: message, Err: err}
}

// KindOf extracts the error kind, defaulting to unavailable for anything
// that is not a ServiceError (transport errors, timeouts).
func KindOf(err error) ErrorKind {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnavailable
}

// IsNotFound reports whether err is a stale-id failure.
func IsNotFound(err error) bool {
	var se *ServiceError
	return errors.As(err, &se) && se.Kind == KindNotFound
}
