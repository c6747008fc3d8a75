package decorate

import (
	"errors"
	"fmt"
)

// InvocationError represents a failure surfaced by a decorated invocation
// or a direct store access.
//
// Invocation errors include:
//   - Invalid identity kind: a value-typed receiver was used as a state
//     key; only object references (and the no-receiver sentinel) carry
//     identity
//   - Missing arguments: a require-all decorated operation was invoked
//     with fewer arguments than its declared arity, signaling a call-site
//     bug
//
// Policies that suppress repeat invocations past their limit do NOT error;
// suppression is reported only through the Undefined return value, since
// repetition is expected there, not erroneous.
type InvocationError struct {
	// Code identifies the error category.
	Code InvocationErrorCode

	// Message is a human-readable description.
	Message string

	// Operation is the diagnostic name of the operation involved, if any.
	Operation string

	// Details contains additional context.
	Details map[string]string
}

// InvocationErrorCode categorizes invocation errors.
type InvocationErrorCode string

const (
	// ErrCodeInvalidIdentityKind indicates a value-typed key reached the
	// identity-keyed store.
	ErrCodeInvalidIdentityKind InvocationErrorCode = "INVALID_IDENTITY_KIND"

	// ErrCodeMissingArguments indicates an under-arity call through a
	// require-all decorator.
	ErrCodeMissingArguments InvocationErrorCode = "MISSING_ARGUMENTS"
)

// Error implements the error interface.
func (e *InvocationError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("%s: %s (operation=%s)", e.Code, e.Message, e.Operation)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvalidIdentityKind returns true if the error is an identity-kind
// error. Uses errors.As to handle wrapped errors.
func IsInvalidIdentityKind(err error) bool {
	var ie *InvocationError
	if errors.As(err, &ie) {
		return ie.Code == ErrCodeInvalidIdentityKind
	}
	return false
}

// IsMissingArguments returns true if the error is a missing-arguments
// error. Uses errors.As to handle wrapped errors.
func IsMissingArguments(err error) bool {
	var ie *InvocationError
	if errors.As(err, &ie) {
		return ie.Code == ErrCodeMissingArguments
	}
	return false
}

// NewInvalidIdentityKindError creates an InvocationError for a value-typed
// state key.
func NewInvalidIdentityKindError(kind string) *InvocationError {
	return &InvocationError{
		Code:    ErrCodeInvalidIdentityKind,
		Message: fmt.Sprintf("state keys need reference identity, got %s", kind),
		Details: map[string]string{"kind": kind},
	}
}

// NewMissingArgumentsError creates an InvocationError for an under-arity
// call.
func NewMissingArgumentsError(operation string, declared, supplied int) *InvocationError {
	return &InvocationError{
		Code:      ErrCodeMissingArguments,
		Message:   fmt.Sprintf("operation wants %d arguments, got %d", declared, supplied),
		Operation: operation,
		Details: map[string]string{
			"declared_arity": fmt.Sprintf("%d", declared),
			"supplied":       fmt.Sprintf("%d", supplied),
		},
	}
}
