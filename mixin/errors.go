package mixin

import (
	"errors"
	"fmt"
)

// CompositionError represents a failure while constructing or applying a
// behavior set.
//
// Composition errors include:
//   - Invalid target: apply was given a nil or non-extensible target, or
//     the install would need to replace a read-only member
//   - Invalid definition: a behavior set was constructed from unusable
//     input (empty member name, nil operation, nil shared value)
//
// CompositionError includes structured fields for diagnostics.
type CompositionError struct {
	// Code identifies the error category.
	Code CompositionErrorCode

	// Message is a human-readable description.
	Message string

	// Behavior is the label of the behavior set involved.
	Behavior string

	// Target is the label of the target object (for apply errors).
	Target string

	// Member is the member name involved, if any.
	Member string
}

// CompositionErrorCode categorizes composition errors.
type CompositionErrorCode string

const (
	// ErrCodeInvalidTarget indicates apply was given a target that cannot
	// accept the install. No partial mutation occurs.
	ErrCodeInvalidTarget CompositionErrorCode = "INVALID_TARGET"

	// ErrCodeInvalidDefinition indicates a behavior set definition is
	// unusable.
	ErrCodeInvalidDefinition CompositionErrorCode = "INVALID_DEFINITION"
)

// Error implements the error interface.
func (e *CompositionError) Error() string {
	switch {
	case e.Behavior != "" && e.Target != "":
		return fmt.Sprintf("%s: %s (behavior=%s, target=%s)", e.Code, e.Message, e.Behavior, e.Target)
	case e.Behavior != "":
		return fmt.Sprintf("%s: %s (behavior=%s)", e.Code, e.Message, e.Behavior)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// IsInvalidTarget returns true if the error is an invalid-target error.
// Uses errors.As to handle wrapped errors.
func IsInvalidTarget(err error) bool {
	var ce *CompositionError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeInvalidTarget
	}
	return false
}

// IsInvalidDefinition returns true if the error is an invalid-definition
// error. Uses errors.As to handle wrapped errors.
func IsInvalidDefinition(err error) bool {
	var ce *CompositionError
	if errors.As(err, &ce) {
		return ce.Code == ErrCodeInvalidDefinition
	}
	return false
}

// NewInvalidTargetError creates a CompositionError for a rejected target.
func NewInvalidTargetError(behavior, target, message string) *CompositionError {
	return &CompositionError{
		Code:     ErrCodeInvalidTarget,
		Message:  message,
		Behavior: behavior,
		Target:   target,
	}
}

// NewInvalidDefinitionError creates a CompositionError for unusable
// behavior set input.
func NewInvalidDefinitionError(behavior, member, message string) *CompositionError {
	return &CompositionError{
		Code:     ErrCodeInvalidDefinition,
		Message:  message,
		Behavior: behavior,
		Member:   member,
	}
}
