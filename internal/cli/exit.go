package cli

import (
	"errors"
	"fmt"
)

// Exit codes. Failure means the command ran and the declarations or
// scenarios were found wanting; command error means the command itself
// could not do its job.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // scenario, golden, or validation failure
	ExitCommandError = 2 // bad paths, unreadable input, bad flags
)

// ExitError carries an exit code alongside the error message so main can
// translate command failures into process exit status.
type ExitError struct {
	Code    int
	Message string
	Err     error // optional underlying cause
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError returns an ExitError with no underlying cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code and context to an existing error.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode finds the exit code for an error, looking through wrap
// chains for an ExitError. Plain errors map to ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
