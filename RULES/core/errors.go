package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// Exit codes of the runner.
const (
	ExitSuccess     = 0 // All tests pass
	ExitTestFailure = 1 // Test failures
	ExitRuntimeErr  = 2 // Configuration or tool errors
)

// RuntimeError represents an operational error that should lead to exit code 2.
// Examples include configuration errors, missing source files, etc.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError represents failing tests (exit code 1)
type TestFailureError struct {
	Message string
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("test failure: %s", e.Message)
}

func NewTestFailureError(message string) *TestFailureError {
	return &TestFailureError{Message: message}
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}

// StepError is returned when the command of a build step exits with a non-zero status.
type StepError struct {
	Descr    string
	ExitCode int
	Output   string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s failed with exit code %d", e.Descr, e.ExitCode)
}

// ExitCode maps an error returned by the runner to a process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case IsTestFailureError(err):
		return ExitTestFailure
	default:
		return ExitRuntimeErr
	}
}
