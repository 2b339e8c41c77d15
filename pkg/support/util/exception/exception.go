// Package exception provides the error type returned by migration steps.
// A MigrationError records which module failed, a short message, the wrapped cause
// and whether the caller may retry once the underlying condition is fixed.
package exception

import (
	"errors"
	"fmt"
	"runtime"
)

// MigrationError is returned when a forward migration aborts.
type MigrationError struct {
	// Module identifies where the error occurred (a step ID, "config", "mongodb", ...).
	Module string
	// Message is a concise description of the failed sub-step.
	Message string
	// OriginalErr is the wrapped cause.
	OriginalErr error
	// isRetryable reports whether re-running the step is expected to succeed
	// once the cause is fixed.
	isRetryable bool
	// StackTrace is captured at construction for debugging.
	StackTrace string
}

// NewMigrationError creates a new MigrationError.
func NewMigrationError(module, message string, originalErr error, isRetryable bool) *MigrationError {
	return &MigrationError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		isRetryable: isRetryable,
		StackTrace:  captureStack(),
	}
}

// NewMigrationErrorf creates a non-retryable MigrationError with a formatted message.
// If the last argument is an error it is wrapped instead of formatted.
func NewMigrationErrorf(module, format string, a ...interface{}) *MigrationError {
	var originalErr error
	args := a
	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	return &MigrationError{
		Module:      module,
		Message:     fmt.Sprintf(format, args...),
		OriginalErr: originalErr,
		StackTrace:  captureStack(),
	}
}

func captureStack() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// Error implements the error interface.
func (e *MigrationError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Is and errors.As.
func (e *MigrationError) Unwrap() error {
	return e.OriginalErr
}

// IsRetryable reports whether this error is retryable.
func (e *MigrationError) IsRetryable() bool {
	return e.isRetryable
}

// IsMigrationError reports whether err is, or wraps, a MigrationError.
func IsMigrationError(err error) bool {
	var me *MigrationError
	return errors.As(err, &me)
}

// IsRetryable reports whether err is a retryable MigrationError anywhere in its chain.
func IsRetryable(err error) bool {
	var me *MigrationError
	if errors.As(err, &me) {
		return me.IsRetryable()
	}
	return false
}

// ExtractErrorMessage returns the Message of a MigrationError, or err.Error() otherwise.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var me *MigrationError
	if errors.As(err, &me) {
		return me.Message
	}
	return err.Error()
}
