package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents a fatal error detected while running the loop.
//
// Runtime errors include:
//   - Source failure: the event source returned an error other than
//     context cancellation
//   - Machine failure: a hardware command failed, or the machine reached
//     a state it does not know
//
// Authentication failures and credential store errors never surface here:
// the machine handles them on the deny path.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// State is the machine state when the error occurred.
	State string

	// Err is the underlying error.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeSourceFailure indicates the event source failed.
	ErrCodeSourceFailure RuntimeErrorCode = "SOURCE_FAILURE"

	// ErrCodeMachineFailure indicates the machine returned an error.
	ErrCodeMachineFailure RuntimeErrorCode = "MACHINE_FAILURE"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.State != "" {
		return fmt.Sprintf("%s: %v (state=%s)", e.Code, e.Err, e.State)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

// Unwrap returns the underlying error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsSourceError returns true if err is a source failure.
// Uses errors.As to handle wrapped errors.
func IsSourceError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeSourceFailure
	}
	return false
}

// IsMachineError returns true if err is a machine failure.
func IsMachineError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeMachineFailure
	}
	return false
}
