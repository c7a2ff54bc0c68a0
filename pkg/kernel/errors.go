// Package kernel owns the boundary to the external geometry evaluator:
// the Bridge facade for compile/validate calls, the execution Engine that
// drives operation sequences, and the local fallback geometry used when
// the evaluator is unreachable.
package kernel

import (
	"errors"
	"fmt"
)

// ErrorClass classifies a kernel error for recovery decisions.
type ErrorClass string

const (
	// ErrorClassValidation marks structurally recoverable input problems.
	ErrorClassValidation ErrorClass = "validation"

	// ErrorClassBoundary marks failures crossing the evaluator boundary:
	// readiness timeouts, per-operation timeouts, evaluator-reported errors.
	ErrorClassBoundary ErrorClass = "boundary"

	// ErrorClassDegraded marks operations that cannot be served while the
	// engine runs in fallback mode.
	ErrorClassDegraded ErrorClass = "degraded"

	// ErrorClassInternal marks bugs and broken invariants.
	ErrorClassInternal ErrorClass = "internal"
)

// KernelError is a classified error with operation context.
type KernelError struct {
	Class     ErrorClass `json:"class"`
	Message   string     `json:"message"`
	Code      string     `json:"code,omitempty"`
	Operation string     `json:"operation,omitempty"`
	Err       error      `json:"-"`
}

// Error implements the error interface.
func (e *KernelError) Error() string {
	if e.Operation != "" {
		if e.Err != nil {
			return fmt.Sprintf("[%s] %s (operation=%s): %v", e.Class, e.Message, e.Operation, e.Err)
		}
		return fmt.Sprintf("[%s] %s (operation=%s)", e.Class, e.Message, e.Operation)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Class, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Class, e.Message)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *KernelError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *KernelError) Is(target error) bool {
	t, ok := target.(*KernelError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewBoundaryError creates a boundary-failure error.
func NewBoundaryError(message string, err error) *KernelError {
	return &KernelError{Class: ErrorClassBoundary, Message: message, Err: err}
}

// NewDegradedError creates a fallback-mode error.
func NewDegradedError(message string) *KernelError {
	return &KernelError{Class: ErrorClassDegraded, Message: message}
}

// NewValidationError creates a validation error.
func NewValidationError(message string, err error) *KernelError {
	return &KernelError{Class: ErrorClassValidation, Message: message, Err: err}
}

// NewInternalError creates an internal error.
func NewInternalError(message string, err error) *KernelError {
	return &KernelError{Class: ErrorClassInternal, Message: message, Err: err}
}

// WithCode adds an error code.
func (e *KernelError) WithCode(code string) *KernelError {
	e.Code = code
	return e
}

// WithOperation adds operation context.
func (e *KernelError) WithOperation(op string) *KernelError {
	e.Operation = op
	return e
}

// IsBoundary reports whether the error is a boundary failure.
func IsBoundary(err error) bool {
	var e *KernelError
	if errors.As(err, &e) {
		return e.Class == ErrorClassBoundary
	}
	return false
}

// IsDegraded reports whether the error is a fallback-mode refusal.
func IsDegraded(err error) bool {
	var e *KernelError
	if errors.As(err, &e) {
		return e.Class == ErrorClassDegraded
	}
	return false
}

// Common error codes.
const (
	ErrCodeTimeout       = "TIMEOUT"
	ErrCodeReadyTimeout  = "READY_TIMEOUT"
	ErrCodeNoFallback    = "NO_LOCAL_FALLBACK"
	ErrCodeEvaluator     = "EVALUATOR_ERROR"
	ErrCodeClosed        = "CONNECTION_CLOSED"
	ErrCodeBusy          = "EXECUTION_IN_PROGRESS"
	ErrCodeStaleResponse = "STALE_RESPONSE"
)
