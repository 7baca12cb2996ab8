package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation  ErrorCategory = "validation"  // Invalid input or config
	ErrCatExecution   ErrorCategory = "execution"   // Step runtime failure
	ErrCatGateway     ErrorCategory = "gateway"     // Broker gateway failure
	ErrCatTimeout     ErrorCategory = "timeout"     // Collaborator timed out
	ErrCatPersistence ErrorCategory = "persistence" // Audit store failure
	ErrCatState       ErrorCategory = "state"       // Graph/state corruption
	ErrCatEmergency   ErrorCategory = "emergency"   // Emergency latch tripped
	ErrCatInternal    ErrorCategory = "internal"    // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrExecution creates an execution error.
func ErrExecution(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrGateway creates a broker gateway error.
func ErrGateway(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatGateway,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      "TIMEOUT",
		Message:   message,
		Retryable: true,
	}
}

// ErrPersistence creates an audit-store error.
func ErrPersistence(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatPersistence,
		Code:      code,
		Message:   message,
		Retryable: true,
	}
}

// ErrState creates a state error.
func ErrState(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatState,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrEmergency creates an emergency-stop error carrying the stop reason.
func ErrEmergency(reason string) *DomainError {
	return &DomainError{
		Category:  ErrCatEmergency,
		Code:      "EMERGENCY_STOP",
		Message:   reason,
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// Predefined error codes
const (
	CodeStepNotRegistered = "STEP_NOT_REGISTERED"
	CodeUnroutablePhase   = "UNROUTABLE_PHASE"
	CodeInvalidState      = "INVALID_STATE"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeSessionNotStarted = "SESSION_NOT_STARTED"
	CodeSessionActive     = "SESSION_ACTIVE"
	CodeStepPanic         = "STEP_PANIC"
	CodeStepFailed        = "STEP_FAILED"

	// Gateway error codes
	CodeGatewayUnreachable = "GATEWAY_UNREACHABLE"
	CodeGatewayRejected    = "GATEWAY_REJECTED"
	CodeOrderRejected      = "ORDER_REJECTED"

	// Persistence error codes
	CodeAuditWriteFailed = "AUDIT_WRITE_FAILED"
	CodeAuditOpenFailed  = "AUDIT_OPEN_FAILED"

	// Validation error codes
	CodeInvalidConfig     = "INVALID_CONFIG"
	CodeInvalidRiskParams = "INVALID_RISK_PARAMS"
	CodeInvalidCycleLimit = "INVALID_CYCLE_LIMIT"
)
