// Package errors provides the admission error taxonomy and its mapping onto BPMN errors.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInvalidTransition    ErrorCode = "INVALID_TRANSITION"
	ErrCodeMissingField         ErrorCode = "MISSING_FIELD"
	ErrCodeIncompleteEvaluation ErrorCode = "INCOMPLETE_EVALUATION"
	ErrCodeNotFound             ErrorCode = "NOT_FOUND"
	ErrCodeActorNotPermitted    ErrorCode = "ACTOR_NOT_PERMITTED"

	ErrCodeUpstreamUnavailable     ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodeDatabaseOperationFailed ErrorCode = "DATABASE_OPERATION_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error thrown to the Zeebe workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for job fail/throw variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewInvalidTransitionError names the current status, the statuses the
// operation accepts, and the transition that was requested.
func NewInvalidTransitionError(transition, current string, required []string) *StandardError {
	return &StandardError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot %s: application is %s", transition, current),
		Details: fmt.Sprintf("current status %s, required one of [%s]", current, strings.Join(required, ", ")),
		Metadata: map[string]interface{}{
			"requestedTransition": transition,
			"currentStatus":       current,
			"requiredStatuses":    required,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingFieldError names the absent or blank input field.
func NewMissingFieldError(field string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingField,
		Message:   fmt.Sprintf("%s is required", field),
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidFieldError is a MISSING_FIELD variant for present-but-unusable values.
func NewInvalidFieldError(field, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingField,
		Message:   fmt.Sprintf("%s is invalid", field),
		Details:   details,
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewIncompleteEvaluationError lists every missing or out-of-range evaluation field.
func NewIncompleteEvaluationError(fields []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIncompleteEvaluation,
		Message:   "interview evaluation is incomplete",
		Details:   strings.Join(fields, ", "),
		Metadata:  map[string]interface{}{"missingFields": fields},
		Timestamp: time.Now().UTC(),
	}
}

func NewNotFoundError(resource, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   fmt.Sprintf("%s: %s", resource, id),
		Metadata:  map[string]interface{}{"resource": resource, "id": id},
		Timestamp: time.Now().UTC(),
	}
}

func NewActorNotPermittedError(action, role string) *StandardError {
	return &StandardError{
		Code:      ErrCodeActorNotPermitted,
		Message:   fmt.Sprintf("role %s may not %s", role, action),
		Metadata:  map[string]interface{}{"action": action, "role": role},
		Timestamp: time.Now().UTC(),
	}
}

// NewUpstreamUnavailableError marks a collaborator (storage, notification,
// accounts) that could not be reached.
func NewUpstreamUnavailableError(service string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeUpstreamUnavailable,
		Message:   fmt.Sprintf("upstream %s unavailable", service),
		Details:   errString(err),
		Retryable: true,
		Metadata:  map[string]interface{}{"service": service},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewDatabaseOperationFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseOperationFailed,
		Message:   "database operation failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, errString(err)),
		Retryable: true,
		Metadata:  map[string]interface{}{"operation": operation},
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// ==========================
// 4. Inspection
// ==========================

// CodeOf returns the code of the first StandardError in err's chain, or
// ErrCodeInternal when there is none.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsValidation reports whether err was raised before any mutation because
// the input or the current state did not allow the operation.
func IsValidation(err error) bool {
	switch CodeOf(err) {
	case ErrCodeInvalidTransition, ErrCodeMissingField, ErrCodeIncompleteEvaluation, ErrCodeActorNotPermitted:
		return true
	}
	return false
}

// ==========================
// 5. Error Conversion to BPMN
// ==========================

// GetRetryCount returns how many times a job failing with code should be retried.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeUpstreamUnavailable, ErrCodeDatabaseOperationFailed:
		return 3
	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Zeebe.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	vars := map[string]interface{}{
		"originalErrorCode": string(stdErr.Code),
		"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
	}
	for k, v := range stdErr.Metadata {
		vars[k] = v
	}

	return &BPMNError{
		Code:           string(stdErr.Code),
		Message:        stdErr.Message,
		Details:        stdErr.Details,
		Retryable:      stdErr.Retryable,
		Retries:        retries,
		ErrorVariables: vars,
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory groups codes for logs and dashboards.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeInvalidTransition:
		return "LIFECYCLE"
	case ErrCodeMissingField, ErrCodeIncompleteEvaluation:
		return "VALIDATION"
	case ErrCodeActorNotPermitted:
		return "AUTHORIZATION"
	case ErrCodeNotFound:
		return "LOOKUP"
	case ErrCodeUpstreamUnavailable, ErrCodeDatabaseOperationFailed:
		return "UPSTREAM"
	default:
		return "OTHER"
	}
}
