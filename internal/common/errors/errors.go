// Package errors provides standardized error handling for BPMN workflow integration.
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

// Kind groups error codes by how a caller is expected to react.
type Kind string

const (
	// KindValidation is malformed or out-of-range input. Never retried.
	KindValidation Kind = "validation"
	// KindState is a business rule refusal that is safe to show to an end user.
	KindState Kind = "state"
	// KindConflict is a stale version token. The whole operation may be retried.
	KindConflict Kind = "conflict"
	// KindDependency is an unavailable or slow collaborator.
	KindDependency Kind = "dependency"
)

// Validation errors
const (
	ErrCodeValidationFailed      ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidContractType   ErrorCode = "INVALID_CONTRACT_TYPE"
	ErrCodeInvalidStatus         ErrorCode = "INVALID_STATUS"
	ErrCodeInvalidRole           ErrorCode = "INVALID_ROLE"
	ErrCodeInvalidAmount         ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidReportingRange ErrorCode = "INVALID_REPORTING_PERIOD"
)

// State errors
const (
	ErrCodeInvalidTransition         ErrorCode = "INVALID_STATUS_TRANSITION"
	ErrCodePermissionDenied          ErrorCode = "PERMISSION_DENIED"
	ErrCodeSeparationOfDuties        ErrorCode = "SEPARATION_OF_DUTIES_VIOLATION"
	ErrCodeOutsideBusinessHours      ErrorCode = "OUTSIDE_BUSINESS_HOURS"
	ErrCodeDualAuthorizationInvalid  ErrorCode = "DUAL_AUTHORIZATION_INVALID"
	ErrCodeApplicationNotFound       ErrorCode = "APPLICATION_NOT_FOUND"
	ErrCodeAdminNotFound             ErrorCode = "ADMIN_NOT_FOUND"
	ErrCodeOpportunityNotFound       ErrorCode = "OPPORTUNITY_NOT_FOUND"
	ErrCodeOpportunityInactive       ErrorCode = "OPPORTUNITY_INACTIVE"
	ErrCodeWalletNotFound            ErrorCode = "WALLET_NOT_FOUND"
	ErrCodeInsufficientBalance       ErrorCode = "INSUFFICIENT_BALANCE"
	ErrCodeBelowMinimumInvestment    ErrorCode = "BELOW_MINIMUM_INVESTMENT"
	ErrCodeCapacityExceeded          ErrorCode = "REMAINING_CAPACITY_EXCEEDED"
	ErrCodeCampaignClosed            ErrorCode = "CAMPAIGN_DEADLINE_PASSED"
	ErrCodeNoEligibleReviewer        ErrorCode = "NO_ELIGIBLE_REVIEWER"
	ErrCodeAssignmentNotFound        ErrorCode = "ASSIGNMENT_NOT_FOUND"
	ErrCodeRateLimited               ErrorCode = "RATE_LIMITED"
	ErrCodeInvestmentAlreadyRecorded ErrorCode = "INVESTMENT_ALREADY_RECORDED"
	ErrCodeInvestmentNotFound        ErrorCode = "INVESTMENT_NOT_FOUND"
)

// Conflict errors
const (
	ErrCodeVersionConflict ErrorCode = "VERSION_CONFLICT"
)

// Dependency errors
const (
	ErrCodeStoreTimeout           ErrorCode = "STORE_TIMEOUT"
	ErrCodeStoreUnavailable       ErrorCode = "STORE_UNAVAILABLE"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeAuditWriteFailed       ErrorCode = "AUDIT_WRITE_FAILED"
	ErrCodeExternalService        ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeTimeout                ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

const genericPublicMessage = "A temporary error occurred. Please try again later."

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Kind      Kind                   `json:"kind"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// PublicMessage is the message that may be shown to an end user.
// Dependency failures never leak internal detail.
func (e *StandardError) PublicMessage() string {
	if e.Kind == KindDependency {
		return genericPublicMessage
	}
	return e.Message
}

// WithMetadata attaches a metadata entry and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
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

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
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

// NewValidationError creates a non-retryable validation error.
func NewValidationError(code ErrorCode, message, details string) *StandardError {
	return &StandardError{
		Code:      code,
		Kind:      KindValidation,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStateError creates a business rule refusal.
func NewStateError(code ErrorCode, message string) *StandardError {
	return &StandardError{
		Code:      code,
		Kind:      KindState,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConflictError reports a stale version token on the named resource.
func NewConflictError(resource string, cause error) *StandardError {
	details := resource
	if cause != nil {
		details = fmt.Sprintf("%s: %v", resource, cause)
	}
	return &StandardError{
		Code:      ErrCodeVersionConflict,
		Kind:      KindConflict,
		Message:   "The record was modified concurrently. Please retry.",
		Details:   details,
		Retryable: true,
		Metadata:  map[string]interface{}{"resource": resource},
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewDependencyError wraps a failure of an external collaborator.
func NewDependencyError(code ErrorCode, service string, cause error) *StandardError {
	details := service
	if cause != nil {
		details = fmt.Sprintf("%s: %v", service, cause)
	}
	return &StandardError{
		Code:      code,
		Kind:      KindDependency,
		Message:   fmt.Sprintf("Service '%s' unavailable", service),
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// NewTimeoutError reports a deadline exceeded while calling service.
func NewTimeoutError(service string, cause error) *StandardError {
	e := NewDependencyError(ErrCodeTimeout, service, cause)
	e.Message = fmt.Sprintf("Service '%s' timeout", service)
	return e
}

// NewExternalServiceError is a retryable failure of an external service.
func NewExternalServiceError(service string, cause error) *StandardError {
	return NewDependencyError(ErrCodeExternalService, service, cause)
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(cause error) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Kind:      KindDependency,
		Message:   "Unexpected error",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes where they differ.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeStoreTimeout:     "STORE_UNAVAILABLE",
	ErrCodeTimeout:          "STORE_UNAVAILABLE",
	ErrCodeExternalService:  "STORE_UNAVAILABLE",
	ErrCodeInvalidRole:      "VALIDATION_FAILED",
	ErrCodeInvalidStatus:    "VALIDATION_FAILED",
	ErrCodeInvalidAmount:    "VALIDATION_FAILED",
	ErrCodeVersionConflict:  "VERSION_CONFLICT",
	ErrCodeAuditWriteFailed: "AUDIT_WRITE_FAILED",
}

// GetRetryCount returns the recommended retry count for an error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeVersionConflict,
		ErrCodeStoreUnavailable,
		ErrCodeExternalService,
		ErrCodeNotificationSendFailed,
		ErrCodeAuditWriteFailed:
		return 3

	case ErrCodeStoreTimeout,
		ErrCodeTimeout:
		return 2

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.PublicMessage(),
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"errorKind":         string(stdErr.Kind),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// As extracts a *StandardError from err's chain.
func As(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, or an empty Kind if err is not a StandardError.
func KindOf(err error) Kind {
	if stdErr, ok := As(err); ok {
		return stdErr.Kind
	}
	return ""
}

// IsConflict reports whether err is a version conflict.
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns a coarse category for dashboards and logs.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CONFLICT"):
		return "CONCURRENCY"
	case strings.Contains(codeStr, "STORE") || strings.Contains(codeStr, "TIMEOUT"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION") || strings.Contains(codeStr, "AUDIT"):
		return "SINK"
	case strings.Contains(codeStr, "PERMISSION") || strings.Contains(codeStr, "SEPARATION") ||
		strings.Contains(codeStr, "BUSINESS_HOURS") || strings.Contains(codeStr, "DUAL_AUTHORIZATION"):
		return "AUTHORIZATION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
