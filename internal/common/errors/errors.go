// Package errors provides standardized error handling for the notification dispatcher.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeQueueFetchFailed ErrorCode = "QUEUE_FETCH_FAILED"
	ErrCodeMarkSentFailed   ErrorCode = "MARK_SENT_FAILED"

	ErrCodeEmailRateLimited ErrorCode = "EMAIL_RATE_LIMITED"
	ErrCodeEmailSendFailed  ErrorCode = "EMAIL_SEND_FAILED"
	ErrCodeEmailRejected    ErrorCode = "EMAIL_REJECTED"

	ErrCodeInvalidNotification ErrorCode = "INVALID_NOTIFICATION"
	ErrCodeClaimFailed         ErrorCode = "CLAIM_FAILED"

	ErrCodeConfigurationInvalid ErrorCode = "CONFIGURATION_INVALID"
	ErrCodeInternal             ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Err       error                  `json:"-"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error, retryable bool) *StandardError {
	stdErr := &StandardError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		Err:       err,
	}
	if err != nil {
		stdErr.Details = err.Error()
	}
	return stdErr
}

// NewQueueFetchFailedError wraps a failure to read the pending-notification queue.
func NewQueueFetchFailedError(err error) *StandardError {
	return newError(ErrCodeQueueFetchFailed, "Failed to fetch pending notifications", err, true)
}

// NewMarkSentFailedError wraps a failure to record a delivered notification.
func NewMarkSentFailedError(notificationID string, err error) *StandardError {
	stdErr := newError(ErrCodeMarkSentFailed, "Failed to mark notification sent", err, true)
	stdErr.Metadata = map[string]interface{}{"notificationId": notificationID}
	return stdErr
}

func NewEmailRateLimitedError(provider string, err error) *StandardError {
	stdErr := newError(ErrCodeEmailRateLimited, "Email provider rate limit reached", err, true)
	stdErr.Metadata = map[string]interface{}{"provider": provider}
	return stdErr
}

func NewEmailSendFailedError(provider string, err error) *StandardError {
	stdErr := newError(ErrCodeEmailSendFailed, "Email delivery failed", err, true)
	stdErr.Metadata = map[string]interface{}{"provider": provider}
	return stdErr
}

func NewEmailRejectedError(provider string, err error) *StandardError {
	stdErr := newError(ErrCodeEmailRejected, "Email rejected by provider", err, false)
	stdErr.Metadata = map[string]interface{}{"provider": provider}
	return stdErr
}

// NewInvalidNotificationError reports a queue row that failed schema validation.
func NewInvalidNotificationError(notificationID, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidNotification,
		Message:   "Notification failed validation",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"notificationId": notificationID},
		Timestamp: time.Now().UTC(),
	}
}

func NewClaimFailedError(notificationID string, err error) *StandardError {
	stdErr := newError(ErrCodeClaimFailed, "Failed to claim notification", err, true)
	stdErr.Metadata = map[string]interface{}{"notificationId": notificationID}
	return stdErr
}

// NewConfigurationError reports missing or invalid configuration.
func NewConfigurationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConfigurationInvalid,
		Message:   "Invalid configuration",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// Utility Functions
// ==========================

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeQueueFetchFailed, ErrCodeMarkSentFailed:
		return "QUEUE"
	case ErrCodeEmailRateLimited, ErrCodeEmailSendFailed, ErrCodeEmailRejected:
		return "TRANSPORT"
	case ErrCodeInvalidNotification:
		return "VALIDATION"
	case ErrCodeClaimFailed:
		return "IDEMPOTENCY"
	case ErrCodeConfigurationInvalid:
		return "CONFIGURATION"
	default:
		return "INTERNAL"
	}
}

// CodeOf returns the code of the first StandardError in err's chain, or
// ErrCodeInternal.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ErrCodeInternal
}
