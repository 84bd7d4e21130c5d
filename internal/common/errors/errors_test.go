package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	msg    string
	fields map[string]interface{}
}

func (r *recordingLogger) Error(msg string, fields map[string]interface{}) {
	r.msg = msg
	r.fields = fields
}

func TestConstructors(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name      string
		err       *StandardError
		code      ErrorCode
		retryable bool
		category  string
	}{
		{"queue fetch", NewQueueFetchFailedError(cause), ErrCodeQueueFetchFailed, true, "QUEUE"},
		{"mark sent", NewMarkSentFailedError("n-1", cause), ErrCodeMarkSentFailed, true, "QUEUE"},
		{"rate limited", NewEmailRateLimitedError("resend", cause), ErrCodeEmailRateLimited, true, "TRANSPORT"},
		{"send failed", NewEmailSendFailedError("resend", cause), ErrCodeEmailSendFailed, true, "TRANSPORT"},
		{"rejected", NewEmailRejectedError("ses", cause), ErrCodeEmailRejected, false, "TRANSPORT"},
		{"invalid", NewInvalidNotificationError("n-2", "user_email required"), ErrCodeInvalidNotification, false, "VALIDATION"},
		{"claim", NewClaimFailedError("n-3", cause), ErrCodeClaimFailed, true, "IDEMPOTENCY"},
		{"config", NewConfigurationError("email.from is required"), ErrCodeConfigurationInvalid, false, "CONFIGURATION"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.retryable, tt.err.Retryable)
			assert.Equal(t, tt.category, GetErrorCategory(tt.err.Code))
			assert.False(t, tt.err.Timestamp.IsZero())
			assert.Contains(t, tt.err.Error(), string(tt.code))
		})
	}
}

func TestStandardError_Unwrap(t *testing.T) {
	cause := errors.New("dial tcp: i/o timeout")
	wrapped := fmt.Errorf("pass: %w", NewQueueFetchFailedError(cause))

	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, ErrCodeQueueFetchFailed, CodeOf(wrapped))
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("plain")))
}

func TestErrorHandler_Handle(t *testing.T) {
	log := &recordingLogger{}
	h := NewErrorHandler(log)

	stdErr := h.Handle("mark failed", NewMarkSentFailedError("n-9", errors.New("rpc 500")), map[string]interface{}{
		"runId": "run-1",
	})

	require.NotNil(t, stdErr)
	assert.Equal(t, "mark failed", log.msg)
	assert.Equal(t, "MARK_SENT_FAILED", log.fields["errorCode"])
	assert.Equal(t, "n-9", log.fields["notificationId"])
	assert.Equal(t, "run-1", log.fields["runId"])
	assert.Equal(t, "QUEUE", log.fields["errorCategory"])
}

func TestNormalize(t *testing.T) {
	assert.Nil(t, Normalize(nil))

	plain := errors.New("unexpected")
	stdErr := Normalize(plain)
	require.NotNil(t, stdErr)
	assert.Equal(t, ErrCodeInternal, stdErr.Code)
	assert.Equal(t, "unexpected", stdErr.Details)
	assert.ErrorIs(t, stdErr, plain)
}
