// internal/workers/notification/dispatch-pending/retry_test.go
package dispatchpending

import (
	"testing"
	"time"

	"connect-notifier/internal/common/email"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_ShouldRetry(t *testing.T) {
	p := RetryPolicy{MaxRetries: DefaultMaxRetries, BaseDelay: DefaultRetryBaseDelay}

	tests := []struct {
		name       string
		kind       email.FailureKind
		retryCount int
		want       bool
	}{
		{"rate limited first", email.RateLimited, 0, true},
		{"rate limited last allowed", email.RateLimited, 2, true},
		{"rate limited exhausted", email.RateLimited, 3, false},
		{"transient", email.TransientFailure, 1, true},
		{"transient exhausted", email.TransientFailure, 3, false},
		{"permanent never", email.PermanentFailure, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.ShouldRetry(tt.kind, tt.retryCount))
		})
	}
}

func TestRetryPolicy_Backoff(t *testing.T) {
	p := RetryPolicy{MaxRetries: DefaultMaxRetries, BaseDelay: DefaultRetryBaseDelay}

	assert.Equal(t, 2000*time.Millisecond, p.Backoff(0))
	assert.Equal(t, 4000*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 6000*time.Millisecond, p.Backoff(2))
}

func TestRetryPolicy_ZeroRetries(t *testing.T) {
	p := RetryPolicy{MaxRetries: 0, BaseDelay: time.Second}
	assert.False(t, p.ShouldRetry(email.RateLimited, 0))
}
