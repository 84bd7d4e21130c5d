// internal/workers/notification/dispatch-pending/retry.go
package dispatchpending

import (
	"time"

	"connect-notifier/internal/common/email"
)

const (
	DefaultMaxRetries     = 3
	DefaultRetryBaseDelay = 2 * time.Second
)

// RetryPolicy decides whether a failed send is retried and how long to wait.
// retryCount is the number of retries already made for the notification.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// ShouldRetry reports whether a failure of the given kind is retried.
// Permanent failures never are.
func (p RetryPolicy) ShouldRetry(kind email.FailureKind, retryCount int) bool {
	if kind != email.RateLimited && kind != email.TransientFailure {
		return false
	}
	return retryCount < p.MaxRetries
}

// Backoff is linear: (retryCount+1) * BaseDelay.
func (p RetryPolicy) Backoff(retryCount int) time.Duration {
	return time.Duration(retryCount+1) * p.BaseDelay
}
