// Package email provides transactional email transports with typed failures.
//
// Transports never retry on their own. Callers decide the retry policy from
// the FailureKind of the returned error.
package email

import (
	"context"
	"errors"
	"fmt"
)

// Message is one outbound email.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
	// IdempotencyKey lets providers that support it drop duplicate sends.
	IdempotencyKey string
}

// Receipt is what a provider returns for an accepted message.
type Receipt struct {
	ID       string
	Provider string
}

// Transport sends a single message.
type Transport interface {
	Name() string
	Send(ctx context.Context, msg Message) (*Receipt, error)
}

// FailureKind classifies a send failure.
type FailureKind int

const (
	TransientFailure FailureKind = iota
	RateLimited
	PermanentFailure
)

func (k FailureKind) String() string {
	switch k {
	case RateLimited:
		return "rate_limited"
	case PermanentFailure:
		return "permanent"
	default:
		return "transient"
	}
}

// SendError is returned by every Transport on failure.
type SendError struct {
	Kind       FailureKind
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *SendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s send failed (status %d): %s", e.Provider, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s send failed: %s", e.Provider, e.Kind, e.Message)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// KindOf classifies any error. Untyped errors are transient; a cancelled or
// expired context is permanent so the caller stops retrying.
func KindOf(err error) FailureKind {
	if err == nil {
		return TransientFailure
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return PermanentFailure
	}
	var sendErr *SendError
	if errors.As(err, &sendErr) {
		return sendErr.Kind
	}
	return TransientFailure
}

func newSendError(provider string, kind FailureKind, status int, msg string, err error) *SendError {
	if msg == "" && err != nil {
		msg = err.Error()
	}
	return &SendError{Kind: kind, Provider: provider, StatusCode: status, Message: msg, Err: err}
}
