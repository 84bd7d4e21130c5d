package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"connect-notifier/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff_EventuallySucceeds(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, 5, time.Millisecond, logger.NewTestLogger(t), "ping")

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryWithBackoff_GivesUp(t *testing.T) {
	calls := 0
	err := retryWithBackoff(context.Background(), func() error {
		calls++
		return errors.New("down")
	}, 3, time.Millisecond, logger.NewNoOpLogger(), "ping")

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "ping failed after 3 attempts: down")
}

func TestRetryWithBackoff_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := retryWithBackoff(ctx, func() error {
		calls++
		cancel()
		return errors.New("down")
	}, 5, time.Hour, logger.NewNoOpLogger(), "ping")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestClose_ReverseOrder(t *testing.T) {
	var order []string
	a := &App{log: logger.NewNoOpLogger()}
	a.closers = []namedCloser{
		{"first", func() error { order = append(order, "first"); return nil }},
		{"second", func() error { order = append(order, "second"); return errors.New("ignored") }},
	}

	a.Close()
	assert.Equal(t, []string{"second", "first"}, order)
	assert.Nil(t, a.closers)
}
