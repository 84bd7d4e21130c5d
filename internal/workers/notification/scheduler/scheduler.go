// internal/workers/notification/scheduler/scheduler.go
package scheduler

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"connect-notifier/internal/common/logger"
	"connect-notifier/internal/common/metrics"
	"connect-notifier/internal/models"
	dispatchpending "connect-notifier/internal/workers/notification/dispatch-pending"
)

// State is the continuous scheduler's position in its cycle.
type State int32

const (
	StateIdle State = iota
	StatePolling
	StateDispatching
	StateErrorBackoff
)

func (s State) String() string {
	switch s {
	case StatePolling:
		return "polling"
	case StateDispatching:
		return "dispatching"
	case StateErrorBackoff:
		return "error_backoff"
	default:
		return "idle"
	}
}

// Processor is one dispatch pass split at the queue read.
type Processor interface {
	Fetch(ctx context.Context) ([]models.Notification, error)
	Dispatch(ctx context.Context, pending []models.Notification) (*models.DispatchSummary, error)
}

type Scheduler struct {
	config    *Config
	processor Processor
	alerter   Alerter
	logger    logger.Logger
	sleep     func(ctx context.Context, d time.Duration) error
	state     atomic.Int32
}

type Option func(*Scheduler)

func WithAlerter(a Alerter) Option {
	return func(s *Scheduler) { s.alerter = a }
}

func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Scheduler) { s.sleep = fn }
}

func New(cfg *Config, processor Processor, log logger.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		config:    cfg,
		processor: processor,
		logger:    log.WithFields(map[string]interface{}{"component": "scheduler"}),
		sleep:     dispatchpending.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State is safe to call from other goroutines.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) setState(st State) {
	s.state.Store(int32(st))
}

// RunOnce runs a single pass and returns the process exit code: 0 when at
// least one notification was delivered or there was nothing to send,
// 1 otherwise.
func (s *Scheduler) RunOnce(ctx context.Context) (*models.DispatchSummary, int) {
	summary, err := s.runPass(ctx)
	s.setState(StateIdle)
	if summary == nil {
		summary = &models.DispatchSummary{}
	}

	switch {
	case err == nil && summary.Total == 0:
		return summary, 0
	case summary.Successful > 0:
		if summary.Errors > 0 {
			s.alert(ctx, summary, err)
		}
		return summary, 0
	default:
		if err != nil {
			s.logger.Error("dispatch pass failed", map[string]interface{}{"error": err.Error()})
		}
		s.alert(ctx, summary, err)
		return summary, 1
	}
}

// RunContinuously runs passes until ctx is done, sleeping CheckInterval after
// each pass and ErrorBackoff after a failed or panicked one.
func (s *Scheduler) RunContinuously(ctx context.Context) error {
	s.logger.Info("starting continuous dispatch", map[string]interface{}{
		"checkIntervalMs": s.config.CheckInterval.Milliseconds(),
		"errorBackoffMs":  s.config.ErrorBackoff.Milliseconds(),
	})

	for {
		summary, err := s.runPass(ctx)
		if ctx.Err() != nil {
			s.setState(StateIdle)
			return ctx.Err()
		}

		wait := s.config.CheckInterval
		if err != nil {
			s.setState(StateErrorBackoff)
			metrics.SchedulerErrors.Inc()
			s.logger.Error("dispatch pass failed, backing off", map[string]interface{}{
				"error":     err.Error(),
				"backoffMs": s.config.ErrorBackoff.Milliseconds(),
			})
			s.alert(ctx, summary, err)
			wait = s.config.ErrorBackoff
		} else {
			s.setState(StateIdle)
			if summary.Errors > 0 {
				s.alert(ctx, summary, nil)
			}
		}

		if err := s.sleep(ctx, wait); err != nil {
			s.setState(StateIdle)
			return err
		}
		s.setState(StateIdle)
	}
}

// runPass runs Fetch and Dispatch, turning a panic into an error.
func (s *Scheduler) runPass(ctx context.Context) (summary *models.DispatchSummary, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("dispatch pass panicked: %v", r)
		}
	}()

	if s.config.PassTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.PassTimeout)
		defer cancel()
	}

	s.setState(StatePolling)
	pending, err := s.processor.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	s.setState(StateDispatching)
	return s.processor.Dispatch(ctx, pending)
}

func (s *Scheduler) alert(ctx context.Context, summary *models.DispatchSummary, cause error) {
	if s.alerter == nil {
		return
	}
	if err := s.alerter.Alert(context.WithoutCancel(ctx), summary, cause); err != nil {
		s.logger.Warn("failed to publish alert", map[string]interface{}{"error": err.Error()})
	}
}
