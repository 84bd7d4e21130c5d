// internal/workers/notification/dispatch-pending/handler.go
package dispatchpending

import (
	"context"
	"errors"
	"strings"
	"time"

	"connect-notifier/internal/common/email"
	apperrors "connect-notifier/internal/common/errors"
	"connect-notifier/internal/common/logger"
	"connect-notifier/internal/common/metrics"
	"connect-notifier/internal/common/validation"
	"connect-notifier/internal/models"
	pendingqueue "connect-notifier/internal/workers/notification/pending-queue"
	renderemail "connect-notifier/internal/workers/notification/render-email"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "connect-notifier/dispatch-pending"

// markTimeout bounds the queue write after a provider has accepted an email.
// It runs detached from the pass context so a shutdown cannot drop it.
const markTimeout = 10 * time.Second

// Failure reasons recorded on DispatchResult.
const (
	ReasonInvalid     = "invalid notification"
	ReasonClaimed     = "claimed by another dispatcher"
	ReasonClaimFailed = "claim failed"
	ReasonRateLimited = "rate limited"
	ReasonSendFailed  = "send failed"
	ReasonRejected    = "rejected"
	ReasonMarkFailed  = "mark sent failed"
	ReasonCancelled   = "cancelled"
)

// Dispatcher drains the pending-notification queue one pass at a time.
// Notifications are sent strictly one after another.
type Dispatcher struct {
	config     *Config
	source     pendingqueue.Source
	transport  email.Transport
	claims     ClaimStore
	validator  *validation.Validator
	sinks      []ResultSink
	tracer     trace.Tracer
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
	sleep      func(ctx context.Context, d time.Duration) error
	now        func() time.Time
}

type Option func(*Dispatcher)

// WithClaimStore enables cross-pass idempotency claims.
func WithClaimStore(store ClaimStore) Option {
	return func(d *Dispatcher) { d.claims = store }
}

func WithSinks(sinks ...ResultSink) Option {
	return func(d *Dispatcher) { d.sinks = append(d.sinks, sinks...) }
}

func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) { d.tracer = t }
}

// WithSleep replaces the pacing sleep. Tests use it to record waits.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(d *Dispatcher) { d.sleep = fn }
}

func NewDispatcher(cfg *Config, source pendingqueue.Source, transport email.Transport, log logger.Logger, opts ...Option) *Dispatcher {
	log = log.WithFields(map[string]interface{}{"provider": transport.Name()})
	d := &Dispatcher{
		config:     cfg,
		source:     source,
		transport:  transport,
		claims:     noopClaimStore{},
		validator:  validation.MustNotificationValidator(),
		tracer:     otel.Tracer(tracerName),
		logger:     log,
		errHandler: apperrors.NewErrorHandler(log),
		sleep:      Sleep,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ProcessPending runs one pass: Fetch followed by Dispatch. A fetch failure
// returns the error with nothing sent.
func (d *Dispatcher) ProcessPending(ctx context.Context) (*models.DispatchSummary, error) {
	pending, err := d.Fetch(ctx)
	if err != nil {
		summary := d.newSummary()
		d.finish(ctx, d.logger.WithFields(map[string]interface{}{"runId": summary.RunID}), summary)
		return summary, err
	}
	return d.Dispatch(ctx, pending)
}

// Fetch reads every pending notification. There is no cursor; each pass sees
// the whole queue.
func (d *Dispatcher) Fetch(ctx context.Context) ([]models.Notification, error) {
	pending, err := d.source.FetchPending(ctx)
	if err != nil {
		d.errHandler.Handle("failed to fetch pending notifications", err, nil)
		return nil, err
	}
	return pending, nil
}

// Dispatch sends pending in queue order, batch by batch. A cancelled context
// stops the pass early and returns the partial summary with ctx.Err().
func (d *Dispatcher) Dispatch(ctx context.Context, pending []models.Notification) (*models.DispatchSummary, error) {
	summary := d.newSummary()
	summary.Total = len(pending)

	ctx, span := d.tracer.Start(ctx, "dispatch.pass", trace.WithAttributes(
		attribute.String("run.id", summary.RunID),
		attribute.Int("notifications.total", summary.Total),
	))
	defer span.End()

	fields := map[string]interface{}{"runId": summary.RunID}
	if sc := span.SpanContext(); sc.IsValid() {
		fields["traceId"] = sc.TraceID().String()
	}
	log := d.logger.WithFields(fields)

	if summary.Total == 0 {
		log.Info("no pending notifications", nil)
		d.finish(ctx, log, summary)
		return summary, nil
	}

	batches := models.SplitBatches(pending, d.config.BatchSize)
	log.Info("processing pending notifications", map[string]interface{}{
		"total":   summary.Total,
		"batches": len(batches),
	})

	for i, batch := range batches {
		log.Debug("processing batch", map[string]interface{}{"batch": i + 1, "size": len(batch)})

		for _, n := range batch {
			rowCtx, rowSpan := d.tracer.Start(ctx, "dispatch.notification", trace.WithAttributes(
				attribute.String("notification.id", n.ID),
			))
			result := d.dispatchOne(rowCtx, log, n)
			endRowSpan(rowSpan, result)
			summary.Record(result)
			for _, sink := range d.sinks {
				sink.RecordResult(ctx, summary.RunID, n, result)
			}

			if ctx.Err() != nil {
				return d.abort(ctx, log, summary)
			}
			if summary.Processed < summary.Total {
				if err := d.sleep(ctx, d.config.RateLimitDelay); err != nil {
					return d.abort(ctx, log, summary)
				}
			}
		}

		if i < len(batches)-1 {
			if err := d.sleep(ctx, d.config.BatchDelay); err != nil {
				return d.abort(ctx, log, summary)
			}
		}
	}

	d.finish(ctx, log, summary)
	return summary, nil
}

func endRowSpan(span trace.Span, r models.DispatchResult) {
	span.SetAttributes(
		attribute.Int("send.attempts", r.Attempts),
		attribute.Bool("send.success", r.Success),
	)
	if !r.Success {
		span.SetStatus(codes.Error, r.Reason)
	}
	span.End()
}

func (d *Dispatcher) newSummary() *models.DispatchSummary {
	return &models.DispatchSummary{
		RunID:     uuid.New().String(),
		StartedAt: d.now().UTC(),
	}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, log logger.Logger, n models.Notification) models.DispatchResult {
	result := models.DispatchResult{NotificationID: n.ID}
	fields := map[string]interface{}{"notificationId": n.ID}
	rowLog := log.WithFields(fields)

	if msgs, ok := d.validate(n); !ok {
		details := strings.Join(msgs, "; ")
		d.errHandler.Handle("skipping invalid notification", apperrors.NewInvalidNotificationError(n.ID, details), nil)
		result.Reason = ReasonInvalid
		result.Error = details
		return result
	}

	state, err := d.claims.Acquire(ctx, n.ID)
	if err != nil {
		stdErr := d.errHandler.Handle("failed to claim notification", apperrors.NewClaimFailedError(n.ID, err), nil)
		result.Reason = ReasonClaimFailed
		result.Error = stdErr.Error()
		return result
	}
	switch state {
	case ClaimHeld:
		rowLog.Warn("notification is being sent by another dispatcher", nil)
		result.Reason = ReasonClaimed
		return result
	case ClaimAlreadySent:
		rowLog.Info("email already sent on an earlier pass, retrying mark only", nil)
		return d.markSent(ctx, rowLog, n, result)
	}

	subject, html := renderemail.Render(n)
	msg := email.Message{
		From:           d.config.From,
		To:             n.UserEmail,
		Subject:        subject,
		HTML:           html,
		Text:           renderemail.RenderText(n),
		IdempotencyKey: n.ID,
	}

	receipt, attempts, err := d.sendWithRetry(ctx, rowLog, msg)
	result.Attempts = attempts
	if err != nil {
		if relErr := d.claims.Release(context.WithoutCancel(ctx), n.ID); relErr != nil {
			rowLog.Warn("failed to release claim", map[string]interface{}{"error": relErr.Error()})
		}
		result.Reason, err = d.classify(err)
		result.Error = err.Error()
		d.errHandler.Handle("failed to send notification", err, map[string]interface{}{"attempts": attempts})
		return result
	}

	rowLog.Info("email sent", map[string]interface{}{
		"messageId": receipt.ID,
		"attempts":  attempts,
	})

	if err := d.claims.MarkSent(context.WithoutCancel(ctx), n.ID); err != nil {
		rowLog.Warn("failed to record sent claim", map[string]interface{}{"error": err.Error()})
	}
	return d.markSent(ctx, rowLog, n, result)
}

func (d *Dispatcher) validate(n models.Notification) ([]string, bool) {
	res, err := d.validator.Validate(n)
	if err != nil {
		return []string{err.Error()}, false
	}
	return res.GetErrorMessages(), res.Valid
}

// sendWithRetry returns the receipt, the number of transport calls made and
// the last error.
func (d *Dispatcher) sendWithRetry(ctx context.Context, log logger.Logger, msg email.Message) (*email.Receipt, int, error) {
	policy := d.config.retryPolicy()

	for retryCount := 0; ; retryCount++ {
		receipt, err := d.transport.Send(ctx, msg)
		if err == nil {
			return receipt, retryCount + 1, nil
		}

		kind := email.KindOf(err)
		if !policy.ShouldRetry(kind, retryCount) {
			return nil, retryCount + 1, err
		}

		wait := policy.Backoff(retryCount)
		metrics.SendRetries.WithLabelValues(d.transport.Name(), kind.String()).Inc()
		log.Warn("send failed, retrying", map[string]interface{}{
			"kind":   kind.String(),
			"retry":  retryCount + 1,
			"waitMs": wait.Milliseconds(),
			"error":  err.Error(),
		})

		if err := d.sleep(ctx, wait); err != nil {
			return nil, retryCount + 1, err
		}
	}
}

// classify maps a transport failure onto a result reason and a StandardError.
func (d *Dispatcher) classify(err error) (string, error) {
	provider := d.transport.Name()
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ReasonCancelled, err
	}
	switch email.KindOf(err) {
	case email.RateLimited:
		return ReasonRateLimited, apperrors.NewEmailRateLimitedError(provider, err)
	case email.PermanentFailure:
		return ReasonRejected, apperrors.NewEmailRejectedError(provider, err)
	default:
		return ReasonSendFailed, apperrors.NewEmailSendFailedError(provider, err)
	}
}

func (d *Dispatcher) markSent(ctx context.Context, log logger.Logger, n models.Notification, result models.DispatchResult) models.DispatchResult {
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markTimeout)
	defer cancel()

	if err := d.source.MarkSent(markCtx, n.ID); err != nil {
		stdErr := d.errHandler.Handle("email sent but not marked", err, map[string]interface{}{"notificationId": n.ID})
		result.Reason = ReasonMarkFailed
		result.Error = stdErr.Error()
		return result
	}
	log.Debug("notification marked sent", nil)
	result.Success = true
	return result
}

func (d *Dispatcher) abort(ctx context.Context, log logger.Logger, summary *models.DispatchSummary) (*models.DispatchSummary, error) {
	log.Warn("dispatch pass interrupted", map[string]interface{}{
		"processed": summary.Processed,
		"total":     summary.Total,
	})
	d.finish(context.WithoutCancel(ctx), log, summary)
	return summary, ctx.Err()
}

func (d *Dispatcher) finish(ctx context.Context, log logger.Logger, summary *models.DispatchSummary) {
	summary.Duration = d.now().Sub(summary.StartedAt)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int("notifications.processed", summary.Processed),
		attribute.Int("notifications.successful", summary.Successful),
		attribute.Int("notifications.errors", summary.Errors),
	)
	for _, sink := range d.sinks {
		sink.RecordPass(ctx, summary)
	}
	log.Info("dispatch pass complete", map[string]interface{}{
		"total":      summary.Total,
		"processed":  summary.Processed,
		"successful": summary.Successful,
		"errors":     summary.Errors,
		"durationMs": summary.Duration.Milliseconds(),
	})
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
