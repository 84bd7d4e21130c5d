// internal/workers/notification/dispatch-pending/sinks.go
package dispatchpending

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"connect-notifier/internal/common/logger"
	"connect-notifier/internal/common/metrics"
	"connect-notifier/internal/common/observability"
	"connect-notifier/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
)

// ResultSink observes dispatch outcomes. Sinks never fail a pass.
type ResultSink interface {
	RecordResult(ctx context.Context, runID string, n models.Notification, r models.DispatchResult)
	RecordPass(ctx context.Context, summary *models.DispatchSummary)
}

// MetricsSink feeds Prometheus counters and the OpenTelemetry meter.
type MetricsSink struct {
	provider string
	otel     *observability.Observability
}

// NewMetricsSink returns a sink for provider; otel may be nil.
func NewMetricsSink(provider string, otel *observability.Observability) *MetricsSink {
	return &MetricsSink{provider: provider, otel: otel}
}

func (s *MetricsSink) RecordResult(ctx context.Context, _ string, _ models.Notification, r models.DispatchResult) {
	if r.Success {
		metrics.NotificationsSent.WithLabelValues(s.provider).Inc()
		s.otel.RecordNotification(ctx, "sent")
		return
	}
	metrics.NotificationsFailed.WithLabelValues(s.provider, r.Reason).Inc()
	s.otel.RecordNotification(ctx, "failed")
}

func (s *MetricsSink) RecordPass(ctx context.Context, summary *models.DispatchSummary) {
	metrics.PassDuration.Observe(summary.Duration.Seconds())
	metrics.PendingNotifications.Set(float64(summary.Total))

	status := "ok"
	if summary.Errors > 0 {
		status = "errors"
	}
	s.otel.RecordPass(ctx, summary.Duration, status)
}

// auditDocument is one indexed dispatch outcome. It never carries the
// recipient address.
type auditDocument struct {
	RunID          string    `json:"runId"`
	NotificationID string    `json:"notificationId"`
	EventTitle     string    `json:"eventTitle"`
	Provider       string    `json:"provider"`
	Success        bool      `json:"success"`
	Reason         string    `json:"reason,omitempty"`
	Error          string    `json:"error,omitempty"`
	Attempts       int       `json:"attempts"`
	Timestamp      time.Time `json:"@timestamp"`
}

// ElasticsearchAudit indexes every dispatch outcome.
type ElasticsearchAudit struct {
	client   *elasticsearch.Client
	index    string
	provider string
	logger   logger.Logger
	now      func() time.Time
}

func NewElasticsearchAudit(client *elasticsearch.Client, index, provider string, log logger.Logger) *ElasticsearchAudit {
	return &ElasticsearchAudit{
		client:   client,
		index:    index,
		provider: provider,
		logger:   log,
		now:      time.Now,
	}
}

func (a *ElasticsearchAudit) RecordResult(ctx context.Context, runID string, n models.Notification, r models.DispatchResult) {
	doc := auditDocument{
		RunID:          runID,
		NotificationID: r.NotificationID,
		EventTitle:     n.EventTitle,
		Provider:       a.provider,
		Success:        r.Success,
		Reason:         r.Reason,
		Error:          r.Error,
		Attempts:       r.Attempts,
		Timestamp:      a.now().UTC(),
	}
	if err := a.indexDocument(ctx, fmt.Sprintf("%s-%s", runID, r.NotificationID), doc); err != nil {
		a.logger.Warn("failed to index dispatch audit record", map[string]interface{}{
			"notificationId": r.NotificationID,
			"error":          err.Error(),
		})
	}
}

func (a *ElasticsearchAudit) RecordPass(context.Context, *models.DispatchSummary) {}

func (a *ElasticsearchAudit) indexDocument(ctx context.Context, docID string, doc interface{}) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal audit document: %w", err)
	}

	res, err := a.client.Index(
		a.index,
		bytes.NewReader(body),
		a.client.Index.WithContext(ctx),
		a.client.Index.WithDocumentID(docID),
	)
	if err != nil {
		return fmt.Errorf("index audit document: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index audit document: %s", res.Status())
	}
	return nil
}
