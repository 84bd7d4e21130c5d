// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"time"

	awsclient "connect-notifier/internal/common/aws"
	"connect-notifier/internal/common/config"
	"connect-notifier/internal/common/database"
	"connect-notifier/internal/common/email"
	"connect-notifier/internal/common/logger"
	"connect-notifier/internal/common/observability"
	dispatchpending "connect-notifier/internal/workers/notification/dispatch-pending"
	pendingqueue "connect-notifier/internal/workers/notification/pending-queue"
	"connect-notifier/internal/workers/notification/scheduler"
)

// App holds the wired dispatch pipeline and everything that must be closed
// on shutdown.
type App struct {
	Config     *config.Config
	Dispatcher *dispatchpending.Dispatcher
	Scheduler  *scheduler.Scheduler

	closers []namedCloser
	log     logger.Logger
}

type namedCloser struct {
	name string
	fn   func() error
}

// Build connects the queue, transport and optional Redis/Elasticsearch/SNS
// integrations. On error everything opened so far is closed.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger) (_ *App, err error) {
	a := &App{Config: cfg, log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	source, closeSource, err := pendingqueue.New(cfg.Queue, log)
	if err != nil {
		return nil, fmt.Errorf("queue source: %w", err)
	}
	a.closers = append(a.closers, namedCloser{"queue", closeSource})

	transport, err := email.New(ctx, cfg.Email)
	if err != nil {
		return nil, fmt.Errorf("email transport: %w", err)
	}

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		return nil, fmt.Errorf("observability: %w", err)
	}
	a.closers = append(a.closers, namedCloser{"observability", func() error {
		return obs.Shutdown(context.Background())
	}})

	dcfg := dispatchpending.LoadConfig(cfg)
	opts := []dispatchpending.Option{dispatchpending.WithTracer(obs.Tracer("connect-notifier/dispatch-pending"))}
	sinks := []dispatchpending.ResultSink{dispatchpending.NewMetricsSink(transport.Name(), obs)}

	if cfg.Dispatch.ClaimsEnabled {
		rdb := database.NewRedis(cfg.Database.Redis)
		a.closers = append(a.closers, namedCloser{"redis", rdb.Close})
		if err := retryWithBackoff(ctx, func() error { return rdb.Ping(ctx) }, 5, time.Second, log, "redis ping"); err != nil {
			return nil, err
		}
		opts = append(opts, dispatchpending.WithClaimStore(dispatchpending.NewRedisClaimStore(rdb.Client, dcfg.ClaimTTL)))
		log.Info("dispatch claims enabled", map[string]interface{}{"redis": cfg.Database.Redis.Address})
	}

	if cfg.Audit.Enabled {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return nil, err
		}
		if err := retryWithBackoff(ctx, func() error { return es.Ping(ctx) }, 5, time.Second, log, "elasticsearch ping"); err != nil {
			return nil, err
		}
		sinks = append(sinks, dispatchpending.NewElasticsearchAudit(es.Client, cfg.Audit.Index, transport.Name(), log))
		log.Info("dispatch audit enabled", map[string]interface{}{"index": cfg.Audit.Index})
	}
	opts = append(opts, dispatchpending.WithSinks(sinks...))

	a.Dispatcher = dispatchpending.NewDispatcher(dcfg, source, transport, log, opts...)

	var schedOpts []scheduler.Option
	if cfg.Alerts.SNS.Enabled {
		region := cfg.Alerts.SNS.Region
		if region == "" {
			region = cfg.Email.SES.Region
		}
		snsClient, err := awsclient.NewSNSClient(ctx, region)
		if err != nil {
			return nil, fmt.Errorf("sns alerts: %w", err)
		}
		schedOpts = append(schedOpts, scheduler.WithAlerter(scheduler.NewSNSAlerter(snsClient, cfg.Alerts.SNS.TopicARN, cfg.App.Name)))
	}
	a.Scheduler = scheduler.New(scheduler.LoadConfig(cfg), a.Dispatcher, log, schedOpts...)

	log.Info("dispatch pipeline ready", map[string]interface{}{
		"queue":      cfg.Queue.Driver,
		"provider":   transport.Name(),
		"batch_size": dcfg.BatchSize,
	})
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.log.Error("close failed", map[string]interface{}{"resource": c.name, "error": err})
		}
	}
	a.closers = nil
}

// retryWithBackoff retries operation with exponential backoff, giving up
// early if ctx is cancelled.
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err,
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			if sleepErr := dispatchpending.Sleep(ctx, delay); sleepErr != nil {
				return fmt.Errorf("%s: %w", operationName, sleepErr)
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}
