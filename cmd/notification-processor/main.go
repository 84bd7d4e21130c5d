package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connect-notifier/internal/app"
	"connect-notifier/internal/common/config"
	"connect-notifier/internal/common/logger"
	"connect-notifier/internal/workers/notification/scheduler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to a config YAML file (default: configs/config.yaml)")
	flag.Parse()

	zapLog := logger.New("info", "console")

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		zapLog.Fatal("failed to load config", zap.Error(err))
	}

	zapLog = logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer func() { _ = zapLog.Sync() }()
	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{"mode": "continuous"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		zapLog.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	// --- Health & Metrics Server ---
	srv := &http.Server{
		Addr:              cfg.Metrics.Address,
		Handler:           newRouter(a.Scheduler),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", cfg.Metrics.Address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	zapLog.Info("Notification processor started",
		zap.Duration("checkInterval", config.GetDuration(cfg.Dispatch.CheckInterval)),
		zap.Int("batchSize", cfg.Dispatch.BatchSize),
	)
	_ = a.Scheduler.RunContinuously(ctx)

	// --- Graceful Shutdown ---
	zapLog.Info("Shutdown signal received, stopping processor...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping Health/Metrics server", zap.Error(err))
	}
	zapLog.Info("Notification processor stopped gracefully")
}

// stateReporter is the part of the scheduler the health endpoints need.
type stateReporter interface {
	State() scheduler.State
}

func newRouter(s stateReporter) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	r.Get("/ready", func(w http.ResponseWriter, _ *http.Request) {
		state := s.State()
		status, code := "ready", http.StatusOK
		if state == scheduler.StateErrorBackoff {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		writeStatus(w, code, map[string]string{
			"status": status,
			"state":  state.String(),
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func writeStatus(w http.ResponseWriter, code int, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
