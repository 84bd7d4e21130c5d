package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"connect-notifier/internal/app"
	"connect-notifier/internal/common/config"
	"connect-notifier/internal/common/logger"

	"go.uber.org/zap"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Path to a config YAML file (default: configs/config.yaml)")
	batchSize := flag.Int("batch-size", 5, "Notifications per batch")
	flag.Parse()

	zapLog := logger.New("info", "console")
	defer func() { _ = zapLog.Sync() }()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		zapLog.Error("failed to load config", zap.Error(err))
		return 1
	}
	if *batchSize > 0 {
		cfg.Dispatch.BatchSize = *batchSize
	}

	zapLog = logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.NewZapAdapter(zapLog).With(map[string]interface{}{"mode": "one-shot"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", map[string]interface{}{"error": err})
		return 1
	}
	defer a.Close()

	summary, code := a.Scheduler.RunOnce(ctx)
	if summary != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(summary)
	}
	return code
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}
