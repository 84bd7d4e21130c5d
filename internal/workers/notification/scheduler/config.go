// internal/workers/notification/scheduler/config.go
package scheduler

import (
	"time"

	"connect-notifier/internal/common/config"
)

type Config struct {
	CheckInterval time.Duration
	ErrorBackoff  time.Duration
	// PassTimeout bounds a single pass; zero means no bound.
	PassTimeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		CheckInterval: config.GetDuration(cfg.Dispatch.CheckInterval),
		ErrorBackoff:  config.GetDuration(cfg.Dispatch.ErrorBackoff),
		PassTimeout:   config.GetDuration(cfg.Dispatch.PassTimeout),
	}
}
