// internal/workers/notification/dispatch-pending/config.go
package dispatchpending

import (
	"time"

	"connect-notifier/internal/common/config"
)

type Config struct {
	From           string
	BatchSize      int
	RateLimitDelay time.Duration
	BatchDelay     time.Duration
	MaxRetries     int
	RetryBaseDelay time.Duration
	ClaimTTL       time.Duration
}

// LoadConfig maps the application config onto dispatcher settings.
func LoadConfig(cfg *config.Config) *Config {
	d := cfg.Dispatch
	return &Config{
		From:           cfg.Email.From,
		BatchSize:      d.BatchSize,
		RateLimitDelay: config.GetDuration(d.RateLimitDelay),
		BatchDelay:     config.GetDuration(d.BatchDelay),
		MaxRetries:     d.MaxRetries,
		RetryBaseDelay: config.GetDuration(d.RetryBaseDelay),
		ClaimTTL:       config.GetDuration(d.ClaimTTL),
	}
}

func (c *Config) retryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: c.MaxRetries, BaseDelay: c.RetryBaseDelay}
}
