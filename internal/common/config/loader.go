// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "connect-notifier/internal/common/errors"
)

// envBindings maps config keys to the environment variables the dispatcher
// has always been deployed with. The first variable found wins.
var envBindings = map[string][]string{
	"queue.postgres.url":              {"DATABASE_URL"},
	"queue.supabase.url":              {"SUPABASE_URL", "VITE_SUPABASE_URL"},
	"queue.supabase.service_role_key": {"SUPABASE_SERVICE_ROLE_KEY"},
	"email.from":                      {"EMAIL_FROM"},
	"email.resend.api_key":            {"RESEND_API_KEY"},
	"database.redis.address":          {"REDIS_ADDRESS"},
	"database.redis.password":         {"REDIS_PASSWORD"},
	"alerts.sns.topic_arn":            {"ALERTS_SNS_TOPIC_ARN"},
	"app.environment":                 {"APP_ENVIRONMENT"},
}

// Load reads configs/config.yaml (if present), merges config.<env>.yaml,
// applies environment overrides and validates the result.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		_ = v.BindEnv(args...)
	}
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok || !strings.Contains(strVal, "$") {
			continue
		}
		if expanded := os.ExpandEnv(strVal); expanded != strVal {
			v.Set(key, expanded)
		}
	}
}

// applyDefaults sets default values for optional configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "connect-notifier"
	}

	if cfg.Queue.Driver == "" {
		cfg.Queue.Driver = QueueDriverPostgres
	}
	if cfg.Queue.Postgres.MaxConnections == 0 {
		cfg.Queue.Postgres.MaxConnections = 5
	}
	if cfg.Queue.Postgres.MaxIdle == 0 {
		cfg.Queue.Postgres.MaxIdle = 2
	}
	if cfg.Queue.Postgres.Port == 0 {
		cfg.Queue.Postgres.Port = 5432
	}
	if cfg.Queue.Postgres.SSLMode == "" {
		cfg.Queue.Postgres.SSLMode = "require"
	}
	if cfg.Queue.Supabase.Timeout == 0 {
		cfg.Queue.Supabase.Timeout = 15000
	}

	if cfg.Email.Provider == "" {
		cfg.Email.Provider = EmailProviderResend
	}
	if cfg.Email.Resend.BaseURL == "" {
		cfg.Email.Resend.BaseURL = "https://api.resend.com"
	}
	if cfg.Email.Resend.Timeout == 0 {
		cfg.Email.Resend.Timeout = 30000
	}
	if cfg.Email.SMTP.Port == 0 {
		cfg.Email.SMTP.Port = 587
	}
	if cfg.Email.SMTP.Encryption == "" {
		cfg.Email.SMTP.Encryption = "starttls"
	}

	d := &cfg.Dispatch
	if d.BatchSize == 0 {
		d.BatchSize = 10
	}
	if d.RateLimitDelay == 0 {
		d.RateLimitDelay = 600
	}
	if d.BatchDelay == 0 {
		d.BatchDelay = 1000
	}
	if d.MaxRetries == 0 {
		d.MaxRetries = 3
	}
	if d.RetryBaseDelay == 0 {
		d.RetryBaseDelay = 2000
	}
	if d.CheckInterval == 0 {
		d.CheckInterval = 5 * 60 * 1000
	}
	if d.ErrorBackoff == 0 {
		d.ErrorBackoff = 30000
	}
	if d.ClaimTTL == 0 {
		d.ClaimTTL = 60 * 60 * 1000
	}

	if cfg.Audit.Index == "" {
		cfg.Audit.Index = "notification-dispatch"
	}
	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":8080"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// Validate fails fast on missing credentials. There are no built-in fallbacks
// for secrets or endpoints.
func (cfg *Config) Validate() error {
	switch cfg.Queue.Driver {
	case QueueDriverPostgres:
		p := cfg.Queue.Postgres
		if p.URL == "" && (p.Host == "" || p.Database == "" || p.User == "") {
			return apperrors.NewConfigurationError("queue.postgres.url (DATABASE_URL) or host/database/user is required")
		}
	case QueueDriverSupabase:
		if cfg.Queue.Supabase.URL == "" {
			return apperrors.NewConfigurationError("queue.supabase.url (SUPABASE_URL) is required")
		}
		if cfg.Queue.Supabase.ServiceRoleKey == "" {
			return apperrors.NewConfigurationError("queue.supabase.service_role_key (SUPABASE_SERVICE_ROLE_KEY) is required")
		}
		if _, err := cfg.Queue.Supabase.RestURL(); err != nil {
			return apperrors.NewConfigurationError(err.Error())
		}
	default:
		return apperrors.NewConfigurationError(fmt.Sprintf("unsupported queue.driver %q", cfg.Queue.Driver))
	}

	if cfg.Email.From == "" {
		return apperrors.NewConfigurationError("email.from (EMAIL_FROM) is required")
	}
	switch cfg.Email.Provider {
	case EmailProviderResend:
		if cfg.Email.Resend.APIKey == "" {
			return apperrors.NewConfigurationError("email.resend.api_key (RESEND_API_KEY) is required")
		}
	case EmailProviderSES:
		if cfg.Email.SES.Region == "" {
			return apperrors.NewConfigurationError("email.ses.region is required")
		}
	case EmailProviderSMTP:
		if cfg.Email.SMTP.Host == "" {
			return apperrors.NewConfigurationError("email.smtp.host is required")
		}
	default:
		return apperrors.NewConfigurationError(fmt.Sprintf("unsupported email.provider %q", cfg.Email.Provider))
	}

	d := cfg.Dispatch
	if d.BatchSize <= 0 {
		return apperrors.NewConfigurationError("dispatch.batch_size must be positive")
	}
	if d.MaxRetries < 0 {
		return apperrors.NewConfigurationError("dispatch.max_retries must not be negative")
	}
	if d.RateLimitDelay < 0 || d.BatchDelay < 0 || d.RetryBaseDelay < 0 {
		return apperrors.NewConfigurationError("dispatch delays must not be negative")
	}

	if d.ClaimsEnabled && cfg.Database.Redis.Address == "" {
		return apperrors.NewConfigurationError("database.redis.address (REDIS_ADDRESS) is required when dispatch.claims_enabled is set")
	}
	if cfg.Audit.Enabled && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return apperrors.NewConfigurationError("database.elasticsearch.addresses is required when audit.enabled is set")
	}
	if cfg.Alerts.SNS.Enabled && cfg.Alerts.SNS.TopicARN == "" {
		return apperrors.NewConfigurationError("alerts.sns.topic_arn is required when alerts.sns.enabled is set")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
