// internal/common/config/config.go
package config

import (
	"fmt"
	"net/url"
)

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Database DatabaseConfig `mapstructure:"database"`
	Email    EmailConfig    `mapstructure:"email"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// Queue drivers.
const (
	QueueDriverPostgres = "postgres"
	QueueDriverSupabase = "supabase"
)

// QueueConfig selects where pending notifications are read from.
type QueueConfig struct {
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Supabase SupabaseConfig `mapstructure:"supabase"`
}

type PostgresConfig struct {
	URL            string `mapstructure:"url"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string. A URL wins over discrete fields.
func (p PostgresConfig) GetDSN() string {
	if p.URL != "" {
		return p.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// SupabaseConfig points at the PostgREST endpoint of a Supabase project.
type SupabaseConfig struct {
	URL            string `mapstructure:"url"`
	ServiceRoleKey string `mapstructure:"service_role_key"`
	Timeout        int    `mapstructure:"timeout"` // milliseconds
}

type DatabaseConfig struct {
	Redis         RedisConfig         `mapstructure:"redis"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
}

// Email providers.
const (
	EmailProviderResend = "resend"
	EmailProviderSES    = "ses"
	EmailProviderSMTP   = "smtp"
)

type EmailConfig struct {
	Provider string `mapstructure:"provider"`
	From     string `mapstructure:"from"`

	Resend struct {
		APIKey  string `mapstructure:"api_key"`
		BaseURL string `mapstructure:"base_url"`
		Timeout int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"resend"`

	SES struct {
		Region           string `mapstructure:"region"`
		ConfigurationSet string `mapstructure:"configuration_set"`
	} `mapstructure:"ses"`

	SMTP struct {
		Host       string `mapstructure:"host"`
		Port       int    `mapstructure:"port"`
		Username   string `mapstructure:"username"`
		Password   string `mapstructure:"password"`
		Encryption string `mapstructure:"encryption"` // none, starttls, ssl_tls
	} `mapstructure:"smtp"`
}

// DispatchConfig holds pacing and retry settings. Durations are milliseconds.
type DispatchConfig struct {
	BatchSize      int  `mapstructure:"batch_size"`
	RateLimitDelay int  `mapstructure:"rate_limit_delay"`
	BatchDelay     int  `mapstructure:"batch_delay"`
	MaxRetries     int  `mapstructure:"max_retries"`
	RetryBaseDelay int  `mapstructure:"retry_base_delay"`
	CheckInterval  int  `mapstructure:"check_interval"`
	ErrorBackoff   int  `mapstructure:"error_backoff"`
	PassTimeout    int  `mapstructure:"pass_timeout"`
	ClaimsEnabled  bool `mapstructure:"claims_enabled"`
	ClaimTTL       int  `mapstructure:"claim_ttl"`
}

type AlertsConfig struct {
	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
		Region   string `mapstructure:"region"`
	} `mapstructure:"sns"`
}

// AuditConfig controls indexing of per-notification results into Elasticsearch.
type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Index   string `mapstructure:"index"`
}

type MetricsConfig struct {
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// RestURL returns the PostgREST RPC base for the Supabase project.
func (s SupabaseConfig) RestURL() (string, error) {
	u, err := url.Parse(s.URL)
	if err != nil {
		return "", fmt.Errorf("parse supabase url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("supabase url must be absolute: %q", s.URL)
	}
	return u.Scheme + "://" + u.Host + "/rest/v1/rpc", nil
}
