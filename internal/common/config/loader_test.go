package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "connect-notifier/internal/common/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func validConfig() *Config {
	cfg := &Config{}
	cfg.Queue.Postgres.URL = "postgres://notifier@localhost/connect"
	cfg.Email.From = "Community Connect <notifications@example.org>"
	cfg.Email.Resend.APIKey = "re_test"
	applyDefaults(cfg)
	return cfg
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env@db/connect")
	t.Setenv("RESEND_API_KEY", "re_from_env")
	t.Setenv("EMAIL_FROM", "notify@example.org")

	path := writeConfig(t, `
dispatch:
  batch_size: 5
logging:
  level: debug
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env@db/connect", cfg.Queue.Postgres.GetDSN())
	assert.Equal(t, "re_from_env", cfg.Email.Resend.APIKey)
	assert.Equal(t, "notify@example.org", cfg.Email.From)
	assert.Equal(t, 5, cfg.Dispatch.BatchSize)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// defaults
	assert.Equal(t, QueueDriverPostgres, cfg.Queue.Driver)
	assert.Equal(t, EmailProviderResend, cfg.Email.Provider)
	assert.Equal(t, 600, cfg.Dispatch.RateLimitDelay)
	assert.Equal(t, 1000, cfg.Dispatch.BatchDelay)
	assert.Equal(t, 3, cfg.Dispatch.MaxRetries)
	assert.Equal(t, 2000, cfg.Dispatch.RetryBaseDelay)
	assert.Equal(t, 5*time.Minute, GetDuration(cfg.Dispatch.CheckInterval))
	assert.Equal(t, 30*time.Second, GetDuration(cfg.Dispatch.ErrorBackoff))
}

func TestLoadFromFile_SupabaseFallbackEnv(t *testing.T) {
	t.Setenv("VITE_SUPABASE_URL", "https://abc.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service-role")
	t.Setenv("RESEND_API_KEY", "re_key")

	path := writeConfig(t, `
queue:
  driver: supabase
email:
  from: notify@example.org
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://abc.supabase.co", cfg.Queue.Supabase.URL)

	rest, err := cfg.Queue.Supabase.RestURL()
	require.NoError(t, err)
	assert.Equal(t, "https://abc.supabase.co/rest/v1/rpc", rest)
}

func TestLoadFromFile_ExpandsPlaceholders(t *testing.T) {
	t.Setenv("NOTIFIER_FROM", "placeholder@example.org")
	t.Setenv("RESEND_API_KEY", "re_key")
	t.Setenv("DATABASE_URL", "postgres://x@y/z")

	path := writeConfig(t, `
email:
  from: ${NOTIFIER_FROM}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "placeholder@example.org", cfg.Email.From)
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:    "missing postgres dsn",
			mutate:  func(c *Config) { c.Queue.Postgres.URL = "" },
			wantErr: "queue.postgres.url",
		},
		{
			name: "postgres discrete fields",
			mutate: func(c *Config) {
				c.Queue.Postgres.URL = ""
				c.Queue.Postgres.Host = "db"
				c.Queue.Postgres.Database = "connect"
				c.Queue.Postgres.User = "notifier"
			},
		},
		{
			name:    "supabase without key",
			mutate:  func(c *Config) { c.Queue.Driver = QueueDriverSupabase; c.Queue.Supabase.URL = "https://x.supabase.co" },
			wantErr: "SUPABASE_SERVICE_ROLE_KEY",
		},
		{
			name: "supabase relative url",
			mutate: func(c *Config) {
				c.Queue.Driver = QueueDriverSupabase
				c.Queue.Supabase.URL = "x.supabase.co"
				c.Queue.Supabase.ServiceRoleKey = "k"
			},
			wantErr: "must be absolute",
		},
		{
			name:    "unknown queue driver",
			mutate:  func(c *Config) { c.Queue.Driver = "mysql" },
			wantErr: "unsupported queue.driver",
		},
		{
			name:    "missing from",
			mutate:  func(c *Config) { c.Email.From = "" },
			wantErr: "email.from",
		},
		{
			name:    "missing resend key",
			mutate:  func(c *Config) { c.Email.Resend.APIKey = "" },
			wantErr: "RESEND_API_KEY",
		},
		{
			name:    "ses without region",
			mutate:  func(c *Config) { c.Email.Provider = EmailProviderSES },
			wantErr: "email.ses.region",
		},
		{
			name:    "smtp without host",
			mutate:  func(c *Config) { c.Email.Provider = EmailProviderSMTP },
			wantErr: "email.smtp.host",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Email.Provider = "pigeon" },
			wantErr: "unsupported email.provider",
		},
		{
			name:    "claims without redis",
			mutate:  func(c *Config) { c.Dispatch.ClaimsEnabled = true },
			wantErr: "REDIS_ADDRESS",
		},
		{
			name:    "audit without elasticsearch",
			mutate:  func(c *Config) { c.Audit.Enabled = true },
			wantErr: "elasticsearch.addresses",
		},
		{
			name:    "sns alerts without topic",
			mutate:  func(c *Config) { c.Alerts.SNS.Enabled = true },
			wantErr: "alerts.sns.topic_arn",
		},
		{
			name:    "negative delay",
			mutate:  func(c *Config) { c.Dispatch.RateLimitDelay = -1 },
			wantErr: "must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, apperrors.ErrCodeConfigurationInvalid, apperrors.CodeOf(err))
		})
	}
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "connect", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=connect sslmode=disable", p.GetDSN())
}
