// internal/common/email/factory.go
package email

import (
	"context"
	"fmt"

	awsclient "connect-notifier/internal/common/aws"
	"connect-notifier/internal/common/config"
)

// New builds the transport selected by cfg.Provider.
func New(ctx context.Context, cfg config.EmailConfig) (Transport, error) {
	switch cfg.Provider {
	case config.EmailProviderResend, "":
		return NewResendTransport(cfg.Resend.BaseURL, cfg.Resend.APIKey, config.GetDuration(cfg.Resend.Timeout)), nil
	case config.EmailProviderSES:
		client, err := awsclient.NewSESClient(ctx, cfg.SES.Region)
		if err != nil {
			return nil, err
		}
		return NewSESTransport(client, cfg.SES.ConfigurationSet), nil
	case config.EmailProviderSMTP:
		return NewSMTPTransport(SMTPConfig{
			Host:       cfg.SMTP.Host,
			Port:       cfg.SMTP.Port,
			Username:   cfg.SMTP.Username,
			Password:   cfg.SMTP.Password,
			Encryption: cfg.SMTP.Encryption,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported email provider %q", cfg.Provider)
	}
}
