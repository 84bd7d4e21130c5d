// internal/common/email/smtp.go
package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"
)

const ProviderSMTP = "smtp"

// SMTPConfig holds connection settings for SMTPTransport.
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	Encryption string // none, starttls, ssl_tls
}

// SMTPTransport sends mail through an SMTP relay using go-mail.
type SMTPTransport struct {
	config SMTPConfig
	send   func(ctx context.Context, m *mail.Msg) error
}

func NewSMTPTransport(config SMTPConfig) *SMTPTransport {
	t := &SMTPTransport{config: config}
	t.send = t.dialAndSend
	return t
}

func (t *SMTPTransport) Name() string { return ProviderSMTP }

func (t *SMTPTransport) Send(ctx context.Context, msg Message) (*Receipt, error) {
	m, err := buildMsg(msg)
	if err != nil {
		return nil, newSendError(ProviderSMTP, PermanentFailure, 0, "", err)
	}

	if err := t.send(ctx, m); err != nil {
		return nil, classifySMTP(ctx, err)
	}

	id := m.GetGenHeader(mail.HeaderMessageID)
	receipt := &Receipt{Provider: ProviderSMTP}
	if len(id) > 0 {
		receipt.ID = id[0]
	}
	return receipt, nil
}

func buildMsg(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(msg.From); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}
	m.Subject(msg.Subject)
	m.SetMessageID()
	if msg.IdempotencyKey != "" {
		m.SetGenHeader(mail.Header("X-Entity-Ref-ID"), msg.IdempotencyKey)
	}

	if msg.Text != "" {
		m.SetBodyString(mail.TypeTextPlain, msg.Text)
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	} else {
		m.SetBodyString(mail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}

func (t *SMTPTransport) dialAndSend(ctx context.Context, m *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(t.config.Port),
		mail.WithTLSPolicy(tlsPolicyFromEncryption(t.config.Encryption)),
	}
	if t.config.Encryption == "ssl_tls" {
		opts = append(opts, mail.WithSSL())
	}
	if t.config.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.config.Username),
			mail.WithPassword(t.config.Password),
		)
	}

	c, err := mail.NewClient(t.config.Host, opts...)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}
	return c.DialAndSendWithContext(ctx, m)
}

// temporaryError is satisfied by go-mail's *mail.SendError.
type temporaryError interface {
	IsTemp() bool
}

func classifySMTP(ctx context.Context, err error) *SendError {
	if ctx.Err() != nil {
		return newSendError(ProviderSMTP, PermanentFailure, 0, "", err)
	}
	var temp temporaryError
	if errors.As(err, &temp) && !temp.IsTemp() {
		return newSendError(ProviderSMTP, PermanentFailure, 0, "", err)
	}
	return newSendError(ProviderSMTP, TransientFailure, 0, "", err)
}

func tlsPolicyFromEncryption(enc string) mail.TLSPolicy {
	switch enc {
	case "ssl_tls", "starttls":
		return mail.TLSMandatory
	default:
		return mail.NoTLS
	}
}
