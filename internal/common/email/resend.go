// internal/common/email/resend.go
package email

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	httpclient "connect-notifier/internal/common/http"
)

const ProviderResend = "resend"

// ResendTransport sends mail through the Resend REST API.
type ResendTransport struct {
	client *httpclient.Client
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

type resendResponse struct {
	ID   string `json:"id"`
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
	Message string `json:"message"`
	Name    string `json:"name"`
}

func NewResendTransport(baseURL, apiKey string, timeout time.Duration) *ResendTransport {
	return &ResendTransport{
		client: httpclient.NewClient(baseURL, timeout, map[string]string{
			"Authorization": "Bearer " + apiKey,
		}),
	}
}

func (t *ResendTransport) Name() string { return ProviderResend }

func (t *ResendTransport) Send(ctx context.Context, msg Message) (*Receipt, error) {
	req := resendRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	}

	var headers map[string]string
	if msg.IdempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": msg.IdempotencyKey}
	}

	resp, err := t.client.PostJSON(ctx, "/emails", req, headers)
	if err != nil {
		if ctx.Err() != nil {
			return nil, newSendError(ProviderResend, PermanentFailure, 0, "", err)
		}
		return nil, newSendError(ProviderResend, TransientFailure, 0, "", err)
	}

	var body resendResponse
	_ = json.Unmarshal(resp.Body, &body)

	if !resp.OK() {
		message := body.Message
		if message == "" {
			message = strings.TrimSpace(string(resp.Body))
		}
		return nil, newSendError(ProviderResend, classifyResend(resp.StatusCode, message), resp.StatusCode, message, nil)
	}

	id := body.ID
	if id == "" {
		id = body.Data.ID
	}
	return &Receipt{ID: id, Provider: ProviderResend}, nil
}

func classifyResend(status int, message string) FailureKind {
	switch {
	case status == http.StatusTooManyRequests:
		return RateLimited
	case strings.Contains(strings.ToLower(message), "too many requests"):
		return RateLimited
	case status >= 500:
		return TransientFailure
	default:
		return PermanentFailure
	}
}
