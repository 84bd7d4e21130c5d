// internal/common/email/ses.go
package email

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/smithy-go"
)

const ProviderSES = "ses"

// SESAPI is the subset of the SES client used here.
type SESAPI interface {
	SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESTransport sends mail through Amazon SES.
type SESTransport struct {
	api              SESAPI
	configurationSet string
}

func NewSESTransport(api SESAPI, configurationSet string) *SESTransport {
	return &SESTransport{api: api, configurationSet: configurationSet}
}

func (t *SESTransport) Name() string { return ProviderSES }

func (t *SESTransport) Send(ctx context.Context, msg Message) (*Receipt, error) {
	input := &ses.SendEmailInput{
		Source:      aws.String(msg.From),
		Destination: &types.Destination{ToAddresses: []string{msg.To}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")},
			},
		},
	}
	if msg.Text != "" {
		input.Message.Body.Text = &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")}
	}
	if t.configurationSet != "" {
		input.ConfigurationSetName = aws.String(t.configurationSet)
	}
	if msg.IdempotencyKey != "" {
		input.Tags = []types.MessageTag{{
			Name:  aws.String("notification_id"),
			Value: aws.String(sesTagValue(msg.IdempotencyKey)),
		}}
	}

	out, err := t.api.SendEmail(ctx, input)
	if err != nil {
		return nil, classifySES(ctx, err)
	}

	return &Receipt{ID: aws.ToString(out.MessageId), Provider: ProviderSES}, nil
}

func classifySES(ctx context.Context, err error) *SendError {
	if ctx.Err() != nil {
		return newSendError(ProviderSES, PermanentFailure, 0, "", err)
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return newSendError(ProviderSES, TransientFailure, 0, "", err)
	}

	code := apiErr.ErrorCode()
	kind := TransientFailure
	switch {
	case strings.HasPrefix(code, "Throttling"), strings.HasPrefix(code, "TooManyRequests"):
		kind = RateLimited
	case code == "MessageRejected",
		strings.HasPrefix(code, "MailFromDomainNotVerified"),
		strings.HasPrefix(code, "ConfigurationSetDoesNotExist"),
		strings.HasPrefix(code, "AccountSendingPaused"):
		kind = PermanentFailure
	}
	return newSendError(ProviderSES, kind, 0, code+": "+apiErr.ErrorMessage(), err)
}

var sesTagUnsafe = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SES tag values only allow ASCII letters, digits, underscores and dashes.
func sesTagValue(v string) string {
	v = sesTagUnsafe.ReplaceAllString(v, "_")
	if len(v) > 256 {
		v = v[:256]
	}
	return v
}
