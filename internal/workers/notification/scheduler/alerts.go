// internal/workers/notification/scheduler/alerts.go
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"

	"connect-notifier/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// maxAlertFailures caps how many failed results are listed in one alert.
const maxAlertFailures = 20

// Alerter is told about failed passes.
type Alerter interface {
	Alert(ctx context.Context, summary *models.DispatchSummary, cause error) error
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSAlerter publishes a JSON summary of a failed pass to an SNS topic.
type SNSAlerter struct {
	client   SNSService
	topicARN string
	service  string
}

type alertPayload struct {
	Service    string                  `json:"service"`
	RunID      string                  `json:"runId,omitempty"`
	Total      int                     `json:"total"`
	Processed  int                     `json:"processed"`
	Successful int                     `json:"successful"`
	Errors     int                     `json:"errors"`
	Error      string                  `json:"error,omitempty"`
	Failures   []models.DispatchResult `json:"failures,omitempty"`
}

func NewSNSAlerter(client SNSService, topicARN, service string) *SNSAlerter {
	return &SNSAlerter{client: client, topicARN: topicARN, service: service}
}

func (a *SNSAlerter) Alert(ctx context.Context, summary *models.DispatchSummary, cause error) error {
	payload := alertPayload{Service: a.service}
	if summary != nil {
		payload.RunID = summary.RunID
		payload.Total = summary.Total
		payload.Processed = summary.Processed
		payload.Successful = summary.Successful
		payload.Errors = summary.Errors
		for _, r := range summary.Results {
			if r.Success {
				continue
			}
			if len(payload.Failures) == maxAlertFailures {
				break
			}
			payload.Failures = append(payload.Failures, r)
		}
	}
	if cause != nil {
		payload.Error = cause.Error()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	_, err = a.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(a.topicARN),
		Subject:  aws.String(alertSubject(a.service, payload)),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

// SNS subjects are limited to 100 characters.
func alertSubject(service string, p alertPayload) string {
	var subject string
	if p.Error != "" && p.Processed == 0 {
		subject = fmt.Sprintf("[%s] notification dispatch pass failed", service)
	} else {
		subject = fmt.Sprintf("[%s] %d of %d notifications failed", service, p.Errors, p.Total)
	}
	if len(subject) > 100 {
		subject = subject[:100]
	}
	return subject
}
