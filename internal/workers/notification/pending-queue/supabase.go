// internal/workers/notification/pending-queue/supabase.go
package pendingqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"connect-notifier/internal/common/config"
	apperrors "connect-notifier/internal/common/errors"
	httpclient "connect-notifier/internal/common/http"
	"connect-notifier/internal/common/logger"
	"connect-notifier/internal/models"
)

// SupabaseSource calls the queue functions through the project's PostgREST
// RPC endpoint with the service role key.
type SupabaseSource struct {
	client *httpclient.Client
	logger logger.Logger
}

// pendingRow mirrors the RPC result; any text column may be null.
type pendingRow struct {
	ID               *string `json:"id"`
	UserEmail        *string `json:"user_email"`
	EventTitle       *string `json:"event_title"`
	Message          *string `json:"message"`
	SenderName       *string `json:"sender_name"`
	OrganizationName *string `json:"organization_name"`
}

func NewSupabaseSource(cfg config.SupabaseConfig, log logger.Logger) (*SupabaseSource, error) {
	base, err := cfg.RestURL()
	if err != nil {
		return nil, err
	}
	client := httpclient.NewClient(base, config.GetDuration(cfg.Timeout), map[string]string{
		"apikey":        cfg.ServiceRoleKey,
		"Authorization": "Bearer " + cfg.ServiceRoleKey,
	})
	return NewSupabaseSourceWithClient(client, log), nil
}

func NewSupabaseSourceWithClient(client *httpclient.Client, log logger.Logger) *SupabaseSource {
	return &SupabaseSource{
		client: client,
		logger: log.WithFields(map[string]interface{}{"queueDriver": "supabase"}),
	}
}

func (s *SupabaseSource) FetchPending(ctx context.Context) ([]models.Notification, error) {
	resp, err := s.client.PostJSON(ctx, "/"+fetchFunction, struct{}{}, nil)
	if err != nil {
		return nil, apperrors.NewQueueFetchFailedError(err)
	}
	if !resp.OK() {
		return nil, apperrors.NewQueueFetchFailedError(rpcError(fetchFunction, resp))
	}

	var rows []pendingRow
	if err := json.Unmarshal(resp.Body, &rows); err != nil {
		return nil, apperrors.NewQueueFetchFailedError(fmt.Errorf("decode %s result: %w", fetchFunction, err))
	}

	out := make([]models.Notification, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.Notification{
			ID:               deref(r.ID),
			UserEmail:        deref(r.UserEmail),
			EventTitle:       deref(r.EventTitle),
			Message:          deref(r.Message),
			SenderName:       deref(r.SenderName),
			OrganizationName: deref(r.OrganizationName),
		})
	}

	s.logger.Debug("fetched pending notifications", map[string]interface{}{"count": len(out)})
	return out, nil
}

func (s *SupabaseSource) MarkSent(ctx context.Context, id string) error {
	resp, err := s.client.PostJSON(ctx, "/"+markFunction, map[string]string{markParam: id}, nil)
	if err != nil {
		return apperrors.NewMarkSentFailedError(id, err)
	}
	if !resp.OK() {
		return apperrors.NewMarkSentFailedError(id, rpcError(markFunction, resp))
	}
	return nil
}

func rpcError(fn string, resp *httpclient.Response) error {
	return fmt.Errorf("rpc %s returned status %d: %s", fn, resp.StatusCode, strings.TrimSpace(string(resp.Body)))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
