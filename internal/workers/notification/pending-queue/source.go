// internal/workers/notification/pending-queue/source.go
package pendingqueue

import (
	"context"
	"fmt"

	"connect-notifier/internal/common/config"
	"connect-notifier/internal/common/database"
	"connect-notifier/internal/common/logger"
	"connect-notifier/internal/models"
)

const (
	fetchFunction = "get_pending_notifications"
	markFunction  = "mark_notification_sent"
	markParam     = "p_notification_id"
)

// Source is the pending-notification queue. It owns no state; both calls are
// stored procedures on the app database.
type Source interface {
	FetchPending(ctx context.Context) ([]models.Notification, error)
	MarkSent(ctx context.Context, id string) error
}

// New builds the Source selected by cfg.Driver. The returned close function
// releases the underlying connection.
func New(cfg config.QueueConfig, log logger.Logger) (Source, func() error, error) {
	switch cfg.Driver {
	case config.QueueDriverPostgres, "":
		pg, err := database.NewPostgres(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		return NewPostgresSource(pg.DB, log), pg.Close, nil
	case config.QueueDriverSupabase:
		src, err := NewSupabaseSource(cfg.Supabase, log)
		if err != nil {
			return nil, nil, err
		}
		return src, func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported queue driver %q", cfg.Driver)
	}
}
