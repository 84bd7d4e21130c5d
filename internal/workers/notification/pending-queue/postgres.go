// internal/workers/notification/pending-queue/postgres.go
package pendingqueue

import (
	"context"
	"database/sql"

	apperrors "connect-notifier/internal/common/errors"
	"connect-notifier/internal/common/logger"
	"connect-notifier/internal/models"
)

const (
	fetchPendingQuery = `SELECT id, user_email, event_title, message, sender_name, organization_name FROM get_pending_notifications()`
	markSentQuery     = `SELECT mark_notification_sent($1)`
)

// PostgresSource calls the queue functions over a direct database connection.
type PostgresSource struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresSource(db *sql.DB, log logger.Logger) *PostgresSource {
	return &PostgresSource{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"queueDriver": "postgres"}),
	}
}

func (s *PostgresSource) FetchPending(ctx context.Context) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx, fetchPendingQuery)
	if err != nil {
		return nil, apperrors.NewQueueFetchFailedError(err)
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var (
			id, email, title, message, sender, org sql.NullString
		)
		if err := rows.Scan(&id, &email, &title, &message, &sender, &org); err != nil {
			return nil, apperrors.NewQueueFetchFailedError(err)
		}
		out = append(out, models.Notification{
			ID:               id.String,
			UserEmail:        email.String,
			EventTitle:       title.String,
			Message:          message.String,
			SenderName:       sender.String,
			OrganizationName: org.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewQueueFetchFailedError(err)
	}

	s.logger.Debug("fetched pending notifications", map[string]interface{}{"count": len(out)})
	return out, nil
}

func (s *PostgresSource) MarkSent(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, markSentQuery, id); err != nil {
		return apperrors.NewMarkSentFailedError(id, err)
	}
	return nil
}
