package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/vasiliy-maslov/shop-service/internal/notification"
)

type NotificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*NotificationRepository)(nil)

func (r *NotificationRepository) Create(ctx context.Context, entry *notification.LogEntry) error {
	query := `INSERT INTO notification_logs (id, type, recipient, subject, timestamp, status, order_number, created_at)
              VALUES (:id, :type, :recipient, :subject, :timestamp, :status, :order_number, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("repository: failed to insert notification log: %w", err)
	}
	return nil
}

func (r *NotificationRepository) ListByRecipients(ctx context.Context, recipients []string) ([]notification.LogEntry, error) {
	entries := []notification.LogEntry{}
	if len(recipients) == 0 {
		return entries, nil
	}

	query := `
		SELECT id, type, recipient, subject, timestamp, status, order_number, created_at
		FROM notification_logs
		WHERE recipient = ANY($1)
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &entries, query, pq.Array(recipients)); err != nil {
		return nil, fmt.Errorf("repository: failed to list notification logs: %w", err)
	}
	return entries, nil
}
