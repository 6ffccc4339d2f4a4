package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/harunoki/clinic-api/internal/model"
	"github.com/harunoki/clinic-api/internal/repository"
)

const maxDeliveryAttempts = 3

type notificationRepository struct {
	BaseRepository
}

func NewNotificationRepository(db *sqlx.DB) repository.NotificationRepository {
	return &notificationRepository{NewBaseRepository(db)}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	n.ID = uuid.New()
	n.Status = model.NotificationStatusPending
	n.CreatedAt = time.Now()
	n.UpdatedAt = n.CreatedAt

	query := `
		INSERT INTO notifications (id, channel, recipient, subject, message, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.Channel, n.Recipient, n.Subject, n.Message, n.Status, n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListPending reads up to limit deliverable rows. SKIP LOCKED keeps
// concurrent pollers off each other's batch while the read transaction
// is open; the locks drop at commit, so a row can still reach two
// workers and delivery stays at-least-once.
func (r *notificationRepository) ListPending(ctx context.Context, limit int) ([]*model.Notification, error) {
	query := `
		SELECT id, channel, recipient, subject, message, status, attempts, sent_at, created_at, updated_at
		FROM notifications
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`
	var notifications []*model.Notification
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		return tx.SelectContext(ctx, &notifications, query, model.NotificationStatusPending, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	return notifications, nil
}

func (r *notificationRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET status = $1, sent_at = $2, updated_at = $2 WHERE id = $3`,
		model.NotificationStatusSent, now, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return requireRow(result)
}

// MarkFailed bumps the attempt counter, flipping the row to failed once
// it exhausts its retries.
func (r *notificationRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE notifications
		SET attempts = attempts + 1,
		    status = CASE WHEN attempts + 1 >= $1 THEN $2 ELSE status END,
		    updated_at = $3
		WHERE id = $4
	`
	result, err := r.db.ExecContext(ctx, query,
		maxDeliveryAttempts, model.NotificationStatusFailed, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return requireRow(result)
}
