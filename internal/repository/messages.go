package repository

import (
	"context"
	"fmt"
	"time"

	"wavespush/internal/models"
)

// DequeueDue returns the oldest due message together with its device's push
// token, or nil when nothing is due. Rows that exhausted maxAttempts are
// skipped; ordering by scheduled_for keeps them from blocking newer rows.
func (r *Repository) DequeueDue(ctx context.Context, maxAttempts int) (*models.DueMessage, error) {
	var due models.DueMessage
	err := r.db.QueryRow(ctx,
		`SELECT m.uid, m.created_at, m.scheduled_for, m.send_attempts_count, m.send_error,
			m.device_uid, m.notification_title, m.notification_body, m.data, m.collapse_key,
			d.fcm_uid
		 FROM messages m
		 JOIN devices d ON d.uid = m.device_uid
		 WHERE m.send_attempts_count < $1 AND m.scheduled_for < now()
		 ORDER BY m.scheduled_for
		 LIMIT 1`, maxAttempts,
	).Scan(&due.Message.UID, &due.Message.CreatedAt, &due.Message.ScheduledFor,
		&due.Message.SendAttempts, &due.Message.SendError, &due.Message.DeviceUID,
		&due.Message.Title, &due.Message.Body, &due.Message.Data, &due.Message.CollapseKey,
		&due.FCMUID)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("dequeue message: %w", err)
	}
	return &due, nil
}

// Ack deletes a delivered message.
func (r *Repository) Ack(ctx context.Context, uid int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM messages WHERE uid = $1`, uid)
	if err != nil {
		return fmt.Errorf("ack message %d: %w", uid, err)
	}
	return nil
}

// Nack reschedules a failed message and records the error. The row stays in
// the table; once send_attempts_count reaches the sender's cap the dequeue
// predicate leaves it alone.
func (r *Repository) Nack(ctx context.Context, uid int64, retryAt time.Time, sendErr string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE messages
		 SET scheduled_for = $1, send_attempts_count = send_attempts_count + 1, send_error = $2
		 WHERE uid = $3`,
		retryAt, sendErr, uid)
	if err != nil {
		return fmt.Errorf("nack message %d: %w", uid, err)
	}
	return nil
}

// QueueStats summarizes the queue for the status endpoint: rows still being
// retried, rows that exhausted their attempts, and the oldest due timestamp.
func (r *Repository) QueueStats(ctx context.Context, maxAttempts int) (models.QueueStats, error) {
	var stats models.QueueStats
	err := r.db.QueryRow(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE send_attempts_count < $1),
			COUNT(*) FILTER (WHERE send_attempts_count >= $1),
			MIN(scheduled_for) FILTER (WHERE send_attempts_count < $1)
		 FROM messages`, maxAttempts,
	).Scan(&stats.Pending, &stats.Failed, &stats.Oldest)
	if err != nil {
		return models.QueueStats{}, fmt.Errorf("queue stats: %w", err)
	}
	return stats, nil
}

// FailedMessages lists rows that exhausted their attempts, newest first.
func (r *Repository) FailedMessages(ctx context.Context, maxAttempts, limit int) ([]models.QueuedMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx,
		`SELECT uid, created_at, scheduled_for, send_attempts_count, send_error,
			device_uid, notification_title, notification_body, data, collapse_key
		 FROM messages
		 WHERE send_attempts_count >= $1
		 ORDER BY scheduled_for DESC
		 LIMIT $2`, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed messages: %w", err)
	}
	defer rows.Close()

	var msgs []models.QueuedMessage
	for rows.Next() {
		var m models.QueuedMessage
		if err := rows.Scan(&m.UID, &m.CreatedAt, &m.ScheduledFor, &m.SendAttempts, &m.SendError,
			&m.DeviceUID, &m.Title, &m.Body, &m.Data, &m.CollapseKey); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// RequeueMessage resets one row's attempt bookkeeping so the sender picks it
// up again. ErrNotFound when the uid does not exist.
func (r *Repository) RequeueMessage(ctx context.Context, uid int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE messages
		 SET send_attempts_count = 0, send_error = NULL, scheduled_for = now()
		 WHERE uid = $1`, uid)
	if err != nil {
		return fmt.Errorf("requeue message %d: %w", uid, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RequeueExhausted resets every row that exhausted maxAttempts, optionally
// only for one device (deviceUID 0 means all). Returns the number of rows
// reset.
func (r *Repository) RequeueExhausted(ctx context.Context, maxAttempts, deviceUID int) (int64, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE messages
		 SET send_attempts_count = 0, send_error = NULL, scheduled_for = now()
		 WHERE send_attempts_count >= $1 AND ($2 = 0 OR device_uid = $2)`,
		maxAttempts, deviceUID)
	if err != nil {
		return 0, fmt.Errorf("requeue exhausted messages: %w", err)
	}
	return tag.RowsAffected(), nil
}
