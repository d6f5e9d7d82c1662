package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"wavespush/internal/models"
)

// EventTx is the transaction the message pump opens per event: matching,
// device lookup, enqueueing and one-shot deletion all happen on it, so an
// event either lands completely or not at all.
type EventTx struct {
	tx pgx.Tx
}

// BeginEventTx opens the per-event transaction.
func (r *Repository) BeginEventTx(ctx context.Context) (*EventTx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, models.Transient(fmt.Errorf("begin event tx: %w", err))
	}
	return &EventTx{tx: tx}, nil
}

func (t *EventTx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return models.Transient(fmt.Errorf("commit event tx: %w", err))
	}
	return nil
}

// Rollback is safe to defer; it is a no-op after Commit.
func (t *EventTx) Rollback(ctx context.Context) {
	_ = t.tx.Rollback(ctx)
}

// MatchOrderFulfilled returns the address's order-execution subscriptions,
// ordered by uid.
func (t *EventTx) MatchOrderFulfilled(ctx context.Context, address models.Address) ([]models.Subscription, error) {
	return querySubscriptions(ctx, t.tx,
		`SELECT`+subscriptionColumns+`
		 WHERE s.subscriber_address = $1 AND oe.subscription_uid IS NOT NULL
		 ORDER BY s.uid`, address)
}

// MatchPriceThreshold returns the subscriptions whose threshold on the exact
// pair lies in [low, high], ordered by uid. BETWEEN is inclusive; the caller
// re-checks candidates against the price range to drop excluded bounds.
func (t *EventTx) MatchPriceThreshold(ctx context.Context, pair models.AssetPair, low, high float64) ([]models.Subscription, error) {
	return querySubscriptions(ctx, t.tx,
		`SELECT`+subscriptionColumns+`
		 WHERE pt.amount_asset_id = $1 AND pt.price_asset_id = $2
		   AND pt.price_threshold BETWEEN $3 AND $4
		 ORDER BY s.uid`,
		pair.AmountAsset.String(), pair.PriceAsset.String(), low, high)
}

// DevicesForSubscriber returns the subscriber's registered devices.
func (t *EventTx) DevicesForSubscriber(ctx context.Context, address models.Address) ([]models.Device, error) {
	return devicesForSubscriber(ctx, t.tx, address)
}

// Enqueue appends a message to the delivery queue, due immediately.
func (t *EventTx) Enqueue(ctx context.Context, msg *models.QueuedMessage) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO messages (scheduled_for, device_uid, notification_title, notification_body, data, collapse_key)
		 VALUES (now(), $1, $2, $3, $4, $5)
		 RETURNING uid, created_at, scheduled_for`,
		msg.DeviceUID, msg.Title, msg.Body, msg.Data, msg.CollapseKey,
	).Scan(&msg.UID, &msg.CreatedAt, &msg.ScheduledFor)
	if err != nil {
		return models.Transient(fmt.Errorf("enqueue message for device %d: %w", msg.DeviceUID, err))
	}
	return nil
}

// DeleteSubscription removes a consumed one-shot subscription within the
// event transaction. The cascade drops its detail row.
func (t *EventTx) DeleteSubscription(ctx context.Context, uid int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM subscriptions WHERE uid = $1`, uid)
	if err != nil {
		return models.Transient(fmt.Errorf("delete subscription %d: %w", uid, err))
	}
	return nil
}
