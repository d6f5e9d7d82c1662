package repository

import (
	"context"
	"fmt"
)

var dropStatements = []string{
	`DROP TABLE IF EXISTS messages`,
	`DROP TABLE IF EXISTS topics_price_threshold`,
	`DROP TABLE IF EXISTS topics_order_execution`,
	`DROP TABLE IF EXISTS subscriptions`,
	`DROP TABLE IF EXISTS devices`,
	`DROP TABLE IF EXISTS subscribers`,
}

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS subscribers (
		address TEXT PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS devices (
		uid SERIAL PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		fcm_uid TEXT NOT NULL,
		subscriber_address TEXT NOT NULL REFERENCES subscribers (address) ON DELETE CASCADE,
		language TEXT NOT NULL DEFAULT 'en',
		utc_offset_seconds INT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_devices_subscriber ON devices (subscriber_address)`,
	`CREATE TABLE IF NOT EXISTS subscriptions (
		uid BIGSERIAL PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		subscriber_address TEXT NOT NULL REFERENCES subscribers (address) ON DELETE CASCADE,
		topic TEXT NOT NULL,
		topic_type INT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_subscriptions_subscriber ON subscriptions (subscriber_address)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_subscriptions_subscriber_topic ON subscriptions (subscriber_address, topic)`,
	`CREATE TABLE IF NOT EXISTS topics_order_execution (
		subscription_uid BIGINT PRIMARY KEY REFERENCES subscriptions (uid) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS topics_price_threshold (
		subscription_uid BIGINT PRIMARY KEY REFERENCES subscriptions (uid) ON DELETE CASCADE,
		amount_asset_id TEXT NOT NULL,
		price_asset_id TEXT NOT NULL,
		price_threshold DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_topics_price_threshold_pair
		ON topics_price_threshold (amount_asset_id, price_asset_id)`,
	`CREATE TABLE IF NOT EXISTS messages (
		uid BIGSERIAL PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		scheduled_for TIMESTAMPTZ NOT NULL DEFAULT now(),
		send_attempts_count SMALLINT NOT NULL DEFAULT 0,
		send_error TEXT NULL,
		device_uid INT NOT NULL REFERENCES devices (uid) ON DELETE CASCADE,
		notification_title TEXT NOT NULL,
		notification_body TEXT NOT NULL,
		data JSONB NULL,
		collapse_key TEXT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_scheduled_for ON messages (scheduled_for)`,
}

// Migrate applies the schema in one transaction. With drop set the tables are
// recreated from scratch, losing all data.
func (r *Repository) Migrate(ctx context.Context, drop bool) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback(ctx)

	statements := migrationStatements
	if drop {
		statements = append(append([]string{}, dropStatements...), migrationStatements...)
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement failed: %w\n%s", err, stmt)
		}
	}
	return tx.Commit(ctx)
}
