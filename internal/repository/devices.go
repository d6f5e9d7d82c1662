package repository

import (
	"context"
	"fmt"

	"wavespush/internal/models"
)

// RegisterDevice inserts a device, creating the subscriber row if this is the
// address's first reference. The device's UID and timestamps are filled in.
func (r *Repository) RegisterDevice(ctx context.Context, device *models.Device) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin register device: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := upsertSubscriber(ctx, tx, device.SubscriberAddress); err != nil {
		return err
	}
	err = tx.QueryRow(ctx,
		`INSERT INTO devices (fcm_uid, subscriber_address, language, utc_offset_seconds)
		 VALUES ($1, $2, $3, $4)
		 RETURNING uid, created_at, updated_at`,
		device.FCMUID, device.SubscriberAddress, device.Language, device.UTCOffsetSeconds,
	).Scan(&device.UID, &device.CreatedAt, &device.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert device: %w", err)
	}
	return tx.Commit(ctx)
}

// UpdateDevice mutates the given fields of a device; nil fields are left
// untouched. ErrNotFound when the uid does not exist.
func (r *Repository) UpdateDevice(ctx context.Context, uid int, fcmUID, language *string, utcOffsetSeconds *int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE devices SET
			fcm_uid = COALESCE($1, fcm_uid),
			language = COALESCE($2, language),
			utc_offset_seconds = COALESCE($3, utc_offset_seconds),
			updated_at = now()
		 WHERE uid = $4`,
		fcmUID, language, utcOffsetSeconds, uid)
	if err != nil {
		return fmt.Errorf("update device %d: %w", uid, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UnregisterDevice deletes a device and garbage-collects the subscriber row
// when neither devices nor subscriptions reference it anymore.
func (r *Repository) UnregisterDevice(ctx context.Context, uid int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unregister device: %w", err)
	}
	defer tx.Rollback(ctx)

	var address models.Address
	err = tx.QueryRow(ctx,
		`DELETE FROM devices WHERE uid = $1 RETURNING subscriber_address`, uid,
	).Scan(&address)
	if err != nil {
		if isNoRows(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete device %d: %w", uid, err)
	}

	if err := collectOrphanSubscriber(ctx, tx, address); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// upsertSubscriber lazily creates the subscriber row.
func upsertSubscriber(ctx context.Context, q querier, address models.Address) error {
	_, err := q.Exec(ctx,
		`INSERT INTO subscribers (address) VALUES ($1)
		 ON CONFLICT (address) DO UPDATE SET updated_at = now()`, address)
	if err != nil {
		return fmt.Errorf("upsert subscriber %s: %w", address, err)
	}
	return nil
}

// collectOrphanSubscriber removes the subscriber row once nothing references
// it, preserving the "exists iff referenced" invariant.
func collectOrphanSubscriber(ctx context.Context, q querier, address models.Address) error {
	_, err := q.Exec(ctx,
		`DELETE FROM subscribers s WHERE s.address = $1
		 AND NOT EXISTS (SELECT 1 FROM devices d WHERE d.subscriber_address = s.address)
		 AND NOT EXISTS (SELECT 1 FROM subscriptions n WHERE n.subscriber_address = s.address)`,
		address)
	if err != nil {
		return fmt.Errorf("collect subscriber %s: %w", address, err)
	}
	return nil
}

func devicesForSubscriber(ctx context.Context, q querier, address models.Address) ([]models.Device, error) {
	rows, err := q.Query(ctx,
		`SELECT uid, fcm_uid, subscriber_address, language, utc_offset_seconds, created_at, updated_at
		 FROM devices WHERE subscriber_address = $1 ORDER BY uid`, address)
	if err != nil {
		return nil, fmt.Errorf("query devices for %s: %w", address, err)
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		var d models.Device
		if err := rows.Scan(&d.UID, &d.FCMUID, &d.SubscriberAddress, &d.Language,
			&d.UTCOffsetSeconds, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}
