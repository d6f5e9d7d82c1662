package repository

import (
	"context"
	"fmt"
	"time"

	"wavespush/internal/models"
)

// subscriptionColumns joins a subscription with its topic-detail row. Exactly
// one of the detail sides is populated per row.
const subscriptionColumns = `
	s.uid, s.subscriber_address, s.created_at, s.topic_type,
	oe.subscription_uid IS NOT NULL,
	pt.amount_asset_id, pt.price_asset_id, pt.price_threshold
 FROM subscriptions s
 LEFT JOIN topics_order_execution oe ON oe.subscription_uid = s.uid
 LEFT JOIN topics_price_threshold pt ON pt.subscription_uid = s.uid`

// ListSubscriptions returns every subscription of the address, oldest first.
func (r *Repository) ListSubscriptions(ctx context.Context, address models.Address) ([]models.Subscription, error) {
	return querySubscriptions(ctx, r.db,
		`SELECT`+subscriptionColumns+` WHERE s.subscriber_address = $1 ORDER BY s.uid`, address)
}

// Subscribe applies a batch of topic URLs for one address in a single
// transaction. Per topic: an identical (topic, mode) is ignored, an existing
// topic with a new mode is updated in place, and a new topic is inserted
// together with its detail row. Per-address limits are enforced over the
// union of existing and incoming topics; on a limit violation nothing is
// written.
func (r *Repository) Subscribe(ctx context.Context, address models.Address, topics []models.TopicSubscription, limits models.SubscriptionLimits) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin subscribe: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := querySubscriptions(ctx, tx,
		`SELECT`+subscriptionColumns+` WHERE s.subscriber_address = $1 ORDER BY s.uid`, address)
	if err != nil {
		return err
	}

	if err := models.CheckSubscriptionLimits(address, existing, topics, limits); err != nil {
		return err
	}

	if err := upsertSubscriber(ctx, tx, address); err != nil {
		return err
	}

	byTopic := make(map[string]models.Subscription, len(existing))
	for _, sub := range existing {
		byTopic[sub.Topic.String()] = sub
	}

	for _, incoming := range topics {
		key := incoming.Topic.String()
		if current, ok := byTopic[key]; ok {
			if current.Mode == incoming.Mode {
				continue
			}
			_, err := tx.Exec(ctx,
				`UPDATE subscriptions SET topic_type = $1 WHERE uid = $2`,
				incoming.Mode.Int(), current.UID)
			if err != nil {
				return fmt.Errorf("update subscription %d mode: %w", current.UID, err)
			}
			current.Mode = incoming.Mode
			byTopic[key] = current
			continue
		}

		var uid int64
		var createdAt time.Time
		err := tx.QueryRow(ctx,
			`INSERT INTO subscriptions (subscriber_address, topic, topic_type)
			 VALUES ($1, $2, $3) RETURNING uid, created_at`,
			address, key, incoming.Mode.Int(),
		).Scan(&uid, &createdAt)
		if err != nil {
			return fmt.Errorf("insert subscription %s: %w", key, err)
		}

		switch topic := incoming.Topic.(type) {
		case models.OrderFulfilledTopic:
			_, err = tx.Exec(ctx,
				`INSERT INTO topics_order_execution (subscription_uid) VALUES ($1)`, uid)
		case models.PriceThresholdTopic:
			_, err = tx.Exec(ctx,
				`INSERT INTO topics_price_threshold (subscription_uid, amount_asset_id, price_asset_id, price_threshold)
				 VALUES ($1, $2, $3, $4)`,
				uid, topic.AmountAsset.String(), topic.PriceAsset.String(), topic.Threshold)
		default:
			return &models.FatalError{Reason: fmt.Sprintf("unhandled topic type %T", incoming.Topic)}
		}
		if err != nil {
			return fmt.Errorf("insert topic detail for %s: %w", key, err)
		}

		byTopic[key] = models.Subscription{
			UID:               uid,
			SubscriberAddress: address,
			CreatedAt:         createdAt,
			Mode:              incoming.Mode,
			Topic:             incoming.Topic,
		}
	}

	return tx.Commit(ctx)
}

// Unsubscribe deletes the listed topics of the address; an empty list deletes
// all of them. Detail rows go with the cascade and an orphaned subscriber row
// is garbage-collected.
func (r *Repository) Unsubscribe(ctx context.Context, address models.Address, topics []models.Topic) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin unsubscribe: %w", err)
	}
	defer tx.Rollback(ctx)

	if len(topics) == 0 {
		_, err = tx.Exec(ctx,
			`DELETE FROM subscriptions WHERE subscriber_address = $1`, address)
	} else {
		urls := make([]string, 0, len(topics))
		for _, t := range topics {
			urls = append(urls, t.String())
		}
		_, err = tx.Exec(ctx,
			`DELETE FROM subscriptions WHERE subscriber_address = $1 AND topic = ANY($2)`,
			address, urls)
	}
	if err != nil {
		return fmt.Errorf("delete subscriptions for %s: %w", address, err)
	}

	if err := collectOrphanSubscriber(ctx, tx, address); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func querySubscriptions(ctx context.Context, q querier, sql string, args ...any) ([]models.Subscription, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		var (
			sub            models.Subscription
			topicType      int
			orderExecution bool
			amountAssetID  *string
			priceAssetID   *string
			threshold      *float64
		)
		if err := rows.Scan(&sub.UID, &sub.SubscriberAddress, &sub.CreatedAt, &topicType,
			&orderExecution, &amountAssetID, &priceAssetID, &threshold); err != nil {
			return nil, err
		}

		sub.Mode, err = models.SubscriptionModeFromInt(topicType)
		if err != nil {
			return nil, err
		}
		sub.Topic, err = decodeTopicDetail(sub.UID, orderExecution, amountAssetID, priceAssetID, threshold)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// decodeTopicDetail rebuilds the topic from the joined detail columns. A
// subscription without exactly one detail row violates the schema invariant
// and is reported as fatal.
func decodeTopicDetail(uid int64, orderExecution bool, amountAssetID, priceAssetID *string, threshold *float64) (models.Topic, error) {
	switch {
	case orderExecution && amountAssetID == nil:
		return models.OrderFulfilledTopic{}, nil
	case !orderExecution && amountAssetID != nil && priceAssetID != nil && threshold != nil:
		amountAsset, err := models.ParseAsset(*amountAssetID)
		if err != nil {
			return nil, &models.FatalError{Reason: fmt.Sprintf("subscription %d: bad amount asset in detail row: %v", uid, err)}
		}
		priceAsset, err := models.ParseAsset(*priceAssetID)
		if err != nil {
			return nil, &models.FatalError{Reason: fmt.Sprintf("subscription %d: bad price asset in detail row: %v", uid, err)}
		}
		return models.PriceThresholdTopic{
			AmountAsset: amountAsset,
			PriceAsset:  priceAsset,
			Threshold:   *threshold,
		}, nil
	default:
		return nil, &models.FatalError{Reason: fmt.Sprintf("subscription %d has no unique topic-detail row", uid)}
	}
}
