package ingester

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"wavespush/internal/config"
	"wavespush/internal/eventbus"
)

// ordersBlockTimeout bounds one XREADGROUP call so shutdown is responsive.
const ordersBlockTimeout = 5 * time.Second

// eventFieldName is the single field every stream entry must carry.
const eventFieldName = "event"

// OrdersIngester reads the matcher's order-status updates from a Redis
// stream through a consumer group. Entries are acked and deleted only after
// the processor has confirmed every event they produced, so a crash between
// read and ack redelivers (at-least-once into an idempotent queue append).
type OrdersIngester struct {
	rdb *redis.Client
	cfg config.RedisConfig
	bus *eventbus.Bus
}

func NewOrdersIngester(rdb *redis.Client, cfg config.RedisConfig, bus *eventbus.Bus) *OrdersIngester {
	return &OrdersIngester{rdb: rdb, cfg: cfg, bus: bus}
}

// Run consumes the stream until the context is cancelled or the processor
// shuts down. The consumer's pending backlog is drained first, then the loop
// tails new entries.
func (w *OrdersIngester) Run(ctx context.Context) error {
	if err := w.prepare(ctx); err != nil {
		return err
	}

	// "0" replays this consumer's pending entries; ">" delivers new ones.
	cursor := "0"
	for {
		if err := ctx.Err(); err != nil {
			log.Println("[orders] shutting down")
			return nil
		}

		streams, err := w.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    w.cfg.GroupName,
			Consumer: w.cfg.ConsumerName,
			Streams:  []string{w.cfg.StreamName, cursor},
			Count:    int64(w.cfg.BatchSize),
			Block:    ordersBlockTimeout,
		}).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				log.Println("[orders] shutting down")
				return nil
			}
			return fmt.Errorf("read order stream: %w", err)
		}

		empty := true
		for _, stream := range streams {
			for _, entry := range stream.Messages {
				empty = false
				done, err := w.processEntry(ctx, entry)
				if err != nil {
					if errors.Is(err, eventbus.ErrClosed) || errors.Is(err, context.Canceled) {
						log.Println("[orders] shutting down")
						return nil
					}
					return err
				}
				if done {
					if err := w.ackEntry(ctx, entry.ID); err != nil {
						return err
					}
				}
			}
		}

		// The pending backlog is exhausted once a "0" read comes back empty.
		if cursor == "0" && empty {
			log.Println("[orders] pending backlog drained, tailing new entries")
			cursor = ">"
		}
	}
}

// prepare verifies the stream, ensures the consumer group exists and logs
// where this consumer starts.
func (w *OrdersIngester) prepare(ctx context.Context) error {
	exists, err := w.rdb.Exists(ctx, w.cfg.StreamName).Result()
	if err != nil {
		return fmt.Errorf("check order stream: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("order stream %q does not exist on %s", w.cfg.StreamName, w.cfg.Addr())
	}

	// Create the group at the start of the stream; racing another consumer
	// is fine.
	err = w.rdb.XGroupCreate(ctx, w.cfg.StreamName, w.cfg.GroupName, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("create consumer group %q: %w", w.cfg.GroupName, err)
	}

	info, err := w.rdb.XInfoGroups(ctx, w.cfg.StreamName).Result()
	if err != nil {
		return fmt.Errorf("inspect consumer groups: %w", err)
	}
	for _, group := range info {
		if group.Name == w.cfg.GroupName {
			log.Printf("[orders] consumer %s in group %s on stream %s: %d consumers, %d pending, last delivered %s",
				w.cfg.ConsumerName, group.Name, w.cfg.StreamName,
				group.Consumers, group.Pending, group.LastDeliveredID)
		}
	}
	return nil
}

// processEntry publishes every event of one entry and waits for the
// processor's ack per event. done is false only for entries skipped as
// unknown envelope types after a failed ack decision; the bool keeps the ack
// decision with the decode outcome.
func (w *OrdersIngester) processEntry(ctx context.Context, entry redis.XMessage) (done bool, err error) {
	payload, err := entryPayload(entry)
	if err != nil {
		return false, err
	}

	events, err := DecodeOrderEvents(payload)
	if err != nil {
		if errors.Is(err, errUnknownEnvelope) {
			log.Printf("[orders] warning: skipping entry %s: %v", entry.ID, err)
			return true, nil
		}
		return false, fmt.Errorf("entry %s: %w", entry.ID, err)
	}

	for _, event := range events {
		if err := w.bus.Publish(ctx, event); err != nil {
			return false, err
		}
	}
	return true, nil
}

// entryPayload extracts the single "event" field. Any other shape means a
// foreign producer wrote to the stream and the process must stop.
func entryPayload(entry redis.XMessage) ([]byte, error) {
	if len(entry.Values) != 1 {
		return nil, fmt.Errorf("entry %s has %d fields, want exactly %q", entry.ID, len(entry.Values), eventFieldName)
	}
	raw, ok := entry.Values[eventFieldName]
	if !ok {
		return nil, fmt.Errorf("entry %s is missing the %q field", entry.ID, eventFieldName)
	}
	payload, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("entry %s has a non-string %q field", entry.ID, eventFieldName)
	}
	return []byte(payload), nil
}

// ackEntry acknowledges and deletes a fully processed entry. This runs only
// after the processor confirmed durability of every event.
func (w *OrdersIngester) ackEntry(ctx context.Context, id string) error {
	if err := w.rdb.XAck(ctx, w.cfg.StreamName, w.cfg.GroupName, id).Err(); err != nil {
		return fmt.Errorf("xack %s: %w", id, err)
	}
	if err := w.rdb.XDel(ctx, w.cfg.StreamName, id).Err(); err != nil {
		return fmt.Errorf("xdel %s: %w", id, err)
	}
	return nil
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}
