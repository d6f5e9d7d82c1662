package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Subscriber represents the 'subscribers' table. A subscriber row exists iff
// at least one device or one subscription references the address; it is
// created lazily and garbage-collected with its last reference.
type Subscriber struct {
	Address   Address   `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Device represents the 'devices' table.
type Device struct {
	UID               int       `json:"uid"`
	SubscriberAddress Address   `json:"subscriber_address"`
	FCMUID            string    `json:"fcm_uid"`
	Language          string    `json:"language"`
	UTCOffsetSeconds  int       `json:"utc_offset_seconds"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// SubscriptionMode says whether a subscription survives its first match.
type SubscriptionMode int

const (
	// ModeOnce marks a subscription deleted after its first successful match.
	ModeOnce SubscriptionMode = 0
	// ModeRepeat marks a subscription that keeps firing.
	ModeRepeat SubscriptionMode = 1
)

// SubscriptionModeFromInt decodes the 'topic_type' column value.
func SubscriptionModeFromInt(i int) (SubscriptionMode, error) {
	switch i {
	case 0:
		return ModeOnce, nil
	case 1:
		return ModeRepeat, nil
	default:
		return 0, &FatalError{Reason: fmt.Sprintf("unknown subscription mode %d", i)}
	}
}

// Int encodes the mode for the 'topic_type' column.
func (m SubscriptionMode) Int() int { return int(m) }

func (m SubscriptionMode) String() string {
	if m == ModeOnce {
		return "once"
	}
	return "repeat"
}

// Subscription represents the 'subscriptions' table together with its
// topic-detail row. Every subscription has exactly one topic.
type Subscription struct {
	UID               int64            `json:"uid"`
	SubscriberAddress Address          `json:"subscriber_address"`
	CreatedAt         time.Time        `json:"created_at"`
	Mode              SubscriptionMode `json:"mode"`
	Topic             Topic            `json:"topic"`
}

// QueuedMessage represents the 'messages' table. ScheduledFor <= now means the
// row is due; the sender deletes it on ack and reschedules it on nack.
type QueuedMessage struct {
	UID          int64           `json:"uid"`
	CreatedAt    time.Time       `json:"created_at"`
	ScheduledFor time.Time       `json:"scheduled_for"`
	SendAttempts int16           `json:"send_attempts_count"`
	SendError    *string         `json:"send_error,omitempty"`
	DeviceUID    int             `json:"device_uid"`
	Title        string          `json:"notification_title"`
	Body         string          `json:"notification_body"`
	Data         json.RawMessage `json:"data,omitempty"`
	CollapseKey  *string         `json:"collapse_key,omitempty"`
}

// DueMessage is a queued message joined with the push token of its device,
// as handed to the delivery engine.
type DueMessage struct {
	Message QueuedMessage
	FCMUID  string
}

// QueueStats summarizes the messages table for the status endpoint.
type QueueStats struct {
	Pending int64      `json:"pending"`
	Failed  int64      `json:"failed"`
	Oldest  *time.Time `json:"oldest,omitempty"`
}

// Message data payload types, carried to the device in the push 'data' field.
const (
	DataTypeOrderExecuted          = "order_executed"
	DataTypeOrderPartiallyExecuted = "order_partially_executed"
	DataTypePriceThresholdReached  = "price_threshold_reached"
)

// MessageData is the typed 'data' payload attached to every queued message.
type MessageData struct {
	Type          string `json:"type"`
	AmountAssetID string `json:"amount_asset_id"`
	PriceAssetID  string `json:"price_asset_id"`
	Address       string `json:"address"`
}

// Encode serializes the payload as compact JSON. The queue never stores a
// null data column, so a zero payload still encodes to an object.
func (d MessageData) Encode() (json.RawMessage, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode message data: %w", err)
	}
	return raw, nil
}
