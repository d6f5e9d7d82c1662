package models

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
)

// TopicScheme is the URL scheme shared by all subscription topics.
const TopicScheme = "push"

// Topic URL parse errors. Callers distinguish them with errors.Is.
var (
	ErrUnknownScheme      = errors.New("unknown topic scheme")
	ErrUnknownTopicKind   = errors.New("unknown topic kind")
	ErrInvalidAmountAsset = errors.New("invalid amount asset")
	ErrInvalidPriceAsset  = errors.New("invalid price asset")
	ErrInvalidThreshold   = errors.New("invalid price threshold")
)

// Topic is what a subscription listens for: every order execution for the
// subscriber, or a price threshold on a specific pair. String returns the
// canonical mode-less topic URL, which is also the identity used for
// (subscriber, topic) uniqueness.
type Topic interface {
	fmt.Stringer
	isTopic()
}

// OrderFulfilledTopic matches any executed order owned by the subscriber.
type OrderFulfilledTopic struct{}

func (OrderFulfilledTopic) isTopic() {}

func (OrderFulfilledTopic) String() string { return TopicScheme + "://orders" }

// PriceThresholdTopic matches a block whose price range on the pair contains
// the threshold.
type PriceThresholdTopic struct {
	AmountAsset Asset   `json:"amount_asset"`
	PriceAsset  Asset   `json:"price_asset"`
	Threshold   float64 `json:"price_threshold"`
}

func (PriceThresholdTopic) isTopic() {}

func (t PriceThresholdTopic) String() string {
	return fmt.Sprintf("%s://price_threshold/%s/%s/%s",
		TopicScheme, t.AmountAsset, t.PriceAsset, FormatThreshold(t.Threshold))
}

// TopicSubscription pairs a topic with the requested mode, as carried by a
// single topic URL of a subscribe request.
type TopicSubscription struct {
	Topic Topic
	Mode  SubscriptionMode
}

// FormatThreshold renders a threshold in the float's shortest decimal form,
// so 2.0 round-trips as "2". This keeps formatted topic URLs canonical.
func FormatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatTopicURL renders a topic URL; one-shot subscriptions carry the
// "?oneshot" flag.
func FormatTopicURL(t Topic, mode SubscriptionMode) string {
	u := t.String()
	if mode == ModeOnce {
		return u + "?oneshot"
	}
	return u
}

// ParseTopicURL parses "push://orders[?oneshot]" or
// "push://price_threshold/<amount>/<price>/<threshold>[?oneshot]".
func ParseTopicURL(raw string) (Topic, SubscriptionMode, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != TopicScheme {
		return nil, 0, fmt.Errorf("topic %q: %w", raw, ErrUnknownScheme)
	}

	mode := ModeRepeat
	if u.Query().Has("oneshot") {
		mode = ModeOnce
	}

	switch u.Host {
	case "orders":
		if strings.Trim(u.Path, "/") != "" {
			return nil, 0, fmt.Errorf("topic %q: %w", raw, ErrUnknownTopicKind)
		}
		return OrderFulfilledTopic{}, mode, nil

	case "price_threshold":
		segments := strings.Split(strings.Trim(u.Path, "/"), "/")
		topic, err := parsePriceThresholdSegments(segments)
		if err != nil {
			return nil, 0, fmt.Errorf("topic %q: %w", raw, err)
		}
		return topic, mode, nil

	default:
		return nil, 0, fmt.Errorf("topic %q: %w", raw, ErrUnknownTopicKind)
	}
}

func parsePriceThresholdSegments(segments []string) (PriceThresholdTopic, error) {
	if len(segments) < 1 || segments[0] == "" {
		return PriceThresholdTopic{}, ErrInvalidAmountAsset
	}
	amountAsset, err := ParseAsset(segments[0])
	if err != nil {
		return PriceThresholdTopic{}, ErrInvalidAmountAsset
	}

	if len(segments) < 2 || segments[1] == "" {
		return PriceThresholdTopic{}, ErrInvalidPriceAsset
	}
	priceAsset, err := ParseAsset(segments[1])
	if err != nil {
		return PriceThresholdTopic{}, ErrInvalidPriceAsset
	}

	if len(segments) != 3 || segments[2] == "" {
		return PriceThresholdTopic{}, ErrInvalidThreshold
	}
	threshold, err := strconv.ParseFloat(segments[2], 64)
	if err != nil || math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return PriceThresholdTopic{}, ErrInvalidThreshold
	}

	return PriceThresholdTopic{
		AmountAsset: amountAsset,
		PriceAsset:  priceAsset,
		Threshold:   threshold,
	}, nil
}
