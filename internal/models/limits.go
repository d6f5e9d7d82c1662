package models

import "math"

// SubscriptionLimits caps what a single address may subscribe to.
type SubscriptionLimits struct {
	// MaxPerPair caps the distinct price thresholds per asset pair.
	MaxPerPair int
	// MaxTotal caps the total number of topics.
	MaxTotal int
}

// CheckSubscriptionLimits validates the union of an address's existing
// subscriptions and an incoming batch against the caps. Duplicate topics
// count once; price thresholds are deduplicated per pair by the bit pattern
// of the float, which keeps NaN and negative zero from counting twice.
func CheckSubscriptionLimits(address Address, existing []Subscription, incoming []TopicSubscription, limits SubscriptionLimits) error {
	topics := make(map[string]Topic, len(existing)+len(incoming))
	for _, sub := range existing {
		topics[sub.Topic.String()] = sub.Topic
	}
	for _, in := range incoming {
		topics[in.Topic.String()] = in.Topic
	}

	if limits.MaxTotal > 0 && len(topics) > limits.MaxTotal {
		return &LimitExceededError{Address: address, Limit: limits.MaxTotal}
	}

	if limits.MaxPerPair <= 0 {
		return nil
	}
	thresholds := make(map[AssetPair]map[uint64]struct{})
	for _, topic := range topics {
		pt, ok := topic.(PriceThresholdTopic)
		if !ok {
			continue
		}
		pair := AssetPair{AmountAsset: pt.AmountAsset, PriceAsset: pt.PriceAsset}
		set := thresholds[pair]
		if set == nil {
			set = make(map[uint64]struct{})
			thresholds[pair] = set
		}
		set[math.Float64bits(pt.Threshold)] = struct{}{}
		if len(set) > limits.MaxPerPair {
			return &LimitExceededError{Address: address, Limit: limits.MaxPerPair}
		}
	}
	return nil
}
