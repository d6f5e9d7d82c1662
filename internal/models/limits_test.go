package models

import (
	"errors"
	"testing"
)

const testLimitAddress = Address("3PJaDyprvekvPXPuAtxrapacuDJopgJRaU3")

func thresholdTopic(amount, price Asset, threshold float64) TopicSubscription {
	return TopicSubscription{
		Topic: PriceThresholdTopic{AmountAsset: amount, PriceAsset: price, Threshold: threshold},
		Mode:  ModeRepeat,
	}
}

func existingThresholds(n int) []Subscription {
	var subs []Subscription
	for i := 0; i < n; i++ {
		subs = append(subs, Subscription{
			UID:               int64(i + 1),
			SubscriberAddress: testLimitAddress,
			Mode:              ModeRepeat,
			Topic: PriceThresholdTopic{
				AmountAsset: Asset(testAssetBTC),
				PriceAsset:  Asset(testAssetUSD),
				Threshold:   float64(i + 1),
			},
		})
	}
	return subs
}

func TestCheckSubscriptionLimits_EleventhThresholdOnPairFails(t *testing.T) {
	limits := SubscriptionLimits{MaxPerPair: 10, MaxTotal: 50}
	existing := existingThresholds(10)

	err := CheckSubscriptionLimits(testLimitAddress, existing,
		[]TopicSubscription{thresholdTopic(Asset(testAssetBTC), Asset(testAssetUSD), 11)}, limits)
	if err == nil {
		t.Fatal("expected limit error for 11th distinct threshold")
	}
	var limitErr *LimitExceededError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected LimitExceededError, got %T: %v", err, err)
	}
	if limitErr.Limit != 10 {
		t.Errorf("expected limit 10 in error, got %d", limitErr.Limit)
	}
	if limitErr.Address != testLimitAddress {
		t.Errorf("expected address %s in error, got %s", testLimitAddress, limitErr.Address)
	}
}

func TestCheckSubscriptionLimits_DuplicateThresholdDoesNotCount(t *testing.T) {
	limits := SubscriptionLimits{MaxPerPair: 10, MaxTotal: 50}
	existing := existingThresholds(10)

	// Re-subscribing an existing threshold keeps the distinct count at 10.
	err := CheckSubscriptionLimits(testLimitAddress, existing,
		[]TopicSubscription{thresholdTopic(Asset(testAssetBTC), Asset(testAssetUSD), 5)}, limits)
	if err != nil {
		t.Fatalf("duplicate threshold should not exceed the limit: %v", err)
	}
}

func TestCheckSubscriptionLimits_OtherPairUnaffected(t *testing.T) {
	limits := SubscriptionLimits{MaxPerPair: 10, MaxTotal: 50}
	existing := existingThresholds(10)

	err := CheckSubscriptionLimits(testLimitAddress, existing,
		[]TopicSubscription{thresholdTopic(AssetWaves, Asset(testAssetUSD), 1)}, limits)
	if err != nil {
		t.Fatalf("threshold on a different pair should be allowed: %v", err)
	}
}

func TestCheckSubscriptionLimits_TotalCap(t *testing.T) {
	limits := SubscriptionLimits{MaxPerPair: 10, MaxTotal: 10}
	existing := existingThresholds(10)

	err := CheckSubscriptionLimits(testLimitAddress, existing,
		[]TopicSubscription{{Topic: OrderFulfilledTopic{}, Mode: ModeRepeat}}, limits)
	var limitErr *LimitExceededError
	if !errors.As(err, &limitErr) {
		t.Fatalf("expected LimitExceededError for total cap, got %v", err)
	}
	if limitErr.Limit != 10 {
		t.Errorf("expected limit 10, got %d", limitErr.Limit)
	}
}

func TestCheckSubscriptionLimits_OrderTopicIgnoresPairCap(t *testing.T) {
	limits := SubscriptionLimits{MaxPerPair: 1, MaxTotal: 50}
	existing := existingThresholds(1)

	err := CheckSubscriptionLimits(testLimitAddress, existing,
		[]TopicSubscription{{Topic: OrderFulfilledTopic{}, Mode: ModeOnce}}, limits)
	if err != nil {
		t.Fatalf("order topic should not count against the pair cap: %v", err)
	}
}
