package ingester

import (
	"testing"

	"wavespush/internal/models"
)

var (
	pairBTCUSD = models.AssetPair{AmountAsset: "BTC", PriceAsset: "USD"}
	pairETHUSD = models.AssetPair{AmountAsset: "ETH", PriceAsset: "USD"}
)

// runBlock replays one block's trades for a single pair and returns the
// finalized ranges.
func runBlock(s *AggregatorSet, pair models.AssetPair, prices ...float64) []PairRange {
	s.ResetAll()
	for _, p := range prices {
		s.Update(pair, p)
	}
	return s.FinalizeAll()
}

func TestAggregatorThresholdCrossing(t *testing.T) {
	s := NewAggregatorSet()
	s.Seed(map[models.AssetPair]float64{pairBTCUSD: 4.0})

	// Trades reach the 5.0 threshold: the finalized range must contain it.
	got := runBlock(s, pairBTCUSD, 4.0, 4.5, 5.0)
	if len(got) != 1 {
		t.Fatalf("expected one emitted range, got %d", len(got))
	}
	if !got[0].Range.Contains(5.0) {
		t.Errorf("range should contain the crossed threshold: %s", got[0].Range)
	}

	// Next block trades above: the previous close 5.0 is the excluded
	// bound, so the same threshold must not fire again.
	got = runBlock(s, pairBTCUSD, 5.5, 6.0)
	if len(got) != 1 {
		t.Fatalf("expected one emitted range, got %d", len(got))
	}
	if got[0].Range.Contains(5.0) {
		t.Errorf("previous close must be excluded: %s", got[0].Range)
	}
	if !got[0].Range.Contains(5.5) || !got[0].Range.Contains(6.0) {
		t.Errorf("range should span the block's trades: %s", got[0].Range)
	}
}

func TestAggregatorRepeatedCloseEmitsNothing(t *testing.T) {
	s := NewAggregatorSet()
	s.Seed(map[models.AssetPair]float64{pairBTCUSD: 4.0})

	runBlock(s, pairBTCUSD, 5.0) // closes at 5.0

	// The next block trades only at the previous close: the single-point
	// range collapses to empty.
	got := runBlock(s, pairBTCUSD, 5.0)
	if len(got) != 0 {
		t.Errorf("block repeating the previous close should emit nothing, got %v", got)
	}
}

func TestAggregatorNoTradesEmitsNothing(t *testing.T) {
	s := NewAggregatorSet()
	s.Seed(map[models.AssetPair]float64{pairBTCUSD: 4.0})

	got := runBlock(s, pairBTCUSD)
	if len(got) != 0 {
		t.Errorf("tradeless block should emit nothing, got %v", got)
	}
}

func TestAggregatorFirstSight(t *testing.T) {
	s := NewAggregatorSet()

	// A pair seen for the first time with a single price has no reference
	// point to cross, so nothing is emitted.
	got := runBlock(s, pairBTCUSD, 7.0)
	if len(got) != 0 {
		t.Errorf("single first-sight price should emit nothing, got %v", got)
	}
	if s.Size() != 1 {
		t.Errorf("aggregator should have been created, tracked pairs = %d", s.Size())
	}

	// Two distinct prices in the first block span a real interval.
	s2 := NewAggregatorSet()
	got = runBlock(s2, pairBTCUSD, 7.0, 8.0)
	if len(got) != 1 {
		t.Fatalf("expected one emitted range, got %d", len(got))
	}
	if got[0].Range.Contains(7.0) {
		t.Errorf("first price doubles as the excluded close: %s", got[0].Range)
	}
	if !got[0].Range.Contains(8.0) {
		t.Errorf("range should contain the second trade: %s", got[0].Range)
	}
}

func TestAggregatorEmitsSortedPairs(t *testing.T) {
	s := NewAggregatorSet()
	s.Seed(map[models.AssetPair]float64{pairBTCUSD: 1.0, pairETHUSD: 1.0})

	s.ResetAll()
	s.Update(pairETHUSD, 2.0)
	s.Update(pairBTCUSD, 3.0)
	got := s.FinalizeAll()

	if len(got) != 2 {
		t.Fatalf("expected two emitted ranges, got %d", len(got))
	}
	if got[0].Pair != pairBTCUSD || got[1].Pair != pairETHUSD {
		t.Errorf("emission should be sorted by pair: %v, %v", got[0].Pair, got[1].Pair)
	}
}

func TestAggregatorInteriorClose(t *testing.T) {
	s := NewAggregatorSet()
	s.Seed(map[models.AssetPair]float64{pairBTCUSD: 5.0})

	// The previous close falls inside the traded interval; it is excluded
	// as an exact value while its neighborhood stays matchable.
	got := runBlock(s, pairBTCUSD, 4.0, 6.0)
	if len(got) != 1 {
		t.Fatalf("expected one emitted range, got %d", len(got))
	}
	r := got[0].Range
	if r.Contains(5.0) {
		t.Errorf("interior previous close must stay excluded: %s", r)
	}
	if !r.Contains(4.0) || !r.Contains(6.0) || !r.Contains(5.5) {
		t.Errorf("rest of the interval should match: %s", r)
	}
}
