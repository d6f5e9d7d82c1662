package ingester

import (
	"sort"

	"wavespush/internal/models"
)

// PriceAggregator tracks one asset pair across blocks. It folds every trade
// of the current block into a range, carries the previous block's closing
// price over as a half-open boundary, and remembers the latest trade price
// as the next block's close.
type PriceAggregator struct {
	prevBlockPrice float64
	latestPrice    float64
	current        models.PriceRange
}

// NewPriceAggregator starts an aggregator at a known price, typically the
// pair's last trade from the data-service snapshot. The current range starts
// empty.
func NewPriceAggregator(price float64) *PriceAggregator {
	return &PriceAggregator{prevBlockPrice: price, latestPrice: price}
}

// Reset empties the current range at a block boundary.
func (a *PriceAggregator) Reset() {
	a.current = models.PriceRange{}
}

// Update folds one trade price into the current range.
func (a *PriceAggregator) Update(price float64) {
	a.current.Extend(price)
	a.latestPrice = price
}

// Finalize closes the block: the previous close joins the range and is then
// excluded as an exact value, so a threshold sitting on the close does not
// fire twice. The latest trade becomes the next block's previous close.
func (a *PriceAggregator) Finalize() models.PriceRange {
	a.current.Extend(a.prevBlockPrice)
	a.current.ExcludeBound(a.prevBlockPrice)
	a.prevBlockPrice = a.latestPrice
	return a.current
}

// PairRange is a finalized non-empty range for one pair.
type PairRange struct {
	Pair  models.AssetPair
	Range models.PriceRange
}

// AggregatorSet keeps one PriceAggregator per observed asset pair.
type AggregatorSet struct {
	aggregators map[models.AssetPair]*PriceAggregator
}

func NewAggregatorSet() *AggregatorSet {
	return &AggregatorSet{aggregators: make(map[models.AssetPair]*PriceAggregator)}
}

// Seed installs one aggregator per pair from a last-price snapshot.
func (s *AggregatorSet) Seed(prices map[models.AssetPair]float64) {
	for pair, price := range prices {
		s.aggregators[pair] = NewPriceAggregator(price)
	}
}

// ResetAll empties every aggregator's range at the start of a block.
func (s *AggregatorSet) ResetAll() {
	for _, a := range s.aggregators {
		a.Reset()
	}
}

// Update folds a trade into the pair's aggregator, creating the aggregator
// on the pair's first sight.
func (s *AggregatorSet) Update(pair models.AssetPair, price float64) {
	a, ok := s.aggregators[pair]
	if !ok {
		a = NewPriceAggregator(price)
		s.aggregators[pair] = a
	}
	a.Update(price)
}

// FinalizeAll closes the block for every aggregator and returns the pairs
// whose range is non-empty, sorted by pair for deterministic emission.
func (s *AggregatorSet) FinalizeAll() []PairRange {
	var out []PairRange
	for pair, a := range s.aggregators {
		r := a.Finalize()
		if r.IsEmpty() {
			continue
		}
		out = append(out, PairRange{Pair: pair, Range: r})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Pair.String() < out[j].Pair.String()
	})
	return out
}

// Size returns the number of tracked pairs.
func (s *AggregatorSet) Size() int {
	return len(s.aggregators)
}
