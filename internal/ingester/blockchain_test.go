package ingester

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"wavespush/internal/chain"
	"wavespush/internal/eventbus"
	"wavespush/internal/models"
)

type fakeStream struct {
	updates []chain.Update
	final   error
}

func (s *fakeStream) Next() (chain.Update, error) {
	if len(s.updates) == 0 {
		return chain.Update{}, s.final
	}
	upd := s.updates[0]
	s.updates = s.updates[1:]
	return upd, nil
}

type fakeHeights struct {
	height uint64
	found  bool
	err    error
}

func (h *fakeHeights) LastExchangeHeight(context.Context, models.Address) (uint64, bool, error) {
	return h.height, h.found, h.err
}

// drainBus acks every published event with nil and collects them until the
// context is cancelled.
func drainBus(ctx context.Context, bus *eventbus.Bus) <-chan []models.Event {
	out := make(chan []models.Event, 1)
	go func() {
		var events []models.Event
		for {
			select {
			case <-ctx.Done():
				out <- events
				return
			case ev := <-bus.Events():
				events = append(events, ev.Event)
				ev.Feedback <- nil
			}
		}
	}()
	return out
}

func TestResolveStartingHeight(t *testing.T) {
	matcher := models.Address(testOwner)

	t.Run("configured height wins", func(t *testing.T) {
		h, err := ResolveStartingHeight(context.Background(), 42, &fakeHeights{height: 7, found: true}, matcher)
		if err != nil {
			t.Fatalf("ResolveStartingHeight: %v", err)
		}
		if h != 42 {
			t.Errorf("height = %d, want 42", h)
		}
	})

	t.Run("falls back to last exchange", func(t *testing.T) {
		h, err := ResolveStartingHeight(context.Background(), 0, &fakeHeights{height: 7, found: true}, matcher)
		if err != nil {
			t.Fatalf("ResolveStartingHeight: %v", err)
		}
		if h != 7 {
			t.Errorf("height = %d, want 7", h)
		}
	})

	t.Run("no height anywhere", func(t *testing.T) {
		_, err := ResolveStartingHeight(context.Background(), 0, &fakeHeights{}, matcher)
		if err == nil {
			t.Fatalf("expected an error when nothing provides a height")
		}
	})

	t.Run("source failure", func(t *testing.T) {
		boom := errors.New("data service down")
		_, err := ResolveStartingHeight(context.Background(), 0, &fakeHeights{err: boom}, matcher)
		if !errors.Is(err, boom) {
			t.Fatalf("err = %v, want wrapped source error", err)
		}
	})

	// The subscribe request carries the height as an int32; an overflowing
	// height must fail up front instead of truncating on the wire.
	t.Run("configured height above int32", func(t *testing.T) {
		_, err := ResolveStartingHeight(context.Background(), math.MaxInt32+1, &fakeHeights{}, matcher)
		if err == nil {
			t.Fatalf("expected an error for a height above %d", math.MaxInt32)
		}
	})

	t.Run("source height above int32", func(t *testing.T) {
		_, err := ResolveStartingHeight(context.Background(), 0, &fakeHeights{height: math.MaxInt32 + 1, found: true}, matcher)
		if err == nil {
			t.Fatalf("expected an error for a height above %d", math.MaxInt32)
		}
	})
}

func TestBlockchainIngester_PublishesPriceRanges(t *testing.T) {
	matcher := models.Address(testOwner)
	stranger := models.Address(testPriceAsset)
	pair := models.AssetPair{AmountAsset: models.AssetWaves, PriceAsset: models.Asset(testPriceAsset)}
	blockTime := time.UnixMilli(1700000000000)

	aggregators := NewAggregatorSet()
	aggregators.Seed(map[models.AssetPair]float64{pair: 4.0})

	stream := &fakeStream{
		updates: []chain.Update{
			{Rollback: &chain.Rollback{BlockID: "a", Height: 9}},
			{Append: &chain.Append{
				BlockID:   "b",
				Height:    10,
				Timestamp: blockTime,
				Transactions: []chain.ExchangeTransaction{
					{Sender: matcher, Pair: pair, Price: 5.0},
					{Sender: stranger, Pair: pair, Price: 99.0},
					{Sender: matcher, Pair: pair, Price: 6.0},
				},
			}},
		},
		final: io.EOF,
	}

	bus := eventbus.New(1)
	ctx, cancel := context.WithCancel(context.Background())
	collected := drainBus(ctx, bus)

	w := NewBlockchainIngester(stream, bus, aggregators, matcher)
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	cancel()
	events := <-collected

	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	pc, ok := events[0].(models.PriceChanged)
	if !ok {
		t.Fatalf("event type = %T, want PriceChanged", events[0])
	}
	if pc.Pair != pair {
		t.Errorf("pair = %v, want %v", pc.Pair, pair)
	}
	if !pc.Timestamp.Equal(blockTime) {
		t.Errorf("timestamp = %v, want block time %v", pc.Timestamp, blockTime)
	}
	// The previous close joins the range but is excluded as an exact value;
	// the stranger's trade never widens it.
	if pc.Range.Contains(4.0) {
		t.Errorf("range contains the excluded previous close 4.0: %v", pc.Range)
	}
	for _, p := range []float64{4.5, 5.0, 6.0} {
		if !pc.Range.Contains(p) {
			t.Errorf("range does not contain %v: %v", p, pc.Range)
		}
	}
	if pc.Range.Contains(99.0) {
		t.Errorf("range widened by a non-matcher trade: %v", pc.Range)
	}
}

func TestBlockchainIngester_QuietBlockEmitsNothing(t *testing.T) {
	matcher := models.Address(testOwner)
	pair := models.AssetPair{AmountAsset: models.AssetWaves, PriceAsset: models.Asset(testPriceAsset)}

	aggregators := NewAggregatorSet()
	aggregators.Seed(map[models.AssetPair]float64{pair: 4.0})

	stream := &fakeStream{
		updates: []chain.Update{
			{Append: &chain.Append{BlockID: "c", Height: 11, Timestamp: time.Now()}},
		},
		final: io.EOF,
	}

	bus := eventbus.New(1)
	ctx, cancel := context.WithCancel(context.Background())
	collected := drainBus(ctx, bus)

	w := NewBlockchainIngester(stream, bus, aggregators, matcher)
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	cancel()
	if events := <-collected; len(events) != 0 {
		t.Fatalf("quiet block published %d events, want 0", len(events))
	}
}

func TestBlockchainIngester_StreamTerminationIsClean(t *testing.T) {
	bus := eventbus.New(1)
	w := NewBlockchainIngester(&fakeStream{final: io.EOF}, bus, NewAggregatorSet(), models.Address(testOwner))
	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("Run after server hangup: %v", err)
	}
}

func TestBlockchainIngester_DecodeFailureIsAnError(t *testing.T) {
	bus := eventbus.New(1)
	boom := errors.New("decode: bad transaction")
	w := NewBlockchainIngester(&fakeStream{final: boom}, bus, NewAggregatorSet(), models.Address(testOwner))
	if err := w.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Run = %v, want wrapped decode error", err)
	}
}
