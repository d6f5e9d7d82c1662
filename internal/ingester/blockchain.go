package ingester

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"

	"google.golang.org/grpc/status"

	"wavespush/internal/chain"
	"wavespush/internal/eventbus"
	"wavespush/internal/models"
)

// UpdateStream yields decoded blockchain updates; *chain.Subscription
// satisfies it.
type UpdateStream interface {
	Next() (chain.Update, error)
}

// HeightSource answers where the matcher last traded; *dataservice.Client
// satisfies it.
type HeightSource interface {
	LastExchangeHeight(ctx context.Context, matcher models.Address) (uint64, bool, error)
}

// ResolveStartingHeight picks the height the blockchain ingester subscribes
// from: the configured one when set, otherwise the height of the matcher's
// most recent exchange transaction. Heights above the int32 subscribe-request
// field are rejected here instead of truncating on the wire.
func ResolveStartingHeight(ctx context.Context, configured uint64, source HeightSource, matcher models.Address) (uint64, error) {
	if configured > 0 {
		return checkHeight(configured, "STARTING_HEIGHT")
	}
	height, found, err := source.LastExchangeHeight(ctx, matcher)
	if err != nil {
		return 0, fmt.Errorf("query last exchange height: %w", err)
	}
	if !found {
		return 0, fmt.Errorf("no starting height configured and no exchange transactions found for matcher %s; set STARTING_HEIGHT", matcher)
	}
	return checkHeight(height, "data service height")
}

func checkHeight(height uint64, origin string) (uint64, error) {
	if height > math.MaxInt32 {
		return 0, fmt.Errorf("%s %d exceeds the protocol maximum %d", origin, height, math.MaxInt32)
	}
	return height, nil
}

// BlockchainIngester consumes the update stream, feeds matcher trades into
// the per-pair aggregators and publishes one PriceChanged per pair whose
// finalized range is non-empty.
type BlockchainIngester struct {
	stream      UpdateStream
	bus         *eventbus.Bus
	aggregators *AggregatorSet
	matcher     models.Address
}

func NewBlockchainIngester(stream UpdateStream, bus *eventbus.Bus, aggregators *AggregatorSet, matcher models.Address) *BlockchainIngester {
	return &BlockchainIngester{
		stream:      stream,
		bus:         bus,
		aggregators: aggregators,
		matcher:     matcher,
	}
}

// Run processes updates until the stream ends or the context is cancelled.
// Server-side stream termination is expected during node restarts and is not
// an error; a decode failure is.
func (w *BlockchainIngester) Run(ctx context.Context) error {
	log.Printf("[chain] started: matcher=%s pairs=%d", w.matcher, w.aggregators.Size())
	for {
		upd, err := w.stream.Next()
		if err != nil {
			if isStreamTermination(err) {
				log.Printf("[chain] warning: update stream closed by server: %v", err)
				return nil
			}
			return fmt.Errorf("blockchain update stream: %w", err)
		}

		if upd.Rollback != nil {
			// Price state is per block; a rollback just means the next append
			// restates the tip.
			continue
		}
		if upd.Append == nil {
			continue
		}
		if err := w.processAppend(ctx, upd.Append); err != nil {
			if errors.Is(err, eventbus.ErrClosed) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

func (w *BlockchainIngester) processAppend(ctx context.Context, app *chain.Append) error {
	w.aggregators.ResetAll()
	for _, tx := range app.Transactions {
		if tx.Sender != w.matcher {
			continue
		}
		w.aggregators.Update(tx.Pair, tx.Price)
	}

	for _, pr := range w.aggregators.FinalizeAll() {
		event := models.PriceChanged{
			Pair:      pr.Pair,
			Range:     pr.Range,
			Timestamp: app.Timestamp,
		}
		if err := w.bus.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// isStreamTermination distinguishes the server hanging up from decode bugs.
func isStreamTermination(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		return true
	}
	_, ok := status.FromError(err)
	return ok
}
