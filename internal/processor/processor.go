package processor

import (
	"context"
	"log"

	"wavespush/internal/eventbus"
	"wavespush/internal/localizer"
	"wavespush/internal/models"
)

// EventTx is the per-event database transaction: matching, device lookup,
// enqueueing and one-shot deletion, committed as one unit.
// *repository.EventTx satisfies it.
type EventTx interface {
	MatchOrderFulfilled(ctx context.Context, address models.Address) ([]models.Subscription, error)
	MatchPriceThreshold(ctx context.Context, pair models.AssetPair, low, high float64) ([]models.Subscription, error)
	DevicesForSubscriber(ctx context.Context, address models.Address) ([]models.Device, error)
	Enqueue(ctx context.Context, msg *models.QueuedMessage) error
	DeleteSubscription(ctx context.Context, uid int64) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context)
}

// Store opens event transactions.
type Store interface {
	Begin(ctx context.Context) (EventTx, error)
}

// Localizer renders translation keys; *localizer.Localizer satisfies it.
type Localizer interface {
	Translate(lang, key string) (string, error)
	Render(lang, key string, subs map[string]string) (string, error)
}

// TickerResolver maps assets to display symbols; *assets.TickerCache
// satisfies it.
type TickerResolver interface {
	Ticker(ctx context.Context, asset models.Asset) string
}

// Processor is the message pump: it drains the event channel strictly one
// event at a time and turns each event into queued messages within a single
// database transaction. Only the processor writes to the database during
// event handling, which serializes all pipeline mutation.
type Processor struct {
	bus     *eventbus.Bus
	store   Store
	loc     Localizer
	tickers TickerResolver
}

func New(bus *eventbus.Bus, store Store, loc Localizer, tickers TickerResolver) *Processor {
	return &Processor{bus: bus, store: store, loc: loc, tickers: tickers}
}

// Run consumes events until the context is cancelled or a fatal error
// surfaces. Every event is answered on its feedback channel; transient
// failures are reported to the source (which redelivers) without stopping
// the pump.
func (p *Processor) Run(ctx context.Context) error {
	log.Println("[processor] started")
	for {
		select {
		case <-ctx.Done():
			log.Println("[processor] shutting down")
			return nil
		case ev := <-p.bus.Events():
			err := p.handle(ctx, ev.Event)
			ev.Feedback <- err
			if models.IsFatal(err) {
				log.Printf("[processor] stopping on fatal error: %v", err)
				return err
			}
			if err != nil {
				log.Printf("[processor] warning: event handling failed, source will redeliver: %v", err)
			}
		}
	}
}

func (p *Processor) handle(ctx context.Context, event models.Event) error {
	tx, err := p.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	matches, err := p.match(ctx, tx, event)
	if err != nil {
		return err
	}

	for _, sub := range matches {
		if err := p.notify(ctx, tx, event, sub); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// match finds the subscriptions the event fires. Price candidates come back
// from an inclusive BETWEEN and are re-checked against the range, which drops
// thresholds sitting exactly on the excluded previous close.
func (p *Processor) match(ctx context.Context, tx EventTx, event models.Event) ([]models.Subscription, error) {
	switch ev := event.(type) {
	case models.OrderExecuted:
		return tx.MatchOrderFulfilled(ctx, ev.Address)

	case models.PriceChanged:
		low, high := ev.Range.LowHigh()
		candidates, err := tx.MatchPriceThreshold(ctx, ev.Pair, low, high)
		if err != nil {
			return nil, err
		}
		matches := candidates[:0]
		for _, sub := range candidates {
			topic, ok := sub.Topic.(models.PriceThresholdTopic)
			if !ok {
				return nil, &models.FatalError{
					Reason: "price threshold query returned a non-threshold subscription",
				}
			}
			if ev.Range.Contains(topic.Threshold) {
				matches = append(matches, sub)
			}
		}
		return matches, nil

	default:
		return nil, &models.FatalError{Reason: "unhandled event type in matcher"}
	}
}

// notify renders and enqueues one message per device of the matched
// subscriber and consumes the subscription if it is one-shot.
func (p *Processor) notify(ctx context.Context, tx EventTx, event models.Event, sub models.Subscription) error {
	parts, err := buildMessageParts(event, sub)
	if err != nil {
		return err
	}

	devices, err := tx.DevicesForSubscriber(ctx, sub.SubscriberAddress)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		// Nothing to deliver to, so the subscription is not consumed either: a
		// one-shot fires the first time the subscriber can actually receive it.
		log.Printf("[processor] warning: subscriber %s matched subscription %d but has no devices",
			sub.SubscriberAddress, sub.UID)
		return nil
	}

	amountToken := p.tickers.Ticker(ctx, parts.pair.AmountAsset)
	priceToken := p.tickers.Ticker(ctx, parts.pair.PriceAsset)

	data, err := models.MessageData{
		Type:          parts.dataType,
		AmountAssetID: parts.pair.AmountAsset.String(),
		PriceAssetID:  parts.pair.PriceAsset.String(),
		Address:       parts.address.String(),
	}.Encode()
	if err != nil {
		return err
	}

	for _, device := range devices {
		side := ""
		if parts.side != "" {
			side, err = p.loc.Translate(device.Language, string(parts.side))
			if err != nil {
				return err
			}
		}
		subs := map[string]string{
			"amountToken": amountToken,
			"priceToken":  priceToken,
			"pair":        localizer.Pair(amountToken, priceToken),
			"side":        side,
			"value":       parts.value,
			"date":        "?",
			"time":        "?",
		}

		title, err := p.loc.Render(device.Language, parts.titleKey, subs)
		if err != nil {
			return err
		}
		body, err := p.loc.Render(device.Language, parts.bodyKey, subs)
		if err != nil {
			return err
		}

		msg := &models.QueuedMessage{
			DeviceUID: device.UID,
			Title:     title,
			Body:      body,
			Data:      data,
		}
		if err := tx.Enqueue(ctx, msg); err != nil {
			return err
		}
	}

	if sub.Mode == models.ModeOnce {
		return tx.DeleteSubscription(ctx, sub.UID)
	}
	return nil
}
