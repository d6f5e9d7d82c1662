package processor

import (
	"fmt"

	"wavespush/internal/models"
)

// messageParts is the language-independent skeleton of a notification,
// derived from an event and the subscription it matched. Rendering resolves
// the translation keys and substitutions per device language.
type messageParts struct {
	titleKey string
	bodyKey  string
	pair     models.AssetPair
	// side is empty for price alerts.
	side models.OrderSide
	// value is the formatted threshold; empty for order notifications.
	value    string
	dataType string
	address  models.Address
}

// buildMessageParts maps (event, matched subscription) to message parts. The
// matcher only ever pairs order events with order topics and price events
// with threshold topics; any other combination is corrupted state.
func buildMessageParts(event models.Event, sub models.Subscription) (messageParts, error) {
	switch ev := event.(type) {
	case models.OrderExecuted:
		if _, ok := sub.Topic.(models.OrderFulfilledTopic); !ok {
			return messageParts{}, &models.FatalError{
				Reason: fmt.Sprintf("order event matched subscription %d with topic %T", sub.UID, sub.Topic),
			}
		}
		parts := messageParts{
			titleKey: "orderFilledTitle",
			bodyKey:  "orderFilledMessage",
			pair:     ev.Pair,
			side:     ev.Side,
			dataType: models.DataTypeOrderExecuted,
			address:  sub.SubscriberAddress,
		}
		if ev.Execution.Partial {
			parts.bodyKey = "orderPartFilledMessage"
			parts.dataType = models.DataTypeOrderPartiallyExecuted
		}
		return parts, nil

	case models.PriceChanged:
		topic, ok := sub.Topic.(models.PriceThresholdTopic)
		if !ok {
			return messageParts{}, &models.FatalError{
				Reason: fmt.Sprintf("price event matched subscription %d with topic %T", sub.UID, sub.Topic),
			}
		}
		return messageParts{
			titleKey: "priceAlertTitle",
			bodyKey:  "priceAlertMessage",
			pair:     ev.Pair,
			value:    models.FormatThreshold(topic.Threshold),
			dataType: models.DataTypePriceThresholdReached,
			address:  sub.SubscriberAddress,
		}, nil

	default:
		return messageParts{}, &models.FatalError{Reason: fmt.Sprintf("unhandled event type %T", event)}
	}
}
