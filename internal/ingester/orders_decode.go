package ingester

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"wavespush/internal/models"
)

// orderStreamEnvelopeType tags order-status-update batches on the stream.
const orderStreamEnvelopeType = "osu"

// errUnknownEnvelope marks an envelope type this consumer does not handle.
// The entry is logged, acked and skipped rather than failing the stream.
var errUnknownEnvelope = errors.New("unknown order stream envelope type")

// Matcher order statuses as they appear on the stream.
const (
	orderStatusFilled          = "Filled"
	orderStatusPartiallyFilled = "PartiallyFilled"
	orderStatusCancelled       = "Cancelled"
)

// orderEnvelope is the outer shape of a stream entry payload. The matcher
// keeps field names to one character to bound entry sizes.
type orderEnvelope struct {
	Type      string        `json:"T"`
	Timestamp int64         `json:"_"`
	Orders    []orderUpdate `json:"o"`
}

// orderUpdate is one order's status change. Amount-like fields arrive as
// JSON numbers with more precision than a float64 guarantees, so they are
// kept textual until the percentage division.
type orderUpdate struct {
	ID                       string      `json:"i"`
	Owner                    string      `json:"o"`
	Timestamp                int64       `json:"t"`
	AmountAsset              string      `json:"A"`
	PriceAsset               string      `json:"P"`
	Side                     string      `json:"S"`
	OrderType                string      `json:"T"`
	Price                    json.Number `json:"p"`
	Amount                   json.Number `json:"a"`
	Fee                      json.Number `json:"f"`
	FilledAmountAccumulated  json.Number `json:"F"`
	Status                   string      `json:"s"`
	AvgWeighedPrice          json.Number `json:"q"`
	FilledFee                json.Number `json:"Q"`
	FeeAsset                 string      `json:"r"`
	TotalExecutedPriceAssets json.Number `json:"Z"`
	CloseReason              string      `json:"c"`
	Height                   int64       `json:"h"`
	ExecutedAmount           json.Number `json:"e"`
	ExecutedFee              json.Number `json:"E"`
}

// DecodeOrderEvents turns one stream payload into OrderExecuted events.
// Cancelled orders produce no event. An envelope of an unknown type returns
// errUnknownEnvelope; everything else that does not decode is a hard error
// because the stream is corrupt.
func DecodeOrderEvents(payload []byte) ([]models.OrderExecuted, error) {
	var envelope orderEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("decode order stream envelope: %w", err)
	}
	if envelope.Type != orderStreamEnvelopeType {
		return nil, fmt.Errorf("%w: %q", errUnknownEnvelope, envelope.Type)
	}

	var events []models.OrderExecuted
	for i, upd := range envelope.Orders {
		event, skip, err := decodeOrderUpdate(upd, envelope.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("order update %d (%s): %w", i, upd.ID, err)
		}
		if skip {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

func decodeOrderUpdate(upd orderUpdate, envelopeTimestamp int64) (models.OrderExecuted, bool, error) {
	if upd.Status == orderStatusCancelled {
		return models.OrderExecuted{}, true, nil
	}

	var execution models.OrderExecution
	switch upd.Status {
	case orderStatusFilled:
		execution = models.FullExecution()
	case orderStatusPartiallyFilled:
		percentage, err := filledPercentage(upd.FilledAmountAccumulated, upd.Amount)
		if err != nil {
			return models.OrderExecuted{}, false, err
		}
		execution = models.PartialExecution(percentage)
	default:
		return models.OrderExecuted{}, false, fmt.Errorf("unknown order status %q", upd.Status)
	}

	address, err := models.ParseAddress(upd.Owner)
	if err != nil {
		return models.OrderExecuted{}, false, fmt.Errorf("order owner: %w", err)
	}
	amountAsset, err := models.ParseAsset(upd.AmountAsset)
	if err != nil {
		return models.OrderExecuted{}, false, fmt.Errorf("amount asset: %w", err)
	}
	priceAsset, err := models.ParseAsset(upd.PriceAsset)
	if err != nil {
		return models.OrderExecuted{}, false, fmt.Errorf("price asset: %w", err)
	}

	side, err := decodeOrderSide(upd.Side)
	if err != nil {
		return models.OrderExecuted{}, false, err
	}
	orderType, err := decodeOrderType(upd.OrderType)
	if err != nil {
		return models.OrderExecuted{}, false, err
	}

	timestamp := upd.Timestamp
	if timestamp == 0 {
		timestamp = envelopeTimestamp
	}

	return models.OrderExecuted{
		OrderType: orderType,
		Side:      side,
		Pair:      models.AssetPair{AmountAsset: amountAsset, PriceAsset: priceAsset},
		Execution: execution,
		Address:   address,
		Timestamp: time.UnixMilli(timestamp),
	}, false, nil
}

// filledPercentage computes 100 × filled / amount with arbitrary precision
// and converts once at the end, so large integer amounts do not lose digits
// on the way in.
func filledPercentage(filled, amount json.Number) (float64, error) {
	filledRat, ok := new(big.Rat).SetString(filled.String())
	if !ok {
		return 0, fmt.Errorf("bad filled amount %q", filled)
	}
	amountRat, ok := new(big.Rat).SetString(amount.String())
	if !ok {
		return 0, fmt.Errorf("bad order amount %q", amount)
	}
	if amountRat.Sign() == 0 {
		return 0, fmt.Errorf("order amount is zero")
	}

	percentage := new(big.Rat).Quo(filledRat, amountRat)
	percentage.Mul(percentage, big.NewRat(100, 1))
	value, _ := percentage.Float64()
	return value, nil
}

func decodeOrderSide(s string) (models.OrderSide, error) {
	switch s {
	case "buy":
		return models.SideBuy, nil
	case "sell":
		return models.SideSell, nil
	default:
		return "", fmt.Errorf("unknown order side %q", s)
	}
}

func decodeOrderType(s string) (models.OrderType, error) {
	switch s {
	case "limit":
		return models.OrderTypeLimit, nil
	case "market":
		return models.OrderTypeMarket, nil
	default:
		return "", fmt.Errorf("unknown order type %q", s)
	}
}
