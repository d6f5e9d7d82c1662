package models

import "time"

// OrderSide is the taker-visible side of an executed order.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// OrderType distinguishes limit and market orders.
type OrderType string

const (
	OrderTypeLimit  OrderType = "limit"
	OrderTypeMarket OrderType = "market"
)

// OrderExecution says how much of the order has been executed. Percentage is
// only meaningful for partial fills.
type OrderExecution struct {
	Partial    bool    `json:"partial"`
	Percentage float64 `json:"percentage,omitempty"`
}

// FullExecution marks a completely filled order.
func FullExecution() OrderExecution { return OrderExecution{} }

// PartialExecution marks a partially filled order at the given percentage of
// its total amount.
func PartialExecution(percentage float64) OrderExecution {
	return OrderExecution{Partial: true, Percentage: percentage}
}

// Event is a notification-worthy occurrence produced by one of the ingesters
// and consumed by the event processor.
type Event interface {
	isEvent()
}

// OrderExecuted is emitted by the order-stream ingester for every filled or
// partially filled order.
type OrderExecuted struct {
	OrderType OrderType      `json:"order_type"`
	Side      OrderSide      `json:"side"`
	Pair      AssetPair      `json:"asset_pair"`
	Execution OrderExecution `json:"execution"`
	Address   Address        `json:"address"`
	Timestamp time.Time      `json:"timestamp"`
}

func (OrderExecuted) isEvent() {}

// PriceChanged is emitted by the price aggregator once per block and pair
// whose finalized range is non-empty.
type PriceChanged struct {
	Pair      AssetPair  `json:"asset_pair"`
	Range     PriceRange `json:"price_range"`
	Timestamp time.Time  `json:"timestamp"`
}

func (PriceChanged) isEvent() {}
