package chain

import (
	"time"

	"wavespush/internal/models"
)

// PriceScale is the fixed denominator of matcher prices. Exchange
// transactions carry the price as an integer scaled by 10^8 regardless of
// the decimals of the traded assets.
const PriceScale = 100_000_000

// ExchangeTransaction is a single trade settled on chain by a matcher.
type ExchangeTransaction struct {
	// Sender is the address that signed the transaction. Only transactions
	// sent by the configured matcher feed price aggregation.
	Sender models.Address
	Pair   models.AssetPair
	// Price is the trade price already scaled down by PriceScale.
	Price float64
}

// Append is a block or microblock added to the chain tip.
type Append struct {
	BlockID string
	Height  uint64
	// Timestamp is the block header time. Microblocks carry no header time,
	// so for them this is the wall clock at the moment of decoding.
	Timestamp  time.Time
	MicroBlock bool
	// Transactions holds the exchange transactions of the appended body, in
	// chain order. Other transaction kinds are dropped during decoding.
	Transactions []ExchangeTransaction
}

// Rollback discards the chain tip back to the named block.
type Rollback struct {
	BlockID string
	Height  uint64
}

// Update is a single event of the blockchain-updates stream. Exactly one of
// the fields is set.
type Update struct {
	Append   *Append
	Rollback *Rollback
}
