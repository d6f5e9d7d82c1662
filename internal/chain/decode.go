package chain

import (
	"fmt"
	"time"

	"github.com/mr-tron/base58"
	"github.com/wavesplatform/gowaves/pkg/crypto"
	pbwaves "github.com/wavesplatform/gowaves/pkg/grpc/generated/waves"
	pbevents "github.com/wavesplatform/gowaves/pkg/grpc/generated/waves/events"
	"github.com/wavesplatform/gowaves/pkg/proto"

	"wavespush/internal/models"
)

func decodeUpdate(upd *pbevents.BlockchainUpdated, chainID byte, now func() time.Time) (Update, error) {
	blockID := base58.Encode(upd.GetId())

	if upd.GetRollback() != nil {
		return Update{Rollback: &Rollback{BlockID: blockID, Height: uint64(upd.GetHeight())}}, nil
	}

	app := upd.GetAppend()
	if app == nil {
		return Update{}, fmt.Errorf("block %s: update is neither append nor rollback", blockID)
	}

	out := &Append{
		BlockID: blockID,
		Height:  uint64(upd.GetHeight()),
	}

	var txs []*pbwaves.SignedTransaction
	switch {
	case app.GetBlock() != nil:
		block := app.GetBlock().GetBlock()
		out.Timestamp = time.UnixMilli(block.GetHeader().GetTimestamp())
		txs = block.GetTransactions()
	case app.GetMicroBlock() != nil:
		out.MicroBlock = true
		out.Timestamp = now()
		txs = app.GetMicroBlock().GetMicroBlock().GetMicroBlock().GetTransactions()
	default:
		return Update{}, fmt.Errorf("block %s: append carries no body", blockID)
	}

	for _, stx := range txs {
		ex, err := decodeExchange(stx, chainID)
		if err != nil {
			return Update{}, fmt.Errorf("block %s: %w", blockID, err)
		}
		if ex != nil {
			out.Transactions = append(out.Transactions, *ex)
		}
	}
	return Update{Append: out}, nil
}

// decodeExchange extracts the trade from a signed transaction. It returns
// nil for every transaction kind other than exchange.
func decodeExchange(stx *pbwaves.SignedTransaction, chainID byte) (*ExchangeTransaction, error) {
	tx := stx.GetWavesTransaction()
	if tx == nil {
		return nil, nil
	}
	data := tx.GetExchange()
	if data == nil {
		return nil, nil
	}

	orders := data.GetOrders()
	if len(orders) == 0 {
		return nil, fmt.Errorf("exchange transaction without orders")
	}
	pair := orders[0].GetAssetPair()
	if pair == nil {
		return nil, fmt.Errorf("exchange transaction without asset pair")
	}

	sender, err := senderAddress(tx, chainID)
	if err != nil {
		return nil, err
	}

	return &ExchangeTransaction{
		Sender: sender,
		Pair: models.AssetPair{
			AmountAsset: models.AssetFromBytes(pair.GetAmountAssetId()),
			PriceAsset:  models.AssetFromBytes(pair.GetPriceAssetId()),
		},
		Price: float64(data.GetPrice()) / PriceScale,
	}, nil
}

// senderAddress derives the signer's address from its public key. The
// transaction's own chain id wins when present; old transactions carry zero
// there and fall back to the configured scheme.
func senderAddress(tx *pbwaves.Transaction, chainID byte) (models.Address, error) {
	pk, err := crypto.NewPublicKeyFromBytes(tx.GetSenderPublicKey())
	if err != nil {
		return "", fmt.Errorf("failed to decode sender public key: %w", err)
	}
	scheme := chainID
	if id := tx.GetChainId(); id != 0 {
		scheme = byte(id)
	}
	addr, err := proto.NewAddressFromPublicKey(scheme, pk)
	if err != nil {
		return "", fmt.Errorf("failed to derive sender address: %w", err)
	}
	return models.Address(addr.String()), nil
}
