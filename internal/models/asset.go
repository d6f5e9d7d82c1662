package models

import (
	"fmt"

	"github.com/mr-tron/base58"
)

// Address is a blockchain account identifier in its canonical base58 form.
// Two addresses are equal iff their canonical strings are equal.
type Address string

// ParseAddress validates that s is a non-empty base58 string.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return "", &ValidationError{Reason: "empty address"}
	}
	if _, err := base58.Decode(s); err != nil {
		return "", &ValidationError{Reason: fmt.Sprintf("address %q is not valid base58", s)}
	}
	return Address(s), nil
}

func (a Address) String() string { return string(a) }

// AssetWaves is the chain's native token. It has no issue transaction and
// therefore no base58 id; the literal name stands in for one everywhere an
// asset id is expected (topic URLs, detail rows, message payloads).
const AssetWaves = Asset("WAVES")

// Asset is either the native token or an issued asset identified by the
// base58 id of its issue transaction. The zero value is invalid.
type Asset string

// ParseAsset accepts the literal "WAVES" or a base58 asset id.
func ParseAsset(s string) (Asset, error) {
	if s == string(AssetWaves) {
		return AssetWaves, nil
	}
	if s == "" {
		return "", &ValidationError{Reason: "empty asset id"}
	}
	if _, err := base58.Decode(s); err != nil {
		return "", &ValidationError{Reason: fmt.Sprintf("asset id %q is not valid base58", s)}
	}
	return Asset(s), nil
}

// AssetFromBytes maps a raw asset id from the chain: an empty id means the
// native token, anything else is the issued asset's digest.
func AssetFromBytes(id []byte) Asset {
	if len(id) == 0 {
		return AssetWaves
	}
	return Asset(base58.Encode(id))
}

// IsWaves reports whether the asset is the native token.
func (a Asset) IsWaves() bool { return a == AssetWaves }

func (a Asset) String() string { return string(a) }

// AssetPair identifies a traded pair. Order is significant: swapping the
// amount and price assets produces a different pair.
type AssetPair struct {
	AmountAsset Asset `json:"amount_asset"`
	PriceAsset  Asset `json:"price_asset"`
}

func (p AssetPair) String() string {
	return fmt.Sprintf("%s/%s", p.AmountAsset, p.PriceAsset)
}
