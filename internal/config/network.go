package config

import (
	"os"
	"strings"
)

// WavesNetwork holds network-specific chain parameters and the well-known
// public endpoints used when no explicit URL is configured.
type WavesNetwork struct {
	Name                 string
	ChainID              byte
	DataServiceURL       string
	BlockchainUpdatesURL string
}

var mainnetNetwork = WavesNetwork{
	Name:                 "mainnet",
	ChainID:              'W',
	DataServiceURL:       "https://api.wavesplatform.com/v0",
	BlockchainUpdatesURL: "blockchain-updates.wavesnodes.com:6881",
}

var testnetNetwork = WavesNetwork{
	Name:                 "testnet",
	ChainID:              'T',
	DataServiceURL:       "https://api.testnet.wavesplatform.com/v0",
	BlockchainUpdatesURL: "blockchain-updates-testnet.wavesnodes.com:6881",
}

// Network returns the parameters for the network selected by the
// WAVES_NETWORK env var ("testnet" or "mainnet", default "mainnet").
func Network() WavesNetwork {
	network := strings.TrimSpace(strings.ToLower(os.Getenv("WAVES_NETWORK")))
	if network == "testnet" {
		return testnetNetwork
	}
	return mainnetNetwork
}
