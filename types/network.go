package types

// Network identifies a blockchain a payment can be quoted on.
type Network string

const (
	// EVM Networks
	NetworkPolygon     Network = "polygon"
	NetworkPolygonAmoy Network = "polygon-amoy" // testnet
	NetworkBase        Network = "base"
	NetworkBaseSepolia Network = "base-sepolia" // testnet

	// Solana Networks
	NetworkSolanaMainnet Network = "solana-mainnet"
	NetworkSolanaDevnet  Network = "solana-devnet" // testnet
)

func (n Network) IsEVM() bool {
	return n == NetworkPolygon || n == NetworkPolygonAmoy || n == NetworkBase || n == NetworkBaseSepolia
}

func (n Network) IsSolana() bool {
	return n == NetworkSolanaMainnet || n == NetworkSolanaDevnet
}

func (n Network) IsTestnet() bool {
	return n == NetworkPolygonAmoy || n == NetworkBaseSepolia || n == NetworkSolanaDevnet
}

// Known reports whether the network is one this service can quote.
func (n Network) Known() bool {
	return n.IsEVM() || n.IsSolana()
}

// NativeDecimals returns the atomic-unit precision of the network's
// native asset (lamports for Solana, wei for EVM chains).
func (n Network) NativeDecimals() int32 {
	if n.IsSolana() {
		return 9
	}
	return 18
}

func (n Network) String() string {
	return string(n)
}
