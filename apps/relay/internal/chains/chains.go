package chains

import "github.com/ethereum/go-ethereum/common"

// Network tags used in swap records. These are the only chains the relay
// knows how to read from or pay out on.
const (
	Celo     = "celo"
	Base     = "base"
	Arbitrum = "arbitrum"
	Optimism = "optimism"
)

// Token represents a payout token with its properties
type Token struct {
	Symbol   string         `json:"symbol"`
	Chain    string         `json:"chain"`
	Address  common.Address `json:"address"`
	Decimals int            `json:"decimals"`
}

// Profile describes one supported network.
type Profile struct {
	Name    string
	ChainID int64
	RpcURL  string
	// Native currency symbol, for logs and balance reports.
	NativeSymbol string
	// FallbackGasLimit is applied when gas estimation fails on networks
	// where estimation is known to be unreliable. Zero means estimation
	// failures abort the send.
	FallbackGasLimit uint64
}

// Registry holds the chain profiles and payout tokens the relay supports
type Registry struct {
	profiles map[string]*Profile
	tokens   map[string]*Token // keyed by "chain/symbol"
}

// NewRegistry creates a registry with all supported chains and tokens.
// RPC URLs come from configuration; everything else is static metadata.
func NewRegistry(celoRpc, baseRpc, arbitrumRpc, optimismRpc string) *Registry {
	registry := &Registry{
		profiles: make(map[string]*Profile),
		tokens:   make(map[string]*Token),
	}

	profiles := []*Profile{
		{
			Name:         Celo,
			ChainID:      42220,
			RpcURL:       celoRpc,
			NativeSymbol: "CELO",
			// Celo RPC nodes routinely fail eth_estimateGas under load
			FallbackGasLimit: 300000,
		},
		{
			Name:         Base,
			ChainID:      8453,
			RpcURL:       baseRpc,
			NativeSymbol: "ETH",
		},
		{
			Name:         Arbitrum,
			ChainID:      42161,
			RpcURL:       arbitrumRpc,
			NativeSymbol: "ETH",
		},
		{
			Name:         Optimism,
			ChainID:      10,
			RpcURL:       optimismRpc,
			NativeSymbol: "ETH",
		},
	}

	tokens := []*Token{
		{
			Symbol:   "cUSD",
			Chain:    Celo,
			Address:  common.HexToAddress("0x765DE816845861e75A25fCA122bb6898B8B1282a"),
			Decimals: 18,
		},
		{
			Symbol:   "USDC",
			Chain:    Base,
			Address:  common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
			Decimals: 6,
		},
		{
			Symbol:   "USDC",
			Chain:    Arbitrum,
			Address:  common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"),
			Decimals: 6,
		},
		{
			Symbol:   "USDC",
			Chain:    Optimism,
			Address:  common.HexToAddress("0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85"),
			Decimals: 6,
		},
	}

	for _, profile := range profiles {
		registry.profiles[profile.Name] = profile
	}
	for _, token := range tokens {
		registry.tokens[token.Chain+"/"+token.Symbol] = token
	}

	return registry
}

// GetProfile returns the profile for a chain name
func (r *Registry) GetProfile(chain string) (*Profile, bool) {
	profile, exists := r.profiles[chain]
	return profile, exists
}

// GetToken returns the payout token for a chain and symbol
func (r *Registry) GetToken(chain, symbol string) (*Token, bool) {
	token, exists := r.tokens[chain+"/"+symbol]
	return token, exists
}

// ChainNames returns all supported chain names
func (r *Registry) ChainNames() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	return names
}

// IsSupported checks if a chain name is supported
func (r *Registry) IsSupported(chain string) bool {
	_, exists := r.profiles[chain]
	return exists
}
