package asset

import "github.com/ethereum/go-ethereum/common"

const (
	ChainIDEthereum = 1
	ChainIDSepolia  = 11155111
)

// Ethereum mainnet token addresses.
var (
	AddrDAI  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	AddrWETH = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	AddrUSDC = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
)

var (
	ETH  = NewNative(ChainIDEthereum, "ETH", "Ether", 18)
	WETH = NewToken(ChainIDEthereum, AddrWETH, "WETH", "Wrapped Ether", 18)
	DAI  = NewToken(ChainIDEthereum, AddrDAI, "DAI", "Dai Stablecoin", 18)
	USDC = NewToken(ChainIDEthereum, AddrUSDC, "USDC", "USD Coin", 6)
)

// DefaultRegistry knows the mainnet assets the bot trades.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range []*Asset{ETH, WETH, DAI, USDC} {
		r.MustRegister(a)
	}
	return r
}
