// Package asset models on-chain assets and exact smallest-unit quantities.
// All arithmetic is big.Int; decimal.Decimal appears only at parse and display boundaries.
package asset

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// ID identifies an asset by chain and contract. Native coins have a zero address.
type ID struct {
	chainID uint64
	address common.Address
}

// NativeID is the ID of a chain's native coin.
func NativeID(chainID uint64) ID {
	return ID{chainID: chainID}
}

// TokenID is the ID of an ERC20 token.
func TokenID(chainID uint64, addr common.Address) ID {
	if addr == (common.Address{}) {
		panic("asset: token address cannot be zero, use NativeID")
	}
	return ID{chainID: chainID, address: addr}
}

func (id ID) ChainID() uint64         { return id.chainID }
func (id ID) Address() common.Address { return id.address }
func (id ID) IsNative() bool          { return id.address == (common.Address{}) }

func (id ID) String() string {
	if id.IsNative() {
		return fmt.Sprintf("chain:%d/native", id.chainID)
	}
	return fmt.Sprintf("chain:%d/%s", id.chainID, id.address.Hex())
}

// Asset is immutable metadata. Identity is the ID, never the symbol.
type Asset struct {
	id       ID
	symbol   string
	name     string
	decimals uint8
}

// New creates an Asset. Decimals above 36 are rejected as misconfiguration.
func New(id ID, symbol, name string, decimals uint8) *Asset {
	if symbol == "" {
		panic("asset: empty symbol")
	}
	if decimals > 36 {
		panic("asset: suspicious decimals (>36)")
	}
	return &Asset{id: id, symbol: symbol, name: name, decimals: decimals}
}

// NewToken is shorthand for an ERC20 asset.
func NewToken(chainID uint64, addr common.Address, symbol, name string, decimals uint8) *Asset {
	return New(TokenID(chainID, addr), symbol, name, decimals)
}

// NewNative is shorthand for a native coin.
func NewNative(chainID uint64, symbol, name string, decimals uint8) *Asset {
	return New(NativeID(chainID), symbol, name, decimals)
}

func (a *Asset) ID() ID                  { return a.id }
func (a *Asset) Symbol() string          { return a.symbol }
func (a *Asset) Decimals() uint8         { return a.decimals }
func (a *Asset) ChainID() uint64         { return a.id.chainID }
func (a *Asset) Address() common.Address { return a.id.address }
func (a *Asset) IsNative() bool          { return a.id.IsNative() }
func (a *Asset) String() string          { return a.symbol }

func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

// Equals compares by ID.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id == other.id
}
