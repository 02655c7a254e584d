// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"fmt"

	pricingDomain "github.com/fd1az/flashloan-arb/business/pricing/domain"
)

// Direction is the round trip executed inside the flash loan. Its numeric value
// is the direction argument of the loan contract's entry point.
type Direction uint8

const (
	// KyberToUniswap buys the base asset on Kyber and sells it on Uniswap.
	KyberToUniswap Direction = 0

	// UniswapToKyber buys the base asset on Uniswap and sells it on Kyber.
	UniswapToKyber Direction = 1
)

// Directions lists every direction in evaluation order; ties go to the first.
func Directions() []Direction {
	return []Direction{KyberToUniswap, UniswapToKyber}
}

// String returns a human-readable description of the direction.
func (d Direction) String() string {
	switch d {
	case KyberToUniswap:
		return "Kyber → Uniswap (buy on Kyber, sell on Uniswap)"
	case UniswapToKyber:
		return "Uniswap → Kyber (buy on Uniswap, sell on Kyber)"
	default:
		return fmt.Sprintf("Direction(%d)", uint8(d))
	}
}

// ShortString is the compact label used in tables and logs.
func (d Direction) ShortString() string {
	switch d {
	case KyberToUniswap:
		return "KYBER→UNI"
	case UniswapToKyber:
		return "UNI→KYBER"
	default:
		return "?"
	}
}

func (d Direction) Valid() bool {
	return d == KyberToUniswap || d == UniswapToKyber
}

// Legs returns the buy and sell quotes this direction uses from the snapshot.
func (d Direction) Legs(s *pricingDomain.RateSnapshot) (buy, sell pricingDomain.Quote) {
	if d == KyberToUniswap {
		return s.BBuy, s.ASell
	}
	return s.ABuy, s.BSell
}
