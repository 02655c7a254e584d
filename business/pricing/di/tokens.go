// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/flashloan-arb/business/pricing/app"
	"github.com/fd1az/flashloan-arb/business/pricing/infra/kyber"
	"github.com/fd1az/flashloan-arb/business/pricing/infra/uniswap"
	"github.com/fd1az/flashloan-arb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	PricingService = di.NewToken[*app.PricingService]("pricing.PricingService")
)

// Private dependency tokens - internal to pricing module
var (
	Uniswap        = di.NewToken[*uniswap.Provider]("pricing:uniswap")
	Kyber          = di.NewToken[*kyber.Provider]("pricing:kyber")
	RateFetcher    = di.NewToken[*app.RateFetcher]("pricing:rateFetcher")
	ReferenceCache = di.NewToken[*app.ReferencePriceCache]("pricing:referenceCache")
)

// Helper functions for type-safe access
func GetPricingService(c di.ServiceRegistry) *app.PricingService {
	return di.GetToken(c, PricingService)
}

func GetUniswap(c di.ServiceRegistry) *uniswap.Provider {
	return di.GetToken(c, Uniswap)
}

func GetKyber(c di.ServiceRegistry) *kyber.Provider {
	return di.GetToken(c, Kyber)
}

func GetRateFetcher(c di.ServiceRegistry) *app.RateFetcher {
	return di.GetToken(c, RateFetcher)
}

func GetReferenceCache(c di.ServiceRegistry) *app.ReferencePriceCache {
	return di.GetToken(c, ReferenceCache)
}
