// Package pricing implements the pricing bounded context: venue quotes and the reference price.
package pricing

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/redis/go-redis/v9"

	"github.com/fd1az/flashloan-arb/business/pricing/app"
	pricingDI "github.com/fd1az/flashloan-arb/business/pricing/di"
	"github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/business/pricing/infra/kyber"
	"github.com/fd1az/flashloan-arb/business/pricing/infra/redismirror"
	"github.com/fd1az/flashloan-arb/business/pricing/infra/uniswap"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/monolith"
	"github.com/fd1az/flashloan-arb/internal/ratelimit"
)

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, pricingDI.Uniswap, func(sr di.ServiceRegistry) *uniswap.Provider {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)
		limiter := sr.Get("rpcLimiter").(*ratelimit.Limiter)

		provider, err := uniswap.NewProvider(client, cfg.Uniswap, limiter, log)
		if err != nil {
			panic("failed to create uniswap provider: " + err.Error())
		}
		return provider
	})

	di.RegisterToken(c, pricingDI.Kyber, func(sr di.ServiceRegistry) *kyber.Provider {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)
		limiter := sr.Get("rpcLimiter").(*ratelimit.Limiter)

		provider, err := kyber.NewProvider(client, cfg.Kyber.Proxy(), limiter, log)
		if err != nil {
			panic("failed to create kyber provider: " + err.Error())
		}
		return provider
	})

	di.RegisterToken(c, pricingDI.RateFetcher, func(sr di.ServiceRegistry) *app.RateFetcher {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		pair, notional, err := resolveTrade(sr, cfg.Arbitrage)
		if err != nil {
			panic("failed to resolve trade: " + err.Error())
		}

		fetcher, err := app.NewRateFetcher(pricingDI.GetUniswap(sr), pricingDI.GetKyber(sr), app.FetcherConfig{
			Pair:     pair,
			Notional: notional,
			Timeout:  cfg.Arbitrage.QuoteTimeout,
		}, log)
		if err != nil {
			panic("failed to create rate fetcher: " + err.Error())
		}
		return fetcher
	})

	di.RegisterToken(c, pricingDI.ReferenceCache, func(sr di.ServiceRegistry) *app.ReferencePriceCache {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		var sink app.PriceSink
		if rdb, _ := sr.Get("redis").(*redis.Client); rdb != nil {
			sink = redismirror.New(rdb, 4*cfg.Arbitrage.RefreshInterval)
		}

		native, err := lookupAsset(sr, asset.ETH.Symbol())
		if err != nil {
			panic("failed to resolve native asset: " + err.Error())
		}
		cache, err := app.NewReferencePriceCache(pricingDI.GetKyber(sr), sink, app.CacheConfig{
			Native:   native,
			Quote:    pricingDI.GetRateFetcher(sr).Pair().Quote,
			Interval: cfg.Arbitrage.RefreshInterval,
			Timeout:  cfg.Arbitrage.RefreshTimeout,
		}, log)
		if err != nil {
			panic("failed to create reference cache: " + err.Error())
		}
		return cache
	})

	di.RegisterToken(c, pricingDI.PricingService, func(sr di.ServiceRegistry) *app.PricingService {
		return app.NewPricingService(
			pricingDI.GetRateFetcher(sr),
			pricingDI.GetReferenceCache(sr),
			pricingDI.GetUniswap(sr),
		)
	})

	return nil
}

// Startup checks the AMM pair exists and starts the reference price timer.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	svc := pricingDI.GetPricingService(mono.Services())
	mono.OnClose(pricingDI.GetUniswap(mono.Services()).Close)

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	reserves, err := svc.PoolReserves(checkCtx)
	if err != nil {
		// Quotes will fail per block until the pool is reachable; not fatal here.
		log.Warn(ctx, "uniswap reserves unavailable", "error", err)
	} else {
		log.Info(ctx, "uniswap pool",
			"pair", reserves.Pair.String(),
			"reserve_base", reserves.Base.StringFixed(4),
			"reserve_quote", reserves.Quote.StringFixed(2))
	}

	go func() {
		_ = svc.Reference.Run(ctx)
	}()

	log.Info(ctx, "pricing module started",
		"pair", svc.Fetcher.Pair().String(),
		"notional", svc.Fetcher.Notional().StringFixed(2))
	return nil
}

// resolveTrade looks up the configured assets.
func resolveTrade(sr di.ServiceRegistry, cfg config.ArbitrageConfig) (domain.Pair, asset.Amount, error) {
	base, err := lookupAsset(sr, cfg.BaseAsset)
	if err != nil {
		return domain.Pair{}, asset.Amount{}, err
	}
	quote, err := lookupAsset(sr, cfg.QuoteAsset)
	if err != nil {
		return domain.Pair{}, asset.Amount{}, err
	}

	n, err := cfg.NotionalDecimal()
	if err != nil {
		return domain.Pair{}, asset.Amount{}, fmt.Errorf("notional: %w", err)
	}
	notional, err := asset.ParseDecimal(quote, n)
	if err != nil {
		return domain.Pair{}, asset.Amount{}, fmt.Errorf("notional: %w", err)
	}
	return domain.NewPair(base, quote), notional, nil
}

// lookupAsset resolves symbol on the node's chain, falling back to mainnet
// definitions for forked development chains.
func lookupAsset(sr di.ServiceRegistry, symbol string) (*asset.Asset, error) {
	reg := sr.Get("assetRegistry").(*asset.Registry)
	chainID := sr.Get("chainID").(*big.Int).Uint64()

	if a, ok := reg.Lookup(symbol, chainID); ok {
		return a, nil
	}
	if a, ok := reg.Lookup(symbol, asset.ChainIDEthereum); ok {
		return a, nil
	}
	return nil, apperror.New(apperror.CodeUnknownAsset, apperror.WithContext(symbol))
}
