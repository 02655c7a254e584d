// Package blockchain implements the blockchain bounded context: head feed, gas and submission.
package blockchain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/flashloan-arb/business/blockchain/app"
	blockchainDI "github.com/fd1az/flashloan-arb/business/blockchain/di"
	"github.com/fd1az/flashloan-arb/business/blockchain/infra/ethereum"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/keystore"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, blockchainDI.BlockFeed, func(sr di.ServiceRegistry) app.BlockFeed {
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)

		feed, err := ethereum.NewHeadFeed(client, ethereum.DefaultFeedConfig(), log)
		if err != nil {
			panic("failed to create head feed: " + err.Error())
		}
		return feed
	})

	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) app.GasOracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)

		oracle, err := ethereum.NewGasOracle(client, ethereum.NewGasOracleConfig(cfg.Ethereum.MaxGasPriceGwei), log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	di.RegisterToken(c, blockchainDI.TxSender, func(sr di.ServiceRegistry) app.TxSender {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		client := sr.Get("ethClient").(*ethclient.Client)
		key := sr.Get("signer").(*keystore.Key)
		chainID := sr.Get("chainID").(*big.Int)

		sender, err := ethereum.NewTxSender(client, key.Private, ethereum.SenderConfig{
			ChainID: chainID,
			DryRun:  cfg.Arbitrage.DryRun,
		}, log)
		if err != nil {
			panic("failed to create tx sender: " + err.Error())
		}
		return sender
	})

	di.RegisterToken(c, blockchainDI.BlockchainService, func(sr di.ServiceRegistry) *app.BlockchainService {
		return app.NewBlockchainService(
			blockchainDI.GetBlockFeed(sr),
			blockchainDI.GetGasOracle(sr),
			blockchainDI.GetTxSender(sr),
		)
	})

	return nil
}

// Startup resolves the services eagerly so wiring errors surface before the first block.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	svc := blockchainDI.GetBlockchainService(mono.Services())
	mono.Logger().Info(ctx, "blockchain module started",
		"from", svc.Sender.From().Hex(),
		"dry_run", mono.Config().Arbitrage.DryRun)
	return nil
}
