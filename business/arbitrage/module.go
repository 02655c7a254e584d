// Package arbitrage implements the arbitrage bounded context: profit evaluation and gated flash loan submission.
package arbitrage

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fd1az/flashloan-arb/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/flashloan-arb/business/arbitrage/di"
	"github.com/fd1az/flashloan-arb/business/arbitrage/infra"
	"github.com/fd1az/flashloan-arb/business/arbitrage/infra/flashloan"
	"github.com/fd1az/flashloan-arb/business/arbitrage/infra/postgres"
	"github.com/fd1az/flashloan-arb/business/arbitrage/infra/redislock"
	"github.com/fd1az/flashloan-arb/business/arbitrage/infra/webhook"
	blockchainDI "github.com/fd1az/flashloan-arb/business/blockchain/di"
	pricingDI "github.com/fd1az/flashloan-arb/business/pricing/di"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/httpclient"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/monolith"
	"github.com/fd1az/flashloan-arb/pkg/ui"
)

// Module implements the arbitrage bounded context.
type Module struct{}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, arbitrageDI.Builder, func(sr di.ServiceRegistry) *flashloan.Builder {
		cfg := sr.Get("config").(*config.Config)
		client := sr.Get("ethClient").(*ethclient.Client)
		chainID := sr.Get("chainID").(*big.Int).Uint64()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		contract, err := flashloan.Resolve(ctx, client, cfg.Flashloan, chainID)
		if err != nil {
			panic("failed to resolve flash loan contract: " + err.Error())
		}

		quote := pricingDI.GetRateFetcher(sr).Pair().Quote
		builder, err := flashloan.NewBuilder(contract, cfg.Flashloan.Solo(), quote)
		if err != nil {
			panic("failed to create trade builder: " + err.Error())
		}
		return builder
	})

	di.RegisterToken(c, arbitrageDI.Gate, func(sr di.ServiceRegistry) *app.ExecutionGate {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		hooks, err := gateHooks(sr, cfg)
		if err != nil {
			panic("failed to create gate hooks: " + err.Error())
		}

		gate, err := app.NewExecutionGate(
			arbitrageDI.GetBuilder(sr),
			blockchainDI.GetGasOracle(sr),
			blockchainDI.GetTxSender(sr),
			hooks,
			app.GateConfig{
				Notional:      pricingDI.GetRateFetcher(sr).Notional(),
				SubmitTimeout: cfg.Arbitrage.SubmitTimeout,
				LockTTL:       cfg.Redis.LockTTL,
			},
			log,
		)
		if err != nil {
			panic("failed to create execution gate: " + err.Error())
		}
		return gate
	})

	di.RegisterToken(c, arbitrageDI.Evaluator, func(sr di.ServiceRegistry) *app.ProfitEvaluator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		minNet, err := minNetProfit(cfg.Arbitrage, pricingDI.GetRateFetcher(sr).Pair().Quote)
		if err != nil {
			panic("invalid min_net_profit: " + err.Error())
		}

		return app.NewProfitEvaluator(pricingDI.GetReferenceCache(sr), arbitrageDI.GetGate(sr), app.EvaluatorConfig{
			MinNetProfit: minNet,
			GasTimeout:   cfg.Arbitrage.GasTimeout,
		}, log)
	})

	di.RegisterToken(c, arbitrageDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get("config").(*config.Config)
		if cfg.Arbitrage.TUIMode {
			return infra.NewTUIReporter(ui.Send, arbitrageDI.GetGate(sr).State)
		}
		return infra.NewConsoleReporter()
	})

	di.RegisterToken(c, arbitrageDI.Pipeline, func(sr di.ServiceRegistry) *app.Pipeline {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		pipeline, err := app.NewPipeline(
			blockchainDI.GetBlockFeed(sr),
			pricingDI.GetRateFetcher(sr),
			arbitrageDI.GetEvaluator(sr),
			arbitrageDI.GetGate(sr),
			arbitrageDI.GetReporter(sr),
			app.PipelineConfig{BlockTimeout: cfg.Arbitrage.BlockTimeout},
			log,
		)
		if err != nil {
			panic("failed to create pipeline: " + err.Error())
		}
		if cfg.Arbitrage.TUIMode {
			pipeline.SetPauseFunc(ui.Paused)
		}
		return pipeline
	})

	return nil
}

// Startup migrates the journal and resolves the pipeline eagerly so a missing
// contract fails the process before the first block.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	if pool := mono.Postgres(); pool != nil {
		if err := postgres.Migrate(ctx, pool); err != nil {
			return err
		}
		log.Info(ctx, "execution journal ready")
	}

	pipeline := arbitrageDI.GetPipeline(mono.Services())
	builder := arbitrageDI.GetBuilder(mono.Services())
	evaluator := arbitrageDI.GetEvaluator(mono.Services())
	mono.OnClose(func() { _ = pipeline.Stop() })

	cfg := mono.Config()
	log.Info(ctx, "arbitrage module started",
		"contract", builder.Contract().Hex(),
		"min_net_profit", evaluator.MinNetProfit().String(),
		"redis_lock", cfg.Redis.Enabled(),
		"journal", cfg.Postgres.Enabled(),
		"webhook", cfg.Notify.WebhookURL != "")
	return nil
}

// gateHooks wires the optional lock, journal and notifier from configured infrastructure.
func gateHooks(sr di.ServiceRegistry, cfg *config.Config) (app.GateHooks, error) {
	var hooks app.GateHooks

	if rdb, _ := sr.Get("redis").(*redis.Client); rdb != nil {
		hooks.Lock = redislock.New(rdb)
	}
	if pool, _ := sr.Get("postgres").(*pgxpool.Pool); pool != nil {
		hooks.Journal = postgres.NewJournal(pool)
	}
	if cfg.Notify.WebhookURL != "" {
		opts := []httpclient.ClientOption{httpclient.WithProviderName("webhook")}
		if cfg.Notify.Timeout > 0 {
			opts = append(opts, httpclient.WithRequestTimeout(cfg.Notify.Timeout))
		}
		client, err := httpclient.New(opts...)
		if err != nil {
			return app.GateHooks{}, err
		}
		hooks.Notifier = webhook.New(client, cfg.Notify.WebhookURL)
	}
	return hooks, nil
}

func minNetProfit(cfg config.ArbitrageConfig, quote *asset.Asset) (*big.Int, error) {
	d, err := cfg.MinNetProfitDecimal()
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithCause(err))
	}
	amount, err := asset.ParseDecimal(quote, d)
	if err != nil {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithCause(err))
	}
	return amount.Raw(), nil
}
