// Package main is the entry point for the flash loan arbitrage bot.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/flashloan-arb/business/arbitrage"
	arbitrageDI "github.com/fd1az/flashloan-arb/business/arbitrage/di"
	"github.com/fd1az/flashloan-arb/business/blockchain"
	blockchainDI "github.com/fd1az/flashloan-arb/business/blockchain/di"
	blockchainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/business/pricing"
	pricingDI "github.com/fd1az/flashloan-arb/business/pricing/di"
	"github.com/fd1az/flashloan-arb/internal/apm"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/health"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/metrics"
	"github.com/fd1az/flashloan-arb/internal/monolith"
	"github.com/fd1az/flashloan-arb/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to configuration file")
	cliMode := flag.Bool("cli", false, "Run in CLI mode with logs (no TUI)")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("flashloan-arb %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// TUI is the default, CLI is for debugging
	tuiMode := !*cliMode

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, tuiMode); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string, tuiMode bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Arbitrage.TUIMode = tuiMode

	var out io.Writer = os.Stderr
	if tuiMode {
		// The TUI owns the terminal.
		out = io.Discard
	}
	log := logger.New(out, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, apm.TraceID)
	log.Info(ctx, "starting flash loan arbitrage bot",
		"version", version,
		"environment", cfg.App.Environment,
		"dry_run", cfg.Arbitrage.DryRun)

	shutdownTelemetry, err := setupTelemetry(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer shutdownTelemetry()

	healthServer := health.NewServer(cfg.Health.Port, version, log)
	if err := healthServer.Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = healthServer.Stop(stopCtx)
	}()

	if tuiMode {
		return runTUI(ctx, cfg, log, healthServer)
	}
	return runBot(ctx, cfg, log, healthServer, func(string, string) {})
}

// setupTelemetry installs the tracer and meter providers when enabled and
// returns their shutdown.
func setupTelemetry(ctx context.Context, cfg *config.Config, log *logger.Logger) (func(), error) {
	if !cfg.Telemetry.Enabled {
		return func() {}, nil
	}

	provider, err := apm.ParseProvider(cfg.Telemetry.Provider)
	if err != nil {
		return nil, err
	}
	tp, err := apm.NewTraceProvider(ctx, apm.TraceConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Provider:    provider,
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		ConsoleOut:  os.Stderr,
	}, log)
	if err != nil {
		return nil, err
	}

	mp, err := metrics.NewMetricProvider(ctx,
		metrics.WithServiceName(cfg.Telemetry.ServiceName),
		metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
	)
	if err != nil {
		_ = tp.Stop()
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	metricsCtx, cancelMetrics := context.WithCancel(context.Background())
	go func() {
		if err := mp.Serve(metricsCtx, cfg.Telemetry.PrometheusPort, log); err != nil {
			log.Warn(ctx, "metrics server stopped", "error", err)
		}
	}()

	return func() {
		cancelMetrics()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mp.Shutdown(shutdownCtx)
		_ = tp.Stop()
	}, nil
}

// runBot connects, starts the modules and blocks on the pipeline. progress
// reports startup steps to the TUI.
func runBot(ctx context.Context, cfg *config.Config, log *logger.Logger, hs *health.Server, progress func(step, status string)) error {
	progress("config", "done")
	progress("ethereum", "connecting")

	mono, err := monolith.New(ctx, cfg, log)
	if err != nil {
		progress("ethereum", "failed")
		return fmt.Errorf("failed to create monolith: %w", err)
	}
	defer mono.Close()
	progress("ethereum", "connected")

	// Blockchain first: pricing and arbitrage resolve its services.
	modules := []monolith.Module{
		&blockchain.Module{},
		&pricing.Module{},
		&arbitrage.Module{},
	}
	if err := mono.RegisterModules(modules...); err != nil {
		return fmt.Errorf("failed to register modules: %w", err)
	}

	progress("contract", "connecting")
	if err := startModules(func() error { return mono.StartModules(ctx, modules...) }); err != nil {
		progress("contract", "failed")
		return fmt.Errorf("failed to start modules: %w", err)
	}
	progress("contract", "done")
	progress("reference", "connecting")

	registerChecks(hs, mono.Services())

	pipeline := arbitrageDI.GetPipeline(mono.Services())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pipeline.Run(gctx)
	})

	err = g.Wait()
	log.Info(ctx, "shutting down", "error", err)
	return err
}

// startModules turns DI construction panics into errors so a missing contract
// or bad config ends the process cleanly.
func startModules(start func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	return start()
}

func registerChecks(hs *health.Server, sr di.ServiceRegistry) {
	feed := blockchainDI.GetBlockFeed(sr)
	reference := pricingDI.GetReferenceCache(sr)
	gate := arbitrageDI.GetGate(sr)

	hs.RegisterCheck("block_feed", func(context.Context) (bool, string) {
		state := feed.State()
		return state == blockchainDomain.FeedConnected, fmt.Sprintf("%s at block %d", state, feed.LastBlock())
	})
	hs.RegisterCheck("reference_price", func(context.Context) (bool, string) {
		ref, ok := reference.Current()
		if !ok {
			return false, "cold"
		}
		return true, fmt.Sprintf("%s, %s old", ref.Value.String(), ref.Age(time.Now()).Round(time.Second))
	})
	hs.RegisterCheck("execution_gate", func(context.Context) (bool, string) {
		return true, gate.State().String()
	})
}

// runTUI shows the TUI immediately and starts the bot once the welcome
// screen is dismissed. Quitting the TUI cancels the bot.
func runTUI(ctx context.Context, cfg *config.Config, log *logger.Logger, hs *health.Server) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	progress := func(step, status string) {
		ui.Send(ui.StartupMsg{Step: step, Status: status})
	}

	var started atomic.Bool
	errCh := make(chan error, 1)
	ui.OnStartModules = func() {
		if !started.CompareAndSwap(false, true) {
			return
		}
		err := runBot(ctx, cfg, log, hs, progress)
		if err != nil && ctx.Err() == nil {
			ui.Send(ui.ErrorMsg{Error: err})
			ui.Quit()
		}
		errCh <- err
	}

	go func() {
		<-ctx.Done()
		ui.Quit()
	}()

	if err := ui.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	cancel()

	if !started.Load() {
		return nil
	}
	select {
	case err := <-errCh:
		return err
	case <-time.After(10 * time.Second):
		return errors.New("timed out waiting for the bot to stop")
	}
}
