// Package monolith provides the application container and module interface.
package monolith

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/config"
	"github.com/fd1az/flashloan-arb/internal/di"
	"github.com/fd1az/flashloan-arb/internal/keystore"
	"github.com/fd1az/flashloan-arb/internal/logger"
	"github.com/fd1az/flashloan-arb/internal/ratelimit"
	"github.com/fd1az/flashloan-arb/internal/redisclient"
)

// Monolith is the main application container providing access to shared infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() logger.LoggerInterface
	EthClient() *ethclient.Client
	ChainID() *big.Int
	AssetRegistry() *asset.Registry
	// Redis and Postgres return nil when the section is not configured.
	Redis() *redis.Client
	Postgres() *pgxpool.Pool
	Services() di.ServiceRegistry
	OnClose(fn func())
}

// Module represents a bounded context module that can register services and start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

type app struct {
	config        *config.Config
	logger        logger.LoggerInterface
	ethClient     *ethclient.Client
	chainID       *big.Int
	assetRegistry *asset.Registry
	redis         *redis.Client
	pg            *pgxpool.Pool
	container     di.Container
	closers       []func()
}

// New dials the node, checks its chain id against config and loads the signing key.
// Any failure here is a cold-start failure.
func New(ctx context.Context, cfg *config.Config, log logger.LoggerInterface) (*app, error) {
	key, err := keystore.Load(keystore.Source{
		PrivateKey: cfg.Wallet.PrivateKey,
		KeyFile:    cfg.Wallet.KeyFile,
		Passphrase: cfg.Wallet.Passphrase,
	})
	if err != nil {
		return nil, err
	}

	ethClient, err := ethclient.DialContext(ctx, cfg.Ethereum.WebSocketURL)
	if err != nil {
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed, apperror.WithCause(err))
	}

	chainID, err := ethClient.ChainID(ctx)
	if err != nil {
		ethClient.Close()
		return nil, apperror.New(apperror.CodeEthereumRPCError, apperror.WithCause(err), apperror.WithContext("chain id"))
	}
	if cfg.Ethereum.ChainID != 0 && chainID.Uint64() != cfg.Ethereum.ChainID {
		ethClient.Close()
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithMessage("node chain id does not match ethereum.chain_id"))
	}

	a := &app{
		config:        cfg,
		logger:        log,
		ethClient:     ethClient,
		chainID:       chainID,
		assetRegistry: asset.DefaultRegistry(),
		container:     di.NewContainer(),
	}

	if cfg.Redis.Enabled() {
		a.redis, err = redisclient.New(ctx, cfg.Redis)
		if err != nil {
			a.Close()
			return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithCause(err), apperror.WithContext("redis"))
		}
	}
	if cfg.Postgres.Enabled() {
		a.pg, err = newPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			a.Close()
			return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithCause(err), apperror.WithContext("postgres"))
		}
	}

	container := a.container

	container.Register("config", cfg)
	container.Register("logger", log)
	container.Register("ethClient", ethClient)
	container.Register("chainID", chainID)
	container.Register("signer", key)
	container.Register("assetRegistry", a.assetRegistry)
	container.Register("rpcLimiter", ratelimit.New(cfg.RPC.RequestsPerMinute))
	container.Register("redis", a.redis)
	container.Register("postgres", a.pg)

	log.Info(ctx, "connected to node",
		"chain_id", chainID.String(),
		"account", key.Address.Hex(),
		"redis", a.redis != nil,
		"postgres", a.pg != nil)

	return a, nil
}

func newPostgresPool(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (a *app) Config() *config.Config         { return a.config }
func (a *app) Logger() logger.LoggerInterface { return a.logger }
func (a *app) EthClient() *ethclient.Client   { return a.ethClient }
func (a *app) ChainID() *big.Int              { return new(big.Int).Set(a.chainID) }
func (a *app) AssetRegistry() *asset.Registry { return a.assetRegistry }
func (a *app) Redis() *redis.Client           { return a.redis }
func (a *app) Postgres() *pgxpool.Pool        { return a.pg }
func (a *app) Services() di.ServiceRegistry   { return a.container }

// OnClose registers cleanup run by Close in reverse order.
func (a *app) OnClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules in order.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// Close releases module resources, then the node connection.
func (a *app) Close() error {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	if a.pg != nil {
		a.pg.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.ethClient != nil {
		a.ethClient.Close()
	}
	return nil
}
