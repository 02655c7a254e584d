// Package config loads and validates runtime configuration.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Ethereum  EthereumConfig  `mapstructure:"ethereum"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Uniswap   UniswapConfig   `mapstructure:"uniswap"`
	Kyber     KyberConfig     `mapstructure:"kyber"`
	Flashloan FlashloanConfig `mapstructure:"flashloan"`
	Arbitrage ArbitrageConfig `mapstructure:"arbitrage"`
	RPC       RPCConfig       `mapstructure:"rpc"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Health    HealthConfig    `mapstructure:"health"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// EthereumConfig points at the node. The websocket endpoint carries the head subscription.
type EthereumConfig struct {
	WebSocketURL string `mapstructure:"websocket_url"`
	HTTPURL      string `mapstructure:"http_url"`
	ChainID      uint64 `mapstructure:"chain_id"`
	// MaxGasPriceGwei caps what the bot will pay; a higher network price makes blocks unevaluable.
	MaxGasPriceGwei uint64 `mapstructure:"max_gas_price_gwei"`
}

// WalletConfig supplies the signing key, either raw hex or an encrypted key file.
type WalletConfig struct {
	PrivateKey string `mapstructure:"private_key"`
	KeyFile    string `mapstructure:"key_file"`
	Passphrase string `mapstructure:"passphrase"`
}

// UniswapConfig holds Uniswap V2 addresses.
type UniswapConfig struct {
	RouterAddress  string `mapstructure:"router_address"`
	FactoryAddress string `mapstructure:"factory_address"`
	WETHAddress    string `mapstructure:"weth_address"`
}

func (c UniswapConfig) Router() common.Address  { return common.HexToAddress(c.RouterAddress) }
func (c UniswapConfig) Factory() common.Address { return common.HexToAddress(c.FactoryAddress) }
func (c UniswapConfig) WETH() common.Address    { return common.HexToAddress(c.WETHAddress) }

type KyberConfig struct {
	ProxyAddress string `mapstructure:"proxy_address"`
}

func (c KyberConfig) Proxy() common.Address { return common.HexToAddress(c.ProxyAddress) }

// FlashloanConfig locates the deployed loan/trade contract.
// Addresses maps a chain id (as string) to the deployment on that network.
type FlashloanConfig struct {
	Address     string            `mapstructure:"address"`
	Addresses   map[string]string `mapstructure:"addresses"`
	SoloAddress string            `mapstructure:"solo_address"`
}

// AddressFor resolves the deployment for chainID, falling back to Address.
func (c FlashloanConfig) AddressFor(chainID uint64) (common.Address, bool) {
	if s, ok := c.Addresses[strconv.FormatUint(chainID, 10)]; ok && common.IsHexAddress(s) {
		return common.HexToAddress(s), true
	}
	if common.IsHexAddress(c.Address) {
		return common.HexToAddress(c.Address), true
	}
	return common.Address{}, false
}

func (c FlashloanConfig) Solo() common.Address { return common.HexToAddress(c.SoloAddress) }

// ArbitrageConfig controls detection and execution.
type ArbitrageConfig struct {
	BaseAsset       string        `mapstructure:"base_asset"`
	QuoteAsset      string        `mapstructure:"quote_asset"`
	Notional        string        `mapstructure:"notional"`
	MinNetProfit    string        `mapstructure:"min_net_profit"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	QuoteTimeout    time.Duration `mapstructure:"quote_timeout"`
	GasTimeout      time.Duration `mapstructure:"gas_timeout"`
	RefreshTimeout  time.Duration `mapstructure:"refresh_timeout"`
	SubmitTimeout   time.Duration `mapstructure:"submit_timeout"`
	BlockTimeout    time.Duration `mapstructure:"block_timeout"`
	DryRun          bool          `mapstructure:"dry_run"`
	TUIMode         bool          `mapstructure:"-"`
}

// NotionalDecimal parses the notional in whole quote units.
func (c ArbitrageConfig) NotionalDecimal() (decimal.Decimal, error) {
	return decimal.NewFromString(c.Notional)
}

// MinNetProfitDecimal parses the profit threshold in whole quote units.
func (c ArbitrageConfig) MinNetProfitDecimal() (decimal.Decimal, error) {
	if strings.TrimSpace(c.MinNetProfit) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(c.MinNetProfit)
}

type RPCConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

// RedisConfig enables the cross-process execution lock and the reference price mirror when Addr is set.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl"`
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

// PostgresConfig enables the execution journal when DSN is set.
type PostgresConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (c PostgresConfig) Enabled() bool { return c.DSN != "" }

type NotifyConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	Provider       string `mapstructure:"provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

type HealthConfig struct {
	Port int `mapstructure:"port"`
}

// Load reads an optional config file and overlays ARB_* environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("ARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("app.log_level", "ARB_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("app.environment", "ARB_ENVIRONMENT", "ENVIRONMENT")

	_ = v.BindEnv("ethereum.websocket_url", "ARB_ETH_WS_URL", "INFURA_URL")
	_ = v.BindEnv("ethereum.http_url", "ARB_ETH_HTTP_URL", "ETH_HTTP_URL")
	_ = v.BindEnv("ethereum.chain_id", "ARB_ETH_CHAIN_ID", "ETH_CHAIN_ID")
	_ = v.BindEnv("ethereum.max_gas_price_gwei", "ARB_MAX_GAS_PRICE_GWEI")

	_ = v.BindEnv("wallet.private_key", "ARB_PRIVATE_KEY", "PRIVATE_KEY")
	_ = v.BindEnv("wallet.key_file", "ARB_KEY_FILE")
	_ = v.BindEnv("wallet.passphrase", "ARB_KEY_PASSPHRASE")

	_ = v.BindEnv("flashloan.address", "ARB_FLASHLOAN_ADDRESS")

	_ = v.BindEnv("arbitrage.notional", "ARB_NOTIONAL")
	_ = v.BindEnv("arbitrage.min_net_profit", "ARB_MIN_NET_PROFIT")
	_ = v.BindEnv("arbitrage.dry_run", "ARB_DRY_RUN")

	_ = v.BindEnv("redis.addr", "ARB_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "ARB_REDIS_PASSWORD", "REDIS_PASSWORD")
	_ = v.BindEnv("postgres.dsn", "ARB_POSTGRES_DSN", "DATABASE_URL")
	_ = v.BindEnv("notify.webhook_url", "ARB_WEBHOOK_URL")

	_ = v.BindEnv("telemetry.enabled", "ARB_OTEL_ENABLED", "OTEL_ENABLED")
	_ = v.BindEnv("telemetry.service_name", "ARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	_ = v.BindEnv("telemetry.otlp_endpoint", "ARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "flashloan-arb")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("ethereum.chain_id", 1)
	v.SetDefault("ethereum.max_gas_price_gwei", 500)

	v.SetDefault("uniswap.router_address", "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	v.SetDefault("uniswap.factory_address", "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	v.SetDefault("uniswap.weth_address", "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	v.SetDefault("kyber.proxy_address", "0x818E6FECD516Ecc3849DAf6845e3EC868087B755")
	v.SetDefault("flashloan.solo_address", "0x1E0447b19BB6EcFdAe1e4AE1694b0C3659614e4e")

	v.SetDefault("arbitrage.base_asset", "ETH")
	v.SetDefault("arbitrage.quote_asset", "DAI")
	v.SetDefault("arbitrage.notional", "20000")
	v.SetDefault("arbitrage.min_net_profit", "0")
	v.SetDefault("arbitrage.refresh_interval", "15s")
	v.SetDefault("arbitrage.quote_timeout", "4s")
	v.SetDefault("arbitrage.gas_timeout", "4s")
	v.SetDefault("arbitrage.refresh_timeout", "5s")
	v.SetDefault("arbitrage.submit_timeout", "3m")
	v.SetDefault("arbitrage.block_timeout", "10s")
	v.SetDefault("arbitrage.dry_run", false)

	v.SetDefault("rpc.requests_per_minute", 600)
	v.SetDefault("redis.lock_ttl", "5m")
	v.SetDefault("postgres.max_conns", 4)
	v.SetDefault("notify.timeout", "10s")

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "flashloan-arb")
	v.SetDefault("telemetry.provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)
	v.SetDefault("health.port", 8081)
}

// The flash loan trades against the native asset (wrapped on the AMM side) and
// gas is priced through the same reference rate.
var nativeGasAssets = map[string]bool{"ETH": true, "WETH": true}

// Validate checks everything needed before the node is contacted.
func (c *Config) Validate() error {
	if c.Ethereum.WebSocketURL == "" {
		return errors.New("ethereum.websocket_url is required")
	}
	if c.Wallet.PrivateKey == "" && c.Wallet.KeyFile == "" {
		return errors.New("wallet.private_key or wallet.key_file is required")
	}
	for name, addr := range map[string]string{
		"uniswap.router_address":  c.Uniswap.RouterAddress,
		"uniswap.factory_address": c.Uniswap.FactoryAddress,
		"uniswap.weth_address":    c.Uniswap.WETHAddress,
		"kyber.proxy_address":     c.Kyber.ProxyAddress,
		"flashloan.solo_address":  c.Flashloan.SoloAddress,
	} {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid %s: %q", name, addr)
		}
	}

	if c.Ethereum.MaxGasPriceGwei == 0 {
		return errors.New("ethereum.max_gas_price_gwei must be positive")
	}
	if !nativeGasAssets[strings.ToUpper(c.Arbitrage.BaseAsset)] {
		return fmt.Errorf("arbitrage.base_asset must be the native gas asset (ETH or WETH): %q", c.Arbitrage.BaseAsset)
	}
	if strings.EqualFold(c.Arbitrage.BaseAsset, c.Arbitrage.QuoteAsset) {
		return errors.New("arbitrage.quote_asset must differ from arbitrage.base_asset")
	}

	notional, err := c.Arbitrage.NotionalDecimal()
	if err != nil || !notional.IsPositive() {
		return fmt.Errorf("arbitrage.notional must be a positive decimal: %q", c.Arbitrage.Notional)
	}
	if _, err := c.Arbitrage.MinNetProfitDecimal(); err != nil {
		return fmt.Errorf("invalid arbitrage.min_net_profit: %w", err)
	}
	if c.Arbitrage.RefreshInterval <= 0 {
		return errors.New("arbitrage.refresh_interval must be positive")
	}
	for name, d := range map[string]time.Duration{
		"quote_timeout":   c.Arbitrage.QuoteTimeout,
		"gas_timeout":     c.Arbitrage.GasTimeout,
		"refresh_timeout": c.Arbitrage.RefreshTimeout,
		"submit_timeout":  c.Arbitrage.SubmitTimeout,
		"block_timeout":   c.Arbitrage.BlockTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("arbitrage.%s must be positive", name)
		}
	}
	return nil
}
