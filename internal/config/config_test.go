package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/internal/config"
)

const sampleYAML = `
ethereum:
  websocket_url: wss://mainnet.example/ws
wallet:
  private_key: "0x01"
flashloan:
  addresses:
    "1": "0x00000000000000000000000000000000000000f1"
arbitrage:
  notional: "15000"
  dry_run: true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "wss://mainnet.example/ws", cfg.Ethereum.WebSocketURL)
	assert.Equal(t, uint64(1), cfg.Ethereum.ChainID)
	assert.Equal(t, 15*time.Second, cfg.Arbitrage.RefreshInterval)
	assert.True(t, cfg.Arbitrage.DryRun)
	assert.Equal(t, "DAI", cfg.Arbitrage.QuoteAsset)

	n, err := cfg.Arbitrage.NotionalDecimal()
	require.NoError(t, err)
	assert.Equal(t, "15000", n.String())

	addr, ok := cfg.Flashloan.AddressFor(1)
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress("0xf1"), addr)

	_, ok = cfg.Flashloan.AddressFor(5)
	assert.False(t, ok, "no deployment for chain 5 and no fallback address")
}

func TestValidate_AcceptsWrappedNativeBase(t *testing.T) {
	cfg, err := config.Load(writeConfig(t, sampleYAML+"  base_asset: WETH\n"))
	require.NoError(t, err)
	assert.Equal(t, "WETH", cfg.Arbitrage.BaseAsset)
	assert.Equal(t, uint64(500), cfg.Ethereum.MaxGasPriceGwei)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ARB_NOTIONAL", "500")
	t.Setenv("ARB_FLASHLOAN_ADDRESS", "0x00000000000000000000000000000000000000aa")

	cfg, err := config.Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "500", cfg.Arbitrage.Notional)
	addr, ok := cfg.Flashloan.AddressFor(5)
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress("0xaa"), addr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing websocket", "wallet:\n  private_key: \"0x01\"\n"},
		{"missing key", "ethereum:\n  websocket_url: wss://x\n"},
		{"non-positive notional", strings.Replace(sampleYAML, `"15000"`, `"0"`, 1)},
		{"non-native base asset", sampleYAML + "  base_asset: USDC\n  quote_asset: DAI\n"},
		{"base equals quote", sampleYAML + "  base_asset: ETH\n  quote_asset: eth\n"},
		{"zero gas price cap", strings.Replace(sampleYAML, "wss://mainnet.example/ws", "wss://mainnet.example/ws\n  max_gas_price_gwei: 0", 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
