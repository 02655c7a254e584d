package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusHandlerExposesCounters(t *testing.T) {
	ctx := context.Background()
	m, err := NewMetricProvider(ctx,
		WithServiceName("flashloan-arb-test"),
		WithProviderConfig(ProviderCfg{Provider: PrometheusProvider}),
	)
	require.NoError(t, err)
	defer func() { _ = m.Shutdown(ctx) }()

	counter, err := m.Meter("test").Int64Counter("arbitrage_blocks_total")
	require.NoError(t, err)
	counter.Add(ctx, 3)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Regexp(t, `arbitrage_blocks_total(\{[^}]*\})? 3`, string(body))
}

func TestUnknownProvider(t *testing.T) {
	_, err := NewMetricProvider(context.Background(), WithProviderConfig(ProviderCfg{Provider: "statsd"}))
	assert.Error(t, err)
}
