package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/business/pricing/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// fakeVenue prices every swap at a fixed rate per direction.
type fakeVenue struct {
	name  domain.Venue
	rates map[string]asset.Price
	fail  map[string]error
	block bool

	mu    sync.Mutex
	calls []string
}

func newFakeVenue(name domain.Venue, ethPrice string) *fakeVenue {
	p := decimal.RequireFromString(ethPrice)
	return &fakeVenue{
		name: name,
		rates: map[string]asset.Price{
			"DAI->ETH": asset.NewPrice(asset.DAI, asset.ETH, decimal.NewFromInt(1).Div(p), time.Time{}),
			"ETH->DAI": asset.NewPrice(asset.ETH, asset.DAI, p, time.Time{}),
		},
		fail: map[string]error{},
	}
}

func (v *fakeVenue) Name() domain.Venue { return v.name }

func (v *fakeVenue) Quote(ctx context.Context, in asset.Amount, buy *asset.Asset) (domain.Quote, error) {
	key := in.Asset().Symbol() + "->" + buy.Symbol()
	v.mu.Lock()
	v.calls = append(v.calls, key)
	v.mu.Unlock()

	if v.block {
		<-ctx.Done()
		return domain.Quote{}, ctx.Err()
	}
	if err := v.fail[key]; err != nil {
		return domain.Quote{}, err
	}
	out, err := v.rates[key].Convert(in)
	if err != nil {
		return domain.Quote{}, err
	}
	return domain.NewQuote(v.name, in, out), nil
}

func mustUnits(t *testing.T, a *asset.Asset, s string) asset.Amount {
	t.Helper()
	amt, err := asset.ParseString(a, s)
	require.NoError(t, err)
	return amt
}

func newFetcher(t *testing.T, a, b Venue) *RateFetcher {
	t.Helper()
	f, err := NewRateFetcher(a, b, FetcherConfig{
		Pair:     domain.NewPair(asset.ETH, asset.DAI),
		Notional: mustUnits(t, asset.DAI, "20000"),
		Timeout:  200 * time.Millisecond,
	}, logger.Nop{})
	require.NoError(t, err)
	return f
}

func TestRateFetcher_CompleteSnapshot(t *testing.T) {
	uni := newFakeVenue(domain.VenueUniswap, "2000")
	kyber := newFakeVenue(domain.VenueKyber, "2010")

	snap, err := newFetcher(t, uni, kyber).Fetch(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Equal(t, uint64(42), snap.BlockNumber)
	assert.True(t, snap.ABuy.Output.Equals(mustUnits(t, asset.ETH, "10")))
	assert.True(t, snap.BSell.Input.Equals(snap.ABuy.Output), "kyber sells what uniswap bought")
	assert.True(t, snap.ASell.Input.Equals(snap.BBuy.Output), "uniswap sells what kyber bought")
	assert.True(t, snap.BSell.Output.Equals(mustUnits(t, asset.DAI, "20100")))
	assert.NoError(t, snap.Validate())
}

func TestRateFetcher_AnyFailureDiscardsSnapshot(t *testing.T) {
	legs := []struct {
		name  string
		venue domain.Venue
		key   string
	}{
		{"uniswap_buy", domain.VenueUniswap, "DAI->ETH"},
		{"kyber_buy", domain.VenueKyber, "DAI->ETH"},
		{"uniswap_sell", domain.VenueUniswap, "ETH->DAI"},
		{"kyber_sell", domain.VenueKyber, "ETH->DAI"},
	}

	for _, leg := range legs {
		t.Run(leg.name, func(t *testing.T) {
			uni := newFakeVenue(domain.VenueUniswap, "2000")
			kyber := newFakeVenue(domain.VenueKyber, "2010")
			target := uni
			if leg.venue == domain.VenueKyber {
				target = kyber
			}
			target.fail[leg.key] = errors.New("execution reverted: INSUFFICIENT_LIQUIDITY")

			snap, err := newFetcher(t, uni, kyber).Fetch(context.Background(), 7)
			assert.Nil(t, snap)
			require.Error(t, err)
			assert.True(t, apperror.HasCode(err, apperror.CodeQuoteUnavailable), "got %v", err)
		})
	}
}

func TestRateFetcher_TimeoutIsTransient(t *testing.T) {
	uni := newFakeVenue(domain.VenueUniswap, "2000")
	kyber := newFakeVenue(domain.VenueKyber, "2010")
	kyber.block = true

	snap, err := newFetcher(t, uni, kyber).Fetch(context.Background(), 9)
	assert.Nil(t, snap)
	require.Error(t, err)
	assert.True(t, apperror.IsTransient(err))
}

func TestNewRateFetcher_RejectsNotionalInWrongAsset(t *testing.T) {
	_, err := NewRateFetcher(newFakeVenue(domain.VenueUniswap, "1"), newFakeVenue(domain.VenueKyber, "1"), FetcherConfig{
		Pair:     domain.NewPair(asset.ETH, asset.DAI),
		Notional: asset.Units(asset.ETH, 1),
	}, logger.Nop{})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInput))
}

type fakeSource struct {
	mu    sync.Mutex
	rates []string
	errs  []error
	i     int
	pairs []domain.Pair
}

func (s *fakeSource) ReferenceRate(_ context.Context, pair domain.Pair) (asset.Price, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pairs = append(s.pairs, pair)
	i := s.i
	if i < len(s.rates)-1 {
		s.i++
	}
	if i < len(s.errs) && s.errs[i] != nil {
		return asset.Price{}, s.errs[i]
	}
	return asset.NewPrice(pair.Base, pair.Quote, decimal.RequireFromString(s.rates[i]), time.Now()), nil
}

type recordingSink struct {
	mu     sync.Mutex
	prices []domain.ReferencePrice
}

func (s *recordingSink) Publish(_ context.Context, p domain.ReferencePrice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices = append(s.prices, p)
	return nil
}

func TestReferencePriceCache_ColdUntilFirstSuccess(t *testing.T) {
	src := &fakeSource{
		rates: []string{"", "2000", ""},
		errs:  []error{errors.New("dial tcp: i/o timeout"), nil, errors.New("rpc down")},
	}
	sink := &recordingSink{}
	cache, err := NewReferencePriceCache(src, sink, CacheConfig{Native: asset.ETH, Quote: asset.DAI}, logger.Nop{})
	require.NoError(t, err)

	_, warm := cache.Current()
	assert.False(t, warm)

	assert.Error(t, cache.Refresh(context.Background()))
	_, warm = cache.Current()
	assert.False(t, warm, "failed refresh must not warm the cache")

	require.NoError(t, cache.Refresh(context.Background()))
	p, warm := cache.Current()
	require.True(t, warm)
	assert.True(t, p.Value.Rate().Equal(decimal.NewFromInt(2000)))

	assert.Error(t, cache.Refresh(context.Background()))
	kept, warm := cache.Current()
	require.True(t, warm)
	assert.Equal(t, p.CapturedAt, kept.CapturedAt, "failure keeps the previous value")

	assert.Equal(t, int64(2), cache.Failures())
	assert.Len(t, sink.prices, 1)
}

func TestReferencePriceCache_PricesNativeGasAsset(t *testing.T) {
	src := &fakeSource{rates: []string{"2000"}}
	cache, err := NewReferencePriceCache(src, nil, CacheConfig{Native: asset.ETH, Quote: asset.DAI}, logger.Nop{})
	require.NoError(t, err)

	require.NoError(t, cache.Refresh(context.Background()))
	require.Len(t, src.pairs, 1)
	assert.True(t, src.pairs[0].Base.Equals(asset.ETH))
	assert.True(t, src.pairs[0].Quote.Equals(asset.DAI))

	p, warm := cache.Current()
	require.True(t, warm)
	assert.True(t, p.Value.Base().IsNative())
}

func TestNewReferencePriceCache_RejectsNonNativeBase(t *testing.T) {
	for _, cfg := range []CacheConfig{
		{Native: asset.USDC, Quote: asset.DAI},
		{Native: asset.WETH, Quote: asset.DAI},
		{Native: asset.ETH, Quote: asset.ETH},
		{Quote: asset.DAI},
	} {
		_, err := NewReferencePriceCache(&fakeSource{rates: []string{"1"}}, nil, cfg, logger.Nop{})
		assert.True(t, apperror.HasCode(err, apperror.CodeConfigurationError), "cfg %+v", cfg)
	}
}

func TestReferencePriceCache_RunStopsOnCancel(t *testing.T) {
	src := &fakeSource{rates: []string{"1990", "2000", "2010", "2020", "2030", "2040", "2050", "2060"}}
	cache, err := NewReferencePriceCache(src, nil, CacheConfig{
		Native:   asset.ETH,
		Quote:    asset.DAI,
		Interval: 10 * time.Millisecond,
	}, logger.Nop{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cache.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, warm := cache.Current()
		return warm
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
