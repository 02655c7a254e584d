package ethereum

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

type fakeSub struct {
	errc         chan error
	unsubscribed atomic.Bool
}

func (s *fakeSub) Unsubscribe()      { s.unsubscribed.Store(true) }
func (s *fakeSub) Err() <-chan error { return s.errc }

type fakeHeads struct {
	sub *fakeSub
	ch  chan<- *types.Header
	err error
}

func (f *fakeHeads) SubscribeNewHead(_ context.Context, ch chan<- *types.Header) (ethereum.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.ch = ch
	return f.sub, nil
}

func header(n int64) *types.Header {
	return &types.Header{Number: big.NewInt(n), Time: uint64(1_700_000_000 + n*12)}
}

func TestHeadFeed_EmitsBlocksThenTerminates(t *testing.T) {
	src := &fakeHeads{sub: &fakeSub{errc: make(chan error, 1)}}
	feed, err := NewHeadFeed(src, DefaultFeedConfig(), logger.Nop{})
	require.NoError(t, err)

	blocks, errc, err := feed.Subscribe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.FeedConnected, feed.State())

	src.ch <- header(100)
	src.ch <- header(101)

	b := <-blocks
	assert.Equal(t, uint64(100), b.Number)
	b = <-blocks
	assert.Equal(t, uint64(101), b.Number)
	assert.Equal(t, time.Unix(1_700_000_000+101*12, 0), b.Timestamp)

	src.sub.errc <- errors.New("websocket: close 1006")

	ferr := <-errc
	assert.True(t, apperror.HasCode(ferr, apperror.CodeFeedTerminated), "got %v", ferr)

	_, open := <-blocks
	assert.False(t, open, "blocks channel must close after termination")
	assert.Equal(t, domain.FeedTerminated, feed.State())
	assert.True(t, src.sub.unsubscribed.Load())
	assert.Equal(t, uint64(101), feed.LastBlock())
}

func TestHeadFeed_NotRestartable(t *testing.T) {
	src := &fakeHeads{sub: &fakeSub{errc: make(chan error)}}
	feed, err := NewHeadFeed(src, DefaultFeedConfig(), logger.Nop{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	_, _, err = feed.Subscribe(ctx)
	require.NoError(t, err)

	_, _, err = feed.Subscribe(ctx)
	assert.Equal(t, apperror.CodeInvalidState, apperror.GetCode(err))
	cancel()
}

func TestHeadFeed_SubscribeFailureIsFatal(t *testing.T) {
	feed, err := NewHeadFeed(&fakeHeads{err: errors.New("dial refused")}, DefaultFeedConfig(), logger.Nop{})
	require.NoError(t, err)

	_, _, err = feed.Subscribe(context.Background())
	assert.Equal(t, apperror.CodeFeedTerminated, apperror.GetCode(err))
}

func TestHeadFeed_CancelClosesQuietly(t *testing.T) {
	src := &fakeHeads{sub: &fakeSub{errc: make(chan error)}}
	feed, err := NewHeadFeed(src, DefaultFeedConfig(), logger.Nop{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	blocks, errc, err := feed.Subscribe(ctx)
	require.NoError(t, err)

	cancel()
	_, open := <-blocks
	assert.False(t, open)
	_, open = <-errc
	assert.False(t, open, "cancellation must not report an error")
}

type fakeGas struct {
	price    *big.Int
	limit    uint64
	priceErr error
	limitErr error
	lastMsg  ethereum.CallMsg
	mu       sync.Mutex
}

func (f *fakeGas) SuggestGasPrice(context.Context) (*big.Int, error) {
	return f.price, f.priceErr
}

func (f *fakeGas) EstimateGas(_ context.Context, msg ethereum.CallMsg) (uint64, error) {
	f.mu.Lock()
	f.lastMsg = msg
	f.mu.Unlock()
	return f.limit, f.limitErr
}

func TestGasOracle_Estimate(t *testing.T) {
	backend := &fakeGas{price: big.NewInt(10_000_000_000), limit: 250_000}
	oracle, err := NewGasOracle(backend, NewGasOracleConfig(500), logger.Nop{})
	require.NoError(t, err)

	from := common.HexToAddress("0x01")
	to := common.HexToAddress("0x02")
	est, err := oracle.Estimate(context.Background(), from, to, []byte{0xde, 0xad})
	require.NoError(t, err)

	assert.Equal(t, uint64(250_000), est.GasLimit)
	assert.Equal(t, "2500000000000000", est.CostWei().String())
	assert.Equal(t, "10", est.GasPriceGwei().String())
	assert.Equal(t, from, backend.lastMsg.From)
	assert.Equal(t, to, *backend.lastMsg.To)
}

func TestGasOracle_RevertIsGasEstimationError(t *testing.T) {
	backend := &fakeGas{price: big.NewInt(1), limitErr: errors.New("execution reverted: not profitable")}
	oracle, err := NewGasOracle(backend, NewGasOracleConfig(500), logger.Nop{})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		_, err = oracle.Estimate(context.Background(), common.Address{}, common.Address{}, nil)
		require.Equal(t, apperror.CodeGasEstimationFailed, apperror.GetCode(err))
	}
	assert.Equal(t, "closed", oracle.estimateCB.State().String(), "reverts must not trip the breaker")
}

func TestGasOracle_PriceAboveCapFails(t *testing.T) {
	backend := &fakeGas{price: big.NewInt(501_000_000_000), limit: 21_000}
	oracle, err := NewGasOracle(backend, NewGasOracleConfig(500), logger.Nop{})
	require.NoError(t, err)

	_, err = oracle.Estimate(context.Background(), common.Address{}, common.Address{}, nil)
	require.Error(t, err)
	assert.Equal(t, apperror.CodeGasPriceAboveCap, apperror.GetCode(err))

	backend.price = big.NewInt(500_000_000_000)
	est, err := oracle.Estimate(context.Background(), common.Address{}, common.Address{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "500", est.GasPriceGwei().String(), "the cap itself is allowed")
}

type fakeTxBackend struct {
	nonce   uint64
	sent    []*types.Transaction
	polls   atomic.Int32
	status  uint64
	sendErr error
	pending bool
}

func (f *fakeTxBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return f.nonce, nil
}

func (f *fakeTxBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeTxBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	if n := f.polls.Add(1); f.pending || n < 2 {
		return nil, ethereum.NotFound
	}
	return &types.Receipt{TxHash: hash, Status: f.status, BlockNumber: big.NewInt(123), GasUsed: 180_000}, nil
}

func (f *fakeTxBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return nil, nil
}

func newSender(t *testing.T, backend TxBackend, dryRun bool) *TxSender {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	s, err := NewTxSender(backend, key, SenderConfig{ChainID: big.NewInt(1), DryRun: dryRun}, logger.Nop{})
	require.NoError(t, err)
	return s
}

func txRequest() domain.TxRequest {
	return domain.TxRequest{
		To:       common.HexToAddress("0xf1"),
		Data:     []byte{1, 2, 3},
		GasLimit: 250_000,
		GasPrice: big.NewInt(10_000_000_000),
	}
}

func TestTxSender_SendAndWait(t *testing.T) {
	backend := &fakeTxBackend{nonce: 7, status: types.ReceiptStatusSuccessful}
	s := newSender(t, backend, false)

	rcpt, err := s.Send(context.Background(), txRequest())
	require.NoError(t, err)
	require.Len(t, backend.sent, 1)

	tx := backend.sent[0]
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(250_000), tx.Gas())
	signer, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1)), tx)
	require.NoError(t, err)
	assert.Equal(t, s.From(), signer)

	assert.Equal(t, domain.ReceiptSuccess, rcpt.Status)
	assert.Equal(t, uint64(123), rcpt.BlockNumber)
	assert.Equal(t, tx.Hash(), rcpt.TxHash)
}

func TestTxSender_Reverted(t *testing.T) {
	backend := &fakeTxBackend{status: types.ReceiptStatusFailed}
	s := newSender(t, backend, false)

	rcpt, err := s.Send(context.Background(), txRequest())
	assert.Equal(t, apperror.CodeTransactionReverted, apperror.GetCode(err))
	assert.Equal(t, domain.ReceiptReverted, rcpt.Status)
}

func TestTxSender_BroadcastRejected(t *testing.T) {
	backend := &fakeTxBackend{sendErr: errors.New("insufficient funds for gas")}
	s := newSender(t, backend, false)

	_, err := s.Send(context.Background(), txRequest())
	assert.Equal(t, apperror.CodeSubmissionFailed, apperror.GetCode(err))
}

func TestTxSender_WaitStopsOnDeadline(t *testing.T) {
	backend := &fakeTxBackend{pending: true}
	s := newSender(t, backend, false)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	rcpt, err := s.Send(ctx, txRequest())
	assert.Equal(t, apperror.CodeSubmissionFailed, apperror.GetCode(err))
	require.Len(t, backend.sent, 1)
	assert.Equal(t, backend.sent[0].Hash(), rcpt.TxHash, "a pending transaction keeps its hash")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTxSender_DryRunNeverBroadcasts(t *testing.T) {
	backend := &fakeTxBackend{}
	s := newSender(t, backend, true)

	rcpt, err := s.Send(context.Background(), txRequest())
	require.NoError(t, err)
	assert.Empty(t, backend.sent)
	assert.Equal(t, domain.ReceiptSimulated, rcpt.Status)
	assert.NotEqual(t, common.Hash{}, rcpt.TxHash)
}
