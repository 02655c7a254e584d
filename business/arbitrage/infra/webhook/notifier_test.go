package webhook

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/business/arbitrage/domain"
	blockchainDomain "github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/asset"
	"github.com/fd1az/flashloan-arb/internal/httpclient"
)

func confirmed() *domain.Execution {
	net, _ := new(big.Int).SetString("45000000000000000000", 10)
	e := domain.NewExecution(100, domain.ProfitResult{
		Direction: domain.KyberToUniswap,
		Status:    domain.StatusProfitable,
		Notional:  asset.Units(asset.DAI, 20000),
		Net:       net,
		GasCost:   &domain.GasCost{},
	}, common.Address{})
	e.Complete(blockchainDomain.Receipt{TxHash: common.HexToHash("0x01"), Status: blockchainDomain.ReceiptSuccess}, nil)
	return e
}

func TestNewPayload(t *testing.T) {
	p := NewPayload(confirmed())

	assert.Equal(t, "confirmed", p.Status)
	assert.Equal(t, "45.0000 DAI", p.PredictedNet)
	assert.Equal(t, uint64(100), p.Block)
	assert.NotEmpty(t, p.TxHash)
	assert.Contains(t, p.Content, "**CONFIRMED** flash loan at block #100")
	assert.Contains(t, p.Content, "Expected profit: 45.0000 DAI (notional 20000 DAI)")
	assert.Contains(t, p.Content, "Transaction hash: "+p.TxHash)
	assert.NotContains(t, p.Content, "Error:")
}

func TestNotifier_Posts(t *testing.T) {
	var got Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client, err := httpclient.New(httpclient.WithProviderName("webhook"))
	require.NoError(t, err)

	e := confirmed()
	require.NoError(t, New(client, srv.URL).Notify(context.Background(), e))
	assert.Equal(t, e.ID.String(), got.ExecutionID)
	assert.Equal(t, domain.KyberToUniswap.String(), got.Direction)
}

func TestNotifier_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := httpclient.New()
	require.NoError(t, err)

	err = New(client, srv.URL).Notify(context.Background(), confirmed())
	assert.True(t, apperror.HasCode(err, apperror.CodeExternalService))
}
