package ethereum

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/flashloan-arb/business/blockchain/app"
	"github.com/fd1az/flashloan-arb/business/blockchain/domain"
	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/logger"
)

// TxBackend is the part of ethclient.Client the sender needs. Receipts are
// awaited through bind.WaitMined.
type TxBackend interface {
	bind.DeployBackend
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// SenderConfig holds configuration for the transaction sender.
type SenderConfig struct {
	ChainID *big.Int
	// DryRun signs the transaction but never broadcasts it.
	DryRun bool
}

type senderMetrics struct {
	submissions metric.Int64Counter
	confirmTime metric.Float64Histogram
}

// TxSender signs legacy gas-price transactions with a local key.
type TxSender struct {
	config  SenderConfig
	backend TxBackend
	key     *ecdsa.PrivateKey
	from    common.Address
	signer  types.Signer
	logger  logger.LoggerInterface

	tracer  trace.Tracer
	metrics *senderMetrics
}

var _ app.TxSender = (*TxSender)(nil)

func NewTxSender(backend TxBackend, key *ecdsa.PrivateKey, cfg SenderConfig, log logger.LoggerInterface) (*TxSender, error) {
	if cfg.ChainID == nil {
		return nil, apperror.New(apperror.CodeConfigurationError, apperror.WithContext("sender chain id"))
	}
	s := &TxSender{
		config:  cfg,
		backend: backend,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		signer:  types.LatestSignerForChainID(cfg.ChainID),
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *TxSender) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &senderMetrics{}

	s.metrics.submissions, err = meter.Int64Counter(
		"tx_submissions_total",
		metric.WithDescription("Transactions submitted, by outcome"),
		metric.WithUnit("{tx}"),
	)
	if err != nil {
		return err
	}

	s.metrics.confirmTime, err = meter.Float64Histogram(
		"tx_confirmation_seconds",
		metric.WithDescription("Time from broadcast to receipt"),
		metric.WithUnit("s"),
	)
	return err
}

func (s *TxSender) From() common.Address { return s.from }

// Send signs req, broadcasts it and blocks until a receipt arrives or ctx ends.
// A reverted receipt is returned together with a TRANSACTION_REVERTED error.
func (s *TxSender) Send(ctx context.Context, req domain.TxRequest) (domain.Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "eth.send_tx",
		trace.WithAttributes(
			attribute.String("to", req.To.Hex()),
			attribute.Int64("gas_limit", int64(req.GasLimit)),
			attribute.Bool("dry_run", s.config.DryRun),
		),
	)
	defer span.End()

	nonce, err := s.backend.PendingNonceAt(ctx, s.from)
	if err != nil {
		span.RecordError(err)
		return domain.Receipt{}, apperror.New(apperror.CodeSubmissionFailed,
			apperror.WithCause(err), apperror.WithContext("pending nonce"))
	}

	to := req.To
	tx, err := types.SignNewTx(s.key, s.signer, &types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      req.GasLimit,
		GasPrice: req.GasPrice,
		Data:     req.Data,
	})
	if err != nil {
		span.RecordError(err)
		return domain.Receipt{}, apperror.New(apperror.CodeSubmissionFailed,
			apperror.WithCause(err), apperror.WithContext("sign"))
	}

	span.SetAttributes(attribute.String("tx_hash", tx.Hash().Hex()))

	if s.config.DryRun {
		s.metrics.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "simulated")))
		s.logger.Info(ctx, "dry run: transaction signed, not broadcast", "tx", tx.Hash().Hex(), "nonce", nonce)
		return domain.Receipt{TxHash: tx.Hash(), Status: domain.ReceiptSimulated}, nil
	}

	if err := s.backend.SendTransaction(ctx, tx); err != nil {
		s.metrics.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "rejected")))
		span.RecordError(err)
		span.SetStatus(codes.Error, "broadcast failed")
		return domain.Receipt{TxHash: tx.Hash()}, apperror.New(apperror.CodeSubmissionFailed,
			apperror.WithCause(err), apperror.WithContext("broadcast"))
	}

	s.logger.Info(ctx, "transaction sent", "tx", tx.Hash().Hex(), "nonce", nonce)
	sentAt := time.Now()

	rcpt, err := bind.WaitMined(ctx, s.backend, tx.Hash())
	if err != nil {
		span.RecordError(err)
		return domain.Receipt{TxHash: tx.Hash()}, apperror.New(apperror.CodeSubmissionFailed,
			apperror.WithCause(err), apperror.WithContext("wait receipt "+tx.Hash().Hex()))
	}
	s.metrics.confirmTime.Record(ctx, time.Since(sentAt).Seconds())

	out := domain.Receipt{
		TxHash:      tx.Hash(),
		BlockNumber: rcpt.BlockNumber.Uint64(),
		GasUsed:     rcpt.GasUsed,
		Status:      domain.ReceiptSuccess,
	}
	if rcpt.Status != types.ReceiptStatusSuccessful {
		out.Status = domain.ReceiptReverted
		s.metrics.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "reverted")))
		span.SetStatus(codes.Error, "reverted")
		return out, apperror.New(apperror.CodeTransactionReverted, apperror.WithContext(tx.Hash().Hex()))
	}

	s.metrics.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "mined")))
	span.SetStatus(codes.Ok, "mined")
	return out, nil
}
