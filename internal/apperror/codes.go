package apperror

// Code identifies a class of failure.
type Code string

// General codes
const (
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeInvalidState       Code = "INVALID_STATE"
	CodeNotFound           Code = "NOT_FOUND"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeInternalError      Code = "INTERNAL_ERROR"
	CodeUnknownError       Code = "UNKNOWN_ERROR"
	CodeRateLimitExceeded  Code = "RATE_LIMIT_EXCEEDED"
	CodeCircuitOpen        Code = "CIRCUIT_OPEN"
	CodeExternalService    Code = "EXTERNAL_SERVICE_ERROR"
)

// Chain codes
const (
	CodeEthereumConnectionFailed Code = "ETHEREUM_CONNECTION_FAILED"
	CodeEthereumRPCError         Code = "ETHEREUM_RPC_ERROR"
	CodeFeedTerminated           Code = "FEED_TERMINATED"
	CodeGasEstimationFailed      Code = "GAS_ESTIMATION_FAILED"
	CodeGasPriceAboveCap         Code = "GAS_PRICE_ABOVE_CAP"
	CodeSubmissionFailed         Code = "SUBMISSION_FAILED"
	CodeTransactionReverted      Code = "TRANSACTION_REVERTED"
	CodeContractUnresolved       Code = "CONTRACT_UNRESOLVED"
	CodeInvalidKey               Code = "INVALID_KEY"
)

// Pricing codes
const (
	CodeTransientFetch     Code = "TRANSIENT_FETCH_ERROR"
	CodeQuoteUnavailable   Code = "QUOTE_UNAVAILABLE"
	CodeReferencePriceCold Code = "REFERENCE_PRICE_COLD"
	CodePrecisionLoss      Code = "PRECISION_LOSS"
	CodeUnknownAsset       Code = "UNKNOWN_ASSET"
)

// Execution codes
const (
	CodeGateInFlight     Code = "GATE_IN_FLIGHT"
	CodeLockHeld         Code = "LOCK_HELD"
	CodeJournalFailed    Code = "JOURNAL_FAILED"
	CodeNotificationSend Code = "NOTIFICATION_FAILED"
)
