package apperror

var messages = map[Code]string{
	CodeInvalidInput:       "Invalid input provided",
	CodeInvalidState:       "Invalid state for this operation",
	CodeNotFound:           "Resource not found",
	CodeConfigurationError: "Configuration error",
	CodeInternalError:      "Internal error",
	CodeUnknownError:       "An unknown error occurred",
	CodeRateLimitExceeded:  "Rate limit exceeded",
	CodeCircuitOpen:        "Circuit breaker is open",
	CodeExternalService:    "External service error",

	CodeEthereumConnectionFailed: "Failed to connect to Ethereum node",
	CodeEthereumRPCError:         "Ethereum RPC call failed",
	CodeFeedTerminated:           "Block feed terminated",
	CodeGasEstimationFailed:      "Gas estimation failed",
	CodeGasPriceAboveCap:         "Network gas price is above the configured cap",
	CodeSubmissionFailed:         "Transaction submission failed",
	CodeTransactionReverted:      "Transaction reverted on chain",
	CodeContractUnresolved:       "Flashloan contract address could not be resolved",
	CodeInvalidKey:               "Signing key is invalid",

	CodeTransientFetch:     "Transient fetch failure",
	CodeQuoteUnavailable:   "Venue quote unavailable",
	CodeReferencePriceCold: "Reference price not yet available",
	CodePrecisionLoss:      "Conversion would lose precision",
	CodeUnknownAsset:       "Asset not supported by venue",

	CodeGateInFlight:     "A submission is already in flight",
	CodeLockHeld:         "Execution lock held by another instance",
	CodeJournalFailed:    "Failed to record execution",
	CodeNotificationSend: "Failed to deliver notification",
}
