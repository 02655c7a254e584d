package apperror_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/fd1az/flashloan-arb/internal/apperror"
)

func TestNew_DefaultMessageAndCause(t *testing.T) {
	cause := errors.New("execution reverted")
	err := apperror.New(apperror.CodeGasEstimationFailed,
		apperror.WithCause(cause),
		apperror.WithContext("direction=KyberToUniswap"))

	if !errors.Is(err, cause) {
		t.Error("cause not reachable through errors.Is")
	}
	if !strings.Contains(err.Error(), "Gas estimation failed") {
		t.Errorf("Error() = %q", err.Error())
	}
	if !strings.Contains(err.Error(), "direction=KyberToUniswap") {
		t.Errorf("Error() missing context: %q", err.Error())
	}
}

func TestIs_ComparesByCode(t *testing.T) {
	wrapped := fmt.Errorf("fetch: %w", apperror.New(apperror.CodeQuoteUnavailable))

	if !apperror.HasCode(wrapped, apperror.CodeQuoteUnavailable) {
		t.Error("HasCode = false for wrapped error")
	}
	if apperror.HasCode(wrapped, apperror.CodeFeedTerminated) {
		t.Error("HasCode matched a different code")
	}
	if apperror.GetCode(wrapped) != apperror.CodeQuoteUnavailable {
		t.Errorf("GetCode = %v", apperror.GetCode(wrapped))
	}
}

func TestWrap(t *testing.T) {
	if apperror.Wrap(nil, apperror.CodeInternalError, "x") != nil {
		t.Fatal("Wrap(nil) != nil")
	}

	timeout := apperror.Wrap(context.DeadlineExceeded, apperror.CodeEthereumRPCError, "getExpectedRate")
	if timeout.Code != apperror.CodeTransientFetch {
		t.Errorf("deadline wrapped as %v, want %v", timeout.Code, apperror.CodeTransientFetch)
	}
	if !apperror.IsTransient(timeout) {
		t.Error("timeout not transient")
	}

	orig := apperror.New(apperror.CodeSubmissionFailed)
	if got := apperror.Wrap(orig, apperror.CodeInternalError, "send"); got != orig {
		t.Error("Wrap replaced an existing AppError")
	}
	if orig.Context != "send" {
		t.Errorf("context = %q, want send", orig.Context)
	}
}

func TestIsTransient_FatalCodes(t *testing.T) {
	if apperror.IsTransient(apperror.New(apperror.CodeFeedTerminated)) {
		t.Error("feed termination classified as transient")
	}
	if apperror.GetCode(errors.New("plain")) != apperror.CodeUnknownError {
		t.Error("plain error code")
	}
}
