package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/fd1az/flashloan-arb/internal/apperror"
	"github.com/fd1az/flashloan-arb/internal/ratelimit"
)

func TestLimiter_BurstThenBlocks(t *testing.T) {
	l := ratelimit.New(60) // 1 rps, burst 4

	for i := 0; i < 4; i++ {
		if !l.Allow() {
			t.Fatalf("request %d rejected inside burst", i)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := l.Wait(ctx); apperror.GetCode(err) != apperror.CodeRateLimitExceeded {
		t.Fatalf("Wait err = %v, want %s", err, apperror.CodeRateLimitExceeded)
	}
}

func TestLimiter_DisabledAndNil(t *testing.T) {
	l := ratelimit.New(0)
	for i := 0; i < 1000; i++ {
		if !l.Allow() {
			t.Fatal("disabled limiter rejected a request")
		}
	}

	var nilLimiter *ratelimit.Limiter
	if err := nilLimiter.Wait(context.Background()); err != nil {
		t.Fatalf("nil limiter Wait = %v", err)
	}
}
