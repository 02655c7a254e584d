package health

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/flashloan-arb/internal/logger"
)

func get(t *testing.T, h http.Handler, path string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestReadinessFollowsChecks(t *testing.T) {
	var warm atomic.Bool
	s := NewServer(0, "test", logger.Nop{})
	s.RegisterCheck("block_feed", func(context.Context) (bool, string) { return true, "connected" })
	s.RegisterCheck("reference_price", func(context.Context) (bool, string) {
		if warm.Load() {
			return true, "warm"
		}
		return false, "cold"
	})
	h := s.Handler()

	code, body := get(t, h, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body, "reference_price")
	assert.NotContains(t, body, "block_feed")

	warm.Store(true)
	code, body = get(t, h, "/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ready", body)
}

func TestHealthReportsEveryCheck(t *testing.T) {
	s := NewServer(0, "v1.2.3", logger.Nop{})
	s.RegisterCheck("block_feed", func(context.Context) (bool, string) { return false, "terminated" })
	s.RegisterCheck("gate", func(context.Context) (bool, string) { return true, "idle" })

	code, body := get(t, s.Handler(), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	var status Status
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "v1.2.3", status.Version)
	assert.Equal(t, Check{Healthy: false, Message: "terminated"}, status.Checks["block_feed"])
	assert.Equal(t, Check{Healthy: true, Message: "idle"}, status.Checks["gate"])
}

func TestLive(t *testing.T) {
	code, body := get(t, NewServer(0, "", logger.Nop{}).Handler(), "/live")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "alive", body)
}
