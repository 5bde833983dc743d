package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/genfin/internal/adapter/http/middleware"
	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/infrastructure/auth"
	"github.com/iho/genfin/internal/infrastructure/config"
)

func memoryConfig() *config.Config {
	return &config.Config{
		StorageDriver:    config.StorageMemory,
		CompanyID:        "test",
		FirstCheckNumber: 5001,
		IdempotencyTTL:   time.Hour,
		OutboxInterval:   time.Second,
		OutboxBatchSize:  10,
	}
}

func serve(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestNewAppSeedsDefaultChart(t *testing.T) {
	a, err := newApp(context.Background(), memoryConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	rec := serve(t, a.router, http.MethodGet, "/api/v1/accounts/")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Items []struct {
			ID   string `json:"id"`
			Type string `json:"type"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	ids := make([]string, 0, len(body.Items))
	for _, item := range body.Items {
		ids = append(ids, item.ID)
	}
	assert.Contains(t, ids, "1000")
	assert.Contains(t, ids, "1200")
	assert.Contains(t, ids, "2000")
	assert.Contains(t, ids, "3000")

	assert.Nil(t, a.rateLimiter)
	assert.NotNil(t, a.publisher)
}

func TestNewAppServesHealthAndMetrics(t *testing.T) {
	a, err := newApp(context.Background(), memoryConfig(), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, http.StatusOK, serve(t, a.router, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusOK, serve(t, a.router, http.MethodGet, "/ready").Code)

	rec := serve(t, a.router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestNewAppCustomChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.yaml")
	chart := `accounts:
  - {code: "100", name: "Cash", type: asset}
  - {code: "110", name: "Receivables", type: asset}
  - {code: "200", name: "Payables", type: liability}
  - {code: "300", name: "Equity", type: equity}
control:
  receivable: "110"
  payable: "200"
  opening_equity: "300"
`
	require.NoError(t, os.WriteFile(path, []byte(chart), 0o600))

	cfg := memoryConfig()
	cfg.ChartOfAccounts = path

	a, err := newApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, http.StatusOK, serve(t, a.router, http.MethodGet, "/api/v1/accounts/300").Code)
	assert.Equal(t, http.StatusNotFound, serve(t, a.router, http.MethodGet, "/api/v1/accounts/1000").Code)
}

func TestNewAppRequiresTokenWhenSecretSet(t *testing.T) {
	cfg := memoryConfig()
	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.JWTExpiration = time.Minute

	a, err := newApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, http.StatusUnauthorized, serve(t, a.router, http.MethodGet, "/api/v1/accounts/").Code)
	assert.Equal(t, http.StatusOK, serve(t, a.router, http.MethodGet, "/health").Code)

	token, err := auth.NewJWTManager(cfg.JWTSecret, time.Minute).Generate(&domain.User{ID: "ops", Role: domain.RoleViewer})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/accounts/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestNewAppRejectsMissingChart(t *testing.T) {
	cfg := memoryConfig()
	cfg.ChartOfAccounts = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := newApp(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}

func TestNewAppWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := memoryConfig()
	cfg.RedisURL = "redis://" + mr.Addr()
	cfg.RateLimitRPS = 100
	cfg.RateLimitBurst = 100

	a, err := newApp(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.rateLimiter)
	assert.Equal(t, http.StatusOK, serve(t, a.router, http.MethodGet, "/ready").Code)

	mr.Close()
	assert.Equal(t, http.StatusServiceUnavailable, serve(t, a.router, http.MethodGet, "/ready").Code)
}

func TestNewAppRedisUnreachable(t *testing.T) {
	cfg := memoryConfig()
	cfg.RedisURL = "redis://127.0.0.1:1"

	_, err := newApp(context.Background(), cfg, zerolog.Nop())
	require.Error(t, err)
}

func TestCleanupLoopStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		cleanupLoop(ctx, middleware.NewRateLimiter(1, 1, time.Minute), time.Millisecond)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}
