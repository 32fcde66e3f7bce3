package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stex/backend/internal/api/handlers"
	"github.com/wonny/stex/backend/internal/contracts"
	"github.com/wonny/stex/backend/internal/scoring"
	"github.com/wonny/stex/backend/internal/signals"
	"github.com/wonny/stex/backend/internal/strategy"
	"github.com/wonny/stex/backend/internal/weights"
	"github.com/wonny/stex/backend/pkg/config"
	"github.com/wonny/stex/backend/pkg/logger"
	"github.com/wonny/stex/backend/pkg/redis"
)

type stubServices struct{}

func (stubServices) ScoreWatchlist(ctx context.Context, refDate contracts.Date) (*contracts.Ranking, error) {
	return &contracts.Ranking{Rows: []contracts.CompositeScoreResult{}, AvailableDates: []contracts.Date{}}, nil
}

func (stubServices) IndexSignals(ctx context.Context, asOf contracts.Date) (*signals.IndexView, error) {
	return &signals.IndexView{Rows: []signals.IndexRow{}}, nil
}

func (stubServices) Run(ctx context.Context, windowDays int) (*contracts.BacktestResult, error) {
	return &contracts.BacktestResult{WindowDays: windowDays}, nil
}

func (stubServices) LoadSnapshot(ctx context.Context, date contracts.Date) (*scoring.Snapshot, error) {
	return nil, scoring.ErrSnapshotNotFound
}

type stubStrategies struct{}

func (stubStrategies) Run(ctx context.Context, key string, limit int) (*strategy.Result, error) {
	return &strategy.Result{Strategy: strategy.Kind(key), List: []contracts.StockMeta{}}, nil
}

func (stubStrategies) RunCombination(ctx context.Context, csv, mode string, limit int) (*strategy.CombinationResult, error) {
	return &strategy.CombinationResult{List: []contracts.StockMeta{}}, nil
}

type stubWatchlist struct{}

func (stubWatchlist) List(ctx context.Context) ([]contracts.WatchEntry, error) { return nil, nil }
func (stubWatchlist) Add(ctx context.Context, code string, track bool) error  { return nil }
func (stubWatchlist) Remove(ctx context.Context, code string) error           { return nil }

type stubWeights struct{}

func (stubWeights) Load(ctx context.Context) (weights.Config, error) { return weights.Defaults(), nil }
func (stubWeights) Save(ctx context.Context, payload any) error     { return nil }

type countingLimiter struct {
	allow int
	err   error
	calls int
}

func (c *countingLimiter) Allow(ctx context.Context) (bool, error) {
	c.calls++
	if c.err != nil {
		return false, c.err
	}
	return c.calls <= c.allow, nil
}

func testRouter(limiter Limiter) http.Handler {
	log := logger.Nop()
	s := stubServices{}
	return NewRouter(Handlers{
		Selection: handlers.NewSelectionHandler(s, s, s, s, log),
		Strategy:  handlers.NewStrategyHandler(stubStrategies{}, log),
		Watchlist: handlers.NewWatchlistHandler(stubWatchlist{}, log),
		Weights:   handlers.NewWeightsHandler(stubWeights{}, log),
	}, limiter, log)
}

func TestRouter_Routes(t *testing.T) {
	r := testRouter(nil)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{"GET", "/health", http.StatusOK},
		{"GET", "/api/selection/watchlist-signals", http.StatusOK},
		{"GET", "/api/selection/index-signals", http.StatusOK},
		{"GET", "/api/selection/strategy?strategy=growth", http.StatusOK},
		{"GET", "/api/selection/strategies?strategies=growth", http.StatusOK},
		{"GET", "/api/selection/backtest?window=10", http.StatusOK},
		{"GET", "/api/selection/score-snapshots/2024-03-01", http.StatusNotFound},
		{"GET", "/api/selection/watchlist", http.StatusOK},
		{"POST", "/api/stock/600000.SH/watch", http.StatusOK},
		{"DELETE", "/api/stock/600000.SH/watch", http.StatusOK},
		{"GET", "/api/config/score-weights", http.StatusOK},
		{"PUT", "/api/config/score-weights", http.StatusOK},
		{"GET", "/api/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			var body io.Reader
			if tt.method == "PUT" {
				body = strings.NewReader(`{"weights":{}}`)
			}
			req := httptest.NewRequest(tt.method, tt.path, body)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRouter_Health(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter(nil).ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "stex-api", body["service"])
}

func TestRouter_BacktestRateLimited(t *testing.T) {
	limiter := &countingLimiter{allow: 2}
	r := testRouter(limiter)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/selection/backtest", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// other endpoints are not limited
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/selection/watchlist-signals", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, limiter.calls)
}

func TestRateLimit_FailsOpen(t *testing.T) {
	limiter := &countingLimiter{err: errors.New("redis down")}
	rec := httptest.NewRecorder()
	testRouter(limiter).ServeHTTP(rec, httptest.NewRequest("GET", "/api/selection/backtest", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLocalLimiter(t *testing.T) {
	l := NewLocalLimiter(0.001, 2)
	ctx := context.Background()

	ok, err := l.Allow(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = l.Allow(ctx)
	assert.True(t, ok)
	ok, _ = l.Allow(ctx)
	assert.False(t, ok)
}

func TestNewBacktestLimiter(t *testing.T) {
	cfg := &config.Config{RateLimit: config.RateLimitConfig{RPS: 1, Burst: 1}}

	assert.IsType(t, &LocalLimiter{}, NewBacktestLimiter(cfg, nil))
	assert.IsType(t, &LocalLimiter{}, NewBacktestLimiter(cfg, redis.Disabled()))
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}
