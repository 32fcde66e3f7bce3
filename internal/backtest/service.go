package backtest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/wonny/stex/backend/internal/contracts"
	"github.com/wonny/stex/backend/pkg/logger"
	"github.com/wonny/stex/backend/pkg/redis"
)

// Batch is a scoring snapshot that can be replayed
type Batch interface {
	DateProvider
	DateScorer
	ConfigHash() string
	Codes() []string
}

// BatchFunc opens a new scoring batch
type BatchFunc func(ctx context.Context) (Batch, error)

// ResultCache stores finished reports
type ResultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Service runs backtests through a report cache
type Service struct {
	engine   *Engine
	newBatch BatchFunc
	cache    ResultCache
	ttl      time.Duration
	log      *logger.Logger
}

// NewService creates a new backtest service. A nil cache disables caching.
func NewService(engine *Engine, newBatch BatchFunc, cache ResultCache, ttl time.Duration, log *logger.Logger) *Service {
	if ttl <= 0 {
		ttl = redis.TTLBacktest
	}
	return &Service{
		engine:   engine,
		newBatch: newBatch,
		cache:    cache,
		ttl:      ttl,
		log:      log.Component("backtest"),
	}
}

// Run returns the report for windowDays, reusing a cached one when the weights,
// the watchlist and the newest signal date are unchanged. Cache failures only log.
func (s *Service) Run(ctx context.Context, windowDays int) (*contracts.BacktestResult, error) {
	if err := s.engine.ValidateWindow(windowDays); err != nil {
		return nil, err
	}

	batch, err := s.newBatch(ctx)
	if err != nil {
		return nil, err
	}

	dates, err := batch.AvailableDates(ctx)
	if err != nil {
		return nil, err
	}

	latest := ""
	if len(dates) > 0 {
		latest = dates[0].String()
	}
	key := redis.BacktestKey(windowDays, batch.ConfigHash(), CodesDigest(batch.Codes()), latest)

	if s.cache != nil {
		var cached contracts.BacktestResult
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.log.WithError(err).Warn("Backtest cache read failed")
		} else if found {
			s.log.WithField("window_days", windowDays).Debug("Backtest cache hit")
			return &cached, nil
		}
	}

	result, err := s.engine.Run(ctx, windowDays, staticDates(dates), batch)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, result, s.ttl); err != nil {
			s.log.WithError(err).Warn("Backtest cache write failed")
		}
	}

	return result, nil
}

// staticDates replays an already fetched date list
type staticDates []contracts.Date

func (d staticDates) AvailableDates(ctx context.Context) ([]contracts.Date, error) {
	return d, nil
}

// CodesDigest is an order-independent short digest of a code list
func CodesDigest(codes []string) string {
	sorted := append([]string(nil), codes...)
	sort.Strings(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, ",")))
	return hex.EncodeToString(sum[:8])
}
