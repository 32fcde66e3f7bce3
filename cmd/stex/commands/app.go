package commands

import (
	"context"
	"fmt"

	"github.com/wonny/stex/backend/internal/backtest"
	"github.com/wonny/stex/backend/internal/scoring"
	"github.com/wonny/stex/backend/internal/signals"
	"github.com/wonny/stex/backend/internal/strategy"
	"github.com/wonny/stex/backend/internal/watchlist"
	"github.com/wonny/stex/backend/internal/weights"
	"github.com/wonny/stex/backend/pkg/config"
	"github.com/wonny/stex/backend/pkg/database"
	"github.com/wonny/stex/backend/pkg/logger"
	"github.com/wonny/stex/backend/pkg/redis"
)

// app wires every service from one config
// ⭐ SSOT: 의존성 조립은 여기서만
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.DB
	redis *redis.Client

	weights   *weights.Service
	watchlist *watchlist.Repository
	signals   *signals.Accessor
	scoring   *scoring.Service
	snapshots *scoring.SnapshotRepository
	selector  *strategy.Selector
	backtest  *backtest.Service
}

// newApp loads config, connects to PostgreSQL and Redis and builds the services
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	log := logger.New(cfg)

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rdb, err := redis.New(cfg)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, caching disabled")
		rdb = redis.Disabled()
	}

	a := &app{
		cfg:   cfg,
		log:   log,
		db:    db,
		redis: rdb,
	}

	a.weights = weights.NewService(weights.NewRepository(db.Pool), log)
	a.watchlist = watchlist.NewRepository(db.Pool)
	a.signals = signals.NewAccessor(signals.NewRepository(db.Pool), signals.Options{
		IndexCodes:   cfg.Scoring.IndexCodes,
		FetchWorkers: cfg.Scoring.FetchWorkers,
		DatesLimit:   cfg.Scoring.AvailableDatesLimit,
	}, log)
	a.scoring = scoring.NewService(a.weights, a.watchlist, a.signals, log)
	a.snapshots = scoring.NewSnapshotRepository(db.Pool)

	strategyRepo := strategy.NewRepository(db.Pool)
	a.selector = strategy.NewSelector(strategy.NewEvaluator(strategyRepo, log), strategyRepo, cfg.Strategy.ResultLimit)

	newBatch := func(ctx context.Context) (backtest.Batch, error) {
		b, err := a.scoring.NewBatch(ctx)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	a.backtest = backtest.NewService(
		backtest.NewEngine(cfg.Backtest.MaxWindow, log),
		newBatch,
		redis.NewCache(rdb, "backtest"),
		cfg.Backtest.CacheTTL,
		log,
	)

	return a, nil
}

// Close releases connections
func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
	a.db.Close()
}
