package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/stex/backend/internal/contracts"
	"github.com/wonny/stex/backend/pkg/logger"
)

// ErrInvalidWindow is returned for a window outside [1, max]
var ErrInvalidWindow = errors.New("invalid backtest window")

// DateProvider lists reference dates with signal data, newest first
type DateProvider interface {
	AvailableDates(ctx context.Context) ([]contracts.Date, error)
}

// DateScorer scores the watchlist as of one date
type DateScorer interface {
	Score(ctx context.Context, date contracts.Date) ([]contracts.CompositeScoreResult, error)
}

// Engine runs hit-rate backtests
// ⭐ SSOT: 백테스트 실행은 여기서만
type Engine struct {
	maxWindow int
	logger    *logger.Logger
}

// NewEngine creates a new backtest engine. maxWindow <= 0 disables the upper bound.
func NewEngine(maxWindow int, log *logger.Logger) *Engine {
	return &Engine{
		maxWindow: maxWindow,
		logger:    log.Component("backtest"),
	}
}

// ValidateWindow checks windowDays against the engine bounds
func (e *Engine) ValidateWindow(windowDays int) error {
	if windowDays < 1 {
		return fmt.Errorf("%w: %d (must be positive)", ErrInvalidWindow, windowDays)
	}
	if e.maxWindow > 0 && windowDays > e.maxWindow {
		return fmt.Errorf("%w: %d (max %d)", ErrInvalidWindow, windowDays, e.maxWindow)
	}
	return nil
}

// Run replays the scorer over the newest windowDays dates
func (e *Engine) Run(ctx context.Context, windowDays int, dates DateProvider, scorer DateScorer) (*contracts.BacktestResult, error) {
	if err := e.ValidateWindow(windowDays); err != nil {
		return nil, err
	}

	available, err := dates.AvailableDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list backtest dates: %w", err)
	}
	if len(available) > windowDays {
		available = available[:windowDays]
	}

	e.logger.WithFields(map[string]interface{}{
		"window_days": windowDays,
		"dates":       len(available),
	}).Info("Starting backtest")

	startTime := time.Now()
	tally := NewTally(windowDays)

	// dates are processed one at a time to bound memory
	for _, d := range available {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := scorer.Score(ctx, d)
		if err != nil {
			return nil, fmt.Errorf("failed to score %s: %w", d, err)
		}
		tally.AddDate(d, rows)
	}

	result := tally.Result()

	e.logger.WithFields(map[string]interface{}{
		"duration":      time.Since(startTime).String(),
		"dates":         len(result.PerDateStats),
		"total_samples": result.TotalSampleCount,
		"total_hits":    result.TotalHitCount,
	}).Info("Backtest completed")

	return result, nil
}

// Run is Engine.Run without an upper window bound
func Run(ctx context.Context, windowDays int, dates DateProvider, scorer DateScorer) (*contracts.BacktestResult, error) {
	return NewEngine(0, logger.Nop()).Run(ctx, windowDays, dates, scorer)
}
