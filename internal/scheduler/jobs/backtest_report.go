package jobs

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/wonny/stex/backend/internal/contracts"
	"github.com/wonny/stex/backend/pkg/logger"
)

// BacktestRunner runs a hit-rate backtest
type BacktestRunner interface {
	Run(ctx context.Context, windowDays int) (*contracts.BacktestResult, error)
}

// BacktestReportJob logs the daily hit rate of the composite score
// Schedule: weekdays 18:30, after the score snapshot
type BacktestReportJob struct {
	runner   BacktestRunner
	window   int
	schedule string
	logger   *logger.Logger
}

// NewBacktestReportJob creates a new backtest report job
func NewBacktestReportJob(runner BacktestRunner, window int, schedule string, log *logger.Logger) *BacktestReportJob {
	return &BacktestReportJob{
		runner:   runner,
		window:   window,
		schedule: schedule,
		logger:   log.Component("job.backtest_report"),
	}
}

// Name returns the job name
func (j *BacktestReportJob) Name() string {
	return "backtest_report"
}

// Schedule returns the cron schedule
func (j *BacktestReportJob) Schedule() string {
	return j.schedule
}

// Run executes the backtest and logs the summary
func (j *BacktestReportJob) Run(ctx context.Context) error {
	result, err := j.runner.Run(ctx, j.window)
	if err != nil {
		return err
	}

	fields := map[string]interface{}{
		"window_days": result.WindowDays,
		"dates":       len(result.PerDateStats),
		"samples":     result.TotalSampleCount,
		"hits":        result.TotalHitCount,
	}
	if result.OverallHitRate != nil {
		fields["hit_rate_pct"] = HitRatePct(*result.OverallHitRate)
	}

	j.logger.WithFields(fields).Info("Backtest report")
	return nil
}

// HitRatePct renders a 0..1 rate as a percentage with one decimal
func HitRatePct(rate float64) string {
	return decimal.NewFromFloat(rate).Shift(2).StringFixed(1)
}
