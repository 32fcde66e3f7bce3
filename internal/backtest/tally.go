package backtest

import (
	"github.com/wonny/stex/backend/internal/contracts"
)

// Tally accumulates per-date hit statistics
type Tally struct {
	windowDays int
	stats      []contracts.DateStat
	samples    int
	hits       int
}

// NewTally creates an empty tally
func NewTally(windowDays int) *Tally {
	return &Tally{
		windowDays: windowDays,
		stats:      make([]contracts.DateStat, 0, windowDays),
	}
}

// AddDate records one date's scored rows.
// Rows without a score or next-day change, or with a zero score, are not samples.
func (t *Tally) AddDate(date contracts.Date, rows []contracts.CompositeScoreResult) contracts.DateStat {
	stat := contracts.DateStat{Date: date}
	for _, r := range rows {
		hit, ok := IsHit(r)
		if !ok {
			continue
		}
		stat.SampleCount++
		if hit {
			stat.HitCount++
		}
	}
	stat.HitRate = rate(stat.HitCount, stat.SampleCount)

	t.stats = append(t.stats, stat)
	t.samples += stat.SampleCount
	t.hits += stat.HitCount
	return stat
}

// Result returns the accumulated report
func (t *Tally) Result() *contracts.BacktestResult {
	return &contracts.BacktestResult{
		WindowDays:       t.windowDays,
		PerDateStats:     t.stats,
		TotalSampleCount: t.samples,
		TotalHitCount:    t.hits,
		OverallHitRate:   rate(t.hits, t.samples),
	}
}

// IsHit reports whether the score and next-day change share a sign.
// ok is false when the row is not a sample.
func IsHit(r contracts.CompositeScoreResult) (hit, ok bool) {
	if r.CompositeScore == nil || r.NextDayPct == nil {
		return false, false
	}
	score, pct := *r.CompositeScore, *r.NextDayPct
	if score == 0 {
		return false, false
	}
	return (score > 0 && pct > 0) || (score < 0 && pct < 0), true
}

func rate(hits, samples int) *float64 {
	if samples == 0 {
		return nil
	}
	r := float64(hits) / float64(samples)
	return &r
}
