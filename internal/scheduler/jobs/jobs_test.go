package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stex/backend/internal/contracts"
	"github.com/wonny/stex/backend/internal/scoring"
	"github.com/wonny/stex/backend/pkg/logger"
)

type fakeSnapshotter struct {
	err     error
	gotDate contracts.Date
	calls   int
}

func (f *fakeSnapshotter) TakeSnapshot(ctx context.Context, store scoring.SnapshotStore, date contracts.Date) (*scoring.Snapshot, error) {
	f.calls++
	f.gotDate = date
	if f.err != nil {
		return nil, f.err
	}
	snap := &scoring.Snapshot{ID: "id-1", RefDate: "2024-03-01", ConfigHash: "h"}
	return snap, store.SaveSnapshot(ctx, snap)
}

type memStore struct {
	saved []*scoring.Snapshot
}

func (m *memStore) SaveSnapshot(ctx context.Context, s *scoring.Snapshot) error {
	m.saved = append(m.saved, s)
	return nil
}

func (m *memStore) LoadSnapshot(ctx context.Context, date contracts.Date) (*scoring.Snapshot, error) {
	return nil, scoring.ErrSnapshotNotFound
}

type fakeBacktest struct {
	gotWindow int
	result    *contracts.BacktestResult
	err       error
}

func (f *fakeBacktest) Run(ctx context.Context, windowDays int) (*contracts.BacktestResult, error) {
	f.gotWindow = windowDays
	return f.result, f.err
}

func TestScoreSnapshotJob(t *testing.T) {
	scorer := &fakeSnapshotter{}
	store := &memStore{}
	job := NewScoreSnapshotJob(scorer, store, "0 0 18 * * 1-5", logger.Nop())

	assert.Equal(t, "score_snapshot", job.Name())
	assert.Equal(t, "0 0 18 * * 1-5", job.Schedule())

	require.NoError(t, job.Run(context.Background()))
	assert.True(t, scorer.gotDate.IsZero())
	require.Len(t, store.saved, 1)
	assert.Equal(t, "id-1", store.saved[0].ID)
}

func TestScoreSnapshotJob_NoDates(t *testing.T) {
	scorer := &fakeSnapshotter{err: scoring.ErrNoSignalDates}
	job := NewScoreSnapshotJob(scorer, &memStore{}, "@daily", logger.Nop())

	assert.NoError(t, job.Run(context.Background()))

	scorer.err = errors.New("db down")
	assert.EqualError(t, job.Run(context.Background()), "db down")
}

func TestBacktestReportJob(t *testing.T) {
	rate := 0.625
	bt := &fakeBacktest{result: &contracts.BacktestResult{
		WindowDays:       20,
		TotalSampleCount: 8,
		TotalHitCount:    5,
		OverallHitRate:   &rate,
	}}
	job := NewBacktestReportJob(bt, 20, "0 30 18 * * 1-5", logger.Nop())

	assert.Equal(t, "backtest_report", job.Name())
	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 20, bt.gotWindow)

	bt.err = errors.New("boom")
	assert.Error(t, job.Run(context.Background()))
}

func TestHitRatePct(t *testing.T) {
	assert.Equal(t, "62.5", HitRatePct(0.625))
	assert.Equal(t, "66.7", HitRatePct(2.0/3.0))
	assert.Equal(t, "0.0", HitRatePct(0))
	assert.Equal(t, "100.0", HitRatePct(1))
}
