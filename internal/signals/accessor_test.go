package signals

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stex/backend/internal/contracts"
	"github.com/wonny/stex/backend/pkg/logger"
)

type fakeStore struct {
	mu       sync.Mutex
	rows     []contracts.Signal
	counts   map[contracts.Date]contracts.DirectionCounts
	closes   map[string]contracts.ClosePair
	dates    []contracts.Date
	failCode string
	calls    int
	lastRefs []CodeDate
	table    PriceTable
}

func (f *fakeStore) SignalRows(ctx context.Context, codes []string, asOf contracts.Date) ([]contracts.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	want := make(map[string]bool, len(codes))
	for _, c := range codes {
		if c == f.failCode {
			return nil, errors.New("chunk failed")
		}
		want[c] = true
	}

	var out []contracts.Signal
	for _, s := range f.rows {
		if want[s.Code] && (asOf.IsZero() || s.RefDate == asOf) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) DirectionCounts(ctx context.Context, codes []string, dates []contracts.Date) (map[contracts.Date]contracts.DirectionCounts, error) {
	return f.counts, nil
}

func (f *fakeStore) ClosePairs(ctx context.Context, table PriceTable, refs []CodeDate) (map[string]contracts.ClosePair, error) {
	f.lastRefs = refs
	f.table = table
	return f.closes, nil
}

func (f *fakeStore) RefDates(ctx context.Context, codes []string, limit int) ([]contracts.Date, error) {
	if len(f.dates) > limit {
		return f.dates[:limit], nil
	}
	return f.dates, nil
}

func ptr(v float64) *float64 { return &v }

func sig(code string, d contracts.Date, t contracts.SignalType, dir string) contracts.Signal {
	return contracts.Signal{Code: code, RefDate: d, Type: t, Direction: dir}
}

func TestGroupLatest(t *testing.T) {
	rows := []contracts.Signal{
		sig("A", "2026-01-06", contracts.SignalVolumeMA20, "看涨"),
		sig("A", "2026-01-06", contracts.SignalTurnover, "异常活跃"),
		sig("A", "2026-01-05", contracts.SignalVolumeMA20, "看跌"),
		sig("B", "2026-01-05", contracts.SignalMACross, ""),
		sig("Z", "2026-01-06", contracts.SignalMACross, "看涨"),
	}

	t.Run("latest per code", func(t *testing.T) {
		got := GroupLatest([]string{"A", "B", "C"}, rows, "")
		require.Len(t, got, 3)

		assert.Equal(t, contracts.Date("2026-01-06"), got[0].RefDate)
		assert.Equal(t, contracts.SignalMap{
			contracts.SignalVolumeMA20: "看涨",
			contracts.SignalTurnover:   "异常活跃",
		}, got[0].Signals)

		assert.Equal(t, contracts.Date("2026-01-05"), got[1].RefDate)
		assert.Equal(t, "-", got[1].Signals[contracts.SignalMACross])

		assert.True(t, got[2].RefDate.IsZero())
		assert.Empty(t, got[2].Signals)
	})

	t.Run("pinned date", func(t *testing.T) {
		got := GroupLatest([]string{"A", "C"}, rows, "2026-01-05")
		assert.Equal(t, contracts.Date("2026-01-05"), got[0].RefDate)
		assert.Equal(t, contracts.SignalMap{contracts.SignalVolumeMA20: "看跌"}, got[0].Signals)

		// codes without rows on the date are still pinned
		assert.Equal(t, contracts.Date("2026-01-05"), got[1].RefDate)
		assert.Empty(t, got[1].Signals)
	})
}

func TestAccessor_LatestSignalsForCodes(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{rows: []contracts.Signal{
		sig("A", "2026-01-06", contracts.SignalVolumeMA20, "看涨"),
		sig("B", "2026-01-06", contracts.SignalVolumeMA20, "看跌"),
		sig("C", "2026-01-06", contracts.SignalVolumeMA20, "中性"),
	}}

	t.Run("chunks fetched and merged in input order", func(t *testing.T) {
		a := NewAccessor(store, Options{FetchWorkers: 2, ChunkSize: 1}, logger.Nop())
		got, err := a.LatestSignalsForCodes(ctx, []string{"C", "A", "B"}, "")
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, "C", got[0].Code)
		assert.Equal(t, "中性", got[0].Signals[contracts.SignalVolumeMA20])
		assert.Equal(t, "看跌", got[2].Signals[contracts.SignalVolumeMA20])
	})

	t.Run("failed chunk leaves its codes empty", func(t *testing.T) {
		failing := &fakeStore{rows: store.rows, failCode: "B"}
		a := NewAccessor(failing, Options{FetchWorkers: 1, ChunkSize: 1}, logger.Nop())
		got, err := a.LatestSignalsForCodes(ctx, []string{"A", "B"}, "")
		require.NoError(t, err)
		assert.Equal(t, "看涨", got[0].Signals[contracts.SignalVolumeMA20])
		assert.Empty(t, got[1].Signals)
		assert.True(t, got[1].RefDate.IsZero())
	})

	t.Run("all chunks failing is an error", func(t *testing.T) {
		failing := &fakeStore{failCode: "A"}
		a := NewAccessor(failing, Options{}, logger.Nop())
		_, err := a.LatestSignalsForCodes(ctx, []string{"A", "B"}, "")
		assert.Error(t, err)
	})

	t.Run("empty codes", func(t *testing.T) {
		a := NewAccessor(store, Options{}, logger.Nop())
		got, err := a.LatestSignalsForCodes(ctx, nil, "")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestAccessor_IndexCountsForDates(t *testing.T) {
	store := &fakeStore{counts: map[contracts.Date]contracts.DirectionCounts{
		"2026-01-06": {Bullish: 3, Bearish: 0},
	}}
	a := NewAccessor(store, Options{IndexCodes: []string{"000001.SH"}}, logger.Nop())

	got, err := a.IndexCountsForDates(context.Background(), []contracts.Date{"2026-01-06", "2026-01-05", "", "2026-01-06"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, contracts.DirectionCounts{Bullish: 3}, got["2026-01-06"])
	assert.Equal(t, contracts.DirectionCounts{}, got["2026-01-05"])
}

func TestNextDayPct(t *testing.T) {
	tests := []struct {
		name string
		pair contracts.ClosePair
		want *float64
	}{
		{"rise", contracts.ClosePair{Close: ptr(10), NextClose: ptr(11)}, ptr(10)},
		{"fall", contracts.ClosePair{Close: ptr(20), NextClose: ptr(19)}, ptr(-5)},
		{"missing close", contracts.ClosePair{NextClose: ptr(11)}, nil},
		{"missing next", contracts.ClosePair{Close: ptr(10)}, nil},
		{"zero close", contracts.ClosePair{Close: ptr(0), NextClose: ptr(1)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDayPct(tt.pair)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestAccessor_NextDayReturns(t *testing.T) {
	store := &fakeStore{closes: map[string]contracts.ClosePair{
		"A": {Close: ptr(10), NextClose: ptr(10.5)},
	}}
	a := NewAccessor(store, Options{}, logger.Nop())

	items := []contracts.CodeSignals{
		{Code: "A", RefDate: "2026-01-05"},
		{Code: "B", RefDate: "2026-01-05"},
		{Code: "C"},
	}
	got, err := a.NextDayReturns(context.Background(), StockPrices, items)
	require.NoError(t, err)

	require.NotNil(t, got["A"])
	assert.InDelta(t, 5.0, *got["A"], 1e-9)
	assert.Nil(t, got["B"])
	_, hasC := got["C"]
	assert.False(t, hasC)
	assert.Len(t, store.lastRefs, 2)
}

func TestAccessor_IndexSignals(t *testing.T) {
	store := &fakeStore{
		rows: []contracts.Signal{
			sig("000001.SH", "2026-01-06", "均线金叉死叉", "看涨"),
			sig("399001.SZ", "2026-01-05", "均线金叉死叉", "看跌"),
		},
		closes: map[string]contracts.ClosePair{"000001.SH": {Close: ptr(3000), NextClose: ptr(3030)}},
		dates:  []contracts.Date{"2026-01-06", "2026-01-05"},
	}
	a := NewAccessor(store, Options{IndexCodes: []string{"000001.SH", "399001.SZ", "X.IDX"}}, logger.Nop())

	view, err := a.IndexSignals(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, view.Rows, 3)
	assert.Equal(t, "上证指数", view.Rows[0].Name)
	assert.InDelta(t, 1.0, *view.Rows[0].NextDayPct, 1e-9)
	assert.Equal(t, contracts.Date("2026-01-05"), view.Rows[1].ReferenceDate)
	assert.Equal(t, "X.IDX", view.Rows[2].Name)
	assert.Equal(t, IndexPrices, store.table)
	assert.Equal(t, []contracts.Date{"2026-01-06", "2026-01-05"}, view.AvailableDates)
}

func TestChunkCodes(t *testing.T) {
	chunks := chunkCodes([]string{"a", "b", "c", "d", "e"}, 2)
	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"e"}, chunks[2])

	var flat []string
	for _, c := range chunks {
		flat = append(flat, c...)
	}
	sort.Strings(flat)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, flat)
}
