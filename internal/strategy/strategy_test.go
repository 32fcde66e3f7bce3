package strategy

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/stex/backend/internal/contracts"
	"github.com/wonny/stex/backend/pkg/logger"
)

// fakeSource returns canned data per predicate
type fakeSource struct {
	financials map[string][]contracts.FinancialReport
	textCodes  []string
	patterns   []string
	techs      []contracts.Technicals
	bars       map[string][]contracts.DailyBar

	gotKeywords []string
	gotSince    contracts.Date
	err         error
}

func (f *fakeSource) QuarterlyFinancials(ctx context.Context, n int) (map[string][]contracts.FinancialReport, error) {
	return f.financials, f.err
}

func (f *fakeSource) CodesMatchingText(ctx context.Context, keywords []string) ([]string, error) {
	f.gotKeywords = keywords
	return f.textCodes, f.err
}

func (f *fakeSource) PatternSignalCodes(ctx context.Context, types []string, since contracts.Date) ([]string, error) {
	f.gotSince = since
	return f.patterns, f.err
}

func (f *fakeSource) LatestTechnicals(ctx context.Context) ([]contracts.Technicals, error) {
	return f.techs, f.err
}

func (f *fakeSource) DailyBarsSince(ctx context.Context, since contracts.Date) (map[string][]contracts.DailyBar, error) {
	return f.bars, f.err
}

type fakeMeta struct {
	gotCodes []string
	gotLimit int
}

func (f *fakeMeta) StockMeta(ctx context.Context, codes []string, limit int) ([]contracts.StockMeta, error) {
	f.gotCodes = codes
	f.gotLimit = limit
	out := make([]contracts.StockMeta, 0, len(codes))
	for _, c := range codes {
		out = append(out, contracts.StockMeta{Code: c, Name: "n-" + c})
	}
	return out, nil
}

var fixedNow = func() time.Time { return time.Date(2026, 3, 31, 15, 0, 0, 0, time.UTC) }

func report(rev, profit float64) contracts.FinancialReport {
	return contracts.FinancialReport{Revenue: rev, NetProfit: profit}
}

func TestIsGrowth(t *testing.T) {
	tests := []struct {
		name string
		rs   []contracts.FinancialReport
		want bool
	}{
		{"steady growth", []contracts.FinancialReport{report(40, 4), report(30, 3), report(20, 2), report(10, 1)}, true},
		{"only three quarters", []contracts.FinancialReport{report(40, 4), report(30, 3), report(20, 2)}, false},
		{"revenue flat", []contracts.FinancialReport{report(40, 4), report(40, 3), report(20, 2), report(10, 1)}, false},
		{"profit dips", []contracts.FinancialReport{report(40, 4), report(30, 5), report(20, 2), report(10, 1)}, false},
		{"below last year", []contracts.FinancialReport{report(40, 4), report(30, 3), report(20, 2), report(50, 1)}, false},
		{"profit below last year", []contracts.FinancialReport{report(40, 4), report(30, 3), report(20, 2), report(10, 9)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsGrowth(tt.rs))
		})
	}
}

func TestIsUptrend(t *testing.T) {
	assert.True(t, IsUptrend(contracts.Technicals{MA5: 12, MA10: 11, MA20: 10, Close: 10}))
	assert.True(t, IsUptrend(contracts.Technicals{MA5: 12, MA10: 11, MA20: 10, Close: 13}))
	assert.False(t, IsUptrend(contracts.Technicals{MA5: 12, MA10: 11, MA20: 10, Close: 9.9}))
	assert.False(t, IsUptrend(contracts.Technicals{MA5: 11, MA10: 11, MA20: 10, Close: 12}))
	assert.False(t, IsUptrend(contracts.Technicals{MA5: 12, MA10: 10, MA20: 10, Close: 12}))
}

// breakoutSeries builds n quiet days ending the day before last, then a breakout day
func breakoutSeries(start contracts.Date, n int, breakoutVol, breakoutClose float64) []contracts.DailyBar {
	bars := make([]contracts.DailyBar, 0, n+1)
	d := start
	for i := 0; i < n; i++ {
		vol := 1000.0
		if i >= n-7 {
			vol = 500 // consolidation is quiet
		}
		px := 10.0
		if i%2 == 1 {
			px = 10.1
		}
		bars = append(bars, contracts.DailyBar{Code: "X", TradeDate: d, Close: px, Volume: vol})
		d = d.AddDays(1)
	}
	bars = append(bars, contracts.DailyBar{Code: "X", TradeDate: d, Close: breakoutClose, Volume: breakoutVol})
	return bars
}

func TestLatestBreakout(t *testing.T) {
	t.Run("qualifying day", func(t *testing.T) {
		bars := breakoutSeries("2026-02-01", 30, 2000, 10.5)
		got, ok := LatestBreakout(bars, "2026-02-01")
		require.True(t, ok)
		assert.Equal(t, bars[len(bars)-1].TradeDate, got)
	})

	t.Run("volume too light", func(t *testing.T) {
		bars := breakoutSeries("2026-02-01", 30, 1000, 10.5)
		_, ok := LatestBreakout(bars, "2026-02-01")
		assert.False(t, ok)
	})

	t.Run("closes down", func(t *testing.T) {
		bars := breakoutSeries("2026-02-01", 30, 2000, 9.5)
		_, ok := LatestBreakout(bars, "2026-02-01")
		assert.False(t, ok)
	})

	t.Run("wide consolidation range", func(t *testing.T) {
		bars := breakoutSeries("2026-02-01", 30, 2000, 12)
		bars[len(bars)-4].Close = 11 // inside rows 8..2 before the day
		_, ok := LatestBreakout(bars, "2026-02-01")
		assert.False(t, ok)
	})

	t.Run("loud consolidation", func(t *testing.T) {
		bars := breakoutSeries("2026-02-01", 30, 5000, 10.5)
		for i := len(bars) - 9; i < len(bars)-2; i++ {
			bars[i].Volume = 1500
		}
		_, ok := LatestBreakout(bars, "2026-02-01")
		assert.False(t, ok)
	})

	t.Run("breakout before window", func(t *testing.T) {
		bars := breakoutSeries("2026-02-01", 30, 2000, 10.5)
		_, ok := LatestBreakout(bars, "2026-04-01")
		assert.False(t, ok)
	})

	t.Run("too short", func(t *testing.T) {
		_, ok := LatestBreakout(breakoutSeries("2026-02-01", 0, 2000, 10.5), "2026-01-01")
		assert.False(t, ok)
	})
}

func TestEvaluator_CodesForStrategy(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{
		financials: map[string][]contracts.FinancialReport{
			"G1": {report(40, 4), report(30, 3), report(20, 2), report(10, 1)},
			"G2": {report(40, 4), report(30, 3)},
		},
		textCodes: []string{"T1", "T2"},
		patterns:  []string{"P1"},
		techs: []contracts.Technicals{
			{Code: "F1", MA5: 3, MA10: 2, MA20: 1, Close: 2},
			{Code: "F2", MA5: 1, MA10: 2, MA20: 3, Close: 2},
		},
		bars: map[string][]contracts.DailyBar{"L1": breakoutSeries("2026-03-01", 25, 2000, 10.5)},
	}
	e := NewEvaluator(src, logger.Nop()).WithClock(fixedNow)

	got, err := e.CodesForStrategy(ctx, KindGrowth)
	require.NoError(t, err)
	assert.Equal(t, []string{"G1"}, got.Sorted())

	got, err = e.CodesForStrategy(ctx, KindTechCompetition)
	require.NoError(t, err)
	assert.Equal(t, []string{"T1", "T2"}, got.Sorted())
	assert.Equal(t, TechKeywords, src.gotKeywords)

	got, err = e.CodesForStrategy(ctx, KindClassicPattern)
	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, got.Sorted())
	assert.Equal(t, contracts.Date("2026-01-30"), src.gotSince)

	got, err = e.CodesForStrategy(ctx, KindTrendFollowing)
	require.NoError(t, err)
	assert.Equal(t, []string{"F1"}, got.Sorted())

	got, err = e.CodesForStrategy(ctx, KindLowVolBreakout)
	require.NoError(t, err)
	assert.Equal(t, []string{"L1"}, got.Sorted())

	_, err = e.CodesForStrategy(ctx, Kind("momentum"))
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestEvaluator_SourceErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	e := NewEvaluator(&fakeSource{err: boom}, logger.Nop())
	_, err := e.CodesForStrategy(context.Background(), KindGrowth)
	assert.ErrorIs(t, err, boom)
}

// combinedFixture: code k appears in exactly k of the four base strategies
func combinedFixture() *fakeSource {
	growth := []contracts.FinancialReport{report(40, 4), report(30, 3), report(20, 2), report(10, 1)}
	return &fakeSource{
		financials: map[string][]contracts.FinancialReport{"C4": growth, "C3": growth, "C2": growth, "C1": growth},
		textCodes:  []string{"C4", "C3", "C2", "C3"}, // duplicates count once
		patterns:   []string{"C4", "C3"},
		techs: []contracts.Technicals{
			{Code: "C4", MA5: 3, MA10: 2, MA20: 1, Close: 2},
			{Code: "X", MA5: 3, MA10: 2, MA20: 1, Close: 2},
		},
	}
}

func TestAllCombined(t *testing.T) {
	ctx := context.Background()
	src := combinedFixture()
	e := NewEvaluator(src, logger.Nop()).WithClock(fixedNow)

	combined, err := e.CodesForStrategy(ctx, KindAllCombined)
	require.NoError(t, err)
	assert.Equal(t, []string{"C3", "C4"}, combined.Sorted())

	var base []CodeSet
	union := CodeSet{}
	for _, k := range []Kind{KindGrowth, KindTechCompetition, KindClassicPattern, KindTrendFollowing} {
		s, err := e.CodesForStrategy(ctx, k)
		require.NoError(t, err)
		base = append(base, s)
		union = union.Union(s)
	}

	// subset of the union, and each member is in at least 3 base sets
	for code := range combined {
		assert.True(t, union.Has(code))
		n := 0
		for _, s := range base {
			if s.Has(code) {
				n++
			}
		}
		assert.GreaterOrEqual(t, n, 3, code)
	}

	// every code in at least 3 base sets is included
	for code := range union {
		n := 0
		for _, s := range base {
			if s.Has(code) {
				n++
			}
		}
		assert.Equal(t, n >= 3, combined.Has(code), code)
	}
}

func TestEvaluator_CodesForCombination(t *testing.T) {
	ctx := context.Background()
	e := NewEvaluator(combinedFixture(), logger.Nop()).WithClock(fixedNow)

	kinds := []Kind{KindTechCompetition, KindClassicPattern}
	a, _ := e.CodesForStrategy(ctx, KindTechCompetition)
	b, _ := e.CodesForStrategy(ctx, KindClassicPattern)

	and, err := e.CodesForCombination(ctx, kinds, ModeAnd)
	require.NoError(t, err)
	or, err := e.CodesForCombination(ctx, kinds, ModeOr)
	require.NoError(t, err)

	for code := range and {
		assert.True(t, a.Has(code) && b.Has(code), code)
	}
	for _, s := range []CodeSet{a, b} {
		for code := range s {
			assert.True(t, or.Has(code), code)
		}
	}
	assert.Equal(t, []string{"C3", "C4"}, and.Sorted())
	assert.Equal(t, []string{"C2", "C3", "C4"}, or.Sorted())

	_, err = e.CodesForCombination(ctx, []Kind{KindAllCombined}, ModeOr)
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	_, err = e.CodesForCombination(ctx, nil, ModeOr)
	assert.ErrorIs(t, err, ErrNoStrategies)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" Growth ")
	require.NoError(t, err)
	assert.Equal(t, KindGrowth, k)
	assert.Equal(t, "企业增长策略", k.Name())

	_, err = ParseKind("value")
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	for _, k := range Kinds {
		assert.NotEmpty(t, k.Name(), k)
		_, err := Lookup(k)
		assert.NoError(t, err, k)
	}
}

func TestParseSelection(t *testing.T) {
	kinds, err := ParseSelection("growth, LOW_VOL_BREAKOUT,all_combined,bogus,growth")
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindGrowth, KindLowVolBreakout}, kinds)

	for _, csv := range []string{"", "all_combined", "x,y"} {
		_, err := ParseSelection(csv)
		assert.ErrorIs(t, err, ErrNoStrategies, csv)
	}
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeAnd, ParseMode("and"))
	assert.Equal(t, ModeAnd, ParseMode("AND"))
	assert.Equal(t, ModeOr, ParseMode("or"))
	assert.Equal(t, ModeOr, ParseMode(""))
	assert.Equal(t, ModeOr, ParseMode("xor"))
}

func TestCombine(t *testing.T) {
	a := NewCodeSet("1", "2", "3")
	b := NewCodeSet("2", "3", "4")
	c := NewCodeSet("3", "5")

	assert.Equal(t, []string{"3"}, Combine([]CodeSet{a, b, c}, ModeAnd).Sorted())
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, Combine([]CodeSet{a, b, c}, ModeOr).Sorted())
	assert.Empty(t, Combine(nil, ModeOr))

	// folding must not alias the first input
	out := Combine([]CodeSet{a}, ModeOr)
	out["9"] = struct{}{}
	assert.False(t, a.Has("9"))
}

func TestSelector(t *testing.T) {
	ctx := context.Background()
	meta := &fakeMeta{}
	e := NewEvaluator(combinedFixture(), logger.Nop()).WithClock(fixedNow)
	sel := NewSelector(e, meta, 100)

	res, err := sel.Run(ctx, "tech_competition", 0)
	require.NoError(t, err)
	assert.Equal(t, KindTechCompetition, res.Strategy)
	assert.Equal(t, "中美科技竞争战略", res.StrategyName)
	assert.Len(t, res.List, 3)
	assert.Equal(t, []string{"C2", "C3", "C4"}, meta.gotCodes)
	assert.Equal(t, 100, meta.gotLimit)

	_, err = sel.Run(ctx, "nope", 10)
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	combo, err := sel.RunCombination(ctx, "classic_pattern,tech_competition", "And", 5)
	require.NoError(t, err)
	assert.Equal(t, ModeAnd, combo.Combine)
	assert.Equal(t, []string{"经典形态策略", "中美科技竞争战略"}, combo.Strategies)
	assert.Len(t, combo.List, 2)
	assert.Equal(t, 5, meta.gotLimit)

	_, err = sel.RunCombination(ctx, "all_combined", "or", 5)
	assert.ErrorIs(t, err, ErrNoStrategies)

	empty, err := sel.RunCombination(ctx, "trend_following,low_vol_breakout", "and", 5)
	require.NoError(t, err)
	assert.NotNil(t, empty.List)
	assert.Empty(t, empty.List)
}

func TestSelector_ClampLimit(t *testing.T) {
	sel := NewSelector(nil, nil, 0)
	for in, want := range map[int]int{0: 10000, -5: 10000, 50: 50, 20000: 10000} {
		assert.Equal(t, want, sel.ClampLimit(in), fmt.Sprint(in))
	}
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\%\_off\\`, escapeLike(`50%_off\`))
	assert.Equal(t, "芯片", escapeLike("芯片"))
}
