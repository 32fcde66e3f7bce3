package strategy

import (
	"context"

	"github.com/wonny/stex/backend/internal/contracts"
)

// Strategy is one named stock-selection predicate
type Strategy interface {
	Kind() Kind
	Evaluate(ctx context.Context, src Source, asOf contracts.Date) (CodeSet, error)
}

const (
	growthQuarters = 4

	patternLookbackDays  = 60
	breakoutLookbackDays = 60
	barsLookbackDays     = 120 // breakout window plus room for the 20-day volume average

	volumeMAWindow    = 20
	consolidationFrom = 8 // rows before the breakout day
	consolidationTo   = 2

	consolidationVolumeRatio = 0.8
	consolidationRangePct    = 5.0
	breakoutVolumeRatio      = 1.3

	combinedThreshold = 3
)

// TechKeywords are matched against competitiveness text
var TechKeywords = []string{"AI", "芯片", "太空", "航天", "新能源", "机器人", "卡脖子", "半导体", "人工智能"}

// PatternTypes are the chart patterns accepted by classic_pattern
var PatternTypes = []string{"cup_handle", "rising_three"}

// registry holds one predicate per kind
var registry = map[Kind]Strategy{
	KindGrowth:          growthStrategy{},
	KindTechCompetition: techCompetitionStrategy{},
	KindClassicPattern:  classicPatternStrategy{},
	KindTrendFollowing:  trendFollowingStrategy{},
	KindLowVolBreakout:  lowVolBreakoutStrategy{},
	KindAllCombined: allCombinedStrategy{base: []Strategy{
		growthStrategy{},
		techCompetitionStrategy{},
		classicPatternStrategy{},
		trendFollowingStrategy{},
	}},
}

// Lookup returns the predicate of k
func Lookup(k Kind) (Strategy, error) {
	s, ok := registry[k]
	if !ok {
		return nil, ErrUnknownStrategy
	}
	return s, nil
}

// growth: three quarters of rising revenue and profit, and year-on-year growth on the latest quarter
type growthStrategy struct{}

func (growthStrategy) Kind() Kind { return KindGrowth }

func (growthStrategy) Evaluate(ctx context.Context, src Source, asOf contracts.Date) (CodeSet, error) {
	reports, err := src.QuarterlyFinancials(ctx, growthQuarters)
	if err != nil {
		return nil, err
	}

	out := make(CodeSet)
	for code, rs := range reports {
		if IsGrowth(rs) {
			out[code] = struct{}{}
		}
	}
	return out, nil
}

// IsGrowth checks four reports ordered newest first
func IsGrowth(rs []contracts.FinancialReport) bool {
	if len(rs) != growthQuarters {
		return false
	}
	r1, r2, r3, r4 := rs[0].Revenue, rs[1].Revenue, rs[2].Revenue, rs[3].Revenue
	p1, p2, p3, p4 := rs[0].NetProfit, rs[1].NetProfit, rs[2].NetProfit, rs[3].NetProfit

	return r1 > r2 && r2 > r3 &&
		p1 > p2 && p2 > p3 &&
		r1 > r4 && p1 > p4
}

type techCompetitionStrategy struct{}

func (techCompetitionStrategy) Kind() Kind { return KindTechCompetition }

func (techCompetitionStrategy) Evaluate(ctx context.Context, src Source, asOf contracts.Date) (CodeSet, error) {
	codes, err := src.CodesMatchingText(ctx, TechKeywords)
	if err != nil {
		return nil, err
	}
	return NewCodeSet(codes...), nil
}

type classicPatternStrategy struct{}

func (classicPatternStrategy) Kind() Kind { return KindClassicPattern }

func (classicPatternStrategy) Evaluate(ctx context.Context, src Source, asOf contracts.Date) (CodeSet, error) {
	codes, err := src.PatternSignalCodes(ctx, PatternTypes, asOf.AddDays(-patternLookbackDays))
	if err != nil {
		return nil, err
	}
	return NewCodeSet(codes...), nil
}

type trendFollowingStrategy struct{}

func (trendFollowingStrategy) Kind() Kind { return KindTrendFollowing }

func (trendFollowingStrategy) Evaluate(ctx context.Context, src Source, asOf contracts.Date) (CodeSet, error) {
	techs, err := src.LatestTechnicals(ctx)
	if err != nil {
		return nil, err
	}

	out := make(CodeSet)
	for _, t := range techs {
		if IsUptrend(t) {
			out[t.Code] = struct{}{}
		}
	}
	return out, nil
}

// IsUptrend is MA5 > MA10 > MA20 with close at or above MA20
func IsUptrend(t contracts.Technicals) bool {
	return t.MA5 > t.MA10 && t.MA10 > t.MA20 && t.Close >= t.MA20
}

type lowVolBreakoutStrategy struct{}

func (lowVolBreakoutStrategy) Kind() Kind { return KindLowVolBreakout }

func (lowVolBreakoutStrategy) Evaluate(ctx context.Context, src Source, asOf contracts.Date) (CodeSet, error) {
	bars, err := src.DailyBarsSince(ctx, asOf.AddDays(-barsLookbackDays))
	if err != nil {
		return nil, err
	}

	since := asOf.AddDays(-breakoutLookbackDays)
	out := make(CodeSet)
	for code, bs := range bars {
		if _, ok := LatestBreakout(bs, since); ok {
			out[code] = struct{}{}
		}
	}
	return out, nil
}

// LatestBreakout scans bars (oldest first) for the newest day on or after since where
// the preceding consolidation was quiet and the day broke out on volume.
//
// Windows are counted in rows and may be shorter at the start of the series:
// the volume average covers up to 20 rows before the day, the consolidation
// covers rows 8 to 2 before it.
func LatestBreakout(bars []contracts.DailyBar, since contracts.Date) (contracts.Date, bool) {
	for i := len(bars) - 1; i >= 1; i-- {
		if bars[i].TradeDate < since {
			break
		}
		if isBreakout(bars, i) {
			return bars[i].TradeDate, true
		}
	}
	return "", false
}

func isBreakout(bars []contracts.DailyBar, i int) bool {
	volMA := meanVolume(bars[max(0, i-volumeMAWindow):i])
	if volMA <= 0 {
		return false
	}

	prevClose := bars[i-1].Close

	lo, hi := max(0, i-consolidationFrom), i-consolidationTo+1
	if hi <= lo {
		return false
	}
	cons := bars[lo:hi]

	consVol := meanVolume(cons)
	minClose, maxClose := cons[0].Close, cons[0].Close
	for _, b := range cons[1:] {
		minClose = min(minClose, b.Close)
		maxClose = max(maxClose, b.Close)
	}
	mid := (maxClose + minClose) / 2
	if mid == 0 {
		return false
	}
	rangePct := (maxClose - minClose) / mid * 100

	day := bars[i]
	return consVol < consolidationVolumeRatio*volMA &&
		rangePct < consolidationRangePct &&
		day.Volume >= breakoutVolumeRatio*volMA &&
		day.Close > prevClose
}

func meanVolume(bars []contracts.DailyBar) float64 {
	if len(bars) == 0 {
		return 0
	}
	sum := 0.0
	for _, b := range bars {
		sum += b.Volume
	}
	return sum / float64(len(bars))
}

// allCombined keeps codes selected by at least three of the four base strategies
type allCombinedStrategy struct {
	base []Strategy
}

func (allCombinedStrategy) Kind() Kind { return KindAllCombined }

func (s allCombinedStrategy) Evaluate(ctx context.Context, src Source, asOf contracts.Date) (CodeSet, error) {
	sets := make([]CodeSet, 0, len(s.base))
	for _, b := range s.base {
		set, err := b.Evaluate(ctx, src, asOf)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return AtLeast(sets, combinedThreshold), nil
}
