package scoring

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/wonny/stex/backend/internal/contracts"
	"github.com/wonny/stex/backend/internal/weights"
)

// neutralThreshold splits neutral signals into up/down contributions
const neutralThreshold = 1.0

var half = decimal.NewFromFloat(0.5)

// Scorer computes composite scores from a fixed weight snapshot
// ⭐ SSOT: 종합 점수 계산식은 여기서만
type Scorer struct {
	cfg weights.Config
}

// NewScorer creates a scorer bound to cfg
func NewScorer(cfg weights.Config) *Scorer {
	return &Scorer{cfg: cfg.Clone()}
}

// Config returns the weight snapshot in use
func (s *Scorer) Config() weights.Config {
	return s.cfg
}

// MarketScore is base + bullPer*bullish + bearPer*bearish. The bear coefficient is pre-signed.
func (s *Scorer) MarketScore(c contracts.DirectionCounts) float64 {
	return s.cfg.MarketBase +
		s.cfg.MarketBullPerIndex*float64(c.Bullish) +
		s.cfg.MarketBearPerIndex*float64(c.Bearish)
}

// RawScore sums the weighted stock signals in catalogue order.
// Neutral readings add StockNeutralUp above the threshold, StockNeutralDown below it, 0 at it.
func (s *Scorer) RawScore(sigs contracts.SignalMap, marketScore float64) float64 {
	raw := 0.0
	for _, t := range contracts.SignalCatalogue {
		v, ok := sigs[t]
		if !ok {
			continue
		}

		if t == contracts.SignalTurnover {
			raw += s.cfg.TurnoverWeight(v)
			continue
		}

		w := s.cfg.SignalWeightFor(t)
		switch contracts.ParseDirection(v) {
		case contracts.DirectionBullish:
			raw += w.Bull
		case contracts.DirectionBearish:
			raw += w.Bear
		case contracts.DirectionNeutral:
			switch {
			case marketScore > neutralThreshold:
				raw += s.cfg.StockNeutralUp
			case marketScore < neutralThreshold:
				raw += s.cfg.StockNeutralDown
			}
		}
	}
	return raw
}

// Score builds the result for one code. Codes without a reference date use market score 1.
func (s *Scorer) Score(cs contracts.CodeSignals, name string, counts contracts.DirectionCounts, nextDayPct *float64) contracts.CompositeScoreResult {
	market := 1.0
	if !cs.RefDate.IsZero() {
		market = s.MarketScore(counts)
	}
	raw := s.RawScore(cs.Signals, market)

	return contracts.CompositeScoreResult{
		Code:           cs.Code,
		Name:           name,
		ReferenceDate:  cs.RefDate,
		MarketScore:    market,
		StockRawScore:  raw,
		CompositeScore: Round2(market * raw),
		NextDayPct:     nextDayPct,
		Signals:        cs.Signals,
	}
}

// Round2 rounds half up to 2 decimals; non-finite input yields nil
func Round2(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	r := decimal.NewFromFloat(v).Shift(2).Add(half).Floor().Shift(-2).InexactFloat64()
	if r == 0 {
		r = 0 // drop negative zero
	}
	return &r
}

// Rank orders rows by composite score descending, nil last. Ties keep input order.
func Rank(rows []contracts.CompositeScoreResult) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].CompositeScore, rows[j].CompositeScore
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return *a > *b
	})
}
