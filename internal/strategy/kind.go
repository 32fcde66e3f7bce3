package strategy

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownStrategy is returned for keys outside the strategy catalogue
	ErrUnknownStrategy = errors.New("unknown strategy")
	// ErrNoStrategies is returned when a combination selects no valid strategy
	ErrNoStrategies = errors.New("at least one strategy is required")
)

// Kind is the closed set of strategy keys
type Kind string

const (
	KindGrowth          Kind = "growth"
	KindTechCompetition Kind = "tech_competition"
	KindClassicPattern  Kind = "classic_pattern"
	KindTrendFollowing  Kind = "trend_following"
	KindLowVolBreakout  Kind = "low_vol_breakout"
	KindAllCombined     Kind = "all_combined"
)

// Kinds lists every strategy in catalogue order
var Kinds = []Kind{
	KindGrowth,
	KindTechCompetition,
	KindClassicPattern,
	KindTrendFollowing,
	KindLowVolBreakout,
	KindAllCombined,
}

var names = map[Kind]string{
	KindGrowth:          "企业增长策略",
	KindTechCompetition: "中美科技竞争战略",
	KindClassicPattern:  "经典形态策略",
	KindTrendFollowing:  "趋势跟踪策略",
	KindLowVolBreakout:  "低量横盘放量突破",
	KindAllCombined:     "全策略综合",
}

// Name returns the display name
func (k Kind) Name() string {
	return names[k]
}

// Valid reports whether k is in the catalogue
func (k Kind) Valid() bool {
	_, ok := names[k]
	return ok
}

// Selectable reports whether k may be part of a multi-strategy combination
func (k Kind) Selectable() bool {
	return k.Valid() && k != KindAllCombined
}

// ParseKind normalises s and validates it
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, s)
	}
	return k, nil
}

// ParseSelection splits a comma separated list, keeping selectable kinds in order.
// Invalid keys and all_combined are dropped; duplicates are kept once.
func ParseSelection(csv string) ([]Kind, error) {
	var out []Kind
	seen := make(map[Kind]bool)
	for _, part := range strings.Split(csv, ",") {
		k := Kind(strings.ToLower(strings.TrimSpace(part)))
		if !k.Selectable() || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	if len(out) == 0 {
		return nil, ErrNoStrategies
	}
	return out, nil
}

// Mode combines strategy result sets
type Mode string

const (
	ModeAnd Mode = "and" // intersection
	ModeOr  Mode = "or"  // union
)

// ParseMode returns ModeAnd only for "and" (any case); everything else is ModeOr
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeAnd)) {
		return ModeAnd
	}
	return ModeOr
}
