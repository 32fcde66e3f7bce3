package contracts

import "strings"

// SignalType is one entry of the fixed signal catalogue.
// Values are the labels stored in stex.signals.signal_type.
type SignalType string

const (
	SignalVolumeMA20        SignalType = "成交量资金MA20"
	SignalVolumeChange      SignalType = "成交量涨跌幅"
	SignalSustainedFlow     SignalType = "持续资金流向"
	SignalMACross           SignalType = "均线金叉死叉"
	SignalMainCapitalFlow   SignalType = "主力资金"
	SignalSupportResistance SignalType = "支撑阻力位"
	SignalNewsOpinion       SignalType = "新闻舆论"
	SignalTurnover          SignalType = "换手率"
)

// SignalCatalogue is the scoring order of stock signal types
var SignalCatalogue = []SignalType{
	SignalVolumeMA20,
	SignalVolumeChange,
	SignalSustainedFlow,
	SignalMACross,
	SignalMainCapitalFlow,
	SignalSupportResistance,
	SignalNewsOpinion,
	SignalTurnover,
}

// DirectionalSignals are the catalogue entries scored by bull/bear weights (all but turnover)
func DirectionalSignals() []SignalType {
	out := make([]SignalType, 0, len(SignalCatalogue)-1)
	for _, t := range SignalCatalogue {
		if t != SignalTurnover {
			out = append(out, t)
		}
	}
	return out
}

// Direction is a categorical signal reading
type Direction string

const (
	DirectionBullish Direction = "看涨"
	DirectionBearish Direction = "看跌"
	DirectionNeutral Direction = "中性"
	DirectionNone    Direction = "无信号"
)

// ParseDirection maps a stored label to a Direction; anything unrecognised is DirectionNone
func ParseDirection(s string) Direction {
	switch d := Direction(strings.TrimSpace(s)); d {
	case DirectionBullish, DirectionBearish, DirectionNeutral:
		return d
	default:
		return DirectionNone
	}
}

// TurnoverLevel is the three-way activity reading stored for the turnover signal
type TurnoverLevel string

const (
	TurnoverLow    TurnoverLevel = "交投清淡"
	TurnoverNormal TurnoverLevel = "正常活跃"
	TurnoverHigh   TurnoverLevel = "异常活跃"
)

// Signal is one stored signal row. Direction keeps the raw label because
// the turnover signal stores a TurnoverLevel there.
type Signal struct {
	Code      string     `json:"code"`
	RefDate   Date       `json:"referenceDate"`
	Type      SignalType `json:"signalType"`
	Direction string     `json:"direction"`
}

// SignalMap is signal type -> raw direction label for one code on one date
type SignalMap map[SignalType]string

// CodeSignals is the set of signals a code carries on its reference date
type CodeSignals struct {
	Code    string    `json:"code"`
	RefDate Date      `json:"referenceDate"`
	Signals SignalMap `json:"signals"`
}

// DirectionCounts tallies index signal rows on one date
type DirectionCounts struct {
	Bullish int `json:"bullish"`
	Bearish int `json:"bearish"`
}
