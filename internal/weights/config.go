package weights

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/wonny/stex/backend/internal/contracts"
)

// ErrInvalidPayload is returned when a weight payload is not a JSON object
var ErrInvalidPayload = errors.New("weights payload must be an object")

// SignalWeight is the bull/bear coefficient pair of one signal type
type SignalWeight struct {
	Bull float64 `json:"bull" yaml:"bull"`
	Bear float64 `json:"bear" yaml:"bear"`
}

// TurnoverWeights maps turnover levels to contributions.
// Extra keeps levels outside low/normal/high so they survive a load and save; they never score.
type TurnoverWeights struct {
	Low    float64            `json:"low" yaml:"low"`
	Normal float64            `json:"normal" yaml:"normal"`
	High   float64            `json:"high" yaml:"high"`
	Extra  map[string]float64 `json:"-" yaml:",inline"`
}

// MarshalJSON flattens Extra next to the known levels
func (t TurnoverWeights) MarshalJSON() ([]byte, error) {
	m := make(map[string]float64, len(t.Extra)+3)
	for k, v := range t.Extra {
		m[k] = v
	}
	m["low"] = t.Low
	m["normal"] = t.Normal
	m["high"] = t.High
	return json.Marshal(m)
}

// UnmarshalJSON reads the known levels and collects the rest into Extra
func (t *TurnoverWeights) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*t = TurnoverWeights{}
	for k, v := range m {
		t.set(k, v)
	}
	return nil
}

func (t *TurnoverWeights) set(level string, v float64) {
	switch level {
	case "low":
		t.Low = v
	case "normal":
		t.Normal = v
	case "high":
		t.High = v
	default:
		if t.Extra == nil {
			t.Extra = make(map[string]float64)
		}
		t.Extra[level] = v
	}
}

// Config is the full weight configuration.
// JSON keys match the blob stored under app_config.score_weights.
type Config struct {
	MarketBase         float64                                `json:"marketBase" yaml:"market_base"`
	MarketBullPerIndex float64                                `json:"marketBullPerIndex" yaml:"market_bull_per_index"`
	MarketBearPerIndex float64                                `json:"marketBearPerIndex" yaml:"market_bear_per_index"`
	StockBull          float64                                `json:"stockBull" yaml:"stock_bull"`
	StockBear          float64                                `json:"stockBear" yaml:"stock_bear"`
	StockNeutralUp     float64                                `json:"stockNeutralUp" yaml:"stock_neutral_up"`
	StockNeutralDown   float64                                `json:"stockNeutralDown" yaml:"stock_neutral_down"`
	SignalWeights      map[contracts.SignalType]SignalWeight `json:"signalWeights" yaml:"signal_weights"`
	Turnover           TurnoverWeights                        `json:"turnover" yaml:"turnover"`
}

// Defaults returns the built-in configuration
// ⭐ SSOT: 기본 가중치는 여기서만 정의
func Defaults() Config {
	sw := make(map[contracts.SignalType]SignalWeight, len(contracts.SignalCatalogue))
	for _, t := range contracts.DirectionalSignals() {
		sw[t] = SignalWeight{Bull: 1, Bear: -2}
	}

	return Config{
		MarketBase:         1,
		MarketBullPerIndex: 0.1,
		MarketBearPerIndex: -0.1, // pre-signed, added as-is
		StockBull:          1,
		StockBear:          -2,
		StockNeutralUp:     0.2,
		StockNeutralDown:   -0.2,
		SignalWeights:      sw,
		Turnover: TurnoverWeights{
			Low:    -0.5,
			Normal: 0.3,
			High:   0.1,
		},
	}
}

// Clone deep-copies c
func (c Config) Clone() Config {
	out := c
	out.SignalWeights = make(map[contracts.SignalType]SignalWeight, len(c.SignalWeights))
	for k, v := range c.SignalWeights {
		out.SignalWeights[k] = v
	}
	if c.Turnover.Extra != nil {
		out.Turnover.Extra = make(map[string]float64, len(c.Turnover.Extra))
		for k, v := range c.Turnover.Extra {
			out.Turnover.Extra[k] = v
		}
	}
	return out
}

// SignalWeightFor resolves the bull/bear pair for a signal type.
// Types without an entry, or entries with non-finite values, fall back to StockBull/StockBear.
func (c Config) SignalWeightFor(t contracts.SignalType) SignalWeight {
	w := SignalWeight{Bull: c.StockBull, Bear: c.StockBear}
	if sw, ok := c.SignalWeights[t]; ok {
		if isFinite(sw.Bull) {
			w.Bull = sw.Bull
		}
		if isFinite(sw.Bear) {
			w.Bear = sw.Bear
		}
	}
	return w
}

// TurnoverWeight maps a turnover label to its contribution. Unknown labels contribute 0.
func (c Config) TurnoverWeight(label string) float64 {
	switch contracts.TurnoverLevel(strings.TrimSpace(label)) {
	case contracts.TurnoverLow:
		return c.Turnover.Low
	case contracts.TurnoverNormal:
		return c.Turnover.Normal
	case contracts.TurnoverHigh:
		return c.Turnover.High
	default:
		return 0
	}
}

// MergeWithDefaults overlays a saved partial config on Defaults().
// Scalars are taken only when they are finite numbers. Each saved signalWeights
// entry replaces the default entry for that type, and its missing bull/bear
// fall back to the merged stockBull/stockBear. Turnover merges per level and
// keeps numeric levels it does not know.
func MergeWithDefaults(saved map[string]any) Config {
	cfg := Defaults()
	if saved == nil {
		return cfg
	}

	scalars := []struct {
		key string
		dst *float64
	}{
		{"marketBase", &cfg.MarketBase},
		{"marketBullPerIndex", &cfg.MarketBullPerIndex},
		{"marketBearPerIndex", &cfg.MarketBearPerIndex},
		{"stockBull", &cfg.StockBull},
		{"stockBear", &cfg.StockBear},
		{"stockNeutralUp", &cfg.StockNeutralUp},
		{"stockNeutralDown", &cfg.StockNeutralDown},
	}
	for _, s := range scalars {
		if v, ok := number(saved[s.key]); ok {
			*s.dst = v
		}
	}

	if tv, ok := saved["turnover"].(map[string]any); ok {
		for level, raw := range tv {
			if v, ok := number(raw); ok {
				cfg.Turnover.set(level, v)
			}
		}
	}

	if sw, ok := saved["signalWeights"].(map[string]any); ok {
		for key, raw := range sw {
			entry := SignalWeight{Bull: cfg.StockBull, Bear: cfg.StockBear}
			if m, ok := raw.(map[string]any); ok {
				if v, ok := number(m["bull"]); ok {
					entry.Bull = v
				}
				if v, ok := number(m["bear"]); ok {
					entry.Bear = v
				}
			}
			cfg.SignalWeights[contracts.SignalType(key)] = entry
		}
	}

	return cfg
}

// ParseBlob decodes a stored blob and merges it. Malformed or non-object blobs yield Defaults().
func ParseBlob(raw string) Config {
	if strings.TrimSpace(raw) == "" {
		return Defaults()
	}

	var saved map[string]any
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&saved); err != nil {
		return Defaults()
	}
	return MergeWithDefaults(saved)
}

// ToMap converts c into the generic form accepted by MergeWithDefaults and Save
func (c Config) ToMap() (map[string]any, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// number accepts finite numerics and numeric strings
func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if !isFinite(f) {
		return 0, false
	}
	return f, true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
