package weights

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/stex/backend/internal/contracts"
)

// Hash returns the SHA256 of c's canonical JSON
// 주의: map 키는 json.Marshal이 정렬하므로 해시 재현성 보장
func Hash(c Config) (string, error) {
	jsonBytes, err := json.Marshal(c)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// ExportYAML writes c as YAML
func ExportYAML(w io.Writer, c Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("failed to encode weights yaml: %w", err)
	}
	return enc.Close()
}

// ImportYAML decodes a YAML weight file. Unknown fields are rejected.
// Keys absent from the file keep their default values.
func ImportYAML(data []byte) (Config, error) {
	cfg := Defaults()
	cfg.SignalWeights = make(map[contracts.SignalType]SignalWeight)

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode weights yaml: %w", err)
	}

	if cfg.SignalWeights == nil {
		cfg.SignalWeights = make(map[contracts.SignalType]SignalWeight)
	}
	if err := fillPartialSignalWeights(data, &cfg); err != nil {
		return Config{}, err
	}
	for t, w := range Defaults().SignalWeights {
		if _, ok := cfg.SignalWeights[t]; !ok {
			cfg.SignalWeights[t] = w
		}
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// fillPartialSignalWeights gives signal_weights entries that omit bull or bear
// the merged stock_bull/stock_bear, as MergeWithDefaults does for JSON.
func fillPartialSignalWeights(data []byte, cfg *Config) error {
	var raw struct {
		SignalWeights map[contracts.SignalType]struct {
			Bull *float64 `yaml:"bull"`
			Bear *float64 `yaml:"bear"`
		} `yaml:"signal_weights"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to decode weights yaml: %w", err)
	}

	for t, entry := range raw.SignalWeights {
		w := cfg.SignalWeights[t]
		if entry.Bull == nil {
			w.Bull = cfg.StockBull
		}
		if entry.Bear == nil {
			w.Bear = cfg.StockBear
		}
		cfg.SignalWeights[t] = w
	}
	return nil
}

// LoadFile reads a YAML weight file
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return ImportYAML(data)
}

// ValidationError names the offending field
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate rejects non-finite coefficients
func Validate(c Config) error {
	scalars := map[string]float64{
		"market_base":           c.MarketBase,
		"market_bull_per_index": c.MarketBullPerIndex,
		"market_bear_per_index": c.MarketBearPerIndex,
		"stock_bull":            c.StockBull,
		"stock_bear":            c.StockBear,
		"stock_neutral_up":      c.StockNeutralUp,
		"stock_neutral_down":    c.StockNeutralDown,
		"turnover.low":          c.Turnover.Low,
		"turnover.normal":       c.Turnover.Normal,
		"turnover.high":         c.Turnover.High,
	}
	for field, v := range scalars {
		if !isFinite(v) {
			return ValidationError{field, "must be finite"}
		}
	}
	for level, v := range c.Turnover.Extra {
		if !isFinite(v) {
			return ValidationError{"turnover." + level, "must be finite"}
		}
	}
	for t, sw := range c.SignalWeights {
		if !isFinite(sw.Bull) || !isFinite(sw.Bear) {
			return ValidationError{fmt.Sprintf("signal_weights.%s", t), "must be finite"}
		}
	}
	return nil
}
