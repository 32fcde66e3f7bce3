package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const (
	ruleHeavy = "═══════════════════════════════════════════════════════════"
	ruleLight = "───────────────────────────────────────────────────────────"
)

// printHeader prints a titled block with key/value lines
func printHeader(w io.Writer, title string, fields ...[2]string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, ruleHeavy)
	fmt.Fprintf(w, "  %s\n", title)
	if len(fields) > 0 {
		fmt.Fprintln(w, ruleLight)
		for _, f := range fields {
			fmt.Fprintf(w, "  %-10s: %s\n", f[0], f[1])
		}
	}
	fmt.Fprintln(w, ruleLight)
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// output writes v as JSON when --json is set, otherwise calls text
func output(v interface{}, text func(w io.Writer)) error {
	if asJSON {
		return printJSON(os.Stdout, v)
	}
	text(os.Stdout)
	return nil
}

// fmtNum renders an optional number with two decimals, "-" when absent
func fmtNum(v *float64) string {
	if v == nil {
		return "-"
	}
	return decimal.NewFromFloat(*v).StringFixed(2)
}

// fmtPct renders a 0..1 rate as a percentage
func fmtPct(v *float64) string {
	if v == nil {
		return "-"
	}
	return decimal.NewFromFloat(*v).Shift(2).StringFixed(1) + "%"
}

// fmtStr renders an optional string, "-" when absent
func fmtStr(v *string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return "-"
	}
	return *v
}

// shortHash trims a config hash for display
func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	if h == "" {
		return "-"
	}
	return h
}
