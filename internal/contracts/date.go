package contracts

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire and storage layout of trading dates
const DateLayout = "2006-01-02"

// Date is a trading date in YYYY-MM-DD form.
// The zero value means "no date" and marshals to JSON null.
// Lexical order equals chronological order.
type Date string

// ParseDate validates s and returns it as a Date. Longer timestamps are cut to the date part.
func ParseDate(s string) (Date, error) {
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return Date(s), nil
}

// DateOf formats t as a Date
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// IsZero reports whether d is unset
func (d Date) IsZero() bool {
	return d == ""
}

// Time parses d; the zero Date yields the zero time
func (d Date) Time() time.Time {
	t, _ := time.Parse(DateLayout, string(d))
	return t
}

// AddDays shifts d by n calendar days
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

func (d Date) String() string {
	return string(d)
}

// MarshalJSON encodes the zero Date as null
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(string(d))
}

// UnmarshalJSON accepts null or a YYYY-MM-DD string
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = ""
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
