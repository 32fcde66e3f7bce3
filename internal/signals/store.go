package signals

import (
	"context"
	"fmt"

	"github.com/wonny/stex/backend/internal/contracts"
	"github.com/wonny/stex/backend/pkg/database"
)

// PriceTable selects the daily price source for next-day returns
type PriceTable int

const (
	StockPrices PriceTable = iota // stex.stock_day
	IndexPrices                   // stex.index_day
)

// CodeDate pairs a code with its reference date
type CodeDate struct {
	Code string
	Date contracts.Date
}

// Store is the raw query surface over stored signals and daily closes
type Store interface {
	// SignalRows returns signal rows for codes ordered by code, ref_date DESC.
	// A zero asOf returns each code's latest date only.
	SignalRows(ctx context.Context, codes []string, asOf contracts.Date) ([]contracts.Signal, error)
	// DirectionCounts tallies bullish/bearish rows of codes per date
	DirectionCounts(ctx context.Context, codes []string, dates []contracts.Date) (map[contracts.Date]contracts.DirectionCounts, error)
	// ClosePairs returns the close on each ref date and the first close strictly after it
	ClosePairs(ctx context.Context, table PriceTable, refs []CodeDate) (map[string]contracts.ClosePair, error)
	// RefDates returns distinct signal dates of codes, newest first
	RefDates(ctx context.Context, codes []string, limit int) ([]contracts.Date, error)
}

// Repository implements Store on PostgreSQL
// ⭐ SSOT: stex.signals 조회는 여기서만
type Repository struct {
	db database.Querier
}

// NewRepository creates a new signal repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

const latestSignalRowsQuery = `
	SELECT s.code, s.ref_date::text, s.signal_type, COALESCE(s.direction, '')
	FROM stex.signals s
	WHERE s.code = ANY($1::text[])
	  AND s.ref_date = (
		SELECT MAX(m.ref_date) FROM stex.signals m
		WHERE m.code = s.code AND m.ref_date IS NOT NULL
	  )
	ORDER BY s.code, s.ref_date DESC
`

const datedSignalRowsQuery = `
	SELECT s.code, s.ref_date::text, s.signal_type, COALESCE(s.direction, '')
	FROM stex.signals s
	WHERE s.code = ANY($1::text[])
	  AND s.ref_date = $2::date
	ORDER BY s.code, s.ref_date DESC
`

// SignalRows implements Store
func (r *Repository) SignalRows(ctx context.Context, codes []string, asOf contracts.Date) ([]contracts.Signal, error) {
	if len(codes) == 0 {
		return nil, nil
	}

	query, args := latestSignalRowsQuery, []any{codes}
	if !asOf.IsZero() {
		query, args = datedSignalRowsQuery, []any{codes, string(asOf)}
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query signals: %w", err)
	}
	defer rows.Close()

	var out []contracts.Signal
	for rows.Next() {
		var s contracts.Signal
		var refDate, signalType string
		if err := rows.Scan(&s.Code, &refDate, &signalType, &s.Direction); err != nil {
			return nil, fmt.Errorf("failed to scan signal: %w", err)
		}
		s.RefDate = contracts.Date(refDate)
		s.Type = contracts.SignalType(signalType)
		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signals: %w", err)
	}

	return out, nil
}

// DirectionCounts implements Store
func (r *Repository) DirectionCounts(ctx context.Context, codes []string, dates []contracts.Date) (map[contracts.Date]contracts.DirectionCounts, error) {
	out := make(map[contracts.Date]contracts.DirectionCounts, len(dates))
	if len(codes) == 0 || len(dates) == 0 {
		return out, nil
	}

	query := `
		SELECT ref_date::text,
			COUNT(*) FILTER (WHERE direction = $3),
			COUNT(*) FILTER (WHERE direction = $4)
		FROM stex.signals
		WHERE code = ANY($1::text[])
		  AND ref_date = ANY($2::text[]::date[])
		GROUP BY ref_date
	`

	rows, err := r.db.Query(ctx, query, codes, dateStrings(dates),
		string(contracts.DirectionBullish), string(contracts.DirectionBearish))
	if err != nil {
		return nil, fmt.Errorf("failed to query index direction counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d string
		var c contracts.DirectionCounts
		if err := rows.Scan(&d, &c.Bullish, &c.Bearish); err != nil {
			return nil, fmt.Errorf("failed to scan direction counts: %w", err)
		}
		out[contracts.Date(d)] = c
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating direction counts: %w", err)
	}

	return out, nil
}

const stockClosePairsQuery = `
	WITH list AS (
		SELECT code, ref_date FROM unnest($1::text[], $2::text[]::date[]) AS t(code, ref_date)
	)
	SELECT list.code,
		(SELECT sd.close::float8 FROM stex.stock_day sd
		 WHERE sd.code = list.code AND sd.trade_date = list.ref_date
		 LIMIT 1),
		(SELECT sd.close::float8 FROM stex.stock_day sd
		 WHERE sd.code = list.code AND sd.trade_date > list.ref_date
		 ORDER BY sd.trade_date ASC LIMIT 1)
	FROM list
`

const indexClosePairsQuery = `
	WITH list AS (
		SELECT code, ref_date FROM unnest($1::text[], $2::text[]::date[]) AS t(code, ref_date)
	)
	SELECT list.code,
		(SELECT d.close::float8 FROM stex.index_day d
		 WHERE d.index_code = list.code AND d.trade_date = list.ref_date
		 LIMIT 1),
		(SELECT d.close::float8 FROM stex.index_day d
		 WHERE d.index_code = list.code AND d.trade_date > list.ref_date
		 ORDER BY d.trade_date ASC LIMIT 1)
	FROM list
`

// ClosePairs implements Store
func (r *Repository) ClosePairs(ctx context.Context, table PriceTable, refs []CodeDate) (map[string]contracts.ClosePair, error) {
	out := make(map[string]contracts.ClosePair, len(refs))
	if len(refs) == 0 {
		return out, nil
	}

	codes := make([]string, len(refs))
	dates := make([]string, len(refs))
	for i, ref := range refs {
		codes[i] = ref.Code
		dates[i] = string(ref.Date)
	}

	query := stockClosePairsQuery
	if table == IndexPrices {
		query = indexClosePairsQuery
	}

	rows, err := r.db.Query(ctx, query, codes, dates)
	if err != nil {
		return nil, fmt.Errorf("failed to query closes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var code string
		var p contracts.ClosePair
		if err := rows.Scan(&code, &p.Close, &p.NextClose); err != nil {
			return nil, fmt.Errorf("failed to scan closes: %w", err)
		}
		out[code] = p
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating closes: %w", err)
	}

	return out, nil
}

// RefDates implements Store
func (r *Repository) RefDates(ctx context.Context, codes []string, limit int) ([]contracts.Date, error) {
	if len(codes) == 0 {
		return []contracts.Date{}, nil
	}

	query := `
		SELECT DISTINCT ref_date::text AS d
		FROM stex.signals
		WHERE code = ANY($1::text[]) AND ref_date IS NOT NULL
		ORDER BY d DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, codes, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query signal dates: %w", err)
	}
	defer rows.Close()

	out := []contracts.Date{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan signal date: %w", err)
		}
		out = append(out, contracts.Date(d))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating signal dates: %w", err)
	}

	return out, nil
}

func dateStrings(dates []contracts.Date) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = string(d)
	}
	return out
}
