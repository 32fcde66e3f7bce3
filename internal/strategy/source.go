package strategy

import (
	"context"
	"fmt"
	"strings"

	"github.com/wonny/stex/backend/internal/contracts"
	"github.com/wonny/stex/backend/pkg/database"
)

// Source is the historical data the strategy predicates read
type Source interface {
	// QuarterlyFinancials returns up to n reports per code with revenue and net profit present, newest first
	QuarterlyFinancials(ctx context.Context, n int) (map[string][]contracts.FinancialReport, error)
	// CodesMatchingText returns codes whose competitiveness text contains any keyword, case-insensitively
	CodesMatchingText(ctx context.Context, keywords []string) ([]string, error)
	// PatternSignalCodes returns codes with a pattern of the given types dated on or after since
	PatternSignalCodes(ctx context.Context, types []string, since contracts.Date) ([]string, error)
	// LatestTechnicals returns each code's newest row with all moving averages present, joined to that day's close
	LatestTechnicals(ctx context.Context) ([]contracts.Technicals, error)
	// DailyBarsSince returns bars on or after since per code, oldest first
	DailyBarsSince(ctx context.Context, since contracts.Date) (map[string][]contracts.DailyBar, error)
}

// Repository implements Source and MetadataSource on PostgreSQL
// ⭐ SSOT: 전략용 데이터 조회는 여기서만
type Repository struct {
	db database.Querier
}

// NewRepository creates a new strategy repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// QuarterlyFinancials implements Source
func (r *Repository) QuarterlyFinancials(ctx context.Context, n int) (map[string][]contracts.FinancialReport, error) {
	query := `
		SELECT code, report_date::text, revenue::float8, net_profit::float8
		FROM (
			SELECT code, report_date, revenue, net_profit,
				ROW_NUMBER() OVER (PARTITION BY code ORDER BY report_date DESC) AS rn
			FROM stex.financial
			WHERE revenue IS NOT NULL AND net_profit IS NOT NULL
		) ranked
		WHERE rn <= $1
		ORDER BY code, rn
	`

	rows, err := r.db.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query financials: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]contracts.FinancialReport)
	for rows.Next() {
		var f contracts.FinancialReport
		var reportDate string
		if err := rows.Scan(&f.Code, &reportDate, &f.Revenue, &f.NetProfit); err != nil {
			return nil, fmt.Errorf("failed to scan financial: %w", err)
		}
		f.ReportDate = contracts.Date(reportDate)
		out[f.Code] = append(out[f.Code], f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating financials: %w", err)
	}

	return out, nil
}

// CodesMatchingText implements Source
func (r *Repository) CodesMatchingText(ctx context.Context, keywords []string) ([]string, error) {
	patterns := make([]string, len(keywords))
	for i, kw := range keywords {
		patterns[i] = "%" + escapeLike(kw) + "%"
	}

	query := `
		SELECT code FROM stex.corp_analysis
		WHERE competitiveness_analysis IS NOT NULL
		  AND competitiveness_analysis <> ''
		  AND competitiveness_analysis ILIKE ANY($1::text[])
	`

	return r.queryCodes(ctx, "competitiveness", query, patterns)
}

// PatternSignalCodes implements Source
func (r *Repository) PatternSignalCodes(ctx context.Context, types []string, since contracts.Date) ([]string, error) {
	query := `
		SELECT DISTINCT code FROM stex.pattern_signal
		WHERE pattern_type = ANY($1::text[])
		  AND ref_date >= $2::date
	`

	return r.queryCodes(ctx, "pattern signals", query, types, string(since))
}

// LatestTechnicals implements Source
func (r *Repository) LatestTechnicals(ctx context.Context) ([]contracts.Technicals, error) {
	query := `
		WITH latest_dates AS (
			SELECT code, MAX(trade_date) AS trade_date
			FROM stex.technicals
			WHERE ma5 IS NOT NULL AND ma10 IS NOT NULL AND ma20 IS NOT NULL
			GROUP BY code
		)
		SELECT t.code, t.trade_date::text, t.ma5::float8, t.ma10::float8, t.ma20::float8, d.close::float8
		FROM stex.technicals t
		JOIN latest_dates ld ON ld.code = t.code AND ld.trade_date = t.trade_date
		JOIN stex.stock_day d ON d.code = t.code AND d.trade_date = t.trade_date
		WHERE d.close IS NOT NULL
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query technicals: %w", err)
	}
	defer rows.Close()

	var out []contracts.Technicals
	for rows.Next() {
		var t contracts.Technicals
		var tradeDate string
		if err := rows.Scan(&t.Code, &tradeDate, &t.MA5, &t.MA10, &t.MA20, &t.Close); err != nil {
			return nil, fmt.Errorf("failed to scan technicals: %w", err)
		}
		t.TradeDate = contracts.Date(tradeDate)
		out = append(out, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating technicals: %w", err)
	}

	return out, nil
}

// DailyBarsSince implements Source
func (r *Repository) DailyBarsSince(ctx context.Context, since contracts.Date) (map[string][]contracts.DailyBar, error) {
	query := `
		SELECT code, trade_date::text, close::float8, volume::float8
		FROM stex.stock_day
		WHERE trade_date >= $1::date
		  AND close IS NOT NULL AND volume IS NOT NULL
		ORDER BY code, trade_date
	`

	rows, err := r.db.Query(ctx, query, string(since))
	if err != nil {
		return nil, fmt.Errorf("failed to query daily bars: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]contracts.DailyBar)
	for rows.Next() {
		var b contracts.DailyBar
		var tradeDate string
		if err := rows.Scan(&b.Code, &tradeDate, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan daily bar: %w", err)
		}
		b.TradeDate = contracts.Date(tradeDate)
		out[b.Code] = append(out[b.Code], b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily bars: %w", err)
	}

	return out, nil
}

func (r *Repository) queryCodes(ctx context.Context, what, query string, args ...any) ([]string, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", what, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", what, err)
		}
		out = append(out, code)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", what, err)
	}

	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
