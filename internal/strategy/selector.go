package strategy

import (
	"context"
	"fmt"

	"github.com/wonny/stex/backend/internal/contracts"
)

// DefaultResultLimit caps joined result lists
const DefaultResultLimit = 10000

// MetadataSource joins display metadata onto codes
type MetadataSource interface {
	StockMeta(ctx context.Context, codes []string, limit int) ([]contracts.StockMeta, error)
}

// Result is a single strategy run
type Result struct {
	Strategy     Kind                  `json:"strategy"`
	StrategyName string                `json:"strategyName"`
	List         []contracts.StockMeta `json:"list"`
}

// CombinationResult is a multi-strategy run
type CombinationResult struct {
	Strategies []string              `json:"strategies"`
	Combine    Mode                  `json:"combine"`
	List       []contracts.StockMeta `json:"list"`
}

// Selector evaluates strategies and joins company metadata
type Selector struct {
	eval     *Evaluator
	meta     MetadataSource
	maxLimit int
}

// NewSelector creates a new selector. maxLimit <= 0 uses DefaultResultLimit.
func NewSelector(eval *Evaluator, meta MetadataSource, maxLimit int) *Selector {
	if maxLimit <= 0 {
		maxLimit = DefaultResultLimit
	}
	return &Selector{eval: eval, meta: meta, maxLimit: maxLimit}
}

// ClampLimit maps non-positive requests to the cap and caps larger ones
func (s *Selector) ClampLimit(limit int) int {
	if limit <= 0 || limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

// Run evaluates one strategy key
func (s *Selector) Run(ctx context.Context, key string, limit int) (*Result, error) {
	k, err := ParseKind(key)
	if err != nil {
		return nil, err
	}

	codes, err := s.eval.CodesForStrategy(ctx, k)
	if err != nil {
		return nil, err
	}

	list, err := s.join(ctx, codes, limit)
	if err != nil {
		return nil, err
	}

	return &Result{Strategy: k, StrategyName: k.Name(), List: list}, nil
}

// RunCombination evaluates a comma separated selection with the given mode
func (s *Selector) RunCombination(ctx context.Context, csv, mode string, limit int) (*CombinationResult, error) {
	kinds, err := ParseSelection(csv)
	if err != nil {
		return nil, err
	}
	m := ParseMode(mode)

	codes, err := s.eval.CodesForCombination(ctx, kinds, m)
	if err != nil {
		return nil, err
	}

	list, err := s.join(ctx, codes, limit)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.Name()
	}

	return &CombinationResult{Strategies: names, Combine: m, List: list}, nil
}

func (s *Selector) join(ctx context.Context, codes CodeSet, limit int) ([]contracts.StockMeta, error) {
	if len(codes) == 0 {
		return []contracts.StockMeta{}, nil
	}
	list, err := s.meta.StockMeta(ctx, codes.Sorted(), s.ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to join stock metadata: %w", err)
	}
	if list == nil {
		list = []contracts.StockMeta{}
	}
	return list, nil
}

// StockMeta implements MetadataSource
func (r *Repository) StockMeta(ctx context.Context, codes []string, limit int) ([]contracts.StockMeta, error) {
	query := `
		SELECT c.code, COALESCE(c.name, ''), c.market, c.industry, c.sector,
			COALESCE(c.market_cap, f.market_cap)::float8 AS market_cap,
			COALESCE(c.pe, f.pe)::float8 AS pe,
			c.pb::float8,
			f.net_profit::float8, f.profit_growth::float8,
			d.latest_close::float8
		FROM stex.corp c
		INNER JOIN (SELECT unnest($1::text[]) AS code) s ON s.code = c.code
		LEFT JOIN LATERAL (
			SELECT market_cap, pe, net_profit, profit_growth
			FROM stex.fundamentals
			WHERE code = c.code
			ORDER BY report_date DESC
			LIMIT 1
		) f ON true
		LEFT JOIN LATERAL (
			SELECT close AS latest_close
			FROM stex.stock_day
			WHERE code = c.code
			ORDER BY trade_date DESC
			LIMIT 1
		) d ON true
		ORDER BY c.code
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, codes, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock metadata: %w", err)
	}
	defer rows.Close()

	var out []contracts.StockMeta
	for rows.Next() {
		var m contracts.StockMeta
		if err := rows.Scan(
			&m.Code, &m.Name, &m.Market, &m.Industry, &m.Sector,
			&m.MarketCap, &m.PE, &m.PB,
			&m.NetProfit, &m.ProfitGrowth,
			&m.LatestClose,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stock metadata: %w", err)
		}
		out = append(out, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock metadata: %w", err)
	}

	return out, nil
}
