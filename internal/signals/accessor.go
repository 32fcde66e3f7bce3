package signals

import (
	"context"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/stex/backend/internal/contracts"
	"github.com/wonny/stex/backend/pkg/logger"
)

const (
	defaultChunkSize  = 200
	defaultDatesLimit = 60
	missingDirection  = "-"
)

// IndexNames are display names of the tracked indices
var IndexNames = map[string]string{
	"000001.SH": "上证指数",
	"399001.SZ": "深证成指",
	"399006.SZ": "创业板指",
	"000300.SH": "沪深300",
	"000905.SH": "中证500",
}

// Options configures an Accessor
type Options struct {
	IndexCodes   []string
	FetchWorkers int
	ChunkSize    int
	DatesLimit   int
}

// Accessor is the read-side view over stored signals used by scoring
type Accessor struct {
	store Store
	opts  Options
	log   *logger.Logger
}

// NewAccessor creates a new signal accessor
func NewAccessor(store Store, opts Options, log *logger.Logger) *Accessor {
	if opts.FetchWorkers <= 0 {
		opts.FetchWorkers = 1
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.DatesLimit <= 0 {
		opts.DatesLimit = defaultDatesLimit
	}

	return &Accessor{
		store: store,
		opts:  opts,
		log:   log.Component("signals"),
	}
}

// IndexCodes returns the configured index codes
func (a *Accessor) IndexCodes() []string {
	return a.opts.IndexCodes
}

// LatestSignalsForCodes returns one CodeSignals per code, in input order.
// With a zero asOf each code uses its own latest date; otherwise every code is pinned to asOf.
// Codes are fetched in chunks; a failed chunk leaves its codes empty unless every chunk fails.
func (a *Accessor) LatestSignalsForCodes(ctx context.Context, codes []string, asOf contracts.Date) ([]contracts.CodeSignals, error) {
	if len(codes) == 0 {
		return []contracts.CodeSignals{}, nil
	}

	chunks := chunkCodes(codes, a.opts.ChunkSize)

	var (
		mu       sync.Mutex
		rows     []contracts.Signal
		failures int
		lastErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.FetchWorkers)

	for _, chunk := range chunks {
		g.Go(func() error {
			got, err := a.store.SignalRows(gctx, chunk, asOf)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				lastErr = err
				a.log.WithFields(map[string]interface{}{
					"codes": len(chunk),
					"error": err.Error(),
				}).Warn("Failed to fetch signal chunk")
				return nil
			}
			rows = append(rows, got...)
			return nil
		})
	}

	_ = g.Wait()

	if failures == len(chunks) {
		return nil, fmt.Errorf("failed to fetch signals: %w", lastErr)
	}

	return GroupLatest(codes, rows, asOf), nil
}

// GroupLatest folds signal rows into per-code maps.
// Without asOf a code's reference date is its newest row date; codes with no rows get a zero date.
// With asOf only rows on that date count and every code is pinned to asOf.
// Later rows of the same type on the same date overwrite earlier ones.
func GroupLatest(codes []string, rows []contracts.Signal, asOf contracts.Date) []contracts.CodeSignals {
	index := make(map[string]int, len(codes))
	out := make([]contracts.CodeSignals, len(codes))
	for i, code := range codes {
		index[code] = i
		out[i] = contracts.CodeSignals{Code: code, RefDate: asOf, Signals: contracts.SignalMap{}}
	}

	if asOf.IsZero() {
		for _, s := range rows {
			i, ok := index[s.Code]
			if !ok || s.RefDate.IsZero() {
				continue
			}
			if s.RefDate > out[i].RefDate {
				out[i].RefDate = s.RefDate
			}
		}
	}

	for _, s := range rows {
		i, ok := index[s.Code]
		if !ok || s.RefDate.IsZero() || s.RefDate != out[i].RefDate {
			continue
		}
		dir := s.Direction
		if dir == "" {
			dir = missingDirection
		}
		out[i].Signals[s.Type] = dir
	}

	return out
}

// IndexCountsForDates returns direction counts over the index codes for each date.
// Dates without index rows map to zero counts.
func (a *Accessor) IndexCountsForDates(ctx context.Context, dates []contracts.Date) (map[contracts.Date]contracts.DirectionCounts, error) {
	dates = DistinctDates(dates)
	out := make(map[contracts.Date]contracts.DirectionCounts, len(dates))
	if len(dates) == 0 {
		return out, nil
	}

	got, err := a.store.DirectionCounts(ctx, a.opts.IndexCodes, dates)
	if err != nil {
		return nil, err
	}

	for _, d := range dates {
		out[d] = got[d]
	}
	return out, nil
}

// NextDayReturns returns the next-day percentage change per code.
// Codes without a reference date are skipped.
func (a *Accessor) NextDayReturns(ctx context.Context, table PriceTable, items []contracts.CodeSignals) (map[string]*float64, error) {
	refs := make([]CodeDate, 0, len(items))
	for _, it := range items {
		if it.RefDate.IsZero() {
			continue
		}
		refs = append(refs, CodeDate{Code: it.Code, Date: it.RefDate})
	}

	out := make(map[string]*float64, len(refs))
	if len(refs) == 0 {
		return out, nil
	}

	pairs, err := a.store.ClosePairs(ctx, table, refs)
	if err != nil {
		return nil, err
	}

	for _, ref := range refs {
		out[ref.Code] = NextDayPct(pairs[ref.Code])
	}
	return out, nil
}

// NextDayPct is (next - close) / close * 100, or nil when either close is missing or close is 0
func NextDayPct(p contracts.ClosePair) *float64 {
	if p.Close == nil || p.NextClose == nil || *p.Close == 0 {
		return nil
	}
	pct := (*p.NextClose - *p.Close) / *p.Close * 100
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return nil
	}
	return &pct
}

// AvailableDates lists distinct signal dates of codes, newest first
func (a *Accessor) AvailableDates(ctx context.Context, codes []string) ([]contracts.Date, error) {
	return a.store.RefDates(ctx, codes, a.opts.DatesLimit)
}

// IndexRow is one index line of the index signal view
type IndexRow struct {
	Code          string              `json:"code"`
	Name          string              `json:"name"`
	ReferenceDate contracts.Date      `json:"referenceDate"`
	NextDayPct    *float64            `json:"nextDayPct"`
	Signals       contracts.SignalMap `json:"signals"`
}

// IndexView is the per-index signal table
type IndexView struct {
	Rows           []IndexRow       `json:"rows"`
	AvailableDates []contracts.Date `json:"availableDates"`
}

// IndexSignals returns the signal table of the tracked indices, in configured order
func (a *Accessor) IndexSignals(ctx context.Context, asOf contracts.Date) (*IndexView, error) {
	codes := a.opts.IndexCodes

	dates, err := a.AvailableDates(ctx, codes)
	if err != nil {
		return nil, err
	}

	grouped, err := a.LatestSignalsForCodes(ctx, codes, asOf)
	if err != nil {
		return nil, err
	}

	pcts, err := a.NextDayReturns(ctx, IndexPrices, grouped)
	if err != nil {
		return nil, err
	}

	view := &IndexView{
		Rows:           make([]IndexRow, 0, len(grouped)),
		AvailableDates: dates,
	}
	for _, g := range grouped {
		name, ok := IndexNames[g.Code]
		if !ok {
			name = g.Code
		}
		view.Rows = append(view.Rows, IndexRow{
			Code:          g.Code,
			Name:          name,
			ReferenceDate: g.RefDate,
			NextDayPct:    pcts[g.Code],
			Signals:       g.Signals,
		})
	}

	return view, nil
}

// DistinctDates drops zero and duplicate dates, keeping first-seen order
func DistinctDates(dates []contracts.Date) []contracts.Date {
	seen := make(map[contracts.Date]struct{}, len(dates))
	out := make([]contracts.Date, 0, len(dates))
	for _, d := range dates {
		if d.IsZero() {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

func chunkCodes(codes []string, size int) [][]string {
	var out [][]string
	for start := 0; start < len(codes); start += size {
		end := start + size
		if end > len(codes) {
			end = len(codes)
		}
		out = append(out, codes[start:end])
	}
	return out
}
