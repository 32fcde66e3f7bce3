package scoring

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/stex/backend/internal/contracts"
	"github.com/wonny/stex/backend/internal/signals"
	"github.com/wonny/stex/backend/internal/weights"
	"github.com/wonny/stex/backend/pkg/logger"
)

// WeightLoader supplies the effective weight configuration
type WeightLoader interface {
	Load(ctx context.Context) (weights.Config, error)
}

// WatchlistSource lists the watchlisted codes, most recently updated first
type WatchlistSource interface {
	List(ctx context.Context) ([]contracts.WatchEntry, error)
}

// Service scores the watchlist
type Service struct {
	weights   WeightLoader
	watchlist WatchlistSource
	signals   *signals.Accessor
	log       *logger.Logger
}

// NewService creates a new scoring service
func NewService(w WeightLoader, wl WatchlistSource, acc *signals.Accessor, log *logger.Logger) *Service {
	return &Service{
		weights:   w,
		watchlist: wl,
		signals:   acc,
		log:       log.Component("scoring"),
	}
}

// ScoreWatchlist ranks every watchlisted code.
// A zero refDate scores each code on its own latest signal date.
func (s *Service) ScoreWatchlist(ctx context.Context, refDate contracts.Date) (*contracts.Ranking, error) {
	batch, err := s.NewBatch(ctx)
	if err != nil {
		return nil, err
	}

	var (
		rows  []contracts.CompositeScoreResult
		dates []contracts.Date
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dates, err = batch.AvailableDates(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		rows, err = batch.Score(gctx, refDate)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &contracts.Ranking{Rows: rows, AvailableDates: dates}, nil
}

// Batch holds one weight snapshot and watchlist for repeated scoring.
// Market scores are memoized per date.
type Batch struct {
	svc     *Service
	scorer  *Scorer
	hash    string
	entries []contracts.WatchEntry
	codes   []string

	mu     sync.Mutex
	market map[contracts.Date]contracts.DirectionCounts
}

// NewBatch loads the weight config and watchlist once
func (s *Service) NewBatch(ctx context.Context) (*Batch, error) {
	cfg, err := s.weights.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load score weights: %w", err)
	}

	hash, err := weights.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to hash score weights: %w", err)
	}

	entries, err := s.watchlist.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load watchlist: %w", err)
	}

	codes := make([]string, len(entries))
	for i, e := range entries {
		codes[i] = e.Code
	}

	return &Batch{
		svc:     s,
		scorer:  NewScorer(cfg),
		hash:    hash,
		entries: entries,
		codes:   codes,
		market:  make(map[contracts.Date]contracts.DirectionCounts),
	}, nil
}

// ConfigHash identifies the weight snapshot
func (b *Batch) ConfigHash() string {
	return b.hash
}

// Codes returns the watchlisted codes
func (b *Batch) Codes() []string {
	return b.codes
}

// AvailableDates lists the watchlist's signal dates, newest first
func (b *Batch) AvailableDates(ctx context.Context) ([]contracts.Date, error) {
	return b.svc.signals.AvailableDates(ctx, b.codes)
}

// Score scores the watchlist on date (zero date = each code's latest) and ranks it
func (b *Batch) Score(ctx context.Context, date contracts.Date) ([]contracts.CompositeScoreResult, error) {
	if len(b.codes) == 0 {
		return []contracts.CompositeScoreResult{}, nil
	}

	grouped, err := b.svc.signals.LatestSignalsForCodes(ctx, b.codes, date)
	if err != nil {
		return nil, err
	}

	var (
		counts map[contracts.Date]contracts.DirectionCounts
		pcts   map[string]*float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = b.marketCounts(gctx, grouped)
		return err
	})
	g.Go(func() error {
		var err error
		pcts, err = b.svc.signals.NextDayReturns(gctx, signals.StockPrices, grouped)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := make([]contracts.CompositeScoreResult, 0, len(grouped))
	for i, cs := range grouped {
		name := b.entries[i].Name
		if name == "" {
			name = "-"
		}
		rows = append(rows, b.scorer.Score(cs, name, counts[cs.RefDate], pcts[cs.Code]))
	}

	Rank(rows)

	b.svc.log.WithFields(map[string]interface{}{
		"date":  date.String(),
		"codes": len(rows),
	}).Debug("Watchlist scored")

	return rows, nil
}

// marketCounts returns index direction counts for the dates in grouped, fetching only unseen dates
func (b *Batch) marketCounts(ctx context.Context, grouped []contracts.CodeSignals) (map[contracts.Date]contracts.DirectionCounts, error) {
	dates := make([]contracts.Date, 0, 1)
	for _, cs := range grouped {
		dates = append(dates, cs.RefDate)
	}
	dates = signals.DistinctDates(dates)

	b.mu.Lock()
	missing := make([]contracts.Date, 0, len(dates))
	for _, d := range dates {
		if _, ok := b.market[d]; !ok {
			missing = append(missing, d)
		}
	}
	b.mu.Unlock()

	if len(missing) > 0 {
		got, err := b.svc.signals.IndexCountsForDates(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("failed to load index signals: %w", err)
		}
		b.mu.Lock()
		for d, c := range got {
			b.market[d] = c
		}
		b.mu.Unlock()
	}

	out := make(map[contracts.Date]contracts.DirectionCounts, len(dates))
	b.mu.Lock()
	for _, d := range dates {
		out[d] = b.market[d]
	}
	b.mu.Unlock()
	return out, nil
}
