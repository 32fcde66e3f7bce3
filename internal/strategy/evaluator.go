package strategy

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/stex/backend/internal/contracts"
	"github.com/wonny/stex/backend/pkg/logger"
)

// Evaluator runs strategy predicates against a Source
type Evaluator struct {
	src Source
	now func() time.Time
	log *logger.Logger
}

// NewEvaluator creates a new evaluator
func NewEvaluator(src Source, log *logger.Logger) *Evaluator {
	return &Evaluator{
		src: src,
		now: time.Now,
		log: log.Component("strategy"),
	}
}

// WithClock overrides the evaluation date source
func (e *Evaluator) WithClock(now func() time.Time) *Evaluator {
	e.now = now
	return e
}

// CodesForStrategy evaluates one strategy as of today
func (e *Evaluator) CodesForStrategy(ctx context.Context, k Kind) (CodeSet, error) {
	s, err := Lookup(k)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	codes, err := s.Evaluate(ctx, e.src, contracts.DateOf(e.now()))
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", k, err)
	}

	e.log.WithFields(map[string]interface{}{
		"strategy": string(k),
		"codes":    len(codes),
		"duration": time.Since(start).String(),
	}).Debug("Strategy evaluated")

	return codes, nil
}

// CodesForCombination evaluates kinds independently and folds them with mode.
// all_combined is rejected as a component.
func (e *Evaluator) CodesForCombination(ctx context.Context, kinds []Kind, mode Mode) (CodeSet, error) {
	if len(kinds) == 0 {
		return nil, ErrNoStrategies
	}
	for _, k := range kinds {
		if !k.Selectable() {
			return nil, fmt.Errorf("%w: %q cannot be combined", ErrUnknownStrategy, k)
		}
	}

	sets := make([]CodeSet, len(kinds))
	g, gctx := errgroup.WithContext(ctx)
	for i, k := range kinds {
		g.Go(func() error {
			s, err := e.CodesForStrategy(gctx, k)
			if err != nil {
				return err
			}
			sets[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Combine(sets, mode), nil
}
