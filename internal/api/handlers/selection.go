package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/stex/backend/internal/contracts"
	"github.com/wonny/stex/backend/internal/scoring"
	"github.com/wonny/stex/backend/internal/signals"
	"github.com/wonny/stex/backend/pkg/logger"
)

// DefaultBacktestWindow is used when the window parameter is omitted
const DefaultBacktestWindow = 20

// WatchlistScorer ranks the watchlist
type WatchlistScorer interface {
	ScoreWatchlist(ctx context.Context, refDate contracts.Date) (*contracts.Ranking, error)
}

// IndexSignalSource provides the tracked index table
type IndexSignalSource interface {
	IndexSignals(ctx context.Context, asOf contracts.Date) (*signals.IndexView, error)
}

// BacktestRunner runs hit-rate backtests
type BacktestRunner interface {
	Run(ctx context.Context, windowDays int) (*contracts.BacktestResult, error)
}

// SnapshotLoader reads stored rankings
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, date contracts.Date) (*scoring.Snapshot, error)
}

// SelectionHandler serves the composite score views
// ⭐ SSOT: 시그널 점수 API 핸들러는 이 구조체에서만
type SelectionHandler struct {
	scorer    WatchlistScorer
	indices   IndexSignalSource
	backtest  BacktestRunner
	snapshots SnapshotLoader
	logger    *logger.Logger
}

// NewSelectionHandler creates a new selection handler
func NewSelectionHandler(scorer WatchlistScorer, indices IndexSignalSource, bt BacktestRunner, snapshots SnapshotLoader, log *logger.Logger) *SelectionHandler {
	return &SelectionHandler{
		scorer:    scorer,
		indices:   indices,
		backtest:  bt,
		snapshots: snapshots,
		logger:    log.Component("selection-api"),
	}
}

// GetWatchlistSignals returns the ranked watchlist
// GET /api/selection/watchlist-signals?ref_date=YYYY-MM-DD
func (h *SelectionHandler) GetWatchlistSignals(w http.ResponseWriter, r *http.Request) {
	refDate, err := optionalDate(r.URL.Query().Get("ref_date"))
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	ranking, err := h.scorer.ScoreWatchlist(r.Context(), refDate)
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, ranking)
}

// GetIndexSignals returns the signal table of the tracked indices
// GET /api/selection/index-signals?ref_date=YYYY-MM-DD
func (h *SelectionHandler) GetIndexSignals(w http.ResponseWriter, r *http.Request) {
	refDate, err := optionalDate(r.URL.Query().Get("ref_date"))
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	view, err := h.indices.IndexSignals(r.Context(), refDate)
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, view)
}

// GetBacktest returns the hit-rate report
// GET /api/selection/backtest?window=N
func (h *SelectionHandler) GetBacktest(w http.ResponseWriter, r *http.Request) {
	window, err := optionalInt(r.URL.Query().Get("window"), DefaultBacktestWindow)
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	result, err := h.backtest.Run(r.Context(), window)
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetSnapshot returns the stored ranking of a date
// GET /api/selection/score-snapshots/{date}
func (h *SelectionHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["date"]
	if raw == "" {
		respondError(w, http.StatusBadRequest, "date is required")
		return
	}

	date, err := optionalDate(raw)
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	snap, err := h.snapshots.LoadSnapshot(r.Context(), date)
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, snap)
}
