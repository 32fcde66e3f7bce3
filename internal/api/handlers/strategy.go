package handlers

import (
	"context"
	"net/http"

	"github.com/wonny/stex/backend/internal/strategy"
	"github.com/wonny/stex/backend/pkg/logger"
)

// StrategyRunner evaluates strategies and joins metadata
type StrategyRunner interface {
	Run(ctx context.Context, key string, limit int) (*strategy.Result, error)
	RunCombination(ctx context.Context, csv, mode string, limit int) (*strategy.CombinationResult, error)
}

// StrategyHandler serves rule-based stock screens
// ⭐ SSOT: 전략 선별 API 핸들러는 이 구조체에서만
type StrategyHandler struct {
	runner StrategyRunner
	logger *logger.Logger
}

// NewStrategyHandler creates a new strategy handler
func NewStrategyHandler(runner StrategyRunner, log *logger.Logger) *StrategyHandler {
	return &StrategyHandler{
		runner: runner,
		logger: log.Component("strategy-api"),
	}
}

// GetStrategy runs one strategy
// GET /api/selection/strategy?strategy=key&limit=N
func (h *StrategyHandler) GetStrategy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := q.Get("strategy")
	if key == "" {
		respondError(w, http.StatusBadRequest, "strategy is required")
		return
	}

	result, err := h.runner.Run(r.Context(), key, lenientInt(q.Get("limit"), 0))
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GetStrategies runs an AND/OR combination
// GET /api/selection/strategies?strategies=a,b&combine=and|or&limit=N
func (h *StrategyHandler) GetStrategies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	result, err := h.runner.RunCombination(r.Context(), q.Get("strategies"), q.Get("combine"), lenientInt(q.Get("limit"), 0))
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
