package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/wonny/stex/backend/internal/weights"
	"github.com/wonny/stex/backend/pkg/logger"
)

// WeightStore loads and saves the score weights
type WeightStore interface {
	Load(ctx context.Context) (weights.Config, error)
	Save(ctx context.Context, payload any) error
}

// WeightsHandler serves the score weight configuration
type WeightsHandler struct {
	store  WeightStore
	logger *logger.Logger
}

// NewWeightsHandler creates a new weights handler
func NewWeightsHandler(store WeightStore, log *logger.Logger) *WeightsHandler {
	return &WeightsHandler{
		store:  store,
		logger: log.Component("weights-api"),
	}
}

// GetWeights returns the effective (merged) weights
// GET /api/config/score-weights
func (h *WeightsHandler) GetWeights(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.Load(r.Context())
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"weights": cfg,
	})
}

// PutWeights replaces the stored weights
// PUT /api/config/score-weights
func (h *WeightsHandler) PutWeights(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Weights any `json:"weights"`
	}

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.Save(r.Context(), body.Weights); err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
