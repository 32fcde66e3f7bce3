package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/stex/backend/internal/contracts"
	"github.com/wonny/stex/backend/internal/watchlist"
	"github.com/wonny/stex/backend/pkg/logger"
)

// WatchlistStore manages watchlist membership
type WatchlistStore interface {
	List(ctx context.Context) ([]contracts.WatchEntry, error)
	Add(ctx context.Context, code string, track bool) error
	Remove(ctx context.Context, code string) error
}

// WatchlistHandler serves watchlist membership
// ⭐ SSOT: 관심종목 API 핸들러는 이 구조체에서만
type WatchlistHandler struct {
	store  WatchlistStore
	logger *logger.Logger
}

// NewWatchlistHandler creates a new watchlist handler
func NewWatchlistHandler(store WatchlistStore, log *logger.Logger) *WatchlistHandler {
	return &WatchlistHandler{
		store:  store,
		logger: log.Component("watchlist-api"),
	}
}

type watchRequest struct {
	Track *bool `json:"track"`
}

// GetWatchlist lists watched codes with company metadata
// GET /api/selection/watchlist
func (h *WatchlistHandler) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.List(r.Context())
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}
	if entries == nil {
		entries = []contracts.WatchEntry{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"list": entries,
	})
}

// Watch adds or updates a code
// POST /api/stock/{code}/watch
func (h *WatchlistHandler) Watch(w http.ResponseWriter, r *http.Request) {
	code, err := watchlist.NormalizeCode(mux.Vars(r)["code"])
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	var req watchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	track := true
	if req.Track != nil {
		track = *req.Track
	}

	if err := h.store.Add(r.Context(), code, track); err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"code":  code,
		"track": track,
	}).Info("Watchlist entry saved")

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"code":  code,
		"track": track,
	})
}

// Unwatch removes a code
// DELETE /api/stock/{code}/watch
func (h *WatchlistHandler) Unwatch(w http.ResponseWriter, r *http.Request) {
	code, err := watchlist.NormalizeCode(mux.Vars(r)["code"])
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	if err := h.store.Remove(r.Context(), code); err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"code":    code,
		"removed": true,
	})
}
