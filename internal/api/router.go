package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/stex/backend/internal/api/handlers"
	"github.com/wonny/stex/backend/pkg/logger"
)

// Handlers groups every endpoint handler the router mounts
type Handlers struct {
	Selection *handlers.SelectionHandler
	Strategy  *handlers.StrategyHandler
	Watchlist *handlers.WatchlistHandler
	Weights   *handlers.WeightsHandler
}

// NewRouter creates and configures the HTTP router.
// backtestLimit guards the backtest endpoint; nil disables limiting.
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, backtestLimit Limiter, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Selection endpoints
	sel := api.PathPrefix("/selection").Subrouter()
	sel.HandleFunc("/watchlist-signals", h.Selection.GetWatchlistSignals).Methods("GET")
	sel.HandleFunc("/index-signals", h.Selection.GetIndexSignals).Methods("GET")
	sel.HandleFunc("/score-snapshots/{date}", h.Selection.GetSnapshot).Methods("GET")
	sel.Handle("/backtest", rateLimit(backtestLimit, log)(http.HandlerFunc(h.Selection.GetBacktest))).Methods("GET")
	sel.HandleFunc("/strategy", h.Strategy.GetStrategy).Methods("GET")
	sel.HandleFunc("/strategies", h.Strategy.GetStrategies).Methods("GET")
	sel.HandleFunc("/watchlist", h.Watchlist.GetWatchlist).Methods("GET")

	// Watchlist membership
	api.HandleFunc("/stock/{code}/watch", h.Watchlist.Watch).Methods("POST")
	api.HandleFunc("/stock/{code}/watch", h.Watchlist.Unwatch).Methods("DELETE")

	// Weight config
	api.HandleFunc("/config/score-weights", h.Weights.GetWeights).Methods("GET")
	api.HandleFunc("/config/score-weights", h.Weights.PutWeights).Methods("PUT")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "stex-api",
	})
}

// statusRecorder captures the response status for logging
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					json.NewEncoder(w).Encode(map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
