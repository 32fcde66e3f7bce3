package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/stex/backend/internal/api"
	"github.com/wonny/stex/backend/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health
  GET  /api/selection/watchlist-signals?ref_date=YYYY-MM-DD
  GET  /api/selection/index-signals?ref_date=YYYY-MM-DD
  GET  /api/selection/strategy?strategy=key&limit=N
  GET  /api/selection/strategies?strategies=a,b&combine=and|or&limit=N
  GET  /api/selection/backtest?window=N
  GET  /api/selection/score-snapshots/{date}
  GET  /api/selection/watchlist
  POST|DELETE /api/stock/{code}/watch
  GET|PUT     /api/config/score-weights

Example:
  go run ./cmd/stex api
  go run ./cmd/stex api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	router := api.NewRouter(api.Handlers{
		Selection: handlers.NewSelectionHandler(a.scoring, a.signals, a.backtest, a.snapshots, a.log),
		Strategy:  handlers.NewStrategyHandler(a.selector, a.log),
		Watchlist: handlers.NewWatchlistHandler(a.watchlist, a.log),
		Weights:   handlers.NewWeightsHandler(a.weights, a.log),
	}, api.NewBacktestLimiter(a.cfg, a.redis), a.log)

	server := api.New(a.cfg, a.log, router)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("✅ Server running on http://localhost:%s (Ctrl+C to stop)\n", a.cfg.Port)

	if err := server.Run(ctx); err != nil {
		return err
	}

	a.log.Info("Server stopped")
	return nil
}
