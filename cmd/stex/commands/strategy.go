package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/stex/backend/internal/contracts"
	"github.com/wonny/stex/backend/internal/strategy"
)

// strategyCmd represents the strategy command
var strategyCmd = &cobra.Command{
	Use:   "strategy [key[,key...]]",
	Short: "전략 종목 선별",
	Long: `규칙 기반 전략으로 종목을 선별합니다.

키 하나면 단일 전략, 콤마로 여러 개를 주면 --combine (and|or) 로
결과 집합을 교집합/합집합합니다. 인자가 없으면 전략 목록을 출력합니다.

Strategies:
  growth, tech_competition, classic_pattern, trend_following,
  low_vol_breakout, all_combined

Example:
  go run ./cmd/stex strategy
  go run ./cmd/stex strategy growth --limit 50
  go run ./cmd/stex strategy growth,trend_following --combine and`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStrategy,
}

var (
	strategyCombine string
	strategyLimit   int
)

func init() {
	rootCmd.AddCommand(strategyCmd)

	strategyCmd.Flags().StringVar(&strategyCombine, "combine", "or", "여러 전략 결합 방식 (and|or)")
	strategyCmd.Flags().IntVar(&strategyLimit, "limit", 0, "최대 종목 수 (0 = 상한)")
}

func runStrategy(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return output(strategy.Kinds, func(w io.Writer) {
			printHeader(w, "Strategies")
			for _, k := range strategy.Kinds {
				fmt.Fprintf(w, "  %-18s %s\n", k, k.Name())
			}
		})
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()

	if !strings.Contains(args[0], ",") {
		result, err := a.selector.Run(ctx, args[0], strategyLimit)
		if err != nil {
			return err
		}
		return output(result, func(w io.Writer) {
			printHeader(w, result.StrategyName,
				[2]string{"Strategy", string(result.Strategy)},
				[2]string{"Stocks", fmt.Sprint(len(result.List))},
			)
			printStockList(w, result.List)
		})
	}

	result, err := a.selector.RunCombination(ctx, args[0], strategyCombine, strategyLimit)
	if err != nil {
		return err
	}
	return output(result, func(w io.Writer) {
		printHeader(w, "Strategy Combination",
			[2]string{"Strategies", strings.Join(result.Strategies, ", ")},
			[2]string{"Combine", string(result.Combine)},
			[2]string{"Stocks", fmt.Sprint(len(result.List))},
		)
		printStockList(w, result.List)
	})
}

func printStockList(w io.Writer, list []contracts.StockMeta) {
	fmt.Fprintf(w, "  %-12s %-14s %-10s %10s %8s %8s\n", "Code", "Name", "Market", "Close", "PE", "PB")
	for _, m := range list {
		fmt.Fprintf(w, "  %-12s %-14s %-10s %10s %8s %8s\n",
			m.Code, m.Name, fmtStr(m.Market), fmtNum(m.LatestClose), fmtNum(m.PE), fmtNum(m.PB))
	}
}
