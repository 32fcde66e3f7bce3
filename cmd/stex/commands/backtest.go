package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "종합점수 적중률 백테스트",
	Long: `최근 N개 시그널 날짜에 대해 종합점수 부호와 다음 거래일 등락 부호가
일치하는 비율(적중률)을 계산합니다.

Example:
  go run ./cmd/stex backtest
  go run ./cmd/stex backtest --window 5`,
	RunE: runBacktest,
}

var backtestWindow int

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().IntVar(&backtestWindow, "window", 20, "백테스트 날짜 수")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.backtest.Run(cmd.Context(), backtestWindow)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	return output(result, func(w io.Writer) {
		printHeader(w, "Composite Score Backtest",
			[2]string{"Window", fmt.Sprintf("%d days", result.WindowDays)},
			[2]string{"Samples", fmt.Sprint(result.TotalSampleCount)},
			[2]string{"Hits", fmt.Sprint(result.TotalHitCount)},
			[2]string{"Hit rate", fmtPct(result.OverallHitRate)},
		)
		fmt.Fprintf(w, "  %-10s %8s %8s %8s\n", "Date", "Samples", "Hits", "Rate")
		for _, st := range result.PerDateStats {
			fmt.Fprintf(w, "  %-10s %8d %8d %8s\n", st.Date.String(), st.SampleCount, st.HitCount, fmtPct(st.HitRate))
		}
	})
}
