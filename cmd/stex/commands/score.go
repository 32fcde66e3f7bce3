package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wonny/stex/backend/internal/contracts"
)

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "관심종목 종합점수 랭킹",
	Long: `관심종목의 종합점수(composite score)를 계산해 내림차순으로 출력합니다.

--date 를 주면 모든 종목을 그 날짜 기준으로 계산하고,
없으면 종목별 최신 시그널 날짜를 사용합니다.
--snapshot 은 결과를 stex.score_snapshot 에 저장합니다.

Example:
  go run ./cmd/stex score
  go run ./cmd/stex score --date 2024-03-01 --snapshot`,
	RunE: runScore,
}

var (
	scoreDate     string
	scoreSnapshot bool
)

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVar(&scoreDate, "date", "", "기준일 (YYYY-MM-DD)")
	scoreCmd.Flags().BoolVar(&scoreSnapshot, "snapshot", false, "결과를 스냅샷으로 저장")
}

func runScore(cmd *cobra.Command, args []string) error {
	var date contracts.Date
	if scoreDate != "" {
		d, err := contracts.ParseDate(scoreDate)
		if err != nil {
			return err
		}
		date = d
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()

	if scoreSnapshot {
		snap, err := a.scoring.TakeSnapshot(ctx, a.snapshots, date)
		if err != nil {
			return fmt.Errorf("take snapshot: %w", err)
		}
		return output(snap, func(w io.Writer) {
			printHeader(w, "Score Snapshot",
				[2]string{"ID", snap.ID},
				[2]string{"Date", snap.RefDate.String()},
				[2]string{"Config", shortHash(snap.ConfigHash)},
			)
			printRanking(w, snap.Rows)
		})
	}

	ranking, err := a.scoring.ScoreWatchlist(ctx, date)
	if err != nil {
		return fmt.Errorf("score watchlist: %w", err)
	}

	return output(ranking, func(w io.Writer) {
		latest := "-"
		if len(ranking.AvailableDates) > 0 {
			latest = ranking.AvailableDates[0].String()
		}
		printHeader(w, "Watchlist Composite Scores",
			[2]string{"Stocks", fmt.Sprint(len(ranking.Rows))},
			[2]string{"Latest", latest},
		)
		printRanking(w, ranking.Rows)
	})
}

func printRanking(w io.Writer, rows []contracts.CompositeScoreResult) {
	fmt.Fprintf(w, "  %-4s %-12s %-12s %-10s %8s %8s %8s\n", "#", "Code", "Name", "Date", "Market", "Score", "Next%")
	for i, r := range rows {
		fmt.Fprintf(w, "  %-4d %-12s %-12s %-10s %8.2f %8s %8s\n",
			i+1, r.Code, r.Name, r.ReferenceDate.String(), r.MarketScore,
			fmtNum(r.CompositeScore), fmtNum(r.NextDayPct))
	}
}
