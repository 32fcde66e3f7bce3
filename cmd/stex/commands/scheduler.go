package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/stex/backend/internal/scheduler"
	"github.com/wonny/stex/backend/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/stex scheduler start
  go run ./cmd/stex scheduler run score_snapshot`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- score_snapshot: 평일 18:00 (SCHEDULE_SCORE_SNAPSHOT)
- backtest_report: 평일 18:30 (SCHEDULE_BACKTEST_REPORT)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	fmt.Println("✅ Scheduler started")
	for _, jobName := range sched.Jobs() {
		fmt.Printf("  - %s\n", jobName)
	}
	fmt.Println("Press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Println("Registered jobs:")
	for name, st := range sched.Stats() {
		fmt.Printf("  - %-16s %s\n", name, st.Schedule)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	res, err := sched.RunNow(args[0])
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}

	if !res.Success {
		return fmt.Errorf("job %s failed after %d attempts: %s", res.JobName, res.Attempts, res.Error)
	}

	fmt.Printf("✅ Job %s completed in %s (run %s)\n", res.JobName, res.Duration, res.RunID)
	return nil
}

func initScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log)

	toAdd := []scheduler.Job{
		jobs.NewScoreSnapshotJob(a.scoring, a.snapshots, a.cfg.Scheduler.ScoreSnapshot, a.log),
		jobs.NewBacktestReportJob(a.backtest, a.cfg.Scheduler.BacktestWindow, a.cfg.Scheduler.BacktestReport, a.log),
	}
	for _, job := range toAdd {
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}

	return sched, nil
}
