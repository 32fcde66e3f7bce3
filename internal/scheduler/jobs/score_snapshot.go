package jobs

import (
	"context"
	"errors"

	"github.com/wonny/stex/backend/internal/contracts"
	"github.com/wonny/stex/backend/internal/scoring"
	"github.com/wonny/stex/backend/pkg/logger"
)

// Snapshotter scores the watchlist and persists the ranking
type Snapshotter interface {
	TakeSnapshot(ctx context.Context, store scoring.SnapshotStore, date contracts.Date) (*scoring.Snapshot, error)
}

// ScoreSnapshotJob stores the ranked watchlist of the newest signal date
// Schedule: weekdays 18:00, after the signal batch lands
type ScoreSnapshotJob struct {
	scorer   Snapshotter
	store    scoring.SnapshotStore
	schedule string
	logger   *logger.Logger
}

// NewScoreSnapshotJob creates a new snapshot job
func NewScoreSnapshotJob(scorer Snapshotter, store scoring.SnapshotStore, schedule string, log *logger.Logger) *ScoreSnapshotJob {
	return &ScoreSnapshotJob{
		scorer:   scorer,
		store:    store,
		schedule: schedule,
		logger:   log.Component("job.score_snapshot"),
	}
}

// Name returns the job name
func (j *ScoreSnapshotJob) Name() string {
	return "score_snapshot"
}

// Schedule returns the cron schedule
func (j *ScoreSnapshotJob) Schedule() string {
	return j.schedule
}

// Run takes the snapshot. An empty watchlist is not a failure.
func (j *ScoreSnapshotJob) Run(ctx context.Context) error {
	snap, err := j.scorer.TakeSnapshot(ctx, j.store, "")
	if errors.Is(err, scoring.ErrNoSignalDates) {
		j.logger.Info("No signal dates yet, skipping snapshot")
		return nil
	}
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"date":        snap.RefDate.String(),
		"snapshot_id": snap.ID,
		"config_hash": snap.ConfigHash,
		"rows":        len(snap.Rows),
	}).Info("Score snapshot job finished")

	return nil
}
