package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wonny/stex/backend/internal/contracts"
	"github.com/wonny/stex/backend/pkg/database"
)

var (
	// ErrSnapshotNotFound is returned when no snapshot exists for a date
	ErrSnapshotNotFound = errors.New("score snapshot not found")
	// ErrNoSignalDates is returned when the watchlist has no signal rows at all
	ErrNoSignalDates = errors.New("no signal dates available")
)

// Snapshot is a persisted ranking for one reference date
type Snapshot struct {
	ID         string                           `json:"snapshotId"`
	RefDate    contracts.Date                   `json:"referenceDate"`
	ConfigHash string                           `json:"configHash"`
	Rows       []contracts.CompositeScoreResult `json:"rows"`
	CreatedAt  time.Time                        `json:"createdAt"`
}

// SnapshotStore persists snapshots
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, s *Snapshot) error
	LoadSnapshot(ctx context.Context, date contracts.Date) (*Snapshot, error)
}

// SnapshotRepository stores snapshots in stex.score_snapshot
type SnapshotRepository struct {
	db database.Querier
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db database.Querier) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// SaveSnapshot upserts the snapshot of s.RefDate
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, s *Snapshot) error {
	rows, err := json.Marshal(s.Rows)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot rows: %w", err)
	}

	query := `
		INSERT INTO stex.score_snapshot (ref_date, snapshot_id, config_hash, rows, created_at)
		VALUES ($1::date, $2, $3, $4::jsonb, $5)
		ON CONFLICT (ref_date) DO UPDATE SET
			snapshot_id = EXCLUDED.snapshot_id,
			config_hash = EXCLUDED.config_hash,
			rows = EXCLUDED.rows,
			created_at = EXCLUDED.created_at
	`

	_, err = r.db.Exec(ctx, query, string(s.RefDate), s.ID, s.ConfigHash, string(rows), s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save score snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot returns the snapshot of date or ErrSnapshotNotFound
func (r *SnapshotRepository) LoadSnapshot(ctx context.Context, date contracts.Date) (*Snapshot, error) {
	query := `
		SELECT snapshot_id, ref_date::text, config_hash, rows::text, created_at
		FROM stex.score_snapshot
		WHERE ref_date = $1::date
	`

	var (
		s       Snapshot
		refDate string
		rows    string
	)
	err := r.db.QueryRow(ctx, query, string(date)).Scan(&s.ID, &refDate, &s.ConfigHash, &rows, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load score snapshot: %w", err)
	}

	s.RefDate = contracts.Date(refDate)
	if err := json.Unmarshal([]byte(rows), &s.Rows); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot rows: %w", err)
	}
	return &s, nil
}

// TakeSnapshot scores the watchlist on date and persists the ranking.
// A zero date resolves to the newest available signal date.
func (s *Service) TakeSnapshot(ctx context.Context, store SnapshotStore, date contracts.Date) (*Snapshot, error) {
	batch, err := s.NewBatch(ctx)
	if err != nil {
		return nil, err
	}

	if date.IsZero() {
		dates, err := batch.AvailableDates(ctx)
		if err != nil {
			return nil, err
		}
		if len(dates) == 0 {
			return nil, ErrNoSignalDates
		}
		date = dates[0]
	}

	rows, err := batch.Score(ctx, date)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		ID:         uuid.New().String(),
		RefDate:    date,
		ConfigHash: batch.ConfigHash(),
		Rows:       rows,
		CreatedAt:  time.Now().UTC(),
	}

	if err := store.SaveSnapshot(ctx, snap); err != nil {
		return nil, err
	}

	s.log.WithFields(map[string]interface{}{
		"date":        date.String(),
		"snapshot_id": snap.ID,
		"rows":        len(rows),
	}).Info("Score snapshot saved")

	return snap, nil
}
