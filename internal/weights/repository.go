package weights

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/stex/backend/pkg/database"
)

// ConfigKey is the app_config key holding the weight blob
const ConfigKey = "score_weights"

// Store persists the raw weight blob
type Store interface {
	// LoadRaw returns the stored blob, or "" when nothing is stored
	LoadRaw(ctx context.Context) (string, error)
	SaveRaw(ctx context.Context, blob string) error
}

// Repository stores the blob in stex.app_config
// ⭐ SSOT: 가중치 저장/조회는 여기서만
type Repository struct {
	db database.Querier
}

// NewRepository creates a new weight repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// LoadRaw implements Store
func (r *Repository) LoadRaw(ctx context.Context) (string, error) {
	query := `SELECT value FROM stex.app_config WHERE key = $1`

	var value *string
	err := r.db.QueryRow(ctx, query, ConfigKey).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load score weights: %w", err)
	}
	if value == nil {
		return "", nil
	}
	return *value, nil
}

// SaveRaw implements Store
func (r *Repository) SaveRaw(ctx context.Context, blob string) error {
	query := `
		INSERT INTO stex.app_config (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`

	if _, err := r.db.Exec(ctx, query, ConfigKey, blob); err != nil {
		return fmt.Errorf("failed to save score weights: %w", err)
	}
	return nil
}
