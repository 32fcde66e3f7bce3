package watchlist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wonny/stex/backend/internal/contracts"
	"github.com/wonny/stex/backend/pkg/database"
)

// ErrEmptyCode is returned when a code is blank
var ErrEmptyCode = errors.New("stock code is required")

// Repository manages stex.watchlist
// ⭐ SSOT: 관심종목 저장/조회는 여기서만
type Repository struct {
	db database.Querier
}

// NewRepository creates a new watchlist repository
func NewRepository(db database.Querier) *Repository {
	return &Repository{db: db}
}

// List returns watchlisted codes with company names, most recently updated first
func (r *Repository) List(ctx context.Context) ([]contracts.WatchEntry, error) {
	query := `
		SELECT w.code, COALESCE(w.track, true), COALESCE(c.name, ''), c.market, c.industry, c.sector
		FROM stex.watchlist w
		LEFT JOIN stex.corp c ON c.code = w.code
		ORDER BY w.updated_at DESC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	out := []contracts.WatchEntry{}
	for rows.Next() {
		var e contracts.WatchEntry
		if err := rows.Scan(&e.Code, &e.Track, &e.Name, &e.Market, &e.Industry, &e.Sector); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		out = append(out, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watchlist: %w", err)
	}

	return out, nil
}

// Add inserts code or updates its track flag
func (r *Repository) Add(ctx context.Context, code string, track bool) error {
	code, err := NormalizeCode(code)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO stex.watchlist (code, track) VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET track = $2, updated_at = NOW()
	`

	if _, err := r.db.Exec(ctx, query, code, track); err != nil {
		return fmt.Errorf("failed to add %s to watchlist: %w", code, err)
	}
	return nil
}

// Remove deletes code; removing an absent code is not an error
func (r *Repository) Remove(ctx context.Context, code string) error {
	code, err := NormalizeCode(code)
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM stex.watchlist WHERE code = $1`, code); err != nil {
		return fmt.Errorf("failed to remove %s from watchlist: %w", code, err)
	}
	return nil
}

// NormalizeCode trims and upper-cases the exchange suffix (600000.sh -> 600000.SH)
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", ErrEmptyCode
	}
	return code, nil
}
