package watchlist

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCode(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"600000.SH", "600000.SH", false},
		{" 000001.sz ", "000001.SZ", false},
		{"", "", true},
		{"   ", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeCode(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrEmptyCode)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestRepository_RejectsBlankCode(t *testing.T) {
	r := NewRepository(nil)
	assert.ErrorIs(t, r.Add(context.Background(), " ", true), ErrEmptyCode)
	assert.ErrorIs(t, r.Remove(context.Background(), ""), ErrEmptyCode)
}

func TestRepository_Integration(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	r := NewRepository(pool)
	const code = "TEST01.SH"

	require.NoError(t, r.Add(ctx, code, true))
	defer r.Remove(ctx, code)

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, list)
	assert.Equal(t, code, list[0].Code)

	require.NoError(t, r.Remove(ctx, code))
	list, err = r.List(ctx)
	require.NoError(t, err)
	for _, e := range list {
		assert.NotEqual(t, code, e.Code)
	}
}
