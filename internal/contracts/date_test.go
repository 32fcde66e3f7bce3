package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-01-05T00:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, Date("2026-01-05"), d)

	_, err = ParseDate("2026-13-05")
	assert.Error(t, err)

	_, err = ParseDate("yesterday")
	assert.Error(t, err)
}

func TestDate_JSON(t *testing.T) {
	type wrapper struct {
		D Date `json:"d"`
	}

	out, err := json.Marshal(wrapper{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":null}`, string(out))

	out, err = json.Marshal(wrapper{D: "2026-01-05"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"d":"2026-01-05"}`, string(out))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"d":"2026-02-03"}`), &w))
	assert.Equal(t, Date("2026-02-03"), w.D)

	require.NoError(t, json.Unmarshal([]byte(`{"d":null}`), &w))
	assert.True(t, w.D.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"d":"02/03/2026"}`), &w))
}

func TestDate_Arithmetic(t *testing.T) {
	d := Date("2026-03-01")
	assert.Equal(t, Date("2026-02-28"), d.AddDays(-1))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), d.Time())
	assert.Equal(t, Date("2026-03-01"), DateOf(d.Time()))
	assert.True(t, Date("2025-12-31") < d)
}

func TestParseDirection(t *testing.T) {
	assert.Equal(t, DirectionBullish, ParseDirection("看涨"))
	assert.Equal(t, DirectionBearish, ParseDirection(" 看跌 "))
	assert.Equal(t, DirectionNeutral, ParseDirection("中性"))
	assert.Equal(t, DirectionNone, ParseDirection("无信号"))
	assert.Equal(t, DirectionNone, ParseDirection("-"))
	assert.Equal(t, DirectionNone, ParseDirection(""))
}

func TestDirectionalSignals(t *testing.T) {
	types := DirectionalSignals()
	assert.Len(t, types, len(SignalCatalogue)-1)
	assert.NotContains(t, types, SignalTurnover)
	assert.Equal(t, SignalVolumeMA20, types[0])
}
