package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydb/quarry"
)

func TestCastRoundTrip(t *testing.T) {
	tests := []struct {
		cast  string
		value any
	}{
		{CastJSON, map[string]any{"theme": "dark", "size": float64(3)}},
		{CastJSON, []any{float64(1), "two"}},
		{CastBool, true},
		{CastInt, int64(42)},
		{CastFloat, 3.25},
		{CastString, "hello"},
		{CastTime, time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC)},
		{CastMsgpack, map[string]any{"k": "v"}},
	}
	for _, tt := range tests {
		t.Run(tt.cast, func(t *testing.T) {
			stored, err := encodeCast(tt.cast, tt.value)
			require.NoError(t, err)
			back, err := decodeCast(tt.cast, stored)
			require.NoError(t, err)
			assert.Equal(t, tt.value, back)
		})
	}
}

func TestDecodeCastCoercions(t *testing.T) {
	v, err := decodeCast(CastBool, int64(1))
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = decodeCast(CastBool, int64(0))
	require.NoError(t, err)
	assert.Equal(t, false, v)

	v, err = decodeCast(CastInt, "17")
	require.NoError(t, err)
	assert.Equal(t, int64(17), v)

	v, err = decodeCast(CastFloat, int64(2))
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	v, err = decodeCast(CastString, []byte("bytes"))
	require.NoError(t, err)
	assert.Equal(t, "bytes", v)

	v, err = decodeCast(CastTime, "2024-06-01 12:30:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC), v)
}

func TestDecodeCastNil(t *testing.T) {
	v, err := decodeCast(CastJSON, nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestCastErrors(t *testing.T) {
	_, err := decodeCast(CastJSON, "{not json")
	assert.True(t, quarry.IsConfig(err))

	_, err = decodeCast(CastInt, "not a number")
	assert.True(t, quarry.IsConfig(err))

	_, err = decodeCast(CastTime, "yesterday-ish")
	assert.True(t, quarry.IsConfig(err))

	_, err = decodeCast("currency", "1.00")
	assert.True(t, quarry.IsConfig(err))

	_, err = encodeCast("currency", "1.00")
	assert.True(t, quarry.IsConfig(err))
}
