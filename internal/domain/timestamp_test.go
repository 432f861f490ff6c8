package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampScan(t *testing.T) {
	want := time.Date(2024, 1, 20, 23, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		value interface{}
	}{
		{"datetime text", "2024-01-20 23:00:00"},
		{"bytes", []byte("2024-01-20 23:00:00")},
		{"zone suffix", "2024-01-20 23:00:00+00:00"},
		{"time with fraction", want.Add(512 * time.Millisecond)},
		{"other location", want.In(time.FixedZone("CET", 3600))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			require.NoError(t, ts.Scan(tt.value))
			assert.True(t, want.Equal(ts.Time), ts.Time.String())
			assert.Equal(t, "2024-01-20 23:00:00", ts.Text())
		})
	}

	var ts Timestamp
	require.NoError(t, ts.Scan(nil))
	assert.True(t, ts.IsZero())
	assert.Error(t, ts.Scan(42))
	assert.Error(t, ts.Scan("yesterday-ish"))
}

func TestNewTimestampTruncates(t *testing.T) {
	ts := NewTimestamp(time.Date(2024, 1, 20, 23, 0, 0, 999, time.UTC))
	assert.Equal(t, 0, ts.Nanosecond())

	v, err := ts.Value()
	require.NoError(t, err)
	assert.Equal(t, ts.Time, v)
}
