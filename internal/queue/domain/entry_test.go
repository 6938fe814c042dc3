package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEstimateStartTimes(t *testing.T) {
	now := time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC)
	entries := []Entry{{ID: "a", ReservedHours: 1}, {ID: "b", ReservedHours: 2}}

	got := EstimateStartTimes(600_000, entries, now, 180_000)
	require.Len(t, got, 2)
	require.Equal(t, int64(780_000), got[0].EstimatedWaitMs)
	require.Equal(t, int64(4_560_000), got[1].EstimatedWaitMs)
	require.Equal(t, now.Add(780*time.Second), got[0].EstimatedStart)
	require.Equal(t, 1, got[1].Position)
}

func TestEstimateClampsOvertime(t *testing.T) {
	now := time.Unix(0, 0).UTC()
	got := EstimateStartTimes(-90_000, []Entry{{ID: "a", ReservedHours: 1}}, now, DefaultCleanupBufferMs)
	require.Equal(t, DefaultCleanupBufferMs, got[0].EstimatedWaitMs)
	require.Empty(t, EstimateStartTimes(0, nil, now, DefaultCleanupBufferMs))
}
