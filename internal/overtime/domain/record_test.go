package overtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMinutesOver(t *testing.T) {
	require.Equal(t, 3, MinutesOver(-125_000))
	require.Equal(t, 1, MinutesOver(-1))
	require.Equal(t, 2, MinutesOver(-120_000))
	require.Equal(t, 0, MinutesOver(0))
	require.Equal(t, 0, MinutesOver(90_000))
}

func TestPeriodForRollsAtDayStart(t *testing.T) {
	loc := time.FixedZone("venue", 3*3600)
	late := time.Date(2026, 3, 2, 2, 30, 0, 0, loc)
	p := PeriodFor(late, 6, loc)
	require.Equal(t, "20260301", p.Key)
	require.Equal(t, time.Date(2026, 3, 1, 6, 0, 0, 0, loc), p.Start)
	require.Equal(t, time.Date(2026, 3, 2, 6, 0, 0, 0, loc), p.End)

	morning := time.Date(2026, 3, 2, 6, 0, 0, 0, loc)
	require.Equal(t, "20260302", PeriodFor(morning, 6, loc).Key)

	parsed, err := ParsePeriod("20260301", 6, loc)
	require.NoError(t, err)
	require.Equal(t, p, parsed)

	_, err = ParsePeriod("2026-03-01", 6, loc)
	require.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestSummarize(t *testing.T) {
	records := []Record{
		{Key: "s1", StationID: "t2", SessionID: "s1", OvertimeMinutes: 3},
		{Key: "s2/extend/1", StationID: "t1", SessionID: "s2", OvertimeMinutes: 4},
		{Key: "s2", StationID: "t1", SessionID: "s2", OvertimeMinutes: 1},
	}
	summary := Summarize("20260301", records)
	require.Equal(t, 8, summary.TotalMinutes)
	require.Len(t, summary.Stations, 2)
	require.Equal(t, StationTotal{StationID: "t1", Minutes: 5, Sessions: 1}, summary.Stations[0])
	require.Equal(t, "t2", summary.Stations[1].StationID)
}
