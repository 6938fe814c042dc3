package overtime

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

const periodKeyLayout = "20060102"

var (
	ErrEmptyKey      = errors.New("overtime: empty record key")
	ErrDuplicate     = errors.New("overtime: duplicate record")
	ErrInvalidPeriod = errors.New("overtime: invalid period key")
)

// Source tells which workflow produced a record.
type Source string

const (
	SourceCloseout Source = "closeout"
	SourceExtend   Source = "extend"
)

// Record is one overtime entry in the daily statistics.
type Record struct {
	Key             string    `json:"key"`
	StationID       string    `json:"station_id"`
	StationName     string    `json:"station_name"`
	SessionID       string    `json:"session_id,omitempty"`
	OvertimeMinutes int       `json:"overtime_minutes"`
	Source          Source    `json:"source"`
	Timestamp       time.Time `json:"timestamp"`
	PeriodKey       string    `json:"period_key"`
}

// Validate checks record invariants.
func (r Record) Validate() error {
	if r.Key == "" {
		return ErrEmptyKey
	}
	if r.StationID == "" {
		return errors.New("overtime: empty station id")
	}
	if r.OvertimeMinutes <= 0 {
		return errors.New("overtime: non-positive minutes")
	}
	if r.PeriodKey == "" {
		return ErrInvalidPeriod
	}
	return nil
}

// MinutesOver returns ceil(-remainingMs / 60000), or 0 when not overdue.
func MinutesOver(remainingMs int64) int {
	if remainingMs >= 0 {
		return 0
	}
	over := -remainingMs
	return int((over + 60_000 - 1) / 60_000)
}

// Period is a business day that starts at a fixed local hour.
type Period struct {
	Key   string    `json:"key"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PeriodFor returns the business day containing t. A day starting at 06:00
// puts 02:00 on the 2nd into the period keyed by the 1st.
func PeriodFor(t time.Time, dayStartHour int, loc *time.Location) Period {
	if loc == nil {
		loc = time.Local
	}
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), dayStartHour, 0, 0, 0, loc)
	if local.Before(start) {
		start = start.AddDate(0, 0, -1)
	}
	return Period{
		Key:   start.Format(periodKeyLayout),
		Start: start,
		End:   start.AddDate(0, 0, 1),
	}
}

// ParsePeriod resolves a key (YYYYMMDD) to its bounds.
func ParsePeriod(key string, dayStartHour int, loc *time.Location) (Period, error) {
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(periodKeyLayout, key, loc)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, key)
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), dayStartHour, 0, 0, 0, loc)
	return Period{Key: key, Start: start, End: start.AddDate(0, 0, 1)}, nil
}

// StationTotal sums a station's overtime in a period.
type StationTotal struct {
	StationID   string `json:"station_id"`
	StationName string `json:"station_name"`
	Minutes     int    `json:"minutes"`
	Sessions    int    `json:"sessions"`
}

// Summary aggregates a period's records.
type Summary struct {
	PeriodKey    string         `json:"period_key"`
	TotalMinutes int            `json:"total_minutes"`
	Stations     []StationTotal `json:"stations"`
	Records      []Record       `json:"records"`
}

// Summarize totals records per station, ordered by station id.
func Summarize(periodKey string, records []Record) Summary {
	byStation := make(map[string]*StationTotal)
	sessions := make(map[string]map[string]struct{})
	summary := Summary{PeriodKey: periodKey, Records: records}
	for _, rec := range records {
		total := byStation[rec.StationID]
		if total == nil {
			total = &StationTotal{StationID: rec.StationID, StationName: rec.StationName}
			byStation[rec.StationID] = total
			sessions[rec.StationID] = make(map[string]struct{})
		}
		total.Minutes += rec.OvertimeMinutes
		sessionKey := rec.SessionID
		if sessionKey == "" {
			sessionKey = rec.Key
		}
		sessions[rec.StationID][sessionKey] = struct{}{}
		summary.TotalMinutes += rec.OvertimeMinutes
	}
	for id, total := range byStation {
		total.Sessions = len(sessions[id])
		summary.Stations = append(summary.Stations, *total)
	}
	sort.Slice(summary.Stations, func(i, j int) bool {
		return summary.Stations[i].StationID < summary.Stations[j].StationID
	})
	return summary
}
