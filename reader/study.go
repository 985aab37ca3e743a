package reader

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wearlab/circadian/timeseries"
)

// StudyPeriod bounds one participant's valid analysis window and declares
// the participant-specific temperature export format.
type StudyPeriod struct {
	ID         int
	Interval   timeseries.Interval
	TempFormat TempFormat
}

// Study-period timestamps use day-first two-digit years, with a four-digit
// fallback seen in later enrollment batches.
var studyLayouts = []string{"02.01.06 15:04", "02.01.2006 15:04"}

func parseStudyTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range studyLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("parse study time %q: %w", s, lastErr)
}

// StudyPeriods reads the per-participant study period table. Missing or
// malformed Start/End values are an error: the rest of the pipeline cannot
// bound any interval without them.
func StudyPeriods(path string) (map[int]StudyPeriod, error) {
	rows, idx, err := readTable(path)
	if err != nil {
		return nil, err
	}
	for _, name := range []string{"ID", "Start", "End"} {
		if _, ok := idx[name]; !ok {
			return nil, fmt.Errorf("%s: missing %s column", path, name)
		}
	}
	idCol, startCol, endCol := idx["ID"], idx["Start"], idx["End"]
	delimCol, formatCol := col(idx, "Delimiter"), col(idx, "Timeformat")

	out := make(map[int]StudyPeriod, len(rows))
	for _, row := range rows {
		if idCol >= len(row) {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(row[idCol]))
		if err != nil {
			continue
		}
		start, err := parseStudyTime(row[startCol])
		if err != nil {
			return nil, fmt.Errorf("participant %d: %w", id, err)
		}
		end, err := parseStudyTime(row[endCol])
		if err != nil {
			return nil, fmt.Errorf("participant %d: %w", id, err)
		}
		sp := StudyPeriod{
			ID:         id,
			Interval:   timeseries.Interval{Start: start, End: end},
			TempFormat: TempFormat{Delimiter: ',', TimeLayout: 1},
		}
		if delimCol >= 0 && delimCol < len(row) {
			if d := strings.TrimSpace(row[delimCol]); d != "" {
				sp.TempFormat.Delimiter = rune(d[0])
			}
		}
		if v, ok := floatField(row, formatCol); ok {
			sp.TempFormat.TimeLayout = int(v)
		}
		out[id] = sp
	}
	return out, nil
}

// SleepIntervals reads the per-night bed times. Values without a clock
// component are taken as midnight.
func SleepIntervals(path string) ([]timeseries.Interval, error) {
	rows, idx, err := readTable(path)
	if err != nil {
		return nil, err
	}
	inCol, ok := idx["in_bed_time"]
	if !ok {
		return nil, fmt.Errorf("%s: missing in_bed_time column", path)
	}
	outCol, ok := idx["out_bed_time"]
	if !ok {
		return nil, fmt.Errorf("%s: missing out_bed_time column", path)
	}

	out := make([]timeseries.Interval, 0, len(rows))
	for _, row := range rows {
		if inCol >= len(row) || outCol >= len(row) {
			continue
		}
		start, err := parseSleepTime(row[inCol])
		if err != nil {
			continue
		}
		end, err := parseSleepTime(row[outCol])
		if err != nil {
			continue
		}
		iv := timeseries.Interval{Start: start, End: end}
		if iv.Valid() {
			out = append(out, iv)
		}
	}
	return out, nil
}

func parseSleepTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", s+" 00:00:00")
}
