package timeseries

import (
	"sort"
	"time"
)

// Interval is a half-open time range [Start, End). It represents either a
// period of validity (wear time) or invalidity (charging, missing files,
// sleep) depending on where it is used.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the interval has positive duration.
func (iv Interval) Valid() bool {
	return iv.End.After(iv.Start)
}

// Contains reports whether t falls inside [Start, End).
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// Clip bounds the interval to the given outer interval. The zero Interval
// is returned when they do not overlap.
func (iv Interval) Clip(outer Interval) Interval {
	start, end := iv.Start, iv.End
	if start.Before(outer.Start) {
		start = outer.Start
	}
	if end.After(outer.End) {
		end = outer.End
	}
	if !end.After(start) {
		return Interval{}
	}
	return Interval{Start: start, End: end}
}

// InAnyInterval reports whether t falls strictly inside any of the given
// intervals, excluding both boundaries. Matches the sleep-window test of
// the non-wear filter, which protects a window only when its start is
// strictly between bed-in and bed-out.
func InAnyInterval(t time.Time, intervals []Interval) bool {
	for _, iv := range intervals {
		if t.After(iv.Start) && t.Before(iv.End) {
			return true
		}
	}
	return false
}

// MergeAdjacent sorts intervals by start and merges any pair whose gap is at
// most maxGap into one interval.
func MergeAdjacent(intervals []Interval, maxGap time.Duration) []Interval {
	if len(intervals) == 0 {
		return nil
	}
	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	out := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &out[len(out)-1]
		if !iv.Start.After(last.End.Add(maxGap)) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}
