// Package nonwear removes epochs where one or both devices were off the
// wrist from a merged two-device activity table.
package nonwear

import (
	"math"
	"time"

	"github.com/wearlab/circadian/timeseries"
)

// Window is the span over which simultaneous zero activity on both
// devices counts as non-wear rather than stillness.
const Window = 15 * time.Minute

// AbsTolerance is the absolute count difference below which two epochs
// always agree, whatever their relative spread.
const AbsTolerance = 500.0

// Row is one epoch with activity counts from both devices.
type Row struct {
	Time time.Time
	Test float64
	Ref  float64
}

// Diff is the test-minus-reference difference for the row.
func (r Row) Diff() float64 { return r.Test - r.Ref }

// Average is the two-device mean for the row.
func (r Row) Average() float64 { return (r.Test + r.Ref) / 2 }

// FilterBothZero drops every window in which both devices report zero
// activity, unless the window starts inside a sleep interval. Sleep is
// exempt because zero counts in bed are expected rather than evidence the
// devices were off. The second return lists the start row time of each
// dropped window.
func FilterBothZero(rows []Row, sleep []timeseries.Interval) (kept []Row, dropped []time.Time) {
	if len(rows) == 0 {
		return nil, nil
	}

	first := rows[0].Time
	last := rows[len(rows)-1].Time
	kept = make([]Row, 0, len(rows))

	for ws := first; !ws.After(last.Add(-Window)); ws = ws.Add(Window) {
		window := rowsBetween(rows, ws, ws.Add(Window))
		if timeseries.InAnyInterval(ws, sleep) || len(window) < 2 {
			kept = append(kept, window...)
			continue
		}
		if allZero(window[:len(window)-1]) {
			dropped = append(dropped, window[0].Time)
			continue
		}
		kept = append(kept, window...)
	}
	return kept, dropped
}

// FilterDisagreement keeps rows on which the two devices agree, either
// within twice their running average or within AbsTolerance counts. A
// large one-sided count means only one device registered movement, so the
// other was likely off the wrist.
func FilterDisagreement(rows []Row) []Row {
	kept := make([]Row, 0, len(rows))
	for _, r := range rows {
		d := r.Diff()
		avg := r.Average()
		relative := d < 2*avg && d > -2*avg
		absolute := math.Abs(d) < AbsTolerance
		if relative || absolute {
			kept = append(kept, r)
		}
	}
	return kept
}

// RemovedPct is the share of rows a filter stage removed, as a percentage
// rounded to two decimals. A zero input yields zero.
func RemovedPct(before, after int) float64 {
	if before == 0 {
		return 0
	}
	pct := float64(before-after) / float64(before) * 100
	return math.Round(pct*100) / 100
}

func rowsBetween(rows []Row, start, end time.Time) []Row {
	var out []Row
	for _, r := range rows {
		if !r.Time.Before(start) && r.Time.Before(end) {
			out = append(out, r)
		}
	}
	return out
}

func allZero(rows []Row) bool {
	for _, r := range rows {
		if r.Test != 0 || r.Ref != 0 {
			return false
		}
	}
	return true
}
