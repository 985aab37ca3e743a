package circadian

import (
	"math"
	"sort"
	"time"

	"github.com/wearlab/circadian/reader"
)

// Physiological bounds for RR intervals in milliseconds. Values outside
// are sensor artifacts and excluded before windowing.
const (
	MinIBI = 25.0
	MaxIBI = 2000.0
)

// HRVWindowSize is the span one HRV summary covers.
const HRVWindowSize = 10 * time.Minute

// minWindowIntervals is the beat count a window must exceed to be scored.
const minWindowIntervals = 5

// HRVWindow summarises heart rate variability over one window.
type HRVWindow struct {
	Time   time.Time
	MeanRR float64
	SDNN   float64
	RMSSD  float64
	PNN50  float64
}

// HRVWindows filters RR intervals to physiological bounds, groups them
// into fixed windows and scores every window with enough beats.
func HRVWindows(samples []reader.HRSample) []HRVWindow {
	groups := make(map[time.Time][]float64)
	for _, s := range samples {
		if s.IBI < MinIBI || s.IBI > MaxIBI {
			continue
		}
		w := s.Time.Truncate(HRVWindowSize)
		groups[w] = append(groups[w], s.IBI)
	}

	out := make([]HRVWindow, 0, len(groups))
	for start, rr := range groups {
		if len(rr) <= minWindowIntervals {
			continue
		}
		out = append(out, scoreWindow(start, rr))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

func scoreWindow(start time.Time, rr []float64) HRVWindow {
	n := float64(len(rr))

	var sum float64
	for _, v := range rr {
		sum += v
	}
	mean := sum / n

	var ss float64
	for _, v := range rr {
		d := v - mean
		ss += d * d
	}
	sdnn := math.Sqrt(ss / n)

	var diffSq float64
	nn50 := 0
	for i := 1; i < len(rr); i++ {
		d := rr[i] - rr[i-1]
		diffSq += d * d
		if math.Abs(d) > 50 {
			nn50++
		}
	}
	rmssd := math.Sqrt(diffSq / float64(len(rr)-1))
	pnn50 := float64(nn50) / n * 100

	return HRVWindow{
		Time:   start,
		MeanRR: mean,
		SDNN:   sdnn,
		RMSSD:  rmssd,
		PNN50:  pnn50,
	}
}
