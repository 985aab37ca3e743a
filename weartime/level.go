package weartime

import (
	"time"

	"github.com/wearlab/circadian/reader"
	"github.com/wearlab/circadian/timeseries"
)

// Defaults for the battery-level sliding window. Samples arrive roughly
// every 10 seconds, so 40 samples cover a bit under 7 minutes.
const (
	levelWindow   = 40
	levelBuffer   = 5 * time.Minute
	riseThreshold = 5.0
)

// LevelDetector is the secondary charging detector. It scans battery level
// with a sliding window instead of trusting the state column, and is used
// to cross-check the state-based spans when a trace looks suspicious.
type LevelDetector struct {
	// Window overrides levelWindow when positive. Half of it is compared
	// against the other half.
	Window int
	// Buffer overrides levelBuffer when positive.
	Buffer time.Duration
}

func (d *LevelDetector) window() int {
	if d.Window > 0 {
		return d.Window
	}
	return levelWindow
}

func (d *LevelDetector) bufferDur() time.Duration {
	if d.Buffer > 0 {
		return d.Buffer
	}
	return levelBuffer
}

// diffs returns consecutive level differences for the window starting at i.
func diffs(samples []reader.BatterySample, i, n int) []float64 {
	out := make([]float64, 0, n-1)
	for j := i + 1; j < i+n; j++ {
		out = append(out, samples[j].Level-samples[j-1].Level)
	}
	return out
}

func sum(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

func nonIncreasing(vals []float64) bool {
	for _, v := range vals {
		if v > 0 {
			return false
		}
	}
	return true
}

// WearBounds scans the battery level trace for charge onsets and offsets.
// A window whose first half is non-increasing and whose second half gains
// more than riseThreshold marks a charge onset, ending wear a buffer
// before the window. A window that first gains and then drains, or whose
// states flip from charging to discharging across the halves, marks a
// charge offset, resuming wear a buffer after the window. The returned
// starts open with the study start and the ends close with the study end.
func (d *LevelDetector) WearBounds(samples []reader.BatterySample, study timeseries.Interval) (starts, ends []time.Time) {
	n := d.window()
	half := n / 2
	buf := d.bufferDur()

	for i := 0; i+n < len(samples); {
		dv := diffs(samples, i, n)
		if nonIncreasing(dv[:half]) && sum(dv[half:]) > riseThreshold {
			ends = append(ends, samples[i].Time.Add(-buf))
			i += n
			continue
		}
		i++
	}
	ends = append(ends, study.End)

	starts = append(starts, study.Start)
	for i := 0; i+n < len(samples); {
		dv := diffs(samples, i, n)
		if (sum(dv[:half]) > riseThreshold && sum(dv[half:]) <= -1) ||
			stateDropout(samples[i:i+n], half) {
			starts = append(starts, samples[i+n-1].Time.Add(buf))
			i += n
			continue
		}
		i++
	}
	return starts, ends
}

// stateDropout reports a window whose first half is entirely on the
// charger and whose second half is entirely off it.
func stateDropout(window []reader.BatterySample, half int) bool {
	for _, s := range window[:half] {
		if s.State <= maxDischargingState {
			return false
		}
	}
	for _, s := range window[half:] {
		if s.State > maxDischargingState {
			return false
		}
	}
	return true
}
