// Package weartime derives valid device-on-wrist intervals for a study
// period by removing charging spans and hours with no recorded file.
package weartime

import (
	"time"

	"go.uber.org/zap"

	"github.com/wearlab/circadian/reader"
	"github.com/wearlab/circadian/timeseries"
)

// Battery state codes reported by the watch. States 1 and 2 mean the
// device is discharging, states 3 through 6 mean it is on the charger.
const (
	maxDischargingState = 2
	maxChargingState    = 6
)

// ChargeBuffer widens every detected charging span on both sides so the
// noisy minutes around dock and undock events are excluded from wear time.
const ChargeBuffer = 2 * time.Minute

// ChargingDetector locates charging spans from battery state transitions
// and converts the remainder of the study period into wear intervals.
type ChargingDetector struct {
	// Buffer overrides ChargeBuffer when positive.
	Buffer time.Duration
	Logger *zap.Logger
}

func (d *ChargingDetector) buffer() time.Duration {
	if d.Buffer > 0 {
		return d.Buffer
	}
	return ChargeBuffer
}

func (d *ChargingDetector) logger() *zap.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return zap.NewNop()
}

func charging(state int) bool {
	return state > maxDischargingState && state <= maxChargingState
}

func discharging(state int) bool {
	return state >= 1 && state <= maxDischargingState
}

// ChargeSpans returns the buffered charge start and end times found in the
// battery trace. The two slices are reconciled to equal length: a trace
// that begins mid-charge contributes an end with no start, and one that
// stops mid-charge a start with no end, so the unmatched boundary entry is
// dropped.
func (d *ChargingDetector) ChargeSpans(samples []reader.BatterySample) (starts, ends []time.Time) {
	buf := d.buffer()
	for i := 1; i < len(samples); i++ {
		if discharging(samples[i-1].State) && charging(samples[i].State) {
			starts = append(starts, samples[i].Time.Add(-buf))
		}
	}
	for i := 0; i+1 < len(samples); i++ {
		if charging(samples[i].State) && discharging(samples[i+1].State) {
			ends = append(ends, samples[i].Time.Add(buf))
		}
	}

	// A trace that begins or stops mid-charge, or one carrying state codes
	// outside both sets, leaves boundaries unmatched. Drop earliest ends
	// and latest starts until the lists pair up.
	for len(starts) < len(ends) {
		d.logger().Warn("unmatched charge end, dropping",
			zap.Time("end", ends[0]))
		ends = ends[1:]
	}
	for len(starts) > len(ends) {
		d.logger().Warn("unmatched charge start, dropping",
			zap.Time("start", starts[len(starts)-1]))
		starts = starts[:len(starts)-1]
	}

	for i := range starts {
		if ends[i].Before(starts[i]) {
			d.logger().Warn("charge span inverted",
				zap.Time("start", starts[i]), zap.Time("end", ends[i]))
		}
	}
	return starts, ends
}

// WearIntervals inverts the charge spans inside the study period: wear
// begins at the study start and at every charge end, and stops at every
// charge start and at the study end. Intervals are clipped to the study
// period; a buffered charge boundary that empties an interval drops it.
func (d *ChargingDetector) WearIntervals(samples []reader.BatterySample, study timeseries.Interval) []timeseries.Interval {
	chargeStarts, chargeEnds := d.ChargeSpans(samples)

	starts := append([]time.Time{study.Start}, chargeEnds...)
	ends := append(append([]time.Time{}, chargeStarts...), study.End)

	intervals := make([]timeseries.Interval, 0, len(starts))
	for i := range starts {
		iv := timeseries.Interval{Start: starts[i], End: ends[i]}.Clip(study)
		if iv.Valid() {
			intervals = append(intervals, iv)
		}
	}
	return intervals
}
