package weartime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wearlab/circadian/reader"
	"github.com/wearlab/circadian/timeseries"
)

var base = time.Date(2023, 6, 5, 10, 0, 0, 0, time.UTC)

func batteryTrace(states []int, step time.Duration) []reader.BatterySample {
	out := make([]reader.BatterySample, len(states))
	for i, s := range states {
		out[i] = reader.BatterySample{Time: base.Add(time.Duration(i) * step), Level: 50, State: s}
	}
	return out
}

func TestChargeSpansBuffered(t *testing.T) {
	// Discharging for 3 samples, charging for 3, discharging again.
	trace := batteryTrace([]int{1, 1, 1, 3, 4, 5, 2, 2}, time.Minute)
	d := &ChargingDetector{}

	starts, ends := d.ChargeSpans(trace)
	require.Len(t, starts, 1)
	require.Len(t, ends, 1)

	assert.Equal(t, base.Add(3*time.Minute).Add(-ChargeBuffer), starts[0])
	assert.Equal(t, base.Add(5*time.Minute).Add(ChargeBuffer), ends[0])
}

func TestChargeSpansMidChargeStart(t *testing.T) {
	// Trace opens on the charger, so the first charge end has no start.
	trace := batteryTrace([]int{4, 4, 2, 2, 1, 3, 3, 1}, time.Minute)
	d := &ChargingDetector{}

	starts, ends := d.ChargeSpans(trace)
	require.Len(t, starts, 1)
	require.Len(t, ends, 1)
	assert.True(t, starts[0].Before(ends[0]))
}

func TestChargeSpansUnknownStateImbalance(t *testing.T) {
	// State 0 is neither charging nor discharging, so both onsets here
	// have no matching offset. Reconciliation must absorb any imbalance,
	// not just one boundary.
	trace := batteryTrace([]int{1, 3, 0, 1, 3}, 10*time.Minute)
	d := &ChargingDetector{}

	starts, ends := d.ChargeSpans(trace)
	assert.Empty(t, starts)
	assert.Empty(t, ends)

	study := timeseries.Interval{Start: base, End: base.Add(24 * time.Hour)}
	got := d.WearIntervals(trace, study)
	require.Len(t, got, 1)
	assert.Equal(t, study, got[0])
}

func TestWearIntervalsDropsEmptiedEdgeInterval(t *testing.T) {
	// Charging starts one minute into the study, so the buffered charge
	// start lands before the study begins and the opening wear interval
	// is empty.
	study := timeseries.Interval{Start: base, End: base.Add(2 * time.Hour)}
	trace := batteryTrace([]int{1, 3, 3, 3, 1}, time.Minute)
	d := &ChargingDetector{}

	got := d.WearIntervals(trace, study)
	require.Len(t, got, 1)
	assert.Equal(t, base.Add(3*time.Minute).Add(ChargeBuffer), got[0].Start)
	assert.Equal(t, study.End, got[0].End)
}

func TestWearIntervalsNoCharging(t *testing.T) {
	study := timeseries.Interval{Start: base, End: base.Add(24 * time.Hour)}
	trace := batteryTrace([]int{1, 2, 1, 2, 1}, time.Minute)
	d := &ChargingDetector{}

	got := d.WearIntervals(trace, study)
	require.Len(t, got, 1)
	assert.Equal(t, study, got[0])
}

func TestWearIntervalsSplitAtCharge(t *testing.T) {
	study := timeseries.Interval{Start: base, End: base.Add(2 * time.Hour)}
	trace := batteryTrace([]int{1, 1, 3, 3, 3, 1, 1}, 10*time.Minute)
	d := &ChargingDetector{}

	got := d.WearIntervals(trace, study)
	require.Len(t, got, 2)
	assert.Equal(t, study.Start, got[0].Start)
	assert.Equal(t, base.Add(20*time.Minute).Add(-ChargeBuffer), got[0].End)
	assert.Equal(t, base.Add(40*time.Minute).Add(ChargeBuffer), got[1].Start)
	assert.Equal(t, study.End, got[1].End)
}

func TestWearIntervalsIdempotentOnCleanTrace(t *testing.T) {
	// A trace that never touches the charger leaves the study untouched no
	// matter how many times detection runs over it.
	study := timeseries.Interval{Start: base, End: base.Add(6 * time.Hour)}
	trace := batteryTrace([]int{2, 1, 2, 2, 1, 1, 2}, 10*time.Minute)
	d := &ChargingDetector{}

	first := d.WearIntervals(trace, study)
	second := d.WearIntervals(trace, study)
	assert.Equal(t, first, second)
	require.Len(t, first, 1)
}

func TestMissingIntervalsMergesAdjacentHours(t *testing.T) {
	hours := []time.Time{
		base,
		base.Add(time.Hour),
		base.Add(5 * time.Hour),
	}

	got := MissingIntervals(hours)
	require.Len(t, got, 2)
	assert.Equal(t, timeseries.Interval{Start: base, End: base.Add(2 * time.Hour)}, got[0])
	assert.Equal(t, timeseries.Interval{Start: base.Add(5 * time.Hour), End: base.Add(6 * time.Hour)}, got[1])
}

func TestMissingIntervalsEmpty(t *testing.T) {
	assert.Nil(t, MissingIntervals(nil))
}

func TestCombineWearSplitsAroundMissing(t *testing.T) {
	wear := []timeseries.Interval{{Start: base, End: base.Add(10 * time.Hour)}}
	missing := []timeseries.Interval{{Start: base.Add(3 * time.Hour), End: base.Add(4 * time.Hour)}}

	got, dropped := CombineWear(wear, missing, nil)
	assert.Zero(t, dropped)
	require.Len(t, got, 2)
	assert.Equal(t, timeseries.Interval{Start: base, End: base.Add(3 * time.Hour)}, got[0])
	assert.Equal(t, timeseries.Interval{Start: base.Add(4 * time.Hour), End: base.Add(10 * time.Hour)}, got[1])
}

func TestCombineWearDropsSwallowedSpan(t *testing.T) {
	wear := []timeseries.Interval{
		{Start: base, End: base.Add(2 * time.Hour)},
		{Start: base.Add(3 * time.Hour), End: base.Add(4 * time.Hour)},
		{Start: base.Add(5 * time.Hour), End: base.Add(8 * time.Hour)},
	}
	// The middle wear span sits entirely inside a missing-file interval.
	missing := []timeseries.Interval{{Start: base.Add(150 * time.Minute), End: base.Add(270 * time.Minute)}}

	got, dropped := CombineWear(wear, missing, nil)
	assert.Equal(t, 1, dropped)
	for _, iv := range got {
		assert.True(t, iv.Valid(), "interval %v", iv)
	}
}

func TestLevelDetectorFindsChargeOnset(t *testing.T) {
	// 100 samples at 10 s: level drains slowly, then jumps up mid-trace.
	samples := make([]reader.BatterySample, 100)
	level := 60.0
	for i := range samples {
		if i >= 50 && i < 70 {
			level += 2
		} else if i%10 == 0 && i > 0 {
			level--
		}
		samples[i] = reader.BatterySample{
			Time:  base.Add(time.Duration(i) * 10 * time.Second),
			Level: level,
			State: 1,
		}
	}
	study := timeseries.Interval{Start: base, End: base.Add(time.Hour)}

	d := &LevelDetector{}
	starts, ends := d.WearBounds(samples, study)

	assert.Equal(t, study.Start, starts[0])
	require.GreaterOrEqual(t, len(ends), 2)
	assert.Equal(t, study.End, ends[len(ends)-1])
	// The detected wear end precedes the level rise at sample 50.
	assert.True(t, ends[0].Before(base.Add(500*10*time.Second)))
}
