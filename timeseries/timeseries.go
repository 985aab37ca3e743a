// Package timeseries holds the time-indexed value types shared across the
// pipeline and the resampling/aggregation primitives that turn irregular
// sensor streams into regularly spaced series.
package timeseries

import (
	"errors"
	"sort"
	"time"
)

// MinSamples is the minimum number of usable samples a raw series must carry
// before it is resampled. Truncated hour files below this bound are rejected
// so they cannot produce spurious epochs.
const MinSamples = 50

// ErrInsufficientSamples is returned when a series is too short to resample.
var ErrInsufficientSamples = errors.New("timeseries: insufficient samples")

// Point is one timestamped scalar measurement.
type Point struct {
	Time  time.Time
	Value float64
}

// AxisSample is one timestamped tri-axial measurement in milli-g.
type AxisSample struct {
	Time    time.Time
	X, Y, Z float64
}

// FillPolicy selects how grid timestamps without an original sample are
// filled during resampling.
type FillPolicy int

const (
	// FillZero inserts zero samples at missing grid timestamps. Used for
	// acceleration, where a missing sample means no movement.
	FillZero FillPolicy = iota
	// FillNearest carries the nearest original sample to every grid
	// timestamp. Used for slowly varying state such as battery level.
	FillNearest
)

// FloorMinute truncates t to the start of its minute.
func FloorMinute(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}

// CeilMinute rounds t up to the next minute boundary. A timestamp already on
// a boundary is returned unchanged.
func CeilMinute(t time.Time) time.Time {
	f := t.Truncate(time.Minute)
	if f.Equal(t) {
		return t
	}
	return f.Add(time.Minute)
}

// SortAxisSamples orders samples by timestamp and drops duplicate
// timestamps, keeping the last occurrence.
func SortAxisSamples(samples []AxisSample) []AxisSample {
	if len(samples) == 0 {
		return samples
	}
	sort.SliceStable(samples, func(i, j int) bool {
		return samples[i].Time.Before(samples[j].Time)
	})
	out := samples[:0]
	for i, s := range samples {
		if i+1 < len(samples) && samples[i+1].Time.Equal(s.Time) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// ResampleAxes reindexes an irregular tri-axial series onto a regular grid
// spanning [FloorMinute(min), CeilMinute(max)) at the given period. Grid
// timestamps with no original sample within half a period are filled
// according to the policy; under FillNearest the closest sample is used
// regardless of distance. Series shorter than MinSamples are rejected.
func ResampleAxes(samples []AxisSample, period time.Duration, policy FillPolicy) ([]AxisSample, error) {
	if len(samples) < MinSamples {
		return nil, ErrInsufficientSamples
	}
	samples = SortAxisSamples(samples)

	start := FloorMinute(samples[0].Time)
	end := CeilMinute(samples[len(samples)-1].Time)
	n := int(end.Sub(start) / period)
	if n <= 0 {
		return nil, ErrInsufficientSamples
	}

	out := make([]AxisSample, 0, n)
	half := period / 2
	j := 0
	for i := 0; i < n; i++ {
		t := start.Add(time.Duration(i) * period)
		for j+1 < len(samples) && absDuration(samples[j+1].Time.Sub(t)) <= absDuration(samples[j].Time.Sub(t)) {
			j++
		}
		nearest := samples[j]
		dist := absDuration(nearest.Time.Sub(t))
		switch {
		case policy == FillNearest || dist <= half:
			out = append(out, AxisSample{Time: t, X: nearest.X, Y: nearest.Y, Z: nearest.Z})
		default:
			out = append(out, AxisSample{Time: t})
		}
	}
	return out, nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// AggregateKind selects the aggregation applied inside each epoch.
type AggregateKind int

const (
	// AggregateSum totals the values in the epoch. Used for activity
	// counts, which are additive.
	AggregateSum AggregateKind = iota
	// AggregateMean averages the values in the epoch. Used for heart
	// rate, temperature and HRV metrics.
	AggregateMean
)

// Aggregate buckets points into fixed epochs aligned to wall-clock time and
// reduces each non-empty bucket with the given kind. The resulting point
// carries the epoch start timestamp. Input order does not matter.
func Aggregate(points []Point, epoch time.Duration, kind AggregateKind) []Point {
	if len(points) == 0 {
		return nil
	}
	sums := make(map[time.Time]float64)
	counts := make(map[time.Time]int)
	for _, p := range points {
		key := p.Time.Truncate(epoch)
		sums[key] += p.Value
		counts[key]++
	}
	out := make([]Point, 0, len(sums))
	for key, sum := range sums {
		v := sum
		if kind == AggregateMean {
			v = sum / float64(counts[key])
		}
		out = append(out, Point{Time: key, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// MinMaxScale rescales values to [0, 1]. A constant series maps to all
// zeros. The input slice is not modified.
func MinMaxScale(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	span := max - min
	if span == 0 {
		return out
	}
	for i, v := range values {
		out[i] = (v - min) / span
	}
	return out
}

// ScalePoints applies MinMaxScale to the values of a point series.
func ScalePoints(points []Point) []Point {
	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}
	scaled := MinMaxScale(values)
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = Point{Time: p.Time, Value: scaled[i]}
	}
	return out
}
