// Package counts turns a regularly sampled tri-axial acceleration series
// into epoch-level activity counts. The numerical transform itself
// (band-pass filter, rectify, integrate) is pluggable and treated as a
// black box; the engine only prepares well-formed input and aligns epoch
// boundaries to wall-clock time.
package counts

import (
	"errors"
	"math"
	"time"

	"github.com/wearlab/circadian/timeseries"
)

// AxisCounts is one epoch of activity counts: three band-filtered axis
// magnitudes and their Euclidean norm.
type AxisCounts struct {
	Time      time.Time
	Axis1     float64
	Axis2     float64
	Axis3     float64
	Magnitude float64
}

// Transform converts one epoch of per-axis acceleration (milli-g, sampled
// at freq Hz) into a single count value per axis.
type Transform func(x, y, z []float64, freq int) (a1, a2, a3 float64)

// Engine computes epoch activity counts from regular acceleration samples.
type Engine struct {
	// Freq is the sampling frequency of the input series in Hz.
	Freq int
	// Epoch is the aggregation epoch, aligned to wall-clock boundaries.
	Epoch time.Duration
	// Transform is the per-epoch count extraction; defaults to
	// BandpassCounts when nil.
	Transform Transform
}

// ErrIrregularInput is returned when the input series is not regularly
// sampled at the engine's declared frequency.
var ErrIrregularInput = errors.New("counts: input series is not regular at the declared frequency")

// Epochs slices the regular series into wall-clock-aligned epochs and runs
// the transform on every full or partial epoch. Epoch start timestamps are
// floored to the epoch duration.
func (e Engine) Epochs(samples []timeseries.AxisSample) ([]AxisCounts, error) {
	if len(samples) == 0 {
		return nil, nil
	}
	transform := e.Transform
	if transform == nil {
		transform = BandpassCounts
	}
	period := time.Second / time.Duration(e.Freq)
	for i := 1; i < len(samples); i++ {
		if samples[i].Time.Sub(samples[i-1].Time) != period {
			return nil, ErrIrregularInput
		}
	}

	var out []AxisCounts
	start := 0
	epochStart := samples[0].Time.Truncate(e.Epoch)
	for i := 1; i <= len(samples); i++ {
		if i < len(samples) && samples[i].Time.Truncate(e.Epoch).Equal(epochStart) {
			continue
		}
		x, y, z := axisSlices(samples[start:i])
		a1, a2, a3 := transform(x, y, z, e.Freq)
		out = append(out, AxisCounts{
			Time:      epochStart,
			Axis1:     a1,
			Axis2:     a2,
			Axis3:     a3,
			Magnitude: math.Sqrt(a1*a1 + a2*a2 + a3*a3),
		})
		if i < len(samples) {
			start = i
			epochStart = samples[i].Time.Truncate(e.Epoch)
		}
	}
	return out, nil
}

func axisSlices(samples []timeseries.AxisSample) (x, y, z []float64) {
	x = make([]float64, len(samples))
	y = make([]float64, len(samples))
	z = make([]float64, len(samples))
	for i, s := range samples {
		x[i], y[i], z[i] = s.X, s.Y, s.Z
	}
	return x, y, z
}

// Band edges and thresholds of the default transform. Human voluntary
// movement concentrates in the 0.25-2.5 Hz band; readings below the
// deadband are sensor noise and readings above the clip are impacts.
const (
	bandLowHz     = 0.25
	bandHighHz    = 2.5
	deadbandMG    = 18.0
	clipMG        = 2130.0
	countPerMGSec = 0.1
)

// BandpassCounts is the default count transform: band-pass each axis,
// rectify, apply the deadband and clip, then integrate over the epoch.
func BandpassCounts(x, y, z []float64, freq int) (a1, a2, a3 float64) {
	return integrateAxis(x, freq), integrateAxis(y, freq), integrateAxis(z, freq)
}

func integrateAxis(v []float64, freq int) float64 {
	if len(v) == 0 || freq <= 0 {
		return 0
	}
	filtered := bandpass(v, freq)
	sum := 0.0
	for _, s := range filtered {
		m := math.Abs(s)
		if m < deadbandMG {
			continue
		}
		if m > clipMG {
			m = clipMG
		}
		sum += m
	}
	return sum / float64(freq) * countPerMGSec
}

// bandpass applies a second-order band-pass biquad (constant-peak design)
// over the series. Coefficients are derived from the band edges at the
// given sampling rate.
func bandpass(v []float64, freq int) []float64 {
	f0 := math.Sqrt(bandLowHz * bandHighHz)
	bw := bandHighHz - bandLowHz
	w0 := 2 * math.Pi * f0 / float64(freq)
	alpha := math.Sin(w0) * math.Sinh(math.Ln2/2*(bw/f0)*w0/math.Sin(w0))

	b0 := alpha
	b1 := 0.0
	b2 := -alpha
	a0 := 1 + alpha
	a1 := -2 * math.Cos(w0)
	a2 := 1 - alpha

	out := make([]float64, len(v))
	var x1, x2, y1, y2 float64
	for i, x0 := range v {
		y0 := (b0*x0 + b1*x1 + b2*x2 - a1*y1 - a2*y2) / a0
		out[i] = y0
		x2, x1 = x1, x0
		y2, y1 = y1, y0
	}
	return out
}
