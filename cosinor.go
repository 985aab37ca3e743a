// Package circadian computes rhythm metrics from per-epoch sensor series:
// single-component cosinor fits, non-parametric rhythm indices and heart
// rate variability summaries.
package circadian

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/wearlab/circadian/timeseries"
)

// BinMinutes is the aggregation interval for rhythm fits. A 24 hour cycle
// therefore spans CyclePeriod bins.
const (
	BinMinutes  = 10
	CyclePeriod = 24 * 60 / BinMinutes
)

// CosinorFit is a fitted single-component cosine model
// y = mesor + amplitude*cos(2*pi*x/period + acrophase).
type CosinorFit struct {
	Period    float64 `json:"period"`
	Mesor     float64 `json:"mesor"`
	Amplitude float64 `json:"amplitude"`
	Acrophase float64 `json:"acrophase"`
	RSS       float64 `json:"rss"`
}

// FitCosinor fits the model with ordinary least squares. x is the bin
// index within the cycle, y the scaled measurement.
func FitCosinor(x, y []float64, period float64) (CosinorFit, error) {
	if len(x) != len(y) {
		return CosinorFit{}, fmt.Errorf("cosinor: %d x values for %d y values", len(x), len(y))
	}
	if len(x) < 3 {
		return CosinorFit{}, fmt.Errorf("cosinor: need at least 3 samples, have %d", len(x))
	}
	if period <= 0 {
		return CosinorFit{}, fmt.Errorf("cosinor: period must be positive, got %v", period)
	}

	n := len(x)
	design := mat.NewDense(n, 3, nil)
	rhs := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * x[i] / period
		design.Set(i, 0, 1)
		design.Set(i, 1, math.Cos(theta))
		design.Set(i, 2, math.Sin(theta))
		rhs.SetVec(i, y[i])
	}

	var qr mat.QR
	qr.Factorize(design)
	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, rhs); err != nil {
		return CosinorFit{}, fmt.Errorf("cosinor: solve least squares: %w", err)
	}

	b0, bc, bs := beta.AtVec(0), beta.AtVec(1), beta.AtVec(2)

	var rss float64
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * x[i] / period
		fitted := b0 + bc*math.Cos(theta) + bs*math.Sin(theta)
		r := y[i] - fitted
		rss += r * r
	}

	return CosinorFit{
		Period:    period,
		Mesor:     b0,
		Amplitude: math.Hypot(bc, bs),
		Acrophase: math.Atan2(-bs, bc),
		RSS:       rss,
	}, nil
}

// BestCosinor fits every candidate period and keeps the one with the
// lowest residual sum of squares.
func BestCosinor(x, y []float64, periods []float64) (CosinorFit, error) {
	if len(periods) == 0 {
		return CosinorFit{}, fmt.Errorf("cosinor: no candidate periods")
	}
	best := CosinorFit{RSS: math.Inf(1)}
	for _, p := range periods {
		fit, err := FitCosinor(x, y, p)
		if err != nil {
			return CosinorFit{}, err
		}
		if fit.RSS < best.RSS {
			best = fit
		}
	}
	return best, nil
}

// CosinorSeries converts an aggregated series into fit inputs: x is the
// time of day in bins, y the min-max scaled values.
func CosinorSeries(points []timeseries.Point) (x, y []float64) {
	x = make([]float64, len(points))
	vals := make([]float64, len(points))
	for i, p := range points {
		x[i] = float64(p.Time.Hour()*60+p.Time.Minute()) / BinMinutes
		vals[i] = p.Value
	}
	return x, timeseries.MinMaxScale(vals)
}

// AcroNegToPos maps an acrophase from atan2 range onto [0, 2*pi).
func AcroNegToPos(a float64) float64 {
	for a < 0 {
		a += 2 * math.Pi
	}
	return a
}

// AcroToClock converts a non-negative acrophase to the clock hour of the
// fitted peak, in [0, 24].
func AcroToClock(a float64) float64 {
	return 24 - 24*a/(2*math.Pi)
}

// AcroToHourString renders the peak time as HH:MM.
func AcroToHourString(a float64) string {
	clock := AcroToClock(a)
	hours := int(clock)
	minutes := int(math.Mod(clock, 1) * 60)
	return fmt.Sprintf("%02d:%02d", hours, minutes)
}
