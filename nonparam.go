package circadian

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/wearlab/circadian/timeseries"
)

// NonParametrics are rhythm indices that make no assumption about the
// waveform. IS is interdaily stability, IV intraday variability, M10 and
// L5 the mean activity of the most and least active hours of the day, and
// RA the relative amplitude between them.
type NonParametrics struct {
	IS  float64 `json:"is"`
	IV  float64 `json:"iv"`
	M10 float64 `json:"m10"`
	L5  float64 `json:"l5"`
	RA  float64 `json:"ra"`
}

const (
	mostActiveHours  = 10
	leastActiveHours = 5
)

// NonParametric computes the indices over a scaled per-epoch series.
// Variances are population variances so that a signal repeating exactly
// every 24 hours scores IS = 1.
func NonParametric(points []timeseries.Point) (NonParametrics, error) {
	if len(points) < 2 {
		return NonParametrics{}, fmt.Errorf("non-parametric: need at least 2 samples, have %d", len(points))
	}

	vals := make([]float64, len(points))
	for i, p := range points {
		vals[i] = p.Value
	}
	overall := popVariance(vals)
	if overall == 0 {
		return NonParametrics{}, fmt.Errorf("non-parametric: series is constant")
	}

	// Mean per time of day across all days.
	type key struct{ hour, minute int }
	sums := make(map[key]float64)
	counts := make(map[key]int)
	for _, p := range points {
		k := key{p.Time.Hour(), p.Time.Minute()}
		sums[k] += p.Value
		counts[k]++
	}
	daily := make([]float64, 0, len(sums))
	for k, s := range sums {
		daily = append(daily, s/float64(counts[k]))
	}

	var diffSq float64
	for i := 1; i < len(vals); i++ {
		d := vals[i] - vals[i-1]
		diffSq += d * d
	}

	hourly := hourlyMeans(points)
	sort.Float64s(hourly)
	m10 := topMean(hourly, mostActiveHours)
	l5 := bottomMean(hourly, leastActiveHours)

	np := NonParametrics{
		IS:  popVariance(daily) / overall,
		IV:  diffSq / float64(len(vals)-1) / overall,
		M10: m10,
		L5:  l5,
	}
	if m10+l5 != 0 {
		np.RA = (m10 - l5) / (m10 + l5)
	}
	return np, nil
}

func hourlyMeans(points []timeseries.Point) []float64 {
	var sums, counts [24]float64
	for _, p := range points {
		h := p.Time.Hour()
		sums[h] += p.Value
		counts[h]++
	}
	var out []float64
	for h := 0; h < 24; h++ {
		if counts[h] > 0 {
			out = append(out, sums[h]/counts[h])
		}
	}
	return out
}

// topMean averages the n largest values of a sorted ascending slice.
func topMean(sorted []float64, n int) float64 {
	if n > len(sorted) {
		n = len(sorted)
	}
	return stat.Mean(sorted[len(sorted)-n:], nil)
}

// bottomMean averages the n smallest values of a sorted ascending slice.
func bottomMean(sorted []float64, n int) float64 {
	if n > len(sorted) {
		n = len(sorted)
	}
	return stat.Mean(sorted[:n], nil)
}

func popVariance(vals []float64) float64 {
	mean := stat.Mean(vals, nil)
	var ss float64
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return ss / float64(len(vals))
}
