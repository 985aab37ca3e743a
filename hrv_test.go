package circadian

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wearlab/circadian/reader"
)

func hrSamples(start time.Time, ibis []float64) []reader.HRSample {
	out := make([]reader.HRSample, len(ibis))
	for i, v := range ibis {
		out[i] = reader.HRSample{Time: start.Add(time.Duration(i) * time.Second), HR: 60, IBI: v}
	}
	return out
}

func TestHRVWindowsMetrics(t *testing.T) {
	start := time.Date(2023, 6, 5, 8, 0, 0, 0, time.UTC)
	samples := hrSamples(start, []float64{1000, 940, 1000, 940, 1000, 940, 1000})

	windows := HRVWindows(samples)
	require.Len(t, windows, 1)
	w := windows[0]

	assert.Equal(t, start, w.Time)
	assert.InDelta(t, 6820.0/7, w.MeanRR, 1e-9)
	assert.InDelta(t, 29.69, w.SDNN, 0.01)
	// Every successive difference is exactly 60 ms.
	assert.InDelta(t, 60, w.RMSSD, 1e-9)
	// All 6 differences exceed 50 ms, over 7 intervals.
	assert.InDelta(t, 600.0/7, w.PNN50, 1e-9)
}

func TestHRVWindowsFiltersArtifacts(t *testing.T) {
	start := time.Date(2023, 6, 5, 8, 0, 0, 0, time.UTC)
	ibis := []float64{1000, 940, 3000, 1000, 940, 10, 1000, 940, 1000}
	samples := hrSamples(start, ibis)

	windows := HRVWindows(samples)
	require.Len(t, windows, 1)
	// The two out-of-range beats are gone before scoring.
	assert.InDelta(t, (4*1000.0+3*940.0)/7, windows[0].MeanRR, 1e-9)
}

func TestHRVWindowsSkipsSparseWindows(t *testing.T) {
	start := time.Date(2023, 6, 5, 8, 0, 0, 0, time.UTC)
	samples := hrSamples(start, []float64{1000, 950, 1000, 950, 1000})

	assert.Empty(t, HRVWindows(samples))
}

func TestHRVWindowsSplitsByWindow(t *testing.T) {
	start := time.Date(2023, 6, 5, 8, 0, 0, 0, time.UTC)
	var samples []reader.HRSample
	for i := 0; i < 8; i++ {
		samples = append(samples, reader.HRSample{Time: start.Add(time.Duration(i) * time.Second), IBI: 900})
	}
	for i := 0; i < 8; i++ {
		samples = append(samples, reader.HRSample{Time: start.Add(HRVWindowSize).Add(time.Duration(i) * time.Second), IBI: 800})
	}

	windows := HRVWindows(samples)
	require.Len(t, windows, 2)
	assert.InDelta(t, 900, windows[0].MeanRR, 1e-9)
	assert.InDelta(t, 800, windows[1].MeanRR, 1e-9)
	assert.True(t, windows[0].Time.Before(windows[1].Time))
}
