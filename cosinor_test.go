package circadian

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// synthetic builds days of 10-minute bins following
// y = mesor + amp*cos(2*pi*x/CyclePeriod - phase).
func synthetic(days int, mesor, amp, phase float64) (x, y []float64) {
	for d := 0; d < days; d++ {
		for i := 0; i < CyclePeriod; i++ {
			xi := float64(i)
			theta := 2 * math.Pi * xi / CyclePeriod
			x = append(x, xi)
			y = append(y, mesor+amp*math.Cos(theta-phase))
		}
	}
	return x, y
}

func TestFitCosinorRecoversParameters(t *testing.T) {
	phase := math.Pi / 2 // peak at 06:00
	x, y := synthetic(3, 0.5, 0.4, phase)

	fit, err := FitCosinor(x, y, CyclePeriod)
	require.NoError(t, err)

	assert.InDelta(t, 0.5, fit.Mesor, 1e-9)
	assert.InDelta(t, 0.4, fit.Amplitude, 1e-9)
	assert.InDelta(t, -phase, fit.Acrophase, 1e-9)
	assert.InDelta(t, 0, fit.RSS, 1e-9)

	assert.Equal(t, "06:00", PeakClock(fit))
}

func TestFitCosinorInputErrors(t *testing.T) {
	_, err := FitCosinor([]float64{1, 2}, []float64{1}, CyclePeriod)
	assert.Error(t, err)

	_, err = FitCosinor([]float64{1, 2}, []float64{1, 2}, CyclePeriod)
	assert.Error(t, err)

	_, err = FitCosinor([]float64{1, 2, 3}, []float64{1, 2, 3}, 0)
	assert.Error(t, err)
}

func TestBestCosinorPicksLowestRSS(t *testing.T) {
	x, y := synthetic(3, 0.5, 0.3, 1.0)

	fit, err := BestCosinor(x, y, []float64{CyclePeriod / 2, CyclePeriod, CyclePeriod * 2})
	require.NoError(t, err)
	assert.Equal(t, float64(CyclePeriod), fit.Period)
}

func TestAcroNegToPos(t *testing.T) {
	assert.InDelta(t, 3*math.Pi/2, AcroNegToPos(-math.Pi/2), 1e-12)
	assert.InDelta(t, 1.0, AcroNegToPos(1.0), 1e-12)
	assert.Zero(t, AcroNegToPos(0))
}

func TestAcroToClock(t *testing.T) {
	assert.InDelta(t, 24, AcroToClock(0), 1e-12)
	assert.InDelta(t, 12, AcroToClock(math.Pi), 1e-12)
	assert.Equal(t, "12:00", AcroToHourString(math.Pi))
	assert.Equal(t, "18:00", AcroToHourString(math.Pi/2))
}
