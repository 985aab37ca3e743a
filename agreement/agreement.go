// Package agreement compares paired per-epoch measurements from two
// devices worn at the same time.
package agreement

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// loaFactor is the normal-quantile multiplier for 95% limits of agreement.
const loaFactor = 1.96

// Stats summarises how closely a test device tracks a reference device.
// LoALower and LoAUpper are the Bland-Altman limits of agreement around
// the mean difference.
type Stats struct {
	N           int     `json:"n"`
	MAE         float64 `json:"mae"`
	RMSE        float64 `json:"rmse"`
	MeanDiff    float64 `json:"mean_diff"`
	LoALower    float64 `json:"loa_lower"`
	LoAUpper    float64 `json:"loa_upper"`
	Correlation float64 `json:"correlation"`
}

// Compare computes agreement statistics over paired samples.
func Compare(test, ref []float64) (Stats, error) {
	if len(test) != len(ref) {
		return Stats{}, fmt.Errorf("agreement: %d test values for %d reference values", len(test), len(ref))
	}
	if len(test) < 2 {
		return Stats{}, fmt.Errorf("agreement: need at least 2 pairs, have %d", len(test))
	}

	n := len(test)
	diffs := make([]float64, n)
	var absSum, sqSum float64
	for i := range test {
		d := test[i] - ref[i]
		diffs[i] = d
		absSum += math.Abs(d)
		sqSum += d * d
	}

	meanDiff := stat.Mean(diffs, nil)
	sd := stat.StdDev(diffs, nil)

	return Stats{
		N:           n,
		MAE:         absSum / float64(n),
		RMSE:        math.Sqrt(sqSum / float64(n)),
		MeanDiff:    meanDiff,
		LoALower:    meanDiff - loaFactor*sd,
		LoAUpper:    meanDiff + loaFactor*sd,
		Correlation: stat.Correlation(test, ref, nil),
	}, nil
}
