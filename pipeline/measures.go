package pipeline

import (
	"time"

	"go.uber.org/zap"

	circadian "github.com/wearlab/circadian"
	"github.com/wearlab/circadian/nonwear"
	"github.com/wearlab/circadian/reader"
	"github.com/wearlab/circadian/timeseries"
)

// Measure names used in the merged rhythm tables.
const (
	MeasureWatchAC   = "watch_ac"
	MeasureRefAC     = "ref_ac"
	MeasureHeartRate = "heart_rate"
	MeasureCoreTemp  = "core_temp"
	MeasureSkinTemp  = "skin_temp"
	MeasureRMSSD     = "hrv_rmssd"
)

// rhythmMeasures computes cosinor and non-parametric metrics for every
// sensor measure present. Activity counts aggregate by sum, the
// physiological measures by mean. Measures that fail, usually because the
// series is too short or constant, are skipped with a warning.
func rhythmMeasures(clean []nonwear.Row, hr []reader.HRSample, hrv []circadian.HRVWindow, temp []reader.TempSample, logger *zap.Logger) []circadian.MeasureResult {
	type input struct {
		name   string
		kind   timeseries.AggregateKind
		points []timeseries.Point
	}

	watch := make([]timeseries.Point, len(clean))
	ref := make([]timeseries.Point, len(clean))
	for i, r := range clean {
		watch[i] = timeseries.Point{Time: r.Time, Value: r.Test}
		ref[i] = timeseries.Point{Time: r.Time, Value: r.Ref}
	}

	inputs := []input{
		{MeasureWatchAC, timeseries.AggregateSum, watch},
		{MeasureRefAC, timeseries.AggregateSum, ref},
	}
	if len(hr) > 0 {
		pts := make([]timeseries.Point, len(hr))
		for i, s := range hr {
			pts[i] = timeseries.Point{Time: s.Time, Value: s.HR}
		}
		inputs = append(inputs, input{MeasureHeartRate, timeseries.AggregateMean, pts})
	}
	if len(temp) > 0 {
		core := make([]timeseries.Point, len(temp))
		skin := make([]timeseries.Point, len(temp))
		for i, s := range temp {
			core[i] = timeseries.Point{Time: s.Time, Value: s.Core}
			skin[i] = timeseries.Point{Time: s.Time, Value: s.Skin}
		}
		inputs = append(inputs,
			input{MeasureCoreTemp, timeseries.AggregateMean, core},
			input{MeasureSkinTemp, timeseries.AggregateMean, skin})
	}
	if len(hrv) > 0 {
		pts := make([]timeseries.Point, len(hrv))
		for i, w := range hrv {
			pts[i] = timeseries.Point{Time: w.Time, Value: w.RMSSD}
		}
		inputs = append(inputs, input{MeasureRMSSD, timeseries.AggregateMean, pts})
	}

	var out []circadian.MeasureResult
	for _, in := range inputs {
		m, err := measureResult(in.name, in.points, in.kind)
		if err != nil {
			logger.Warn("skipping rhythm measure", zap.String("measure", in.name), zap.Error(err))
			continue
		}
		out = append(out, m)
	}
	return out
}

func measureResult(name string, points []timeseries.Point, kind timeseries.AggregateKind) (circadian.MeasureResult, error) {
	agg := timeseries.Aggregate(points, circadian.BinMinutes*time.Minute, kind)
	x, y := circadian.CosinorSeries(agg)

	fit, err := circadian.BestCosinor(x, y, []float64{circadian.CyclePeriod})
	if err != nil {
		return circadian.MeasureResult{}, err
	}
	fit.Acrophase = circadian.AcroNegToPos(fit.Acrophase)

	np, err := circadian.NonParametric(timeseries.ScalePoints(points))
	if err != nil {
		return circadian.MeasureResult{}, err
	}

	return circadian.MeasureResult{
		Name:          name,
		Cosinor:       fit,
		PeakTime:      circadian.PeakClock(fit),
		NonParametric: np,
	}, nil
}
