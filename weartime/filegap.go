package weartime

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/wearlab/circadian/reader"
	"github.com/wearlab/circadian/timeseries"
)

// MissingHours lists the hour starts inside the study period for which the
// sensor folder has no hourly file. The result is sorted ascending.
func MissingHours(dir string, study timeseries.Interval) ([]time.Time, error) {
	files, err := reader.HourFiles(dir)
	if err != nil {
		return nil, fmt.Errorf("list hourly files: %w", err)
	}
	present := make(map[time.Time]bool, len(files))
	for _, f := range files {
		present[f.Hour] = true
	}

	var missing []time.Time
	for h := study.Start.Truncate(time.Hour); h.Before(study.End); h = h.Add(time.Hour) {
		if !present[h] {
			missing = append(missing, h)
		}
	}
	return missing, nil
}

// MissingIntervals merges consecutive missing hours into intervals. Hours
// exactly one apart belong to the same run; a larger gap starts a new one.
// Each interval ends one hour after its last missing hour.
func MissingIntervals(hours []time.Time) []timeseries.Interval {
	intervals := make([]timeseries.Interval, 0, len(hours))
	for _, h := range hours {
		intervals = append(intervals, timeseries.Interval{Start: h, End: h.Add(time.Hour)})
	}
	return timeseries.MergeAdjacent(intervals, 0)
}

// CombineWear subtracts the missing-file intervals from the wear
// intervals. Each missing interval closes the wear span it falls in and
// the following span reopens when it ends, so the combined boundaries are
// sorted and paired positionally. Pairs that come out inverted, which
// happens when a missing interval swallows a whole wear span, are dropped
// and counted.
func CombineWear(wear, missing []timeseries.Interval, logger *zap.Logger) ([]timeseries.Interval, int) {
	if logger == nil {
		logger = zap.NewNop()
	}

	starts := make([]time.Time, 0, len(wear)+len(missing))
	ends := make([]time.Time, 0, len(wear)+len(missing))
	for _, w := range wear {
		starts = append(starts, w.Start)
		ends = append(ends, w.End)
	}
	for _, m := range missing {
		starts = append(starts, m.End)
		ends = append(ends, m.Start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })
	sort.Slice(ends, func(i, j int) bool { return ends[i].Before(ends[j]) })

	out := make([]timeseries.Interval, 0, len(starts))
	dropped := 0
	for i := range starts {
		iv := timeseries.Interval{Start: starts[i], End: ends[i]}
		if !iv.Valid() {
			logger.Debug("dropping inverted wear pair",
				zap.Time("start", iv.Start), zap.Time("end", iv.End))
			dropped++
			continue
		}
		out = append(out, iv)
	}
	if dropped > 0 {
		logger.Warn("wear intervals dropped during file-gap merge", zap.Int("dropped", dropped))
	}
	return out, dropped
}
