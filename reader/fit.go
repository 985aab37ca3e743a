package reader

import (
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/tormoder/fit"
)

// HeartRateFIT decodes heart-rate samples from a FIT activity recording.
// Some participants' reference heart-rate data arrives as FIT files rather
// than hourly CSVs; both paths produce the same sample stream.
func HeartRateFIT(path string) ([]HRSample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open FIT file: %w", err)
	}
	defer f.Close()

	decoded, err := fit.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode FIT file: %w", err)
	}
	activity, err := decoded.Activity()
	if err != nil {
		return nil, fmt.Errorf("activity FIT expected: %w", err)
	}
	return heartRateFromRecords(activity.Records), nil
}

func heartRateFromRecords(records []*fit.RecordMsg) []HRSample {
	samples := make([]HRSample, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if rec.HeartRate == math.MaxUint8 || rec.HeartRate == 0 {
			continue
		}
		ts := rec.Timestamp
		if ts.IsZero() || fit.IsBaseTime(ts) {
			continue
		}
		samples = append(samples, HRSample{Time: ts.UTC(), HR: float64(rec.HeartRate)})
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].Time.Before(samples[j].Time) })
	return samples
}
