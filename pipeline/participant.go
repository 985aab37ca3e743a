package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	circadian "github.com/wearlab/circadian"
	"github.com/wearlab/circadian/agreement"
	"github.com/wearlab/circadian/counts"
	"github.com/wearlab/circadian/nonwear"
	"github.com/wearlab/circadian/reader"
	"github.com/wearlab/circadian/timeseries"
	"github.com/wearlab/circadian/weartime"
)

// watchSampleFreq is the grid the raw watch acceleration is resampled to
// before counting.
const watchSampleFreq = 50

// processParticipant runs the full chain for one participant: wear time,
// activity counts, cleaning, rhythm metrics and artifacts.
func processParticipant(cfg Config, id string, sp reader.StudyPeriod, logger *zap.Logger) (*ParticipantResult, error) {
	inDir := filepath.Join(cfg.InputRoot, id)
	outDir := filepath.Join(cfg.OutputRoot, id)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	wear, err := wearIntervals(cfg, inDir, id, sp, logger)
	if err != nil {
		return nil, err
	}

	watchAC, err := watchActivity(filepath.Join(inDir, cfg.Folders.Accel), wear, logger)
	if err != nil {
		return nil, fmt.Errorf("watch activity counts: %w", err)
	}

	refAC, err := reader.ReferenceCounts(filepath.Join(inDir, cfg.Folders.Reference, id+".csv"), sp.Interval)
	if err != nil {
		return nil, fmt.Errorf("reference counts: %w", err)
	}

	merged := mergeCounts(watchAC, refAC)
	pctCharging := nonwear.RemovedPct(len(refAC), len(merged))

	sleep := sleepIntervals(filepath.Join(inDir, cfg.Files.Sleep), logger)

	afterBoth, droppedWindows := nonwear.FilterBothZero(merged, sleep)
	pctBoth := nonwear.RemovedPct(len(merged), len(afterBoth))
	if len(droppedWindows) > 0 {
		logger.Info("dropped idle windows",
			zap.String("participant", id), zap.Int("windows", len(droppedWindows)))
	}

	clean := nonwear.FilterDisagreement(afterBoth)
	pctSingle := nonwear.RemovedPct(len(afterBoth), len(clean))

	epochs := make([]CleanEpoch, len(clean))
	for i, r := range clean {
		epochs[i] = CleanEpoch{Time: r.Time, WatchAC: r.Test, RefAC: r.Ref}
	}
	cleanPath := filepath.Join(outDir, "clean_epochs."+cfg.Format)
	if err := writeCleanEpochs(cleanPath, cfg.Format, epochs); err != nil {
		return nil, fmt.Errorf("write clean epochs: %w", err)
	}

	hrSamples, hrvPath, hrv := heartRate(cfg, inDir, outDir, id, sp, logger)

	temp, pctTempMissing := temperature(cfg, inDir, id, sp, logger)

	measures := rhythmMeasures(clean, hrSamples, hrv, temp, logger)

	stats := agreementStats(clean, logger)

	summary := circadian.ParticipantSummary{
		ID:              id,
		Study:           sp.Interval,
		WearIntervals:   len(wear),
		EpochsMerged:    len(merged),
		EpochsClean:     len(clean),
		PctCharging:     pctCharging,
		PctBothNoWear:   pctBoth,
		PctSingleNoWear: pctSingle,
		Measures:        measures,
	}
	reportPath := filepath.Join(outDir, "report.txt")
	if err := os.WriteFile(reportPath, []byte(circadian.BuildParticipantNotes(&summary)), 0o644); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}

	return &ParticipantResult{
		ID:              id,
		OutputDir:       outDir,
		CleanEpochsPath: cleanPath,
		HRVPath:         hrvPath,
		ReportPath:      reportPath,
		Summary:         summary,
		Agreement:       stats,
		Miss: MissRow{
			ID:              id,
			PctCharging:     pctCharging,
			PctBothNoWear:   pctBoth,
			PctSingleNoWear: pctSingle,
			PctTempMissing:  pctTempMissing,
		},
	}, nil
}

// wearIntervals removes charging time and missing-file hours from the
// study period.
func wearIntervals(cfg Config, inDir, id string, sp reader.StudyPeriod, logger *zap.Logger) ([]timeseries.Interval, error) {
	battery, err := reader.BatteryInterval(filepath.Join(inDir, cfg.Folders.Battery), sp.Interval, logger)
	if err != nil {
		return nil, fmt.Errorf("battery trace: %w", err)
	}

	detector := &weartime.ChargingDetector{Logger: logger}
	wear := detector.WearIntervals(battery, sp.Interval)

	missingHours, err := weartime.MissingHours(filepath.Join(inDir, cfg.Folders.Accel), sp.Interval)
	if err != nil {
		return nil, fmt.Errorf("missing hours: %w", err)
	}
	missing := weartime.MissingIntervals(missingHours)

	combined, dropped := weartime.CombineWear(wear, missing, logger)
	if dropped > 0 {
		logger.Info("wear spans swallowed by missing files",
			zap.String("participant", id), zap.Int("dropped", dropped))
	}
	return combined, nil
}

// watchActivity computes per-epoch activity counts over every wear
// interval. Gaps inside an interval are zero-filled so each interval
// yields a gapless epoch sequence.
func watchActivity(accelDir string, wear []timeseries.Interval, logger *zap.Logger) ([]counts.AxisCounts, error) {
	engine := counts.Engine{Freq: watchSampleFreq, Epoch: time.Minute}

	var out []counts.AxisCounts
	for _, iv := range wear {
		samples, err := reader.AccelInterval(accelDir, iv, time.Second/watchSampleFreq, logger)
		if err != nil {
			return nil, fmt.Errorf("read acceleration %s: %w", iv.Start.Format(time.RFC3339), err)
		}
		if len(samples) == 0 {
			continue
		}
		grid, err := timeseries.ResampleAxes(samples, time.Second/watchSampleFreq, timeseries.FillZero)
		if err != nil {
			return nil, fmt.Errorf("resample %s: %w", iv.Start.Format(time.RFC3339), err)
		}
		epochs, err := engine.Epochs(grid)
		if err != nil {
			return nil, fmt.Errorf("count epochs %s: %w", iv.Start.Format(time.RFC3339), err)
		}
		out = append(out, epochs...)
	}
	return out, nil
}

// mergeCounts inner-joins watch and reference counts on epoch time.
func mergeCounts(watch, ref []counts.AxisCounts) []nonwear.Row {
	refByTime := make(map[time.Time]float64, len(ref))
	for _, r := range ref {
		refByTime[r.Time] = r.Magnitude
	}
	var rows []nonwear.Row
	for _, w := range watch {
		if rm, ok := refByTime[w.Time]; ok {
			rows = append(rows, nonwear.Row{Time: w.Time, Test: w.Magnitude, Ref: rm})
		}
	}
	return rows
}

func sleepIntervals(path string, logger *zap.Logger) []timeseries.Interval {
	sleep, err := reader.SleepIntervals(path)
	if err != nil {
		logger.Warn("no sleep times, zero-activity windows are never protected",
			zap.String("path", path), zap.Error(err))
		return nil
	}
	return sleep
}

// heartRate loads the hourly heart rate files and writes the HRV table.
// Heart rate is optional, a participant without it still gets activity
// metrics.
func heartRate(cfg Config, inDir, outDir, id string, sp reader.StudyPeriod, logger *zap.Logger) ([]reader.HRSample, string, []circadian.HRVWindow) {
	hrDir := filepath.Join(inDir, cfg.Folders.HeartRate)
	all, err := reader.HRFolder(hrDir, logger)
	if err != nil || len(all) == 0 {
		// A few participants delivered their reference recording as a FIT
		// activity file instead of hourly CSVs.
		all, err = reader.HeartRateFIT(filepath.Join(hrDir, id+".fit"))
		if err != nil || len(all) == 0 {
			logger.Warn("no heart rate data", zap.String("participant", id), zap.Error(err))
			return nil, "", nil
		}
	}
	var samples []reader.HRSample
	for _, s := range all {
		if sp.Interval.Contains(s.Time) {
			samples = append(samples, s)
		}
	}

	hrv := circadian.HRVWindows(samples)
	if len(hrv) == 0 {
		return samples, "", nil
	}
	path := filepath.Join(outDir, "hrv.csv")
	if err := writeHRVCSV(path, hrv); err != nil {
		logger.Warn("write hrv table", zap.Error(err))
		return samples, "", hrv
	}
	return samples, path, hrv
}

// temperature loads the core temperature file and scores its coverage
// against the expected one-row-per-minute density.
func temperature(cfg Config, inDir, id string, sp reader.StudyPeriod, logger *zap.Logger) ([]reader.TempSample, float64) {
	path := filepath.Join(inDir, cfg.Files.Temperature)
	samples, err := reader.Temperature(path, sp.TempFormat, sp.Interval)
	if err != nil {
		logger.Warn("no temperature data", zap.String("participant", id), zap.Error(err))
		return nil, 100
	}
	expected := int(sp.Interval.Duration() / time.Minute)
	return samples, nonwear.RemovedPct(expected, len(samples))
}

func agreementStats(clean []nonwear.Row, logger *zap.Logger) agreement.Stats {
	test := make([]float64, len(clean))
	ref := make([]float64, len(clean))
	for i, r := range clean {
		test[i] = r.Test
		ref[i] = r.Ref
	}
	stats, err := agreement.Compare(test, ref)
	if err != nil {
		logger.Warn("device agreement not computable", zap.Error(err))
		return agreement.Stats{}
	}
	return stats
}
