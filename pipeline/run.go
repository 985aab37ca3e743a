// Package pipeline orchestrates the full study run: wear-time detection,
// activity counting, cross-device cleaning and rhythm metrics for every
// participant, plus the merged study-level tables.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"go.uber.org/zap"

	circadian "github.com/wearlab/circadian"
	"github.com/wearlab/circadian/reader"
)

// Run executes the pipeline for every selected participant and writes the
// merged artifacts under the configured output root. A participant whose
// inputs are broken is skipped with a logged warning; the run fails only
// when it cannot start or no participant succeeds.
func Run(opts Options) (*Result, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	periods, err := reader.StudyPeriods(filepath.Join(cfg.InputRoot, cfg.StudyPeriodFile))
	if err != nil {
		return nil, fmt.Errorf("study periods: %w", err)
	}

	ids, err := selectParticipants(cfg, opts)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no participant folders under %s", cfg.InputRoot)
	}

	if err := os.MkdirAll(cfg.OutputRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create output root: %w", err)
	}

	result := &Result{OutputDir: cfg.OutputRoot}
	var cosinorRows []cosinorRow
	var nonParamRows []nonParamRow
	var missRows []MissRow

	for _, id := range ids {
		num, err := strconv.Atoi(id)
		if err != nil {
			result.Skipped = append(result.Skipped, id)
			logger.Warn("skipping non-numeric participant folder", zap.String("participant", id))
			continue
		}
		sp, ok := periods[num]
		if !ok {
			result.Skipped = append(result.Skipped, id)
			logger.Warn("participant has no study period row", zap.String("participant", id))
			continue
		}

		logger.Info("processing participant",
			zap.String("participant", id),
			zap.Time("start", sp.Interval.Start),
			zap.Time("end", sp.Interval.End),
			zap.Int("study_days", circadian.StudyDays(sp.Interval)))

		pr, err := processParticipant(cfg, id, sp, logger)
		if err != nil {
			result.Skipped = append(result.Skipped, id)
			logger.Warn("participant failed", zap.String("participant", id), zap.Error(err))
			continue
		}

		result.Participants = append(result.Participants, *pr)
		for _, m := range pr.Summary.Measures {
			cosinorRows = append(cosinorRows, cosinorRow{ID: id, Measure: m.Name, Fit: m.Cosinor, Peak: m.PeakTime})
			nonParamRows = append(nonParamRows, nonParamRow{ID: id, Measure: m.Name, Metrics: m.NonParametric})
		}
		missRows = append(missRows, pr.Miss)
	}

	if len(result.Participants) == 0 {
		return nil, fmt.Errorf("all %d participants failed", len(ids))
	}

	result.AgreementPath = filepath.Join(cfg.OutputRoot, "agreement.csv")
	if err := writeAgreementCSV(result.AgreementPath, result.Participants); err != nil {
		return nil, fmt.Errorf("write agreement table: %w", err)
	}
	result.CosinorPath = filepath.Join(cfg.OutputRoot, "cosinor_models.csv")
	if err := writeCosinorCSV(result.CosinorPath, cosinorRows); err != nil {
		return nil, fmt.Errorf("write cosinor table: %w", err)
	}
	result.NonParametricPath = filepath.Join(cfg.OutputRoot, "non_parametric.csv")
	if err := writeNonParamCSV(result.NonParametricPath, nonParamRows); err != nil {
		return nil, fmt.Errorf("write non-parametric table: %w", err)
	}
	result.MissStatsPath = filepath.Join(cfg.OutputRoot, "miss_stats.csv")
	if err := writeMissCSV(result.MissStatsPath, missRows); err != nil {
		return nil, fmt.Errorf("write miss stats: %w", err)
	}

	manifestPath := filepath.Join(cfg.OutputRoot, "run_manifest.json")
	if err := writeJSON(manifestPath, result); err != nil {
		return nil, fmt.Errorf("write run manifest: %w", err)
	}

	return result, nil
}

func resolveConfig(opts Options) (Config, error) {
	if opts.Config != nil {
		cfg := *opts.Config
		if err := cfg.Validate(); err != nil {
			return Config{}, err
		}
		return cfg, nil
	}
	if opts.ConfigPath == "" {
		return Config{}, fmt.Errorf("either Config or ConfigPath is required")
	}
	return LoadConfig(opts.ConfigPath)
}

// selectParticipants lists the numeric participant folders under the
// input root, honoring any explicit selection.
func selectParticipants(cfg Config, opts Options) ([]string, error) {
	selected := opts.Participants
	if len(selected) == 0 {
		selected = cfg.Participants
	}
	if len(selected) > 0 {
		return selected, nil
	}

	entries, err := os.ReadDir(cfg.InputRoot)
	if err != nil {
		return nil, fmt.Errorf("list input root: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := strconv.Atoi(e.Name()); err != nil {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.Atoi(ids[i])
		b, _ := strconv.Atoi(ids[j])
		return a < b
	})
	return ids, nil
}
