package pipeline

import (
	"time"

	"go.uber.org/zap"

	circadian "github.com/wearlab/circadian"
	"github.com/wearlab/circadian/agreement"
)

// Options configures one pipeline run.
type Options struct {
	// ConfigPath is read when Config is nil.
	ConfigPath string
	Config     *Config
	Logger     *zap.Logger

	// Participants overrides the config's participant selection.
	Participants []string
}

// Result lists the merged artifacts of a run.
type Result struct {
	OutputDir         string              `json:"output_dir"`
	AgreementPath     string              `json:"agreement_path"`
	CosinorPath       string              `json:"cosinor_path"`
	NonParametricPath string              `json:"non_parametric_path"`
	MissStatsPath     string              `json:"miss_stats_path"`
	Participants      []ParticipantResult `json:"participants"`
	Skipped           []string            `json:"skipped,omitempty"`
}

// ParticipantResult holds the per-participant artifacts and metrics.
type ParticipantResult struct {
	ID              string                       `json:"id"`
	OutputDir       string                       `json:"output_dir"`
	CleanEpochsPath string                       `json:"clean_epochs_path"`
	HRVPath         string                       `json:"hrv_path,omitempty"`
	ReportPath      string                       `json:"report_path"`
	Summary         circadian.ParticipantSummary `json:"summary"`
	Agreement       agreement.Stats              `json:"agreement"`
	Miss            MissRow                      `json:"miss"`
}

// CleanEpoch is one row of the cleaned two-device activity table.
type CleanEpoch struct {
	Time    time.Time
	WatchAC float64
	RefAC   float64
}

// MissRow summarises how much of a participant's study period each
// removal stage discarded.
type MissRow struct {
	ID              string
	PctCharging     float64
	PctBothNoWear   float64
	PctSingleNoWear float64
	PctTempMissing  float64
}
