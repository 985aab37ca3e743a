package pipeline

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config describes the study layout on disk. All sensor folders and files
// are resolved per participant under InputRoot/<ID>/.
type Config struct {
	InputRoot  string `yaml:"input_root"`
	OutputRoot string `yaml:"output_root"`

	// StudyPeriodFile is resolved against InputRoot and holds one row per
	// participant with the study start and end.
	StudyPeriodFile string `yaml:"study_period_file"`

	Folders FolderConfig `yaml:"folders"`
	Files   FileConfig   `yaml:"files"`

	// Format selects the cleaned epoch table encoding, parquet or csv.
	Format string `yaml:"format"`

	// Participants restricts the run to the listed IDs. Empty means every
	// numeric subfolder of InputRoot.
	Participants []string `yaml:"participants"`
}

// FolderConfig names the per-participant sensor subfolders.
type FolderConfig struct {
	Accel     string `yaml:"accel"`
	HeartRate string `yaml:"heart_rate"`
	Battery   string `yaml:"battery"`
	// Reference holds the aggregated counts of the reference device, one
	// <ID>.csv per participant.
	Reference string `yaml:"reference"`
}

// FileConfig names the per-participant input files.
type FileConfig struct {
	Temperature string `yaml:"temperature"`
	Sleep       string `yaml:"sleep"`
}

// DefaultConfig returns a Config with the conventional folder layout.
func DefaultConfig() Config {
	return Config{
		StudyPeriodFile: "study_periods.csv",
		Folders: FolderConfig{
			Accel:     "acc",
			HeartRate: "hr",
			Battery:   "battery",
			Reference: "reference",
		},
		Files: FileConfig{
			Temperature: "core.csv",
			Sleep:       "sleep.csv",
		},
		Format: "parquet",
	}
}

// LoadConfig reads a YAML config file on top of the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects configs that cannot produce a run.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.InputRoot) == "" {
		return fmt.Errorf("config: input_root is required")
	}
	if strings.TrimSpace(c.OutputRoot) == "" {
		return fmt.Errorf("config: output_root is required")
	}
	if strings.TrimSpace(c.StudyPeriodFile) == "" {
		return fmt.Errorf("config: study_period_file is required")
	}
	format := strings.ToLower(strings.TrimSpace(c.Format))
	if format == "" {
		format = "parquet"
	}
	if format != "parquet" && format != "csv" {
		return fmt.Errorf("config: unsupported format %q (expected parquet|csv)", c.Format)
	}
	c.Format = format
	for name, v := range map[string]string{
		"folders.accel":      c.Folders.Accel,
		"folders.heart_rate": c.Folders.HeartRate,
		"folders.battery":    c.Folders.Battery,
		"folders.reference":  c.Folders.Reference,
	} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("config: %s is required", name)
		}
	}
	return nil
}
