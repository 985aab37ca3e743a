// Package reader parses the raw per-hour sensor files recorded by the study
// devices into timestamped sample records. Malformed rows are dropped, rows
// outside a file's named hour are discarded, and truncated files are
// rejected before they can reach the resampling stage.
package reader

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wearlab/circadian/timeseries"
)

// HourLayout is the timestamp encoded in hourly file names, e.g.
// "05.06.23_14.csv" for 2023-06-05 14:00.
const HourLayout = "02.01.06_15"

// AccelScale converts raw accelerometer device units to milli-g.
const AccelScale = 4096.0

// HRSample is one heart-rate reading with its inter-beat interval.
type HRSample struct {
	Time time.Time
	HR   float64
	// IBI is the RR interval in milliseconds, zero when the device did
	// not report one for this beat.
	IBI float64
}

// BatterySample is one battery status reading.
type BatterySample struct {
	Time  time.Time
	Level float64
	State int
}

// HourFile is one raw hourly file found in a sensor folder.
type HourFile struct {
	Name string
	Path string
	Hour time.Time
}

// ParseHour extracts the hour timestamp from an hourly file name.
func ParseHour(name string) (time.Time, error) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	t, err := time.Parse(HourLayout, base)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse hour from %q: %w", name, err)
	}
	return t, nil
}

// HourFiles lists the hourly CSV files in dir sorted by their encoded hour.
// Entries whose names do not parse as hours are ignored.
func HourFiles(dir string) ([]HourFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list hourly files: %w", err)
	}
	files := make([]HourFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		hour, err := ParseHour(e.Name())
		if err != nil {
			continue
		}
		files = append(files, HourFile{Name: e.Name(), Path: filepath.Join(dir, e.Name()), Hour: hour})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Hour.Before(files[j].Hour) })
	return files, nil
}

// AccelHour reads one hourly tri-axial acceleration file. Raw device units
// are scaled to milli-g, rows outside the file's named hour are dropped and
// files with fewer than timeseries.MinSamples usable rows are rejected.
func AccelHour(path string) ([]timeseries.AxisSample, error) {
	hour, err := ParseHour(filepath.Base(path))
	if err != nil {
		return nil, err
	}
	rows, idx, err := readTable(path)
	if err != nil {
		return nil, err
	}
	tsCol, ok := idx["UnixTimestamp"]
	if !ok {
		return nil, fmt.Errorf("%s: missing UnixTimestamp column", path)
	}
	xCol, yCol, zCol := col(idx, "x"), col(idx, "y"), col(idx, "z")

	window := timeseries.Interval{Start: hour, End: hour.Add(time.Hour)}
	samples := make([]timeseries.AxisSample, 0, len(rows))
	for _, row := range rows {
		t, ok := unixMillis(row, tsCol)
		if !ok || !window.Contains(t) {
			continue
		}
		x, okX := floatField(row, xCol)
		y, okY := floatField(row, yCol)
		z, okZ := floatField(row, zCol)
		if !okX || !okY || !okZ {
			continue
		}
		samples = append(samples, timeseries.AxisSample{
			Time: t,
			X:    x / AccelScale,
			Y:    y / AccelScale,
			Z:    z / AccelScale,
		})
	}
	if len(samples) < timeseries.MinSamples {
		return nil, timeseries.ErrInsufficientSamples
	}
	return timeseries.SortAxisSamples(samples), nil
}

// AccelInterval reads every hourly acceleration file overlapping the given
// wear interval, resamples each onto a regular grid at the target period
// and returns the concatenation clipped to [iv.Start, iv.End). Unreadable
// or truncated hours are skipped with a logged warning.
func AccelInterval(dir string, iv timeseries.Interval, period time.Duration, logger *zap.Logger) ([]timeseries.AxisSample, error) {
	files, err := HourFiles(dir)
	if err != nil {
		return nil, err
	}
	var out []timeseries.AxisSample
	for _, f := range files {
		if !f.Hour.After(iv.Start.Add(-time.Hour)) {
			continue
		}
		if f.Hour.After(iv.End) {
			break
		}
		raw, err := AccelHour(f.Path)
		if err != nil {
			logger.Warn("skipping acceleration hour", zap.String("file", f.Path), zap.Error(err))
			continue
		}
		regular, err := timeseries.ResampleAxes(raw, period, timeseries.FillNearest)
		if err != nil {
			logger.Warn("skipping acceleration hour", zap.String("file", f.Path), zap.Error(err))
			continue
		}
		for _, s := range regular {
			if iv.Contains(s.Time) {
				out = append(out, s)
			}
		}
	}
	return out, nil
}

// HRHour reads one hourly heart-rate file. Rows whose validity status is
// not 1 are dropped, timestamps are truncated to whole seconds, rows
// outside the file's named hour are discarded and short files rejected.
func HRHour(path string) ([]HRSample, error) {
	hour, err := ParseHour(filepath.Base(path))
	if err != nil {
		return nil, err
	}
	rows, idx, err := readTable(path)
	if err != nil {
		return nil, err
	}
	tsCol, ok := idx["UnixTimestamp"]
	if !ok {
		return nil, fmt.Errorf("%s: missing UnixTimestamp column", path)
	}
	if len(rows) < timeseries.MinSamples {
		return nil, timeseries.ErrInsufficientSamples
	}
	hrCol, statusCol, ibiCol := col(idx, "hr"), col(idx, "status"), col(idx, "hrIbi")

	window := timeseries.Interval{Start: hour, End: hour.Add(time.Hour)}
	samples := make([]HRSample, 0, len(rows))
	for _, row := range rows {
		t, ok := unixMillis(row, tsCol)
		if !ok || !window.Contains(t) {
			continue
		}
		status, ok := floatField(row, statusCol)
		if !ok || status != 1 {
			continue
		}
		hr, ok := floatField(row, hrCol)
		if !ok {
			continue
		}
		ibi, _ := floatField(row, ibiCol)
		samples = append(samples, HRSample{Time: t.Truncate(time.Second), HR: hr, IBI: ibi})
	}
	return samples, nil
}

// HRFolder reads and concatenates every hourly heart-rate file in dir.
// Unparseable or truncated hours are skipped with a logged warning.
func HRFolder(dir string, logger *zap.Logger) ([]HRSample, error) {
	files, err := HourFiles(dir)
	if err != nil {
		return nil, err
	}
	var out []HRSample
	for _, f := range files {
		samples, err := HRHour(f.Path)
		if err != nil {
			logger.Warn("skipping heart-rate hour", zap.String("file", f.Path), zap.Error(err))
			continue
		}
		out = append(out, samples...)
	}
	return out, nil
}

// BatteryHour reads one hourly battery file.
func BatteryHour(path string) ([]BatterySample, error) {
	rows, idx, err := readTable(path)
	if err != nil {
		return nil, err
	}
	tsCol, ok := idx["UnixTimestamp"]
	if !ok {
		return nil, fmt.Errorf("%s: missing UnixTimestamp column", path)
	}
	levelCol, stateCol := col(idx, "level"), col(idx, "state")

	samples := make([]BatterySample, 0, len(rows))
	for _, row := range rows {
		t, ok := unixMillis(row, tsCol)
		if !ok {
			continue
		}
		level, okLevel := floatField(row, levelCol)
		state, okState := floatField(row, stateCol)
		if !okLevel || !okState {
			continue
		}
		samples = append(samples, BatterySample{Time: t, Level: level, State: int(state)})
	}
	return samples, nil
}

// BatteryInterval reads every hourly battery file whose hour falls inside
// the study period, concatenated in hour order.
func BatteryInterval(dir string, iv timeseries.Interval, logger *zap.Logger) ([]BatterySample, error) {
	files, err := HourFiles(dir)
	if err != nil {
		return nil, err
	}
	var out []BatterySample
	for _, f := range files {
		if !iv.Contains(f.Hour) {
			continue
		}
		samples, err := BatteryHour(f.Path)
		if err != nil {
			logger.Warn("skipping battery hour", zap.String("file", f.Path), zap.Error(err))
			continue
		}
		out = append(out, samples...)
	}
	return out, nil
}

// readTable reads a comma-separated file with a header row, returning the
// data rows and a column-name index. Ragged rows are tolerated; callers
// validate fields per row.
func readTable(path string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%s: empty file", path)
	}
	idx := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		idx[strings.ReplaceAll(strings.TrimSpace(name), " ", "")] = i
	}
	return records[1:], idx, nil
}

func unixMillis(row []string, col int) (time.Time, bool) {
	v, ok := floatField(row, col)
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(v)).UTC(), true
}

func col(idx map[string]int, name string) int {
	if i, ok := idx[name]; ok {
		return i
	}
	return -1
}

func floatField(row []string, col int) (float64, bool) {
	if col < 0 || col >= len(row) {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
