package reader

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/wearlab/circadian/timeseries"
)

// TempSample is one core/skin temperature reading in °C with its quality
// flag (1 poor to 4 excellent).
type TempSample struct {
	Time    time.Time
	Core    float64
	Skin    float64
	Quality float64
}

// TempFormat describes how one participant's temperature export is encoded.
// The cloud service produced different delimiters and timestamp layouts per
// participant, so the format is declared once in the study-period table
// rather than sniffed per row.
type TempFormat struct {
	Delimiter rune
	// TimeLayout selects the DateTime format: 1 for "02.01.2006 15:04:05",
	// 2 for "02.01.06 15:04".
	TimeLayout int
}

// MinTempQuality is the lowest quality flag kept; readings below it are
// treated as missing time.
const MinTempQuality = 3

func (f TempFormat) layout() (string, error) {
	switch f.TimeLayout {
	case 1:
		return "02.01.2006 15:04:05", nil
	case 2:
		return "02.01.06 15:04", nil
	default:
		return "", fmt.Errorf("unknown temperature time layout %d", f.TimeLayout)
	}
}

// Temperature reads a participant's temperature export. Low-quality and
// negative core readings are dropped, timestamps are rounded to the minute,
// rows outside the study period are discarded and duplicate minutes keep
// the last occurrence.
func Temperature(path string, format TempFormat, period timeseries.Interval) ([]TempSample, error) {
	layout, err := format.layout()
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = format.Delimiter
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	// Some exports carry an Excel "SEP=" preamble before the header.
	if len(records) > 0 && strings.Contains(strings.Join(records[0], ""), "SEP") {
		records = records[1:]
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	idx := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		idx[normalizeTempColumn(name)] = i
	}
	dtCol, ok := idx["DateTime"]
	if !ok {
		return nil, fmt.Errorf("%s: missing DateTime column", path)
	}
	coreCol, skinCol, qualCol := col(idx, "CoreBodyTemp"), col(idx, "SkinTemp"), col(idx, "TempQuality")

	byMinute := make(map[time.Time]TempSample)
	for _, row := range records[1:] {
		if dtCol >= len(row) {
			continue
		}
		t, err := time.Parse(layout, strings.TrimSpace(row[dtCol]))
		if err != nil {
			continue
		}
		quality, ok := floatField(row, qualCol)
		if !ok || quality < MinTempQuality {
			continue
		}
		core, okCore := floatField(row, coreCol)
		skin, okSkin := floatField(row, skinCol)
		if !okCore || !okSkin || core < 0 {
			continue
		}
		minute := t.Round(time.Minute)
		if !period.Contains(minute) {
			continue
		}
		byMinute[minute] = TempSample{Time: minute, Core: core, Skin: skin, Quality: quality}
	}

	out := make([]TempSample, 0, len(byMinute))
	for _, s := range byMinute {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

// normalizeTempColumn strips the unit suffix from headers such as
// "CoreBodyTemp [C]" and "TempQuality [1(poor) to 4(excellent)]".
func normalizeTempColumn(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.Index(name, "["); i > 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}
