package reader

import (
	"fmt"
	"time"

	"github.com/wearlab/circadian/counts"
	"github.com/wearlab/circadian/timeseries"
)

// Reference-device export layouts: the date column uses month-first
// two-digit years, the time column is a plain clock time.
const (
	referenceDateLayout = "01.02.06"
	referenceTimeLayout = "15:04:05"
)

// ReferenceCounts reads the reference device's aggregated activity-count
// export and returns one row per epoch clipped to the study period. Axis 1
// and Axis 2 are swapped on read to match the wrist orientation convention
// of the test device, and the exported vector magnitude becomes the
// combined count.
func ReferenceCounts(path string, period timeseries.Interval) ([]counts.AxisCounts, error) {
	rows, idx, err := readTable(path)
	if err != nil {
		return nil, err
	}
	dateCol, ok := idx["Date"]
	if !ok {
		return nil, fmt.Errorf("%s: missing Date column", path)
	}
	timeCol, ok := idx["Time"]
	if !ok {
		return nil, fmt.Errorf("%s: missing Time column", path)
	}
	a1Col, a2Col, a3Col := col(idx, "Axis1"), col(idx, "Axis2"), col(idx, "Axis3")
	vmCol := col(idx, "VectorMagnitude")

	out := make([]counts.AxisCounts, 0, len(rows))
	for _, row := range rows {
		if dateCol >= len(row) || timeCol >= len(row) {
			continue
		}
		t, err := time.Parse(referenceDateLayout+" "+referenceTimeLayout, row[dateCol]+" "+row[timeCol])
		if err != nil {
			continue
		}
		if !period.Contains(t) {
			continue
		}
		a1, ok1 := floatField(row, a1Col)
		a2, ok2 := floatField(row, a2Col)
		a3, ok3 := floatField(row, a3Col)
		vm, okVM := floatField(row, vmCol)
		if !ok1 || !ok2 || !ok3 || !okVM {
			continue
		}
		out = append(out, counts.AxisCounts{
			Time:      t,
			Axis1:     a2, // device orientation swap
			Axis2:     a1,
			Axis3:     a3,
			Magnitude: vm,
		})
	}
	return out, nil
}
