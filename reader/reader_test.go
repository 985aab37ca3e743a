package reader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tormoder/fit"
	"go.uber.org/zap"

	"github.com/wearlab/circadian/timeseries"
)

var hour10 = time.Date(2023, 6, 5, 10, 0, 0, 0, time.UTC)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseHour(t *testing.T) {
	got, err := ParseHour("05.06.23_14.csv")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 6, 5, 14, 0, 0, 0, time.UTC), got)

	_, err = ParseHour("notes.csv")
	assert.Error(t, err)
}

func TestAccelHourScalesAndClipsToNamedHour(t *testing.T) {
	var b strings.Builder
	b.WriteString("UnixTimestamp,x,y,z\n")
	// One row before the named hour and one after, both must be dropped.
	fmt.Fprintf(&b, "%d,4096,0,0\n", hour10.Add(-time.Second).UnixMilli())
	for i := 0; i < 60; i++ {
		ts := hour10.Add(time.Duration(i) * time.Second)
		fmt.Fprintf(&b, "%d,%d,%d,%d\n", ts.UnixMilli(), 4096*(i+1), 2048, -4096)
	}
	fmt.Fprintf(&b, "%d,4096,0,0\n", hour10.Add(time.Hour).UnixMilli())
	b.WriteString("not-a-timestamp,1,2,3\n")

	path := writeTempFile(t, t.TempDir(), "05.06.23_10.csv", b.String())
	samples, err := AccelHour(path)
	require.NoError(t, err)
	require.Len(t, samples, 60)

	assert.Equal(t, hour10, samples[0].Time)
	assert.InDelta(t, 1.0, samples[0].X, 1e-12)
	assert.InDelta(t, 0.5, samples[0].Y, 1e-12)
	assert.InDelta(t, -1.0, samples[0].Z, 1e-12)
	assert.InDelta(t, 60.0, samples[59].X, 1e-12)
}

func TestAccelHourRejectsShortFile(t *testing.T) {
	var b strings.Builder
	b.WriteString("UnixTimestamp,x,y,z\n")
	for i := 0; i < 10; i++ {
		fmt.Fprintf(&b, "%d,4096,0,0\n", hour10.Add(time.Duration(i)*time.Second).UnixMilli())
	}
	path := writeTempFile(t, t.TempDir(), "05.06.23_10.csv", b.String())
	_, err := AccelHour(path)
	assert.ErrorIs(t, err, timeseries.ErrInsufficientSamples)
}

func TestHRHourFiltersStatusAndTruncatesSeconds(t *testing.T) {
	var b strings.Builder
	b.WriteString("UnixTimestamp,hr,hrIbi,status\n")
	for i := 0; i < 55; i++ {
		ts := hour10.Add(time.Duration(i)*time.Second + 500*time.Millisecond)
		status := 1
		if i%11 == 0 {
			status = 0
		}
		fmt.Fprintf(&b, "%d,%d,%d,%d\n", ts.UnixMilli(), 60+i, 950, status)
	}
	path := writeTempFile(t, t.TempDir(), "05.06.23_10.csv", b.String())
	samples, err := HRHour(path)
	require.NoError(t, err)
	require.Len(t, samples, 50)

	assert.Equal(t, hour10.Add(time.Second), samples[0].Time)
	assert.Equal(t, 61.0, samples[0].HR)
	assert.Equal(t, 950.0, samples[0].IBI)
}

func TestBatteryIntervalKeepsStudyHoursOnly(t *testing.T) {
	dir := t.TempDir()
	row := func(ts time.Time, level float64, state int) string {
		return fmt.Sprintf("%d,%.0f,%d\n", ts.UnixMilli(), level, state)
	}
	writeTempFile(t, dir, "05.06.23_09.csv",
		"UnixTimestamp,level,state\n"+row(hour10.Add(-30*time.Minute), 95, 1))
	writeTempFile(t, dir, "05.06.23_10.csv",
		"UnixTimestamp,level,state\n"+row(hour10, 94, 1)+row(hour10.Add(30*time.Minute), 93, 3))

	study := timeseries.Interval{Start: hour10, End: hour10.Add(time.Hour)}
	samples, err := BatteryInterval(dir, study, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, 94.0, samples[0].Level)
	assert.Equal(t, 1, samples[0].State)
	assert.Equal(t, 3, samples[1].State)
}

func TestReferenceCountsSwapsAxes(t *testing.T) {
	var b strings.Builder
	b.WriteString("Date,Time,Axis1,Axis2,Axis3,Vector Magnitude\n")
	b.WriteString("06.05.23,09:59:00,1,2,3,10\n")
	b.WriteString("06.05.23,10:00:00,100,200,300,400\n")
	b.WriteString("06.05.23,10:01:00,110,210,310,410\n")

	path := writeTempFile(t, t.TempDir(), "01.csv", b.String())
	study := timeseries.Interval{Start: hour10, End: hour10.Add(time.Hour)}
	rows, err := ReferenceCounts(path, study)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, hour10, rows[0].Time)
	assert.Equal(t, 200.0, rows[0].Axis1)
	assert.Equal(t, 100.0, rows[0].Axis2)
	assert.Equal(t, 300.0, rows[0].Axis3)
	assert.Equal(t, 400.0, rows[0].Magnitude)
}

func TestStudyPeriods(t *testing.T) {
	content := "ID,Start,End,Delimiter,Timeformat\n" +
		"1,05.06.23 10:00,19.06.23 10:00,,\n" +
		"2,05.06.2023 12:00,19.06.2023 12:00,;,2\n"
	path := writeTempFile(t, t.TempDir(), "study_periods.csv", content)

	periods, err := StudyPeriods(path)
	require.NoError(t, err)
	require.Len(t, periods, 2)

	sp1 := periods[1]
	assert.Equal(t, time.Date(2023, 6, 5, 10, 0, 0, 0, time.UTC), sp1.Interval.Start)
	assert.Equal(t, TempFormat{Delimiter: ',', TimeLayout: 1}, sp1.TempFormat)

	sp2 := periods[2]
	assert.Equal(t, time.Date(2023, 6, 5, 12, 0, 0, 0, time.UTC), sp2.Interval.Start)
	assert.Equal(t, TempFormat{Delimiter: ';', TimeLayout: 2}, sp2.TempFormat)
}

func TestStudyPeriodsRejectsMalformedTime(t *testing.T) {
	path := writeTempFile(t, t.TempDir(), "study_periods.csv",
		"ID,Start,End\n1,garbage,19.06.23 10:00\n")
	_, err := StudyPeriods(path)
	assert.Error(t, err)
}

func TestSleepIntervalsMidnightFallback(t *testing.T) {
	content := "in_bed_time,out_bed_time\n" +
		"2023-06-04 23:00:00,2023-06-05 07:00:00\n" +
		"2023-06-05,2023-06-06\n" +
		"2023-06-07 08:00:00,2023-06-07 06:00:00\n"
	path := writeTempFile(t, t.TempDir(), "sleep.csv", content)

	intervals, err := SleepIntervals(path)
	require.NoError(t, err)
	// The inverted third row is dropped.
	require.Len(t, intervals, 2)
	assert.Equal(t, time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC), intervals[1].Start)
	assert.Equal(t, time.Date(2023, 6, 6, 0, 0, 0, 0, time.UTC), intervals[1].End)
}

func TestTemperatureFiltersAndRounds(t *testing.T) {
	content := "SEP=,\n" +
		"DateTime,CoreBodyTemp [C],SkinTemp [C],TempQuality [1(poor) to 4(excellent)]\n" +
		"05.06.2023 10:00:10,36.80,33.10,4\n" +
		"05.06.2023 10:00:20,36.90,33.20,4\n" +
		"05.06.2023 10:02:00,37.00,33.30,2\n" +
		"05.06.2023 10:03:00,-1.00,33.40,4\n" +
		"05.06.2023 10:04:00,37.10,33.50,3\n" +
		"05.06.2023 11:30:00,37.20,33.60,4\n"
	path := writeTempFile(t, t.TempDir(), "core.csv", content)

	study := timeseries.Interval{Start: hour10, End: hour10.Add(time.Hour)}
	samples, err := Temperature(path, TempFormat{Delimiter: ',', TimeLayout: 1}, study)
	require.NoError(t, err)
	require.Len(t, samples, 2)

	// Both 10:00 rows round to the same minute; the later one wins.
	assert.Equal(t, hour10, samples[0].Time)
	assert.Equal(t, 36.9, samples[0].Core)
	assert.Equal(t, hour10.Add(4*time.Minute), samples[1].Time)
	assert.Equal(t, 3.0, samples[1].Quality)
}

func TestTemperatureUnknownLayout(t *testing.T) {
	_, err := Temperature("nowhere.csv", TempFormat{Delimiter: ',', TimeLayout: 9}, timeseries.Interval{})
	assert.Error(t, err)
}

func TestHeartRateFromRecords(t *testing.T) {
	rec := func(ts time.Time, hr uint8) *fit.RecordMsg {
		return &fit.RecordMsg{Timestamp: ts, HeartRate: hr}
	}
	records := []*fit.RecordMsg{
		rec(hour10.Add(2*time.Second), 72),
		rec(hour10, 70),
		rec(hour10.Add(time.Second), 0xFF),
		rec(hour10.Add(3*time.Second), 0),
		nil,
	}

	samples := heartRateFromRecords(records)
	require.Len(t, samples, 2)
	assert.Equal(t, hour10, samples[0].Time)
	assert.Equal(t, 70.0, samples[0].HR)
	assert.Equal(t, hour10.Add(2*time.Second), samples[1].Time)
	assert.Equal(t, 72.0, samples[1].HR)
}
