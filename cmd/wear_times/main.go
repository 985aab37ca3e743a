package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/wearlab/circadian/reader"
	"github.com/wearlab/circadian/timeseries"
	"github.com/wearlab/circadian/weartime"
)

const studyTimeLayout = "02.01.06 15:04"

func main() {
	var (
		inDir      = flag.String("in", "", "Participant folder with battery/ and acc/ subfolders")
		start      = flag.String("start", "", "Study start, e.g. 05.06.23 10:00")
		end        = flag.String("end", "", "Study end, e.g. 19.06.23 10:00")
		batteryDir = flag.String("battery", "battery", "Battery folder name under the participant folder")
		accelDir   = flag.String("acc", "acc", "Acceleration folder name under the participant folder")
		mode       = flag.String("mode", "charge", "Detection pass: charge|level")
		verbose    = flag.Bool("verbose", false, "Log progress to stderr")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s --in /data/study/01 --start '05.06.23 10:00' --end '19.06.23 10:00' [--mode charge|level]\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if *inDir == "" || *start == "" || *end == "" {
		flag.Usage()
		os.Exit(2)
	}

	study, err := parseStudy(*start, *end)
	if err != nil {
		fail(err)
	}

	logger := zap.NewNop()
	if *verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			fail(err)
		}
		defer logger.Sync()
	}

	battery, err := reader.BatteryInterval(filepath.Join(*inDir, *batteryDir), study, logger)
	if err != nil {
		fail(fmt.Errorf("battery trace: %w", err))
	}

	var wear []timeseries.Interval
	switch *mode {
	case "charge":
		detector := &weartime.ChargingDetector{Logger: logger}
		wear = detector.WearIntervals(battery, study)
	case "level":
		detector := &weartime.LevelDetector{}
		starts, ends := detector.WearBounds(battery, study)
		n := len(starts)
		if len(ends) < n {
			n = len(ends)
		}
		for i := 0; i < n; i++ {
			wear = append(wear, timeseries.Interval{Start: starts[i], End: ends[i]})
		}
	default:
		fail(fmt.Errorf("unknown mode %q (expected charge|level)", *mode))
	}

	missingHours, err := weartime.MissingHours(filepath.Join(*inDir, *accelDir), study)
	if err != nil {
		fail(fmt.Errorf("missing hours: %w", err))
	}
	missing := weartime.MissingIntervals(missingHours)

	combined, dropped := weartime.CombineWear(wear, missing, logger)

	fmt.Printf("study:           %s to %s\n", study.Start.Format(studyTimeLayout), study.End.Format(studyTimeLayout))
	fmt.Printf("missing hours:   %d in %d intervals\n", len(missingHours), len(missing))
	if dropped > 0 {
		fmt.Printf("dropped spans:   %d\n", dropped)
	}
	fmt.Printf("wear intervals:  %d\n", len(combined))
	var total time.Duration
	for _, iv := range combined {
		total += iv.Duration()
		fmt.Printf("  %s  to  %s  (%s)\n",
			iv.Start.Format(studyTimeLayout), iv.End.Format(studyTimeLayout), iv.Duration())
	}
	fmt.Printf("total wear time: %s of %s\n", total, study.Duration())
}

func parseStudy(start, end string) (timeseries.Interval, error) {
	s, err := time.Parse(studyTimeLayout, start)
	if err != nil {
		return timeseries.Interval{}, fmt.Errorf("parse start: %w", err)
	}
	e, err := time.Parse(studyTimeLayout, end)
	if err != nil {
		return timeseries.Interval{}, fmt.Errorf("parse end: %w", err)
	}
	iv := timeseries.Interval{Start: s, End: e}
	if !iv.Valid() {
		return timeseries.Interval{}, fmt.Errorf("study end %s is not after start %s", end, start)
	}
	return iv, nil
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "wear_times failed: %v\n", err)
	os.Exit(1)
}
