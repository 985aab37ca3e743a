package circadian

import (
	"fmt"
	"strings"
	"time"

	"github.com/wearlab/circadian/timeseries"
)

// MeasureResult bundles the rhythm metrics computed for one sensor
// measure of one participant.
type MeasureResult struct {
	Name          string         `json:"name"`
	Cosinor       CosinorFit     `json:"cosinor"`
	PeakTime      string         `json:"peak_time"`
	NonParametric NonParametrics `json:"non_parametric"`
}

// ParticipantSummary collects everything the pipeline derives for one
// participant, for the per-participant report artifact.
type ParticipantSummary struct {
	ID              string              `json:"id"`
	Study           timeseries.Interval `json:"study"`
	WearIntervals   int                 `json:"wear_intervals"`
	EpochsMerged    int                 `json:"epochs_merged"`
	EpochsClean     int                 `json:"epochs_clean"`
	PctCharging     float64             `json:"pct_charging"`
	PctBothNoWear   float64             `json:"pct_both_no_wear"`
	PctSingleNoWear float64             `json:"pct_single_no_wear"`
	Measures        []MeasureResult     `json:"measures"`
}

// BuildParticipantNotes renders a participant summary as a short
// human-readable report.
func BuildParticipantNotes(s *ParticipantSummary) string {
	if s == nil {
		return ""
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Participant: %s\n", s.ID)
	if !s.Study.Start.IsZero() {
		fmt.Fprintf(
			&b,
			"Study period: %s to %s (%.1f days)\n",
			s.Study.Start.Format("2006-01-02 15:04"),
			s.Study.End.Format("2006-01-02 15:04"),
			s.Study.Duration().Hours()/24,
		)
	}
	fmt.Fprintf(
		&b,
		"Wear intervals %d | Epochs merged %d / clean %d\n",
		s.WearIntervals,
		s.EpochsMerged,
		s.EpochsClean,
	)
	fmt.Fprintf(
		&b,
		"Removed: charging/no-file %.2f%% | both-off %.2f%% | single-off %.2f%%\n",
		s.PctCharging,
		s.PctBothNoWear,
		s.PctSingleNoWear,
	)

	if len(s.Measures) > 0 {
		b.WriteString("\nRhythm Metrics\n")
		for _, m := range s.Measures {
			fmt.Fprintf(
				&b,
				"- %s: peak %s | amplitude %.3f | mesor %.3f | IS %.2f | IV %.2f | RA %.2f\n",
				m.Name,
				m.PeakTime,
				m.Cosinor.Amplitude,
				m.Cosinor.Mesor,
				m.NonParametric.IS,
				m.NonParametric.IV,
				m.NonParametric.RA,
			)
		}
	}

	if assessment := rhythmAssessment(s); assessment != "" {
		b.WriteString("\n" + assessment + "\n")
	}
	return b.String()
}

// rhythmAssessment flags summaries that point at data quality problems or
// a weak rest-activity rhythm.
func rhythmAssessment(s *ParticipantSummary) string {
	totalRemoved := s.PctCharging + s.PctBothNoWear + s.PctSingleNoWear
	if totalRemoved > 50 {
		return fmt.Sprintf("Assessment: over half the study period was removed (%.1f%%); treat the rhythm metrics with caution.", totalRemoved)
	}
	for _, m := range s.Measures {
		if m.NonParametric.IS < 0.3 && m.NonParametric.RA < 0.3 {
			return fmt.Sprintf("Assessment: %s shows a weak and fragmented rest-activity rhythm (IS %.2f, RA %.2f).", m.Name, m.NonParametric.IS, m.NonParametric.RA)
		}
	}
	if len(s.Measures) > 0 {
		return "Assessment: rhythm metrics are within usable quality bounds."
	}
	return ""
}

// PeakClock formats the fitted peak of a cosinor model as a clock time,
// normalising the acrophase first.
func PeakClock(fit CosinorFit) string {
	return AcroToHourString(AcroNegToPos(fit.Acrophase))
}

// StudyDays returns the number of whole days a study interval covers.
func StudyDays(iv timeseries.Interval) int {
	return int(iv.Duration() / (24 * time.Hour))
}
