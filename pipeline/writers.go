package pipeline

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strconv"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	circadian "github.com/wearlab/circadian"
)

const timeColumnLayout = "2006-01-02 15:04:05"

func writeCleanEpochs(path, format string, epochs []CleanEpoch) error {
	if format == "csv" {
		return writeCleanCSV(path, epochs)
	}
	return writeCleanParquet(path, epochs)
}

func writeCleanCSV(path string, epochs []CleanEpoch) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"time", "watch_ac", "ref_ac"}); err != nil {
		return err
	}
	for _, e := range epochs {
		row := []string{
			e.Time.Format(timeColumnLayout),
			formatFloat(e.WatchAC),
			formatFloat(e.RefAC),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

type cleanEpochParquetRow struct {
	Time    string  `parquet:"name=time, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	TSMilli int64   `parquet:"name=ts_ms, type=INT64"`
	WatchAC float64 `parquet:"name=watch_ac, type=DOUBLE"`
	RefAC   float64 `parquet:"name=ref_ac, type=DOUBLE"`
}

func writeCleanParquet(path string, epochs []CleanEpoch) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return err
	}
	pw, err := writer.NewParquetWriter(fw, new(cleanEpochParquetRow), 4)
	if err != nil {
		_ = fw.Close()
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, e := range epochs {
		row := cleanEpochParquetRow{
			Time:    e.Time.Format(timeColumnLayout),
			TSMilli: e.Time.UnixMilli(),
			WatchAC: e.WatchAC,
			RefAC:   e.RefAC,
		}
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			_ = fw.Close()
			return err
		}
	}
	if err := pw.WriteStop(); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

func writeHRVCSV(path string, windows []circadian.HRVWindow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"time", "mean_rr", "sdnn", "rmssd", "pnn50"}); err != nil {
		return err
	}
	for _, win := range windows {
		row := []string{
			win.Time.Format(timeColumnLayout),
			formatFloat(win.MeanRR),
			formatFloat(win.SDNN),
			formatFloat(win.RMSSD),
			formatFloat(win.PNN50),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// cosinorRow flattens one measure of one participant for the merged table.
type cosinorRow struct {
	ID      string
	Measure string
	Fit     circadian.CosinorFit
	Peak    string
}

func writeCosinorCSV(path string, rows []cosinorRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"ID", "measure", "period", "mesor", "amplitude", "acrophase", "rss", "peak_time"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		row := []string{
			r.ID,
			r.Measure,
			formatFloat(r.Fit.Period),
			formatFloat(r.Fit.Mesor),
			formatFloat(r.Fit.Amplitude),
			formatFloat(r.Fit.Acrophase),
			formatFloat(r.Fit.RSS),
			r.Peak,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

type nonParamRow struct {
	ID      string
	Measure string
	Metrics circadian.NonParametrics
}

func writeNonParamCSV(path string, rows []nonParamRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"ID", "measure", "IS", "IV", "M10", "L5", "RA"}); err != nil {
		return err
	}
	for _, r := range rows {
		row := []string{
			r.ID,
			r.Measure,
			formatFloat(r.Metrics.IS),
			formatFloat(r.Metrics.IV),
			formatFloat(r.Metrics.M10),
			formatFloat(r.Metrics.L5),
			formatFloat(r.Metrics.RA),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeAgreementCSV(path string, results []ParticipantResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"ID", "n", "MAE", "RMSE", "mean_diff", "loa_lower", "loa_upper", "correlation"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			r.ID,
			strconv.Itoa(r.Agreement.N),
			formatFloat(r.Agreement.MAE),
			formatFloat(r.Agreement.RMSE),
			formatFloat(r.Agreement.MeanDiff),
			formatFloat(r.Agreement.LoALower),
			formatFloat(r.Agreement.LoAUpper),
			formatFloat(r.Agreement.Correlation),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeMissCSV(path string, rows []MissRow) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	header := []string{"ID", "charging_pct", "both_no_wear_pct", "single_no_wear_pct", "temp_missing_pct"}
	if err := w.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		row := []string{
			r.ID,
			formatFloat(r.PctCharging),
			formatFloat(r.PctBothNoWear),
			formatFloat(r.PctSingleNoWear),
			formatFloat(r.PctTempMissing),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
