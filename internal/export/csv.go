package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/synheart/synheart-physio/internal/synth"
)

// writeCSV lays the three traces out side by side, one row per sample
// index. Modalities have different lengths when their sampling rates
// differ; exhausted columns are left empty. Header cells carry the unit
// and rate, e.g. "ecg_mV@1000Hz".
func writeCSV(w io.Writer, e *Export) error {
	traces := e.Traces()
	cw := csv.NewWriter(w)

	header := []string{"sample"}
	rows := 0
	for _, tr := range traces {
		header = append(header, columnName(tr))
		if tr.Len() > rows {
			rows = tr.Len()
		}
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	record := make([]string, len(header))
	for i := 0; i < rows; i++ {
		record[0] = strconv.Itoa(i)
		for j, tr := range traces {
			if i < tr.Len() {
				record[j+1] = strconv.FormatFloat(tr.Samples[i], 'g', -1, 64)
			} else {
				record[j+1] = ""
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func columnName(tr synth.Trace) string {
	return fmt.Sprintf("%s_%s@%dHz", tr.Modality, tr.Unit, tr.SamplingRate)
}

func writeTraceCSV(w io.Writer, tr synth.Trace) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"sample", columnName(tr)}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for i, v := range tr.Samples {
		if err := cw.Write([]string{strconv.Itoa(i), strconv.FormatFloat(v, 'g', -1, 64)}); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
