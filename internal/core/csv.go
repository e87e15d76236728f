package core

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
)

// ScoreSummary aggregates one CSV scoring pass. DiagnosisCounts is keyed by
// the artifact's target names.
type ScoreSummary struct {
	TotalRows       int
	FailedRows      int
	DiagnosisCounts map[string]int
}

// ScoreCSV classifies every row of a CSV whose header is the feature schema in
// trained order, writing the inputs plus class, diagnosis, and probability
// columns to out. Malformed rows are counted as failed and skipped; only
// header-level problems abort the pass. progress, if non-nil, is called once
// per input row.
func ScoreCSV(pipeline *Pipeline, in io.Reader, out io.Writer, progress func()) (ScoreSummary, error) {
	summary := ScoreSummary{DiagnosisCounts: make(map[string]int)}

	reader := csv.NewReader(in)

	header, err := reader.Read()
	if err != nil {
		return summary, fmt.Errorf("error reading csv header: %w", err)
	}
	if len(header) != len(pipeline.FeatureNames) {
		return summary, fmt.Errorf("csv has %d columns, pipeline was trained on %d", len(header), len(pipeline.FeatureNames))
	}
	for i, name := range pipeline.FeatureNames {
		if header[i] != name {
			return summary, fmt.Errorf("csv column %d is %q, pipeline was trained on %q", i, header[i], name)
		}
	}

	writer := csv.NewWriter(out)
	if err := writer.Write(append(append([]string(nil), header...), "class", "diagnosis", "probability")); err != nil {
		return summary, fmt.Errorf("error writing result header: %w", err)
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !errors.Is(err, csv.ErrFieldCount) {
			return summary, fmt.Errorf("error reading csv row: %w", err)
		}

		summary.TotalRows++
		if progress != nil {
			progress()
		}

		if err != nil {
			slog.Warn("skipping csv row with wrong column count", "row", summary.TotalRows, "columns", len(record))
			summary.FailedRows++
			continue
		}

		values := make([]float64, len(record))
		parseErr := error(nil)
		for i, field := range record {
			values[i], parseErr = strconv.ParseFloat(field, 64)
			if parseErr != nil {
				break
			}
		}
		if parseErr != nil {
			slog.Warn("skipping unparseable csv row", "row", summary.TotalRows, "error", parseErr)
			summary.FailedRows++
			continue
		}

		frame, err := NewSchemaFrame(values)
		if err != nil {
			slog.Warn("skipping malformed csv row", "row", summary.TotalRows, "error", err)
			summary.FailedRows++
			continue
		}

		result, err := pipeline.Classify(frame)
		if err != nil {
			slog.Warn("skipping unclassifiable csv row", "row", summary.TotalRows, "error", err)
			summary.FailedRows++
			continue
		}

		summary.DiagnosisCounts[result.Diagnosis]++

		row := append(append([]string(nil), record...),
			strconv.Itoa(result.Class),
			result.Diagnosis,
			strconv.FormatFloat(result.Probability, 'f', 6, 64),
		)
		if err := writer.Write(row); err != nil {
			return summary, fmt.Errorf("error writing result row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return summary, fmt.Errorf("error flushing result csv: %w", err)
	}

	return summary, nil
}
