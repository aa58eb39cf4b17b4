// Copyright 2025 The agentlens Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package analyze

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/agentlens/agentlens/metrics"
	"github.com/agentlens/agentlens/storage"
)

// writeOutputs persists the full report as JSON and exports the metric
// tables as CSV files alongside a plain-text summary.
func (f *analyzeFlags) writeOutputs(ctx context.Context, report *storage.Report) error {
	files, err := storage.NewFileStorage(f.outputDir)
	if err != nil {
		return err
	}
	if err := files.SaveReport(ctx, report); err != nil {
		return err
	}

	bundle := report.Bundle
	exports := []struct {
		name  string
		write func(*csv.Writer) error
	}{
		{"per_tool_prf.csv", func(w *csv.Writer) error { return writePRF(w, bundle.PRF) }},
		{"tool_criticality.csv", func(w *csv.Writer) error { return writeTCI(w, bundle.TCI) }},
		{"sequence_compliance.csv", func(w *csv.Writer) error { return writeSequence(w, bundle.Sequence) }},
		{"position_deviation.csv", func(w *csv.Writer) error { return writeDeviation(w, bundle.PositionDeviation) }},
		{"bucket_pass1.csv", func(w *csv.Writer) error { return writeBuckets(w, bundle.Pass1.ByBucket) }},
	}
	for _, export := range exports {
		if err := writeCSVFile(filepath.Join(f.outputDir, export.name), export.write); err != nil {
			return err
		}
	}

	return writeSummaryFile(filepath.Join(f.outputDir, "summary.txt"), report)
}

func writeCSVFile(path string, write func(*csv.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := write(w); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v metrics.Optional) string {
	if !v.Defined {
		return ""
	}
	return formatFloat(v.Value)
}

func writePRF(w *csv.Writer, rows []metrics.PRFRow) error {
	if err := w.Write([]string{"domain", "tool", "precision", "recall", "f1", "omission_rate", "tp", "fp", "fn"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.Domain, row.Tool,
			formatFloat(row.Precision), formatFloat(row.Recall), formatFloat(row.F1),
			formatFloat(row.OmissionRate),
			strconv.Itoa(row.TP), strconv.Itoa(row.FP), strconv.Itoa(row.FN),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func writeTCI(w *csv.Writer, rows []metrics.TCIRow) error {
	if err := w.Write([]string{"domain", "tool", "tci", "n_correct", "n_mishandled"}); err != nil {
		return err
	}
	for _, row := range rows {
		tci := ""
		if row.Defined {
			tci = formatFloat(row.TCI)
		}
		record := []string{
			row.Domain, row.Tool, tci,
			strconv.Itoa(row.NCorrect), strconv.Itoa(row.NMishandled),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func writeSequence(w *csv.Writer, rows []metrics.SequenceRow) error {
	if err := w.Write([]string{"run_id", "domain", "task_id", "nped"}); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write([]string{row.RunID, row.Domain, row.TaskID, formatFloat(row.NPED)}); err != nil {
			return err
		}
	}
	return nil
}

func writeDeviation(w *csv.Writer, rows []metrics.PositionDeviationRow) error {
	if err := w.Write([]string{"domain", "tool", "mean_position_deviation", "runs"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{row.Domain, row.Tool, formatOptional(row.MeanDeviation), strconv.Itoa(row.Runs)}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func writeBuckets(w *csv.Writer, buckets map[string]metrics.BucketPass1) error {
	if err := w.Write([]string{"bucket", "pass_at_1", "runs", "ci_lower", "ci_upper"}); err != nil {
		return err
	}
	for _, label := range sortedBucketLabels(buckets) {
		bucket := buckets[label]
		lower, upper := "", ""
		if ci := bucket.CI; ci != nil {
			lower, upper = formatFloat(ci.Lower), formatFloat(ci.Upper)
		}
		record := []string{label, formatOptional(bucket.Pass1), strconv.Itoa(bucket.Runs), lower, upper}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

func writeSummaryFile(path string, report *storage.Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Analysis summary\n")
	fmt.Fprintf(&b, "================\n")
	fmt.Fprintf(&b, "Report ID: %s\n", report.ID)
	fmt.Fprintf(&b, "Label: %s\n", report.Label)
	fmt.Fprintf(&b, "Created: %s\n", report.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Runs: %d\n", report.Runs)
	fmt.Fprintf(&b, "Domains: %s\n", strings.Join(report.Domains, ", "))
	fmt.Fprintf(&b, "pass@1: %.3f\n", report.Bundle.Pass1.Raw)
	fmt.Fprintf(&b, "Complexity-weighted pass@1: %.3f\n", report.Bundle.Pass1.ComplexityWeighted)
	return os.WriteFile(path, []byte(b.String()), 0644)
}
