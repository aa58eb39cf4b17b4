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

// Package analyze implements the analyze command: ingest simulation logs,
// join them with ground-truth plans, compute the metric tables and persist
// the resulting report.
package analyze

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/agentlens/agentlens/cmd/agentlens/root"
	"github.com/agentlens/agentlens/ingest"
	"github.com/agentlens/agentlens/metrics"
	"github.com/agentlens/agentlens/plan"
	"github.com/agentlens/agentlens/schema"
	"github.com/agentlens/agentlens/storage"
	"github.com/agentlens/agentlens/trace"
)

type analyzeFlags struct {
	inputDir         string
	tasksDir         string
	outputDir        string
	dbPath           string
	label            string
	domains          []string
	permutationBound int
}

var Flags analyzeFlags

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze simulation runs against ground-truth plans.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return Flags.run(cmd)
	},
}

func init() {
	root.RootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&Flags.inputDir, "input-dir", "i", "", "Directory containing simulation JSON files")
	analyzeCmd.Flags().StringVarP(&Flags.tasksDir, "tasks-dir", "t", "", "Directory containing per-domain task definitions")
	analyzeCmd.Flags().StringVarP(&Flags.outputDir, "output-dir", "o", "", "Directory for the report and CSV tables")
	analyzeCmd.Flags().StringVar(&Flags.dbPath, "db", "", "SQLite database file to append the report to")
	analyzeCmd.Flags().StringVar(&Flags.label, "label", "", "Label stored with the report (defaults to the input directory name)")
	analyzeCmd.Flags().StringSliceVar(&Flags.domains, "domain", nil, "Restrict the analysis to these domains")
	analyzeCmd.Flags().IntVar(&Flags.permutationBound, "permutation-bound", metrics.DefaultPermutationBound, "Largest unordered group expanded into explicit permutations")

	analyzeCmd.MarkFlagRequired("input-dir")
	analyzeCmd.MarkFlagRequired("tasks-dir")
}

func (f *analyzeFlags) run(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	traces, err := ingest.ReadDir(f.inputDir)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Analyzing %d runs from %s\n", len(traces), f.inputDir)

	loader, err := plan.NewLoader(f.tasksDir)
	if err != nil {
		return err
	}
	domains := traceDomains(traces, f.domains)
	if err := loader.Preload(domains...); err != nil {
		return err
	}

	f.reportSchemaIssues(out, traces, domains)

	opts := []metrics.Option{metrics.WithPermutationBound(f.permutationBound)}
	if len(f.domains) > 0 {
		opts = append(opts, metrics.WithDomains(f.domains...))
	}
	bundle, err := metrics.NewCalculator(opts...).Calculate(cmd.Context(), traces, loader)
	if err != nil {
		return err
	}

	label := f.label
	if label == "" {
		label = filepath.Base(f.inputDir)
	}
	report := storage.NewReport(label, bundle)

	printSummary(out, report)

	if f.outputDir != "" {
		if err := f.writeOutputs(cmd.Context(), report); err != nil {
			return err
		}
		fmt.Fprintf(out, "Results saved to %s\n", f.outputDir)
	}
	if f.dbPath != "" {
		db, err := storage.NewDatabaseStorage(f.dbPath)
		if err != nil {
			return err
		}
		if err := db.SaveReport(cmd.Context(), report); err != nil {
			return err
		}
		fmt.Fprintf(out, "Report %s appended to %s\n", report.ID, f.dbPath)
	}
	return nil
}

// traceDomains returns the sorted distinct domains of the traces, restricted
// to the requested ones when a filter is set.
func traceDomains(traces []*trace.Trace, requested []string) []string {
	allowed := make(map[string]bool, len(requested))
	for _, d := range requested {
		allowed[d] = true
	}

	seen := make(map[string]bool)
	var domains []string
	for _, t := range traces {
		if len(allowed) > 0 && !allowed[t.Domain] {
			continue
		}
		if !seen[t.Domain] {
			seen[t.Domain] = true
			domains = append(domains, t.Domain)
		}
	}
	sort.Strings(domains)
	return domains
}

// reportSchemaIssues validates invocation arguments against the domains'
// declared tool schemas, when present. Issues are advisory; they never stop
// the analysis.
func (f *analyzeFlags) reportSchemaIssues(out io.Writer, traces []*trace.Trace, domains []string) {
	registry := schema.NewRegistry()
	for _, domain := range domains {
		if err := registry.LoadDomain(f.tasksDir, domain); err != nil {
			fmt.Fprintf(out, "Skipping argument validation for %s: %v\n", domain, err)
		}
	}

	var issues int
	for _, t := range traces {
		issues += len(registry.ValidateTrace(t))
	}
	if issues > 0 {
		fmt.Fprintf(out, "Argument validation found %d issues\n", issues)
	}
}

func printSummary(out io.Writer, report *storage.Report) {
	bundle := report.Bundle

	fmt.Fprintf(out, "\nMetrics summary (%d runs)\n", report.Runs)
	fmt.Fprintf(out, "  pass@1:                     %.3f\n", bundle.Pass1.Raw)
	fmt.Fprintf(out, "  complexity-weighted pass@1: %.3f\n", bundle.Pass1.ComplexityWeighted)
	if report.Runs > 0 {
		ci := bundle.Pass1.RawCI
		fmt.Fprintf(out, "  95%% CI:                     [%.3f, %.3f]\n", ci.Lower, ci.Upper)
	}

	fmt.Fprintf(out, "\nPer-tool analysis\n")
	for _, row := range bundle.PRF {
		fmt.Fprintf(out, "  %-12s %-30s P=%.2f R=%.2f F1=%.2f\n",
			row.Domain, row.Tool, row.Precision, row.Recall, row.F1)
	}

	fmt.Fprintf(out, "\nTool criticality (top 5)\n")
	for _, row := range topCriticality(bundle.TCI, 5) {
		fmt.Fprintf(out, "  %-12s %-30s TCI=%.3f\n", row.Domain, row.Tool, row.TCI)
	}

	fmt.Fprintf(out, "\nComplexity buckets\n")
	for _, label := range sortedBucketLabels(bundle.Pass1.ByBucket) {
		bucket := bundle.Pass1.ByBucket[label]
		if !bucket.Pass1.Defined {
			fmt.Fprintf(out, "  %-10s no data\n", label)
			continue
		}
		fmt.Fprintf(out, "  %-10s %.2f%% over %d runs\n", label, bucket.Pass1.Value*100, bucket.Runs)
	}
}

// topCriticality returns the n highest defined TCI rows across all domains.
func topCriticality(rows []metrics.TCIRow, n int) []metrics.TCIRow {
	var defined []metrics.TCIRow
	for _, row := range rows {
		if row.Defined {
			defined = append(defined, row)
		}
	}
	sort.SliceStable(defined, func(i, j int) bool { return defined[i].TCI > defined[j].TCI })
	if len(defined) > n {
		defined = defined[:n]
	}
	return defined
}

func sortedBucketLabels(buckets map[string]metrics.BucketPass1) []string {
	labels := make([]string, 0, len(buckets))
	for label := range buckets {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
