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

package metrics

import (
	"sort"

	"github.com/agentlens/agentlens/plan"
	"github.com/agentlens/agentlens/trace"
)

// MatchCounts holds per-tool true/false positive and false negative counts
// for one run.
type MatchCounts struct {
	TP int
	FP int
	FN int
}

// MatchResult is the outcome of matching one run's tool calls against its
// ground-truth plan. Counts carries an entry for every tool with at least
// one nonzero count; a tool expected optionally and never called, or never
// expected and never called, contributes nothing.
type MatchResult struct {
	// Counts maps tool name to its match counts for the run.
	Counts map[string]MatchCounts

	// ExpectedTools lists the distinct tool names the plan mentions,
	// sorted. The criticality engine partitions runs per expected tool.
	ExpectedTools []string
}

// MatchTools matches the observed tool invocations of a run against its
// expected plan, by tool identity and call count only. Argument-level
// correctness is the schema package's concern.
//
// For each distinct tool name:
//
//	tp = min(observed, expected)        expected counts every step
//	fp = max(0, observed - expected)
//	fn = max(0, required - observed)    only required steps can be omitted
func MatchTools(t *trace.Trace, p *plan.ExpectedPlan) *MatchResult {
	observed := t.ToolCounts()
	expected := p.ExpectedCounts()
	required := p.RequiredCounts()

	names := make(map[string]bool, len(observed)+len(expected))
	for name := range observed {
		names[name] = true
	}
	for name := range expected {
		names[name] = true
	}

	counts := make(map[string]MatchCounts, len(names))
	for name := range names {
		c := MatchCounts{
			TP: min(observed[name], expected[name]),
			FP: max(0, observed[name]-expected[name]),
			FN: max(0, required[name]-observed[name]),
		}
		if c.TP > 0 || c.FP > 0 || c.FN > 0 {
			counts[name] = c
		}
	}

	expectedTools := make([]string, 0, len(expected))
	for name := range expected {
		expectedTools = append(expectedTools, name)
	}
	sort.Strings(expectedTools)

	return &MatchResult{Counts: counts, ExpectedTools: expectedTools}
}

// TruePositives returns the sorted tool names with tp > 0.
func (r *MatchResult) TruePositives() []string { return r.names(func(c MatchCounts) bool { return c.TP > 0 }) }

// FalsePositives returns the sorted tool names with fp > 0.
func (r *MatchResult) FalsePositives() []string {
	return r.names(func(c MatchCounts) bool { return c.FP > 0 })
}

// FalseNegatives returns the sorted tool names with fn > 0.
func (r *MatchResult) FalseNegatives() []string {
	return r.names(func(c MatchCounts) bool { return c.FN > 0 })
}

func (r *MatchResult) names(keep func(MatchCounts) bool) []string {
	var names []string
	for name, c := range r.Counts {
		if keep(c) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
