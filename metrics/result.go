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

import "sort"

// SequenceRow is the per-run sequence compliance record.
type SequenceRow struct {
	RunID  string  `json:"run_id"`
	Domain string  `json:"domain"`
	TaskID string  `json:"task_id"`
	NPED   float64 `json:"nped"`
}

// PositionDeviationRow aggregates the mean position deviation of one tool
// within a domain, over the runs where the deviation was defined.
type PositionDeviationRow struct {
	Domain        string   `json:"domain"`
	Tool          string   `json:"tool"`
	MeanDeviation Optional `json:"mean_position_deviation"`
	Runs          int      `json:"runs"`
}

// Bundle is the unified output of one metrics computation. It is created
// fresh per Calculate call and has no identity beyond it; the storage
// package assigns IDs when persisting.
type Bundle struct {
	// PRF holds one row per (domain, tool), sorted.
	PRF []PRFRow `json:"per_tool_prf"`

	// TCI holds one row per (domain, tool), ranked per domain by TCI
	// descending with undefined rows last.
	TCI []TCIRow `json:"tool_criticality"`

	// Sequence holds one row per run, sorted by domain then run ID.
	Sequence []SequenceRow `json:"sequence_compliance"`

	// PositionDeviation holds one row per (domain, tool), sorted.
	PositionDeviation []PositionDeviationRow `json:"position_deviation"`

	// Pass1 is the pass@1 report over every run in the batch.
	Pass1 Pass1Report `json:"pass_at_1"`

	// Pass1ByDomain breaks the pass@1 report down per domain.
	Pass1ByDomain map[string]Pass1Report `json:"pass_at_1_by_domain"`
}

// Domains returns the sorted distinct domains present in the bundle.
func (b *Bundle) Domains() []string {
	seen := make(map[string]bool)
	var domains []string
	for domain := range b.Pass1ByDomain {
		if !seen[domain] {
			seen[domain] = true
			domains = append(domains, domain)
		}
	}
	sort.Strings(domains)
	return domains
}
