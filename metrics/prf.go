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

// RunMatch couples one run's match result with the run metadata the
// aggregators need.
type RunMatch struct {
	RunID   string
	Domain  string
	Success bool
	Result  *MatchResult
}

// PRFRow is one per-(domain, tool) precision/recall/F1/omission row.
type PRFRow struct {
	Domain       string  `json:"domain"`
	Tool         string  `json:"tool"`
	Precision    float64 `json:"precision"`
	Recall       float64 `json:"recall"`
	F1           float64 `json:"f1"`
	OmissionRate float64 `json:"omission_rate"`
	TP           int     `json:"tp"`
	FP           int     `json:"fp"`
	FN           int     `json:"fn"`
}

// AggregatePRF folds per-run match results into per-(domain, tool) rows,
// sorted by domain then tool.
//
// Conventions on empty denominators: precision and recall are 1.0 when no
// false positives (respectively negatives) were possible, omission rate is
// 0, and F1 follows the harmonic mean of the convention values.
func AggregatePRF(matches []RunMatch) []PRFRow {
	type key struct{ domain, tool string }
	totals := make(map[key]MatchCounts)

	for _, m := range matches {
		for tool, c := range m.Result.Counts {
			k := key{m.Domain, tool}
			t := totals[k]
			t.TP += c.TP
			t.FP += c.FP
			t.FN += c.FN
			totals[k] = t
		}
	}

	rows := make([]PRFRow, 0, len(totals))
	for k, t := range totals {
		precision := 1.0
		if t.TP+t.FP > 0 {
			precision = float64(t.TP) / float64(t.TP+t.FP)
		}
		recall := 1.0
		if t.TP+t.FN > 0 {
			recall = float64(t.TP) / float64(t.TP+t.FN)
		}
		f1 := 0.0
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		omission := 0.0
		if t.TP+t.FN > 0 {
			omission = float64(t.FN) / float64(t.TP+t.FN)
		}
		rows = append(rows, PRFRow{
			Domain:       k.domain,
			Tool:         k.tool,
			Precision:    precision,
			Recall:       recall,
			F1:           f1,
			OmissionRate: omission,
			TP:           t.TP,
			FP:           t.FP,
			FN:           t.FN,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Domain != rows[j].Domain {
			return rows[i].Domain < rows[j].Domain
		}
		return rows[i].Tool < rows[j].Tool
	})
	return rows
}
