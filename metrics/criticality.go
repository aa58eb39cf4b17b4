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

// TCIRow is one per-(domain, tool) criticality row. When Defined is false
// one of the comparison groups was empty and TCI carries no value; consumers
// must not read the zero as a computed score.
type TCIRow struct {
	Domain      string  `json:"domain"`
	Tool        string  `json:"tool"`
	TCI         float64 `json:"tci"`
	Defined     bool    `json:"defined"`
	NCorrect    int     `json:"n_correct"`
	NMishandled int     `json:"n_mishandled"`
}

// AggregateTCI estimates, per (domain, tool), how strongly mishandling the
// tool is associated with task failure.
//
// For each tool, runs expecting it split into a correct group (tp>0, fp=0,
// fn=0 for that tool in that run) and a mishandled group (fp>0 or fn>0).
// TCI is the success-rate difference between the groups, clamped to [-1,1].
// Runs where an optional step simply went unused fall in neither group.
//
// Rows sort by domain, then defined rows by TCI descending with ties broken
// by tool name, then undefined rows by tool name.
func AggregateTCI(matches []RunMatch) []TCIRow {
	type key struct{ domain, tool string }
	type tally struct {
		nCorrect, correctSuccess       int
		nMishandled, mishandledSuccess int
	}
	tallies := make(map[key]*tally)

	for _, m := range matches {
		for _, tool := range m.Result.ExpectedTools {
			c := m.Result.Counts[tool]
			correct := c.TP > 0 && c.FP == 0 && c.FN == 0
			mishandled := c.FP > 0 || c.FN > 0
			if !correct && !mishandled {
				continue
			}
			k := key{m.Domain, tool}
			t := tallies[k]
			if t == nil {
				t = &tally{}
				tallies[k] = t
			}
			if correct {
				t.nCorrect++
				if m.Success {
					t.correctSuccess++
				}
			} else {
				t.nMishandled++
				if m.Success {
					t.mishandledSuccess++
				}
			}
		}
	}

	rows := make([]TCIRow, 0, len(tallies))
	for k, t := range tallies {
		row := TCIRow{
			Domain:      k.domain,
			Tool:        k.tool,
			NCorrect:    t.nCorrect,
			NMishandled: t.nMishandled,
		}
		if t.nCorrect > 0 && t.nMishandled > 0 {
			tci := float64(t.correctSuccess)/float64(t.nCorrect) -
				float64(t.mishandledSuccess)/float64(t.nMishandled)
			row.TCI = clamp(tci, -1, 1)
			row.Defined = true
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Domain != b.Domain {
			return a.Domain < b.Domain
		}
		if a.Defined != b.Defined {
			return a.Defined
		}
		if a.Defined && a.TCI != b.TCI {
			return a.TCI > b.TCI
		}
		return a.Tool < b.Tool
	})
	return rows
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
