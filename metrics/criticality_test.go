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
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/agentlens/agentlens/trace"
)

func runMatch(runID string, success bool, called []string, planTools ...string) RunMatch {
	p := makePlan("task-1", requiredSteps(planTools...)...)
	outcome := trace.OutcomeFailure
	if success {
		outcome = trace.OutcomeSuccess
	}
	tr := makeTrace(runID, outcome, called...)
	return RunMatch{RunID: runID, Domain: "airline", Success: success, Result: MatchTools(tr, p)}
}

func TestAggregateTCISplit(t *testing.T) {
	// Tool "pay": handled correctly in two successful runs, mishandled
	// (omitted) in one successful and one failed run.
	matches := []RunMatch{
		runMatch("r1", true, []string{"pay"}, "pay"),
		runMatch("r2", true, []string{"pay"}, "pay"),
		runMatch("r3", true, nil, "pay"),
		runMatch("r4", false, nil, "pay"),
	}

	rows := AggregateTCI(matches)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	row := rows[0]
	if !row.Defined {
		t.Fatal("TCI undefined, want defined")
	}
	// success(correct)=1.0, success(mishandled)=0.5
	if row.TCI != 0.5 {
		t.Errorf("TCI = %v, want 0.5", row.TCI)
	}
	if row.NCorrect != 2 || row.NMishandled != 2 {
		t.Errorf("group sizes = %d/%d, want 2/2", row.NCorrect, row.NMishandled)
	}
}

// A tool that was never mishandled has an empty comparison group: its TCI is
// undefined and must be distinguishable from a computed 0.0.
func TestAggregateTCIUndefinedNotZero(t *testing.T) {
	alwaysCorrect := []RunMatch{
		runMatch("r1", true, []string{"pay"}, "pay"),
		runMatch("r2", false, []string{"pay"}, "pay"),
	}
	rows := AggregateTCI(alwaysCorrect)
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Defined {
		t.Errorf("TCI = %v defined, want undefined (mishandled group empty)", rows[0].TCI)
	}

	// Contrast: a genuinely computed zero stays defined.
	computedZero := []RunMatch{
		runMatch("r1", true, []string{"pay"}, "pay"),
		runMatch("r2", false, []string{"pay"}, "pay"),
		runMatch("r3", true, nil, "pay"),
		runMatch("r4", false, nil, "pay"),
	}
	rows = AggregateTCI(computedZero)
	if !rows[0].Defined || rows[0].TCI != 0.0 {
		t.Errorf("got defined=%v tci=%v, want defined 0.0", rows[0].Defined, rows[0].TCI)
	}
}

func TestAggregateTCIRange(t *testing.T) {
	// Perfect separation: correct always succeeds, mishandled always fails.
	matches := []RunMatch{
		runMatch("r1", true, []string{"pay"}, "pay"),
		runMatch("r2", false, nil, "pay"),
	}
	rows := AggregateTCI(matches)
	if rows[0].TCI != 1.0 {
		t.Errorf("TCI = %v, want 1.0", rows[0].TCI)
	}

	// Inverted: correct fails, mishandled succeeds.
	matches = []RunMatch{
		runMatch("r1", false, []string{"pay"}, "pay"),
		runMatch("r2", true, nil, "pay"),
	}
	rows = AggregateTCI(matches)
	if rows[0].TCI != -1.0 {
		t.Errorf("TCI = %v, want -1.0", rows[0].TCI)
	}
}

func TestAggregateTCIRanking(t *testing.T) {
	matches := []RunMatch{
		// "alpha": TCI 1.0
		runMatch("r1", true, []string{"alpha"}, "alpha"),
		runMatch("r2", false, nil, "alpha"),
		// "beta": TCI 0.0
		runMatch("r3", true, []string{"beta"}, "beta"),
		runMatch("r4", true, nil, "beta"),
		// "zeta": TCI 1.0, ties with alpha, name breaks the tie
		runMatch("r5", true, []string{"zeta"}, "zeta"),
		runMatch("r6", false, nil, "zeta"),
		// "gamma": undefined, sorts after all defined rows
		runMatch("r7", true, []string{"gamma"}, "gamma"),
	}

	rows := AggregateTCI(matches)
	var order []string
	for _, r := range rows {
		order = append(order, r.Tool)
	}
	want := []string{"alpha", "zeta", "beta", "gamma"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("ranking mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregateTCIOrderInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	var matches []RunMatch
	for i := 0; i < 30; i++ {
		var called []string
		if rng.Intn(2) == 0 {
			called = []string{"pay"}
		}
		matches = append(matches, runMatch("run", rng.Intn(2) == 0, called, "pay", "lookup"))
	}

	want := AggregateTCI(matches)
	shuffled := make([]RunMatch, len(matches))
	copy(shuffled, matches)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

	if diff := cmp.Diff(want, AggregateTCI(shuffled)); diff != "" {
		t.Errorf("aggregation depends on run order (-want +got):\n%s", diff)
	}
}
