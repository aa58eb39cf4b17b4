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

// Package trace defines the immutable in-memory representation of one
// recorded simulation run: its ordered tool invocations and terminal outcome.
package trace

import "fmt"

// Outcome is the terminal result of a simulation run.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// ToolInvocation records a single tool call within a run.
// Position is the zero-based index of the call in the run's chronological
// call order. Invocations are never mutated once recorded.
type ToolInvocation struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Position  int            `json:"position"`
}

// Trace is one recorded agent interaction run. The metrics calculator reads
// traces but never mutates them.
type Trace struct {
	RunID       string           `json:"run_id"`
	Domain      string           `json:"domain"`
	TaskID      string           `json:"task_id"`
	Invocations []ToolInvocation `json:"invocations"`
	Outcome     Outcome          `json:"outcome"`
}

// Succeeded reports whether the run ended in success.
func (t *Trace) Succeeded() bool {
	return t.Outcome == OutcomeSuccess
}

// ToolNames returns the tool names in chronological call order.
func (t *Trace) ToolNames() []string {
	names := make([]string, 0, len(t.Invocations))
	for _, inv := range t.Invocations {
		names = append(names, inv.Name)
	}
	return names
}

// ToolCounts returns the multiset of tool names observed in the run.
func (t *Trace) ToolCounts() map[string]int {
	counts := make(map[string]int, len(t.Invocations))
	for _, inv := range t.Invocations {
		counts[inv.Name]++
	}
	return counts
}

// Validate checks that the trace carries every field the metrics engine
// requires. It does not inspect invocation arguments.
func (t *Trace) Validate() error {
	if t.RunID == "" {
		return fmt.Errorf("trace: missing run_id")
	}
	if t.Domain == "" {
		return fmt.Errorf("trace %q: missing domain", t.RunID)
	}
	if t.TaskID == "" {
		return fmt.Errorf("trace %q: missing task_id", t.RunID)
	}
	if t.Outcome != OutcomeSuccess && t.Outcome != OutcomeFailure {
		return fmt.Errorf("trace %q: invalid outcome %q", t.RunID, t.Outcome)
	}
	for i, inv := range t.Invocations {
		if inv.Name == "" {
			return fmt.Errorf("trace %q: invocation %d has no tool name", t.RunID, i)
		}
	}
	return nil
}
