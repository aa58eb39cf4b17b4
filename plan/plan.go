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

// Package plan defines the ground-truth expectation model: the ordered or
// partially-ordered set of tool calls a correct run should make for a task.
package plan

import "fmt"

// ExpectedStep is one step of a ground-truth plan.
//
// Steps sharing a Group value are mutually unordered: any relative order
// among them is compliant. Steps without a group keep the given relative
// order with respect to all other ungrouped steps. A step that is not
// Required still earns true-positive credit when present but is never
// counted as an omission.
type ExpectedStep struct {
	Tool     string `json:"tool" yaml:"tool"`
	Required bool   `json:"required" yaml:"required"`
	Group    *int   `json:"group,omitempty" yaml:"group,omitempty"`
}

// ExpectedPlan is the canonical ground-truth plan for one task.
//
// Complexity is an ordinal difficulty signal used by the pass@1 aggregator;
// when a task source does not define one, it defaults to the plan length.
type ExpectedPlan struct {
	TaskID     string         `json:"task_id" yaml:"task_id"`
	Domain     string         `json:"domain" yaml:"domain"`
	Complexity float64        `json:"complexity" yaml:"complexity"`
	Steps      []ExpectedStep `json:"steps" yaml:"steps"`
}

// Validate checks the plan invariants: a task identity and a non-empty step
// list with named tools.
func (p *ExpectedPlan) Validate() error {
	if p.TaskID == "" {
		return fmt.Errorf("plan: missing task_id")
	}
	if p.Domain == "" {
		return fmt.Errorf("plan %q: missing domain", p.TaskID)
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("plan %q: no steps", p.TaskID)
	}
	for i, s := range p.Steps {
		if s.Tool == "" {
			return fmt.Errorf("plan %q: step %d has no tool name", p.TaskID, i)
		}
	}
	return nil
}

// ToolNames returns the step tool names in plan order.
func (p *ExpectedPlan) ToolNames() []string {
	names := make([]string, 0, len(p.Steps))
	for _, s := range p.Steps {
		names = append(names, s.Tool)
	}
	return names
}

// ExpectedCounts returns the multiset of all expected tool names, required
// or not.
func (p *ExpectedPlan) ExpectedCounts() map[string]int {
	counts := make(map[string]int, len(p.Steps))
	for _, s := range p.Steps {
		counts[s.Tool]++
	}
	return counts
}

// RequiredCounts returns the multiset of required expected tool names.
func (p *ExpectedPlan) RequiredCounts() map[string]int {
	counts := make(map[string]int, len(p.Steps))
	for _, s := range p.Steps {
		if s.Required {
			counts[s.Tool]++
		}
	}
	return counts
}

// Lookup resolves a task to its ground-truth plan. It is the narrow boundary
// between the metrics engine and whatever loads task definitions.
type Lookup interface {
	// Plan returns the expected plan for a task within a domain, or false
	// when the task is unknown.
	Plan(domain, taskID string) (*ExpectedPlan, bool)
}

// MapLookup is an in-memory Lookup keyed by domain and task.
type MapLookup map[string]*ExpectedPlan

// NewMapLookup builds a MapLookup from a list of plans.
func NewMapLookup(plans ...*ExpectedPlan) MapLookup {
	m := make(MapLookup, len(plans))
	for _, p := range plans {
		m[lookupKey(p.Domain, p.TaskID)] = p
	}
	return m
}

// Plan implements Lookup.
func (m MapLookup) Plan(domain, taskID string) (*ExpectedPlan, bool) {
	p, ok := m[lookupKey(domain, taskID)]
	return p, ok
}

func lookupKey(domain, taskID string) string {
	return domain + "/" + taskID
}
