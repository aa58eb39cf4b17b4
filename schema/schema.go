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

// Package schema loads per-domain tool definitions and validates recorded
// invocation arguments against their declared JSON schemas.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/agentlens/agentlens/trace"
)

// ToolSchema is the declared interface of one tool: its name and the JSON
// schema of its arguments. The schema is resolved once at load time.
type ToolSchema struct {
	Name        string
	Description string

	parameters *jsonschema.Schema
	resolved   *jsonschema.Resolved
}

// NewToolSchema builds a ToolSchema from a raw parameter schema. A nil
// parameters schema declares a tool that takes no arguments; any arguments
// are then accepted.
func NewToolSchema(name, description string, parameters *jsonschema.Schema) (*ToolSchema, error) {
	ts := &ToolSchema{Name: name, Description: description, parameters: parameters}
	if parameters != nil {
		resolved, err := parameters.Resolve(nil)
		if err != nil {
			return nil, fmt.Errorf("schema: resolving %q: %w", name, err)
		}
		ts.resolved = resolved
	}
	return ts, nil
}

// Validate checks args against the tool's parameter schema.
func (ts *ToolSchema) Validate(args map[string]any) error {
	if ts.resolved == nil {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := ts.resolved.Validate(args); err != nil {
		return fmt.Errorf("schema: tool %q: %w", ts.Name, err)
	}
	return nil
}

// Registry holds the tool schemas of every loaded domain.
type Registry struct {
	domains map[string]map[string]*ToolSchema
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{domains: make(map[string]map[string]*ToolSchema)}
}

// Register adds a tool schema under a domain, replacing any previous schema
// with the same name.
func (r *Registry) Register(domain string, ts *ToolSchema) {
	tools, ok := r.domains[domain]
	if !ok {
		tools = make(map[string]*ToolSchema)
		r.domains[domain] = tools
	}
	tools[ts.Name] = ts
}

// Tool returns the schema for a tool within a domain.
func (r *Registry) Tool(domain, name string) (*ToolSchema, bool) {
	ts, ok := r.domains[domain][name]
	return ts, ok
}

// ToolNames returns the sorted tool names registered under a domain.
func (r *Registry) ToolNames(domain string) []string {
	names := make([]string, 0, len(r.domains[domain]))
	for name := range r.domains[domain] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// toolDef mirrors one entry of a domain's tools.json file.
type toolDef struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
}

// LoadDomain reads `<baseDir>/<domain>/tools.json` into the registry. A
// domain without a tools file is not an error; argument validation is then
// unavailable for that domain.
func (r *Registry) LoadDomain(baseDir, domain string) error {
	path := filepath.Join(baseDir, domain, "tools.json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("schema: reading %s: %w", path, err)
	}

	var defs []toolDef
	if err := json.Unmarshal(data, &defs); err != nil {
		return fmt.Errorf("schema: parsing %s: %w", path, err)
	}
	for _, def := range defs {
		if def.Name == "" {
			return fmt.Errorf("schema: %s: tool with no name", path)
		}
		ts, err := NewToolSchema(def.Name, def.Description, def.Parameters)
		if err != nil {
			return err
		}
		r.Register(domain, ts)
	}
	return nil
}

// Issue is one argument-level finding for a recorded invocation.
type Issue struct {
	RunID    string `json:"run_id"`
	Tool     string `json:"tool"`
	Position int    `json:"position"`
	Reason   string `json:"reason"`
}

// ValidateTrace checks every invocation of a run against the registry and
// returns the issues found. An unknown tool is an issue; a domain with no
// registered schemas yields none.
func (r *Registry) ValidateTrace(t *trace.Trace) []Issue {
	tools := r.domains[t.Domain]
	if len(tools) == 0 {
		return nil
	}

	var issues []Issue
	for _, inv := range t.Invocations {
		ts, ok := tools[inv.Name]
		if !ok {
			issues = append(issues, Issue{
				RunID:    t.RunID,
				Tool:     inv.Name,
				Position: inv.Position,
				Reason:   "tool not declared for domain",
			})
			continue
		}
		if err := ts.Validate(inv.Arguments); err != nil {
			issues = append(issues, Issue{
				RunID:    t.RunID,
				Tool:     inv.Name,
				Position: inv.Position,
				Reason:   err.Error(),
			})
		}
	}
	return issues
}
