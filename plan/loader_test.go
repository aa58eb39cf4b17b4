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

package plan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const airlineTasksJSON = `[
  {
    "id": "task_001",
    "evaluation_criteria": {
      "actions": [
        {"name": "get_user", "arguments": {"user_id": "u1"}},
        {"name": "search_flights", "arguments": {"origin": "SFO"}},
        {"name": "send_receipt", "optional": true}
      ]
    }
  },
  {
    "id": "task_002",
    "complexity": 7,
    "evaluation_criteria": {
      "actions": [
        {"name": "get_user", "group": 1},
        {"name": "get_booking", "group": 1},
        {"name": "cancel_booking"}
      ]
    }
  }
]`

const retailTasksYAML = `
- id: task_010
  evaluation_criteria:
    actions:
      - name: get_order
      - name: refund_order
        optional: true
`

func writeTaskDir(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	for domain, content := range map[string]string{
		"airline/tasks.json": airlineTasksJSON,
		"retail/tasks.yaml":  retailTasksYAML,
	} {
		path := filepath.Join(base, domain)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return base
}

func TestLoaderJSON(t *testing.T) {
	loader, err := NewLoader(writeTaskDir(t))
	if err != nil {
		t.Fatalf("NewLoader() error: %v", err)
	}

	p, ok := loader.Plan("airline", "task_001")
	if !ok {
		t.Fatal("Plan(airline, task_001) not found")
	}
	want := []ExpectedStep{
		{Tool: "get_user", Required: true},
		{Tool: "search_flights", Required: true},
		{Tool: "send_receipt", Required: false},
	}
	if diff := cmp.Diff(want, p.Steps); diff != "" {
		t.Errorf("Steps mismatch (-want +got):\n%s", diff)
	}
	// No explicit complexity: defaults to plan length.
	if p.Complexity != 3 {
		t.Errorf("Complexity = %v, want 3", p.Complexity)
	}
}

func TestLoaderGroupsAndComplexity(t *testing.T) {
	loader, err := NewLoader(writeTaskDir(t))
	if err != nil {
		t.Fatalf("NewLoader() error: %v", err)
	}

	p, ok := loader.Plan("airline", "task_002")
	if !ok {
		t.Fatal("Plan(airline, task_002) not found")
	}
	if p.Complexity != 7 {
		t.Errorf("Complexity = %v, want 7", p.Complexity)
	}
	if p.Steps[0].Group == nil || *p.Steps[0].Group != 1 {
		t.Errorf("step 0 group = %v, want 1", p.Steps[0].Group)
	}
	if p.Steps[2].Group != nil {
		t.Errorf("step 2 group = %v, want nil", *p.Steps[2].Group)
	}
}

func TestLoaderYAML(t *testing.T) {
	loader, err := NewLoader(writeTaskDir(t))
	if err != nil {
		t.Fatalf("NewLoader() error: %v", err)
	}

	p, ok := loader.Plan("retail", "task_010")
	if !ok {
		t.Fatal("Plan(retail, task_010) not found")
	}
	if len(p.Steps) != 2 || p.Steps[1].Required {
		t.Errorf("unexpected steps: %+v", p.Steps)
	}
}

func TestLoaderDomains(t *testing.T) {
	loader, err := NewLoader(writeTaskDir(t))
	if err != nil {
		t.Fatalf("NewLoader() error: %v", err)
	}

	domains, err := loader.Domains()
	if err != nil {
		t.Fatalf("Domains() error: %v", err)
	}
	if diff := cmp.Diff([]string{"airline", "retail"}, domains); diff != "" {
		t.Errorf("Domains() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoaderUnknownDomain(t *testing.T) {
	loader, err := NewLoader(writeTaskDir(t))
	if err != nil {
		t.Fatalf("NewLoader() error: %v", err)
	}

	if _, ok := loader.Plan("banking", "task_001"); ok {
		t.Error("Plan() found plan for unknown domain")
	}
	if err := loader.Preload("banking"); err == nil {
		t.Error("Preload(banking) = nil, want error")
	}
}
