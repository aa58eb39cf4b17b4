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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/yaml.v3"
)

// domainCacheSize bounds how many parsed domains are kept in memory.
const domainCacheSize = 32

// taskFileNames are probed in order inside each domain directory.
var taskFileNames = []string{"tasks.json", "tasks.yaml", "tasks.yml"}

// taskDef mirrors the on-disk task definition. The ground-truth tool calls
// live under evaluation_criteria.actions; an action is required unless
// marked optional, and actions sharing a group value are mutually unordered.
type taskDef struct {
	ID                 string   `json:"id" yaml:"id"`
	Complexity         *float64 `json:"complexity,omitempty" yaml:"complexity,omitempty"`
	EvaluationCriteria struct {
		Actions []actionDef `json:"actions" yaml:"actions"`
	} `json:"evaluation_criteria" yaml:"evaluation_criteria"`
}

type actionDef struct {
	Name      string         `json:"name" yaml:"name"`
	Arguments map[string]any `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	Optional  bool           `json:"optional,omitempty" yaml:"optional,omitempty"`
	Group     *int           `json:"group,omitempty" yaml:"group,omitempty"`
}

// Loader reads ground-truth plans from per-domain task definition files laid
// out as <baseDir>/<domain>/tasks.json (or .yaml/.yml). Parsed domains are
// kept in an LRU cache so repeated lookups do not reread files.
//
// Loader implements Lookup; callers that need load errors surfaced should
// resolve domains up front with DomainPlans or Preload.
type Loader struct {
	baseDir string
	cache   *lru.Cache[string, map[string]*ExpectedPlan]
}

// NewLoader creates a Loader rooted at baseDir.
func NewLoader(baseDir string) (*Loader, error) {
	cache, err := lru.New[string, map[string]*ExpectedPlan](domainCacheSize)
	if err != nil {
		return nil, err
	}
	return &Loader{baseDir: baseDir, cache: cache}, nil
}

// Domains lists the domain directories under the loader's base path.
func (l *Loader) Domains() ([]string, error) {
	entries, err := os.ReadDir(l.baseDir)
	if err != nil {
		return nil, fmt.Errorf("plan: reading domains directory: %w", err)
	}
	var domains []string
	for _, e := range entries {
		if e.IsDir() {
			domains = append(domains, e.Name())
		}
	}
	sort.Strings(domains)
	return domains, nil
}

// DomainPlans loads and caches every plan defined for a domain, keyed by
// task ID.
func (l *Loader) DomainPlans(domain string) (map[string]*ExpectedPlan, error) {
	if plans, ok := l.cache.Get(domain); ok {
		return plans, nil
	}

	path, err := l.findTaskFile(domain)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("plan: reading %s: %w", path, err)
	}

	var tasks []taskDef
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &tasks)
	default:
		err = json.Unmarshal(data, &tasks)
	}
	if err != nil {
		return nil, fmt.Errorf("plan: parsing %s: %w", path, err)
	}

	plans := make(map[string]*ExpectedPlan, len(tasks))
	for _, task := range tasks {
		p, err := task.toPlan(domain)
		if err != nil {
			return nil, fmt.Errorf("plan: %s: %w", path, err)
		}
		plans[p.TaskID] = p
	}

	l.cache.Add(domain, plans)
	return plans, nil
}

// Preload resolves the given domains eagerly and returns the first load
// error encountered.
func (l *Loader) Preload(domains ...string) error {
	for _, d := range domains {
		if _, err := l.DomainPlans(d); err != nil {
			return err
		}
	}
	return nil
}

// Plan implements Lookup. Domains that fail to load resolve to not-found;
// use Preload to surface load errors.
func (l *Loader) Plan(domain, taskID string) (*ExpectedPlan, bool) {
	plans, err := l.DomainPlans(domain)
	if err != nil {
		return nil, false
	}
	p, ok := plans[taskID]
	return p, ok
}

func (l *Loader) findTaskFile(domain string) (string, error) {
	for _, name := range taskFileNames {
		path := filepath.Join(l.baseDir, domain, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("plan: no task file for domain %q under %s", domain, l.baseDir)
}

func (t taskDef) toPlan(domain string) (*ExpectedPlan, error) {
	if t.ID == "" {
		return nil, fmt.Errorf("task with empty id")
	}
	actions := t.EvaluationCriteria.Actions
	steps := make([]ExpectedStep, 0, len(actions))
	for _, a := range actions {
		steps = append(steps, ExpectedStep{
			Tool:     a.Name,
			Required: !a.Optional,
			Group:    a.Group,
		})
	}
	complexity := float64(len(steps))
	if t.Complexity != nil {
		complexity = *t.Complexity
	}
	p := &ExpectedPlan{
		TaskID:     t.ID,
		Domain:     domain,
		Complexity: complexity,
		Steps:      steps,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
