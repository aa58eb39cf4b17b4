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

// Package ingest decodes recorded simulation logs into traces.
//
// A simulation file is a JSON document holding a list of conversations, each
// with its chronological messages; the tool calls of assistant messages form
// the run's invocation sequence. Files produced by different harness versions
// drift in field types (numeric task IDs, string rewards), so decoding is
// deliberately tolerant.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/agentlens/agentlens/trace"
)

type simulationFile struct {
	Simulations []simulationRecord `json:"simulations"`
}

type simulationRecord struct {
	ConversationID    string      `json:"conversation_id"`
	TaskID            string      `json:"task_id"`
	RewardInfo        *rewardInfo `json:"reward_info"`
	Reward            *float64    `json:"reward"`
	TerminationReason string      `json:"termination_reason"`
	Messages          []message   `json:"messages"`
}

type rewardInfo struct {
	Reward *float64 `json:"reward"`
}

type message struct {
	Role      string     `json:"role"`
	ToolCalls []toolCall `json:"tool_calls"`
}

type toolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// DomainFromFilename derives the domain from a simulation filename of the
// form `<timestamp>_<domain>_<llm>_....json`.
func DomainFromFilename(name string) string {
	parts := strings.Split(filepath.Base(name), "_")
	if len(parts) >= 2 {
		return parts[1]
	}
	return "unknown"
}

// succeeded derives the run outcome: an explicit reward wins, then the
// termination reason, then a top-level reward field.
func (r *simulationRecord) succeeded() bool {
	if r.RewardInfo != nil && r.RewardInfo.Reward != nil {
		return *r.RewardInfo.Reward > 0
	}
	if r.TerminationReason != "" {
		return strings.Contains(strings.ToLower(r.TerminationReason), "success")
	}
	return r.Reward != nil && *r.Reward > 0
}

// toTrace converts one decoded conversation into a trace. Invocation
// positions run across the whole conversation in message order.
func (r *simulationRecord) toTrace(domain string) (*trace.Trace, error) {
	if r.TaskID == "" {
		return nil, fmt.Errorf("ingest: conversation %q has no task_id", r.ConversationID)
	}

	runID := r.ConversationID
	if runID == "" {
		runID = uuid.NewString()
	}

	var invocations []trace.ToolInvocation
	for _, msg := range r.Messages {
		if msg.Role != "assistant" {
			continue
		}
		for _, call := range msg.ToolCalls {
			invocations = append(invocations, trace.ToolInvocation{
				Name:      call.Name,
				Arguments: call.Arguments,
				Position:  len(invocations),
			})
		}
	}

	outcome := trace.OutcomeFailure
	if r.succeeded() {
		outcome = trace.OutcomeSuccess
	}

	return &trace.Trace{
		RunID:       runID,
		Domain:      domain,
		TaskID:      r.TaskID,
		Invocations: invocations,
		Outcome:     outcome,
	}, nil
}

// decode maps loosely-typed simulation JSON onto the record structs,
// coercing numeric task IDs and rewards along the way.
func decode(data []byte) (*simulationFile, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("ingest: parsing simulation file: %w", err)
	}

	var file simulationFile
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           &file,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("ingest: decoding simulation file: %w", err)
	}
	return &file, nil
}

// ReadFile decodes every conversation in one simulation file. The domain
// comes from the filename.
func ReadFile(path string) ([]*trace.Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: reading %s: %w", path, err)
	}

	file, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("ingest: %s: %w", path, err)
	}

	domain := DomainFromFilename(path)
	traces := make([]*trace.Trace, 0, len(file.Simulations))
	for i := range file.Simulations {
		t, err := file.Simulations[i].toTrace(domain)
		if err != nil {
			return nil, fmt.Errorf("ingest: %s: %w", path, err)
		}
		traces = append(traces, t)
	}
	return traces, nil
}

// ReadDir decodes every *.json simulation file in a directory, in filename
// order.
func ReadDir(dir string) ([]*trace.Trace, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, fmt.Errorf("ingest: no simulation files in %s", dir)
	}

	var traces []*trace.Trace
	for _, path := range matches {
		fileTraces, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		traces = append(traces, fileTraces...)
	}
	return traces, nil
}
