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
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/agentlens/agentlens/plan"
	"github.com/agentlens/agentlens/trace"
)

func makeDomainTrace(runID, domain, taskID string, outcome trace.Outcome, tools ...string) *trace.Trace {
	invocations := make([]trace.ToolInvocation, len(tools))
	for i, name := range tools {
		invocations[i] = trace.ToolInvocation{Name: name, Position: i}
	}
	return &trace.Trace{
		RunID:       runID,
		Domain:      domain,
		TaskID:      taskID,
		Invocations: invocations,
		Outcome:     outcome,
	}
}

func makeDomainPlan(domain, taskID string, tools ...string) *plan.ExpectedPlan {
	return &plan.ExpectedPlan{
		TaskID:     taskID,
		Domain:     domain,
		Complexity: float64(len(tools)),
		Steps:      requiredSteps(tools...),
	}
}

func TestCalculate(t *testing.T) {
	lookup := plan.NewMapLookup(
		makeDomainPlan("airline", "task-1", "get_user", "book_flight"),
		makeDomainPlan("retail", "task-9", "find_order", "refund_order"),
	)
	traces := []*trace.Trace{
		makeDomainTrace("run-1", "airline", "task-1", trace.OutcomeSuccess, "get_user", "book_flight"),
		makeDomainTrace("run-2", "airline", "task-1", trace.OutcomeFailure, "get_user"),
		makeDomainTrace("run-3", "retail", "task-9", trace.OutcomeSuccess, "find_order", "refund_order"),
	}

	bundle, err := NewCalculator().Calculate(context.Background(), traces, lookup)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	if diff := cmp.Diff([]string{"airline", "retail"}, bundle.Domains()); diff != "" {
		t.Errorf("Domains mismatch (-want +got):\n%s", diff)
	}

	// book_flight: called in run-1, omitted in run-2.
	var bookFlight *PRFRow
	for i := range bundle.PRF {
		if bundle.PRF[i].Domain == "airline" && bundle.PRF[i].Tool == "book_flight" {
			bookFlight = &bundle.PRF[i]
		}
	}
	if bookFlight == nil {
		t.Fatal("no PRF row for airline/book_flight")
	}
	if bookFlight.Recall != 0.5 || bookFlight.OmissionRate != 0.5 {
		t.Errorf("book_flight recall = %v, omission = %v, want 0.5 and 0.5",
			bookFlight.Recall, bookFlight.OmissionRate)
	}

	if len(bundle.Sequence) != 3 {
		t.Fatalf("got %d sequence rows, want 3", len(bundle.Sequence))
	}
	for i, row := range bundle.Sequence {
		if row.NPED != 0 {
			t.Errorf("sequence row %d (%s) nped = %v, want 0 for compliant order", i, row.RunID, row.NPED)
		}
	}

	if got := bundle.Pass1.Raw; got != 2.0/3.0 {
		t.Errorf("Pass1.Raw = %v, want 2/3", got)
	}
	if got := bundle.Pass1ByDomain["retail"].Raw; got != 1.0 {
		t.Errorf("retail Pass1.Raw = %v, want 1.0", got)
	}
}

func TestCalculateMissingPlan(t *testing.T) {
	lookup := plan.NewMapLookup(makeDomainPlan("airline", "task-1", "get_user"))
	traces := []*trace.Trace{
		makeDomainTrace("run-1", "airline", "task-404", trace.OutcomeSuccess, "get_user"),
	}

	_, err := NewCalculator().Calculate(context.Background(), traces, lookup)
	if !errors.Is(err, ErrInputMismatch) {
		t.Fatalf("Calculate() error = %v, want ErrInputMismatch", err)
	}
	var mismatch *InputMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Calculate() error = %T, want *InputMismatchError", err)
	}
	if mismatch.RunID != "run-1" || mismatch.TaskID != "task-404" {
		t.Errorf("mismatch = %+v, want run-1/task-404", mismatch)
	}
}

func TestCalculateInvalidTrace(t *testing.T) {
	lookup := plan.NewMapLookup(makeDomainPlan("airline", "task-1", "get_user"))
	traces := []*trace.Trace{
		makeDomainTrace("", "airline", "task-1", trace.OutcomeSuccess, "get_user"),
	}

	_, err := NewCalculator().Calculate(context.Background(), traces, lookup)
	if !errors.Is(err, ErrInputMismatch) {
		t.Fatalf("Calculate() error = %v, want ErrInputMismatch", err)
	}
}

func TestCalculateDomainFilter(t *testing.T) {
	lookup := plan.NewMapLookup(
		makeDomainPlan("airline", "task-1", "get_user"),
		makeDomainPlan("retail", "task-9", "find_order"),
	)
	traces := []*trace.Trace{
		makeDomainTrace("run-1", "airline", "task-1", trace.OutcomeSuccess, "get_user"),
		makeDomainTrace("run-2", "retail", "task-9", trace.OutcomeSuccess, "find_order"),
	}

	bundle, err := NewCalculator(WithDomains("retail")).Calculate(context.Background(), traces, lookup)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if diff := cmp.Diff([]string{"retail"}, bundle.Domains()); diff != "" {
		t.Errorf("Domains mismatch (-want +got):\n%s", diff)
	}
	// Traces outside the filter are never resolved, so an unknown airline
	// task would not have failed either.
	if bundle.Pass1.Runs != 1 {
		t.Errorf("Pass1.Runs = %d, want 1", bundle.Pass1.Runs)
	}
}

func TestCalculateEmptyRequestedDomain(t *testing.T) {
	lookup := plan.NewMapLookup(makeDomainPlan("airline", "task-1", "get_user"))
	traces := []*trace.Trace{
		makeDomainTrace("run-1", "airline", "task-1", trace.OutcomeSuccess, "get_user"),
	}

	_, err := NewCalculator(WithDomains("telecom")).Calculate(context.Background(), traces, lookup)
	var mismatch *InputMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Calculate() error = %v, want *InputMismatchError", err)
	}
	if mismatch.Domain != "telecom" {
		t.Errorf("mismatch domain = %q, want telecom", mismatch.Domain)
	}
}

func TestCalculateEmptyBatch(t *testing.T) {
	_, err := NewCalculator().Calculate(context.Background(), nil, plan.NewMapLookup())
	if !errors.Is(err, ErrInputMismatch) {
		t.Fatalf("Calculate() error = %v, want ErrInputMismatch", err)
	}
}

// Results are identical regardless of input order or parallelism.
func TestCalculateOrderInvariant(t *testing.T) {
	lookup := plan.NewMapLookup(
		makeDomainPlan("airline", "task-1", "get_user", "book_flight"),
		makeDomainPlan("airline", "task-2", "get_user", "cancel_flight"),
		makeDomainPlan("retail", "task-9", "find_order", "refund_order"),
	)
	traces := []*trace.Trace{
		makeDomainTrace("run-1", "airline", "task-1", trace.OutcomeSuccess, "get_user", "book_flight"),
		makeDomainTrace("run-2", "airline", "task-2", trace.OutcomeFailure, "cancel_flight", "get_user"),
		makeDomainTrace("run-3", "retail", "task-9", trace.OutcomeSuccess, "refund_order"),
		makeDomainTrace("run-4", "retail", "task-9", trace.OutcomeFailure, "find_order", "find_order"),
	}
	reversed := make([]*trace.Trace, len(traces))
	for i, tr := range traces {
		reversed[len(traces)-1-i] = tr
	}

	forward, err := NewCalculator().Calculate(context.Background(), traces, lookup)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	backward, err := NewCalculator(WithParallelism(1)).Calculate(context.Background(), reversed, lookup)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	if diff := cmp.Diff(forward, backward); diff != "" {
		t.Errorf("bundles differ across input order (-forward +backward):\n%s", diff)
	}
}

func TestCalculateCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lookup := plan.NewMapLookup(makeDomainPlan("airline", "task-1", "get_user"))
	traces := []*trace.Trace{
		makeDomainTrace("run-1", "airline", "task-1", trace.OutcomeSuccess, "get_user"),
	}

	_, err := NewCalculator().Calculate(ctx, traces, lookup)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Calculate() error = %v, want context.Canceled", err)
	}
}
