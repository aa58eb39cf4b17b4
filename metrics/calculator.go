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
	"runtime"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/agentlens/agentlens/internal/telemetry"
	"github.com/agentlens/agentlens/plan"
	"github.com/agentlens/agentlens/trace"
)

// Calculator orchestrates the metric engines over a batch of runs.
// The zero-value configuration is usable; construct with NewCalculator.
type Calculator struct {
	weight           WeightFunc
	buckets          []Bucket
	permutationBound int
	parallelism      int
	domains          []string
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithWeightFunc sets the complexity weight for weighted pass@1.
func WithWeightFunc(w WeightFunc) Option {
	return func(c *Calculator) { c.weight = w }
}

// WithBuckets sets the complexity bands for bucketed pass@1.
func WithBuckets(buckets []Bucket) Option {
	return func(c *Calculator) { c.buckets = buckets }
}

// WithPermutationBound sets the largest unordered group expanded into
// explicit permutations by the sequence engine.
func WithPermutationBound(bound int) Option {
	return func(c *Calculator) { c.permutationBound = bound }
}

// WithParallelism bounds the number of runs scored concurrently.
func WithParallelism(n int) Option {
	return func(c *Calculator) { c.parallelism = n }
}

// WithDomains restricts the computation to the given domains. Each
// requested domain must hold at least one run.
func WithDomains(domains ...string) Option {
	return func(c *Calculator) { c.domains = domains }
}

// NewCalculator creates a Calculator with the given options applied over
// the defaults.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		weight:           IdentityWeight,
		buckets:          DefaultBuckets(),
		permutationBound: DefaultPermutationBound,
		parallelism:      runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// resolvedRun is one trace joined with its plan.
type resolvedRun struct {
	trace *trace.Trace
	plan  *plan.ExpectedPlan
}

// perRunScore is the embarrassingly-parallel part of the computation.
type perRunScore struct {
	match    *MatchResult
	sequence SequenceScore
}

// Calculate runs every metric engine over the batch and returns a fresh
// Bundle. A trace referencing a task with no plan, a malformed trace, or a
// requested domain without runs aborts the whole batch with an
// *InputMismatchError; nothing is silently skipped.
func (c *Calculator) Calculate(ctx context.Context, traces []*trace.Trace, lookup plan.Lookup) (_ *Bundle, err error) {
	ctx, spans := telemetry.StartSpans(ctx, "metrics.calculate",
		attribute.Int("agentlens.runs", len(traces)))
	defer func() { telemetry.EndSpans(spans, err) }()

	runs, err := c.resolve(traces, lookup)
	if err != nil {
		return nil, err
	}

	scores, err := c.scoreRuns(ctx, runs)
	if err != nil {
		return nil, err
	}

	return c.reduce(runs, scores), nil
}

// resolve validates every trace, joins it with its plan and checks the
// domain constraints.
func (c *Calculator) resolve(traces []*trace.Trace, lookup plan.Lookup) ([]resolvedRun, error) {
	runs := make([]resolvedRun, 0, len(traces))
	domainRuns := make(map[string]int)

	for _, t := range traces {
		if verr := t.Validate(); verr != nil {
			return nil, &InputMismatchError{
				RunID:  t.RunID,
				TaskID: t.TaskID,
				Domain: t.Domain,
				Reason: verr.Error(),
			}
		}
		if c.skipDomain(t.Domain) {
			continue
		}
		p, ok := lookup.Plan(t.Domain, t.TaskID)
		if !ok {
			return nil, &InputMismatchError{
				RunID:  t.RunID,
				TaskID: t.TaskID,
				Domain: t.Domain,
				Reason: "no expected plan for task",
			}
		}
		runs = append(runs, resolvedRun{trace: t, plan: p})
		domainRuns[t.Domain]++
	}

	for _, domain := range c.domains {
		if domainRuns[domain] == 0 {
			return nil, &InputMismatchError{Domain: domain, Reason: "domain has zero runs"}
		}
	}
	if len(runs) == 0 {
		return nil, &InputMismatchError{Reason: "batch has zero runs"}
	}

	// Canonical order: aggregation inputs never depend on arrival order.
	sort.SliceStable(runs, func(i, j int) bool {
		a, b := runs[i].trace, runs[j].trace
		if a.Domain != b.Domain {
			return a.Domain < b.Domain
		}
		return a.RunID < b.RunID
	})
	return runs, nil
}

func (c *Calculator) skipDomain(domain string) bool {
	if len(c.domains) == 0 {
		return false
	}
	for _, d := range c.domains {
		if d == domain {
			return false
		}
	}
	return true
}

// scoreRuns fans the per-run engines out across goroutines. Each result
// lands at its run's index, so concurrency cannot reorder the reduction.
func (c *Calculator) scoreRuns(ctx context.Context, runs []resolvedRun) ([]perRunScore, error) {
	scores := make([]perRunScore, len(runs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, c.parallelism))
	for i, run := range runs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			scores[i] = perRunScore{
				match:    MatchTools(run.trace, run.plan),
				sequence: ScoreSequence(run.trace, run.plan, c.permutationBound),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scores, nil
}

// reduce folds the per-run scores into the aggregate tables.
func (c *Calculator) reduce(runs []resolvedRun, scores []perRunScore) *Bundle {
	matches := make([]RunMatch, len(runs))
	sequenceRows := make([]SequenceRow, len(runs))
	outcomes := make([]RunOutcome, len(runs))
	outcomesByDomain := make(map[string][]RunOutcome)

	type devKey struct{ domain, tool string }
	devSums := make(map[devKey]float64)
	devCounts := make(map[devKey]int)
	devSeen := make(map[devKey]bool)

	for i, run := range runs {
		t := run.trace
		matches[i] = RunMatch{
			RunID:   t.RunID,
			Domain:  t.Domain,
			Success: t.Succeeded(),
			Result:  scores[i].match,
		}
		sequenceRows[i] = SequenceRow{
			RunID:  t.RunID,
			Domain: t.Domain,
			TaskID: t.TaskID,
			NPED:   scores[i].sequence.NPED,
		}
		outcome := RunOutcome{Success: t.Succeeded(), Complexity: run.plan.Complexity}
		outcomes[i] = outcome
		outcomesByDomain[t.Domain] = append(outcomesByDomain[t.Domain], outcome)

		for tool, dev := range scores[i].sequence.PositionDeviation {
			k := devKey{t.Domain, tool}
			devSeen[k] = true
			if dev.Defined {
				devSums[k] += dev.Value
				devCounts[k]++
			}
		}
	}

	devRows := make([]PositionDeviationRow, 0, len(devSeen))
	for k := range devSeen {
		row := PositionDeviationRow{
			Domain:        k.domain,
			Tool:          k.tool,
			MeanDeviation: Undefined(),
			Runs:          devCounts[k],
		}
		if n := devCounts[k]; n > 0 {
			row.MeanDeviation = Defined(devSums[k] / float64(n))
		}
		devRows = append(devRows, row)
	}
	sort.Slice(devRows, func(i, j int) bool {
		if devRows[i].Domain != devRows[j].Domain {
			return devRows[i].Domain < devRows[j].Domain
		}
		return devRows[i].Tool < devRows[j].Tool
	})

	pass1ByDomain := make(map[string]Pass1Report, len(outcomesByDomain))
	for domain, domainOutcomes := range outcomesByDomain {
		pass1ByDomain[domain] = AggregatePass1(domainOutcomes, c.weight, c.buckets)
	}

	return &Bundle{
		PRF:               AggregatePRF(matches),
		TCI:               AggregateTCI(matches),
		Sequence:          sequenceRows,
		PositionDeviation: devRows,
		Pass1:             AggregatePass1(outcomes, c.weight, c.buckets),
		Pass1ByDomain:     pass1ByDomain,
	}
}
