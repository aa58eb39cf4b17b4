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
	"sort"

	"github.com/agentlens/agentlens/plan"
	"github.com/agentlens/agentlens/trace"
)

// DefaultPermutationBound is the largest unordered group expanded into
// explicit permutations. Larger groups fall back to set-containment scoring.
const DefaultPermutationBound = 6

// maxCandidates caps the total number of canonical orderings considered for
// one plan. When several groups together would exceed it, the largest groups
// degrade to set-containment scoring first.
const maxCandidates = 5040

// SequenceScore holds the per-run sequence compliance figures.
type SequenceScore struct {
	// NPED is the normalized position edit distance in [0,1]; 0 means the
	// observed order matches some valid linearization of the plan.
	NPED float64

	// PositionDeviation maps each tool seen in the run or the plan to the
	// absolute difference of its normalized first-occurrence positions.
	// Undefined for tools absent from either sequence.
	PositionDeviation map[string]Optional
}

// segment is a maximal run of plan steps scored together: either a single
// ordered step or an unordered group.
type segment struct {
	tools []string
	// permute: expand every ordering of tools; otherwise the group is
	// scored by set containment (order within it is free but membership
	// still counts).
	permute bool
}

// ScoreSequence computes nPED and per-tool position deviation for one run
// against its plan. permutationBound bounds per-group expansion; pass 0 for
// DefaultPermutationBound.
//
// The edit distance is taken between the observed and expected tool-name
// sequences restricted to names present in both, minimized over every
// canonical linearization of the plan's partial order.
func ScoreSequence(t *trace.Trace, p *plan.ExpectedPlan, permutationBound int) SequenceScore {
	if permutationBound <= 0 {
		permutationBound = DefaultPermutationBound
	}

	observed := t.ToolNames()
	expected := p.ToolNames()

	obsSet := toSet(observed)
	expSet := toSet(expected)

	obsRel := filterTo(observed, expSet)
	segments := buildSegments(p.Steps, obsSet)
	demoteOversized(segments, permutationBound)

	expRelLen := 0
	for _, seg := range segments {
		expRelLen += len(seg.tools)
	}

	var nped float64
	if len(obsRel) > 0 || expRelLen > 0 {
		normalized := normalizeContainment(obsRel, segments)
		best := -1
		for _, candidate := range linearizations(segments) {
			if d := levenshtein(normalized, candidate); best < 0 || d < best {
				best = d
				if best == 0 {
					break
				}
			}
		}
		nped = float64(best) / float64(max(len(obsRel), expRelLen))
	}

	return SequenceScore{
		NPED:              nped,
		PositionDeviation: positionDeviation(observed, expected),
	}
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func filterTo(names []string, keep map[string]bool) []string {
	var out []string
	for _, n := range names {
		if keep[n] {
			out = append(out, n)
		}
	}
	return out
}

// buildSegments collapses the plan's steps, restricted to tools also
// observed, into ordered segments. Steps sharing a group value merge into
// one unordered segment anchored at the group's first appearance.
func buildSegments(steps []plan.ExpectedStep, obsSet map[string]bool) []*segment {
	var segments []*segment
	groupSegment := make(map[int]*segment)

	for _, s := range steps {
		if !obsSet[s.Tool] {
			continue
		}
		if s.Group == nil {
			segments = append(segments, &segment{tools: []string{s.Tool}, permute: true})
			continue
		}
		g, ok := groupSegment[*s.Group]
		if !ok {
			g = &segment{permute: true}
			groupSegment[*s.Group] = g
			segments = append(segments, g)
		}
		g.tools = append(g.tools, s.Tool)
	}
	return segments
}

// demoteOversized switches groups beyond the permutation bound, or beyond
// the global candidate budget, to set-containment scoring. Largest groups
// demote first since they dominate the candidate product.
func demoteOversized(segments []*segment, bound int) {
	for _, seg := range segments {
		if len(seg.tools) > bound {
			seg.permute = false
		}
	}
	if countCandidates(segments) <= maxCandidates {
		return
	}
	bySize := make([]*segment, 0, len(segments))
	for _, seg := range segments {
		if seg.permute && len(seg.tools) > 1 {
			bySize = append(bySize, seg)
		}
	}
	sort.Slice(bySize, func(i, j int) bool { return len(bySize[i].tools) > len(bySize[j].tools) })
	for _, seg := range bySize {
		if countCandidates(segments) <= maxCandidates {
			return
		}
		seg.permute = false
	}
}

func countCandidates(segments []*segment) int {
	total := 1
	for _, seg := range segments {
		if seg.permute {
			total *= factorial(len(seg.tools))
		}
		if total > maxCandidates {
			return total
		}
	}
	return total
}

func factorial(n int) int {
	f := 1
	for i := 2; i <= n; i++ {
		f *= i
	}
	return f
}

// normalizeContainment rewrites the observed subsequence belonging to each
// containment-scored group into canonical order, so any intra-group order
// costs nothing while membership differences still do.
func normalizeContainment(obsRel []string, segments []*segment) []string {
	out := make([]string, len(obsRel))
	copy(out, obsRel)

	claimed := make(map[string]*segment)
	for _, seg := range segments {
		if seg.permute {
			continue
		}
		for _, tool := range seg.tools {
			if _, ok := claimed[tool]; !ok {
				claimed[tool] = seg
			}
		}
	}
	if len(claimed) == 0 {
		return out
	}

	indices := make(map[*segment][]int)
	for i, name := range out {
		if seg, ok := claimed[name]; ok {
			indices[seg] = append(indices[seg], i)
		}
	}
	for _, idxs := range indices {
		names := make([]string, len(idxs))
		for j, i := range idxs {
			names[j] = out[i]
		}
		sort.Strings(names)
		for j, i := range idxs {
			out[i] = names[j]
		}
	}
	return out
}

// linearizations expands the segments into every canonical ordering.
// Containment segments contribute their tools in canonical sorted order.
func linearizations(segments []*segment) [][]string {
	candidates := [][]string{nil}
	for _, seg := range segments {
		var expansions [][]string
		if seg.permute && len(seg.tools) > 1 {
			expansions = permutations(seg.tools)
		} else {
			tools := make([]string, len(seg.tools))
			copy(tools, seg.tools)
			if !seg.permute {
				sort.Strings(tools)
			}
			expansions = [][]string{tools}
		}

		next := make([][]string, 0, len(candidates)*len(expansions))
		for _, c := range candidates {
			for _, e := range expansions {
				merged := make([]string, 0, len(c)+len(e))
				merged = append(merged, c...)
				merged = append(merged, e...)
				next = append(next, merged)
			}
		}
		candidates = next
	}
	return candidates
}

// permutations returns every ordering of names (Heap's algorithm).
func permutations(names []string) [][]string {
	work := make([]string, len(names))
	copy(work, names)

	var out [][]string
	var generate func(k int)
	generate = func(k int) {
		if k == 1 {
			perm := make([]string, len(work))
			copy(perm, work)
			out = append(out, perm)
			return
		}
		for i := 0; i < k; i++ {
			generate(k - 1)
			if k%2 == 0 {
				work[i], work[k-1] = work[k-1], work[i]
			} else {
				work[0], work[k-1] = work[k-1], work[0]
			}
		}
	}
	generate(len(work))
	return out
}

// levenshtein is the classic unit-cost edit distance over tool names.
func levenshtein(a, b []string) int {
	m, n := len(a), len(b)
	prev := make([]int, n+1)
	curr := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}
	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[n]
}

// positionDeviation compares normalized first-occurrence positions over the
// full observed and expected sequences.
func positionDeviation(observed, expected []string) map[string]Optional {
	obsFirst := firstOccurrences(observed)
	expFirst := firstOccurrences(expected)

	out := make(map[string]Optional, len(obsFirst)+len(expFirst))
	for name := range obsFirst {
		out[name] = Undefined()
	}
	for name := range expFirst {
		out[name] = Undefined()
	}
	for name, oi := range obsFirst {
		ei, ok := expFirst[name]
		if !ok {
			continue
		}
		d := normalizedPos(oi, len(observed)) - normalizedPos(ei, len(expected))
		if d < 0 {
			d = -d
		}
		out[name] = Defined(d)
	}
	return out
}

func firstOccurrences(names []string) map[string]int {
	first := make(map[string]int, len(names))
	for i, n := range names {
		if _, ok := first[n]; !ok {
			first[n] = i
		}
	}
	return first
}

func normalizedPos(i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(i) / float64(n-1)
}
