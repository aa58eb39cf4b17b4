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

// Package metrics turns recorded tool-call traces plus ground-truth plans
// into four quantitative signal families describing how well an agent's
// tool use matches expectations.
//
// # Signal Families
//
// Per-tool PRF/Omission: precision, recall, F1 and omission rate per
// (domain, tool), folded from per-run multiset matches.
//
// Tool Criticality Index (TCI): per tool, the difference in task success
// rate between runs that handled the tool correctly and runs that
// mishandled it. A high TCI means mishandling the tool predicts failure.
//
// Sequence Compliance: normalized Position Edit Distance (nPED) between the
// observed and expected call orders, honoring unordered step groups, plus a
// per-tool position deviation.
//
// Pass@1: raw, complexity-weighted and complexity-bucketed success rates,
// each with a Wilson 95% interval.
//
// # Usage
//
//	calc := metrics.NewCalculator()
//	bundle, err := calc.Calculate(ctx, traces, lookup)
//
// Calculation is pure: it reads the supplied traces and plans and produces a
// fresh Bundle. Per-run scoring fans out across goroutines; aggregation uses
// commutative folds, so the input run order never affects the result.
//
// # Undefined Values
//
// Sparse data legitimately leaves some figures undefined (a TCI with an
// empty comparison group, a position deviation for a tool absent from one
// sequence, a pass@1 bucket with no runs). These surface as tagged Optional
// values, never as a computed 0.0.
package metrics
