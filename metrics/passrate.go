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

import "math"

// WeightFunc maps a task complexity to its weight in complexity-weighted
// pass@1. It must be monotonically non-decreasing.
type WeightFunc func(complexity float64) float64

// IdentityWeight weighs each run by its complexity value.
func IdentityWeight(complexity float64) float64 { return complexity }

// Bucket is one complexity band for bucketed pass@1. Lower is inclusive and
// Upper exclusive, except for the last configured bucket, which is closed.
type Bucket struct {
	Label string  `json:"label"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// DefaultBuckets mirrors the conventional simple/medium/complex split on
// plan length.
func DefaultBuckets() []Bucket {
	return []Bucket{
		{Label: "simple", Lower: 0, Upper: 3},
		{Label: "medium", Lower: 3, Upper: 6},
		{Label: "complex", Lower: 6, Upper: math.Inf(1)},
	}
}

// Interval is a two-sided confidence interval.
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// BucketPass1 is the pass@1 figure for one complexity band. Pass1 is
// undefined, an explicit no-data marker, when the band holds no runs.
type BucketPass1 struct {
	Pass1 Optional  `json:"pass1"`
	Runs  int       `json:"runs"`
	CI    *Interval `json:"ci,omitempty"`
}

// Pass1Report carries the raw, complexity-weighted and bucketed success
// rates for a batch of runs.
type Pass1Report struct {
	Raw                float64                `json:"raw"`
	RawCI              Interval               `json:"raw_ci"`
	ComplexityWeighted float64                `json:"complexity_weighted"`
	ByBucket           map[string]BucketPass1 `json:"by_bucket"`
	Runs               int                    `json:"runs"`
}

// RunOutcome is the minimal per-run input to the pass@1 aggregator.
type RunOutcome struct {
	Success    bool
	Complexity float64
}

// AggregatePass1 computes the pass@1 report. weight defaults to
// IdentityWeight and buckets to DefaultBuckets when nil. Should every weight
// come out zero, the weighted figure falls back to the raw rate.
func AggregatePass1(runs []RunOutcome, weight WeightFunc, buckets []Bucket) Pass1Report {
	if weight == nil {
		weight = IdentityWeight
	}
	if buckets == nil {
		buckets = DefaultBuckets()
	}

	report := Pass1Report{
		ByBucket: make(map[string]BucketPass1, len(buckets)),
		Runs:     len(runs),
	}

	successes := 0
	var weightedSum, weightTotal float64
	bucketRuns := make([]int, len(buckets))
	bucketSuccesses := make([]int, len(buckets))

	for _, r := range runs {
		if r.Success {
			successes++
		}
		w := weight(r.Complexity)
		weightTotal += w
		if r.Success {
			weightedSum += w
		}
		if i := bucketIndex(buckets, r.Complexity); i >= 0 {
			bucketRuns[i]++
			if r.Success {
				bucketSuccesses[i]++
			}
		}
	}

	if len(runs) > 0 {
		report.Raw = float64(successes) / float64(len(runs))
		report.RawCI = WilsonInterval(successes, len(runs))
	}
	if weightTotal > 0 {
		report.ComplexityWeighted = weightedSum / weightTotal
	} else {
		report.ComplexityWeighted = report.Raw
	}

	for i, b := range buckets {
		entry := BucketPass1{Runs: bucketRuns[i]}
		if bucketRuns[i] > 0 {
			entry.Pass1 = Defined(float64(bucketSuccesses[i]) / float64(bucketRuns[i]))
			ci := WilsonInterval(bucketSuccesses[i], bucketRuns[i])
			entry.CI = &ci
		}
		report.ByBucket[b.Label] = entry
	}
	return report
}

// bucketIndex places a complexity into its band: lower-inclusive,
// upper-exclusive, last band closed.
func bucketIndex(buckets []Bucket, complexity float64) int {
	for i, b := range buckets {
		if complexity < b.Lower {
			continue
		}
		if complexity < b.Upper {
			return i
		}
		if i == len(buckets)-1 && complexity == b.Upper {
			return i
		}
	}
	return -1
}

// wilsonZ is the normal quantile for a 95% interval.
const wilsonZ = 1.96

// WilsonInterval is the Wilson score interval for k successes out of n.
func WilsonInterval(k, n int) Interval {
	if n == 0 {
		return Interval{}
	}
	p := float64(k) / float64(n)
	z2 := wilsonZ * wilsonZ
	nf := float64(n)
	denom := 1 + z2/nf
	center := (p + z2/(2*nf)) / denom
	margin := wilsonZ * math.Sqrt((p*(1-p)+z2/(4*nf))/nf) / denom
	return Interval{
		Lower: math.Max(0, center-margin),
		Upper: math.Min(1, center+margin),
	}
}
