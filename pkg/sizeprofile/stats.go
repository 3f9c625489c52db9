// Copyright 2024 The Parca Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package sizeprofile

import "slices"

type valueType struct {
	typ  string
	unit string
}

// sampleTypes declares the profile's sample types. The order must match
// pathStats.values; both are fixed at count/max_size/min_size/median/total_size.
var sampleTypes = []valueType{
	{typ: "protos", unit: "count"},
	{typ: "max_size", unit: "bytes"},
	{typ: "min_size", unit: "bytes"},
	{typ: "median", unit: "bytes"},
	{typ: "total_size", unit: "bytes"},
}

// pathStats holds the aggregated statistics for one field path.
type pathStats struct {
	count  int64
	max    int64
	min    int64
	median int64
	total  int64
}

// values returns the sample value tuple, positionally matching sampleTypes.
func (s pathStats) values() []int64 {
	return []int64{s.count, s.max, s.min, s.median, s.total}
}

// computePathStats aggregates the size samples of one field path. A path with
// zero occurrences is a contract violation by the walker that produced the
// sample set, never valid input.
func computePathStats(sizes []uint64) pathStats {
	if len(sizes) == 0 {
		panic("sizeprofile: field path recorded with zero size samples")
	}

	sorted := slices.Clone(sizes)
	slices.Sort(sorted)

	count := len(sorted)
	var total uint64
	for _, s := range sorted {
		total += s
	}

	return pathStats{
		count: int64(count),
		max:   int64(sorted[count-1]),
		min:   int64(sorted[0]),
		// Floor division deliberately selects the upper-middle element for
		// even counts. It is a cheap approximation, not a true median, and
		// consumers depend on this exact rule.
		median: int64(sorted[count/2]),
		total:  int64(total),
	}
}
