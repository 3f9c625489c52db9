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

import (
	"testing"

	"github.com/go-kit/log"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	pprofprofile "github.com/google/pprof/profile"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func compute(t *testing.T, set SampleSet) *pprofprofile.Profile {
	t.Helper()

	raw := NewComputer(log.NewNopLogger()).Compute(set)
	p, err := pprofprofile.ParseData(raw)
	require.NoError(t, err)
	require.NoError(t, p.CheckValid())
	return p
}

func stackNames(t *testing.T, s *pprofprofile.Sample) []string {
	t.Helper()

	names := make([]string, 0, len(s.Location))
	for _, l := range s.Location {
		require.Len(t, l.Line, 1)
		names = append(names, l.Line[0].Function.Name)
	}
	return names
}

func TestComputeSinglePath(t *testing.T) {
	p := compute(t, SampleSet{"a": {10, 30, 20}})

	require.Len(t, p.Sample, 1)
	require.Equal(t, []int64{3, 30, 10, 20, 60}, p.Sample[0].Value)
	require.Equal(t, []string{"a"}, stackNames(t, p.Sample[0]))
}

func TestComputeNestedPathIsLeafFirst(t *testing.T) {
	p := compute(t, SampleSet{"a.b": {5}})

	require.Len(t, p.Sample, 1)
	require.Equal(t, []int64{1, 5, 5, 5, 5}, p.Sample[0].Value)
	require.Equal(t, []string{"b", "a"}, stackNames(t, p.Sample[0]))
}

func TestComputeSampleTypes(t *testing.T) {
	p := compute(t, SampleSet{"a": {1}})

	want := []*pprofprofile.ValueType{
		{Type: "protos", Unit: "count"},
		{Type: "max_size", Unit: "bytes"},
		{Type: "min_size", Unit: "bytes"},
		{Type: "median", Unit: "bytes"},
		{Type: "total_size", Unit: "bytes"},
	}
	if diff := cmp.Diff(want, p.SampleType, cmpopts.IgnoreUnexported(pprofprofile.ValueType{})); diff != "" {
		t.Fatalf("unexpected sample types (-want +got):\n%s", diff)
	}
}

// Locations are interned by bare field name, so the same name reached through
// different paths must share one location record.
func TestComputeSharedFieldName(t *testing.T) {
	p := compute(t, SampleSet{
		"x":   {1},
		"y.x": {2},
	})

	require.Len(t, p.Sample, 2)
	require.Len(t, p.Location, 2)
	require.Len(t, p.Function, 2)

	// Sorted path order: "x" first, then "y.x" with the leaf frame first.
	require.Equal(t, []string{"x"}, stackNames(t, p.Sample[0]))
	require.Equal(t, []string{"x", "y"}, stackNames(t, p.Sample[1]))
	require.Equal(t, p.Sample[0].Location[0].ID, p.Sample[1].Location[0].ID)
}

func TestComputeLocationAndFunctionCounts(t *testing.T) {
	p := compute(t, SampleSet{
		"trace.packet":           {2, 4},
		"trace.packet.timestamp": {8, 8, 8},
		"trace.flags":            {1},
	})

	// Distinct field names: trace, packet, timestamp, flags.
	require.Len(t, p.Location, 4)
	require.Len(t, p.Function, 4)
	for i, l := range p.Location {
		require.Equal(t, uint64(i)+1, l.ID)
		require.Equal(t, l.ID, p.Function[i].ID)
	}
}

func TestComputeDeterministic(t *testing.T) {
	set := SampleSet{
		"a":   {3, 1, 2},
		"a.b": {10},
		"c":   {7, 7},
	}
	c := NewComputer(log.NewNopLogger())
	require.Equal(t, c.Compute(set), c.Compute(set))
}

func TestComputeEmptySizesPanics(t *testing.T) {
	c := NewComputer(log.NewNopLogger())
	require.Panics(t, func() {
		c.Compute(SampleSet{"a": {}})
	})
}

// decodeTopLevel returns the top-level field numbers in emission order and
// the string table entries, straight off the wire.
func decodeTopLevel(t *testing.T, raw []byte) ([]protowire.Number, []string) {
	t.Helper()

	var (
		order   []protowire.Number
		strings []string
	)
	for len(raw) > 0 {
		num, typ, n := protowire.ConsumeTag(raw)
		require.GreaterOrEqual(t, n, 0)
		raw = raw[n:]
		require.Equal(t, protowire.BytesType, typ)
		body, n := protowire.ConsumeBytes(raw)
		require.GreaterOrEqual(t, n, 0)
		raw = raw[n:]

		order = append(order, num)
		if num == profileStringTableField {
			strings = append(strings, string(body))
		}
	}
	return order, strings
}

// The string table must contain every interned string in first-seen order and
// must be serialized after all location and function records, because those
// records intern the function-name strings.
func TestComputeStringTable(t *testing.T) {
	raw := NewComputer(log.NewNopLogger()).Compute(SampleSet{"a.b": {5}})
	order, strings := decodeTopLevel(t, raw)

	require.Equal(t, []string{
		"", // ID 0 is reserved for the empty string.
		"protos", "count",
		"max_size", "bytes",
		"min_size",
		"median",
		"total_size",
		"b", "a", // function names, interned during record emission, leaf seen first
	}, strings)

	lastRecord := -1
	firstString := len(order)
	for i, num := range order {
		switch num {
		case profileLocationField, profileFunctionField:
			lastRecord = i
		case profileStringTableField:
			if i < firstString {
				firstString = i
			}
		}
	}
	require.Greater(t, firstString, lastRecord)
}
