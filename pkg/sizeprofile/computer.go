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

// Package sizeprofile turns per-field-path byte-size samples of a serialized
// message into a pprof profile. Field names become synthetic stack frames, so
// pprof tooling renders the schema tree the way it renders call trees.
package sizeprofile

import (
	"slices"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Computer assembles pprof profiles from sample sets.
type Computer struct {
	logger log.Logger
}

func NewComputer(logger log.Logger) *Computer {
	return &Computer{logger: logger}
}

// Compute builds the serialized profile for one sample set. All interning
// state lives and dies within a single call.
//
// The phases below are order-sensitive: samples intern location IDs,
// location/function records intern the function-name strings, and only then
// may the string table be snapshot. Reordering them silently corrupts the
// output for every consumer.
func (c *Computer) Compute(set SampleSet) []byte {
	strings := newStringTable()
	if id := strings.intern(""); id != 0 {
		panic("sizeprofile: empty string must intern to ID 0")
	}
	locations := newLocationTable()

	var p wireProfile

	// Phase 1: sample type declarations.
	for _, st := range sampleTypes {
		p.sampleTypes = append(p.sampleTypes, wireValueType{
			typ:  strings.intern(st.typ),
			unit: strings.intern(st.unit),
		})
	}

	// Phase 2: one sample per field path. Paths are sorted so the output is
	// stable across runs; any permutation would be a valid profile.
	paths := make([]FieldPath, 0, len(set))
	for path := range set {
		paths = append(paths, path)
	}
	slices.Sort(paths)

	for _, path := range paths {
		fields := path.Fields()
		// Leaf-first, matching the innermost-frame-first stack convention.
		ids := make([]uint64, 0, len(fields))
		for i := len(fields) - 1; i >= 0; i-- {
			ids = append(ids, locations.intern(fields[i]))
		}

		p.samples = append(p.samples, wireSample{
			locationIDs: ids,
			values:      computePathStats(set[path]).values(),
		})
	}

	// Phase 3: the format associates samples with locations and locations
	// with functions. Field names need no such distinction, so locations map
	// 1:1 onto functions sharing the same ID.
	for i, name := range locations.names {
		id := uint64(i) + 1
		p.locations = append(p.locations, wireLocation{id: id})
		p.functions = append(p.functions, wireFunction{id: id, name: strings.intern(name)})
	}

	// Phase 4: phase 3 interned more strings, so the table goes last.
	p.stringTable = strings.strings

	level.Debug(c.logger).Log(
		"msg", "assembled profile",
		"samples", len(p.samples),
		"locations", len(p.locations),
		"strings", len(p.stringTable),
	)

	return p.marshal()
}
