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

// stringTable deduplicates text into sequential IDs. The slice, read in ID
// order, is exactly the profile's string table, so it must only be snapshot
// after everything that interns strings has run.
type stringTable struct {
	strings []string
	index   map[string]int64
}

func newStringTable() *stringTable {
	return &stringTable{index: map[string]int64{}}
}

func (t *stringTable) intern(s string) int64 {
	if id, ok := t.index[s]; ok {
		return id
	}
	id := int64(len(t.strings))
	t.strings = append(t.strings, s)
	t.index[s] = id
	return id
}

// locationTable deduplicates bare field names into location IDs. IDs start at
// 1 because the pprof format reserves 0 for "no location". Names are kept in
// first-seen order so names[i] owns ID i+1.
type locationTable struct {
	names []string
	index map[string]uint64
}

func newLocationTable() *locationTable {
	return &locationTable{index: map[string]uint64{}}
}

func (t *locationTable) intern(fieldName string) uint64 {
	if id, ok := t.index[fieldName]; ok {
		return id
	}
	id := uint64(len(t.names)) + 1
	t.names = append(t.names, fieldName)
	t.index[fieldName] = id
	return id
}
