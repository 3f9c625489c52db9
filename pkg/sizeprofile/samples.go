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

import "strings"

// pathSeparator joins field names into a FieldPath. Protobuf field names
// cannot contain dots, so the encoding is unambiguous.
const pathSeparator = "."

// FieldPath identifies one traversal position in a decoded message tree as a
// root-to-leaf sequence of field names. Repeated occurrences of a field, and
// the same field reached through different parent instances, share a path.
type FieldPath string

// JoinPath builds a FieldPath from root-to-leaf field names.
func JoinPath(fields []string) FieldPath {
	return FieldPath(strings.Join(fields, pathSeparator))
}

// Append returns the path extended by one more field name.
func (p FieldPath) Append(field string) FieldPath {
	if p == "" {
		return FieldPath(field)
	}
	return p + pathSeparator + FieldPath(field)
}

// Fields returns the path's field names, root first.
func (p FieldPath) Fields() []string {
	return strings.Split(string(p), pathSeparator)
}

// SampleSet maps each field path to the encoded byte sizes of its individual
// occurrences. It is produced by a wire walker; sizes lists are never empty.
type SampleSet map[FieldPath][]uint64
