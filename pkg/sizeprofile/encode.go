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

import "google.golang.org/protobuf/encoding/protowire"

// Field numbers of the pprof profile.proto schema. Only the subset this tool
// emits is declared; notably mappings are omitted because synthetic field
// locations have no address space.
const (
	profileSampleTypeField  = 1
	profileSampleField      = 2
	profileLocationField    = 4
	profileFunctionField    = 5
	profileStringTableField = 6

	valueTypeTypeField = 1
	valueTypeUnitField = 2

	sampleLocationIDField = 1
	sampleValueField      = 2

	locationIDField   = 1
	locationLineField = 4

	lineFunctionIDField = 1

	functionIDField   = 1
	functionNameField = 2
)

// wireValueType is a sample type with both strings already interned.
type wireValueType struct {
	typ  int64
	unit int64
}

// wireSample pairs a leaf-first location ID stack with the value tuple.
type wireSample struct {
	locationIDs []uint64
	values      []int64
}

// wireLocation is one synthetic stack frame, pointing at the function with
// the same ID.
type wireLocation struct {
	id uint64
}

type wireFunction struct {
	id   uint64
	name int64
}

// wireProfile is the fully assembled profile, ready for serialization. The
// assembler fills it phase by phase; stringTable is set last.
type wireProfile struct {
	sampleTypes []wireValueType
	samples     []wireSample
	locations   []wireLocation
	functions   []wireFunction
	stringTable []string
}

func (p *wireProfile) marshal() []byte {
	var buf []byte
	for _, vt := range p.sampleTypes {
		buf = appendSubmessage(buf, profileSampleTypeField, marshalValueType(vt))
	}
	for _, s := range p.samples {
		buf = appendSubmessage(buf, profileSampleField, marshalSample(s))
	}
	for _, l := range p.locations {
		buf = appendSubmessage(buf, profileLocationField, marshalLocation(l))
	}
	for _, f := range p.functions {
		buf = appendSubmessage(buf, profileFunctionField, marshalFunction(f))
	}
	for _, s := range p.stringTable {
		buf = protowire.AppendTag(buf, profileStringTableField, protowire.BytesType)
		buf = protowire.AppendString(buf, s)
	}
	return buf
}

func marshalValueType(vt wireValueType) []byte {
	var buf []byte
	buf = appendVarintField(buf, valueTypeTypeField, uint64(vt.typ))
	buf = appendVarintField(buf, valueTypeUnitField, uint64(vt.unit))
	return buf
}

func marshalSample(s wireSample) []byte {
	var buf []byte
	buf = appendPackedUvarints(buf, sampleLocationIDField, s.locationIDs)
	packed := make([]uint64, len(s.values))
	for i, v := range s.values {
		packed[i] = uint64(v)
	}
	buf = appendPackedUvarints(buf, sampleValueField, packed)
	return buf
}

func marshalLocation(l wireLocation) []byte {
	var buf []byte
	buf = appendVarintField(buf, locationIDField, l.id)
	// A single synthetic line per location, 1:1 with the function.
	buf = appendSubmessage(buf, locationLineField, appendVarintField(nil, lineFunctionIDField, l.id))
	return buf
}

func marshalFunction(f wireFunction) []byte {
	var buf []byte
	buf = appendVarintField(buf, functionIDField, f.id)
	buf = appendVarintField(buf, functionNameField, uint64(f.name))
	return buf
}

func appendSubmessage(buf []byte, num protowire.Number, body []byte) []byte {
	buf = protowire.AppendTag(buf, num, protowire.BytesType)
	return protowire.AppendBytes(buf, body)
}

func appendVarintField(buf []byte, num protowire.Number, v uint64) []byte {
	buf = protowire.AppendTag(buf, num, protowire.VarintType)
	return protowire.AppendVarint(buf, v)
}

func appendPackedUvarints(buf []byte, num protowire.Number, vs []uint64) []byte {
	var body []byte
	for _, v := range vs {
		body = protowire.AppendVarint(body, v)
	}
	return appendSubmessage(buf, num, body)
}
