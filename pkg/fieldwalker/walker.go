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

// Package fieldwalker decodes a serialized protobuf message against a
// dynamically resolved descriptor and measures how many encoded bytes every
// field occurrence takes, at every nesting depth. It never needs generated
// types for the payload.
package fieldwalker

import (
	"fmt"
	"strconv"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/reflect/protoreflect"

	"github.com/parca-dev/protoprofile/pkg/sizeprofile"
)

type Walker struct {
	logger  log.Logger
	metrics *metrics
}

func New(logger log.Logger, reg prometheus.Registerer) *Walker {
	return &Walker{
		logger:  logger,
		metrics: newMetrics(reg),
	}
}

// Compute walks data against desc and returns the size samples per field
// path. Field sizes include the tag, so the top-level totals add up to
// roughly the full message size. Message-typed fields are recursed into, so
// nested occurrences are additionally recorded under their deeper paths.
func (w *Walker) Compute(data []byte, desc protoreflect.MessageDescriptor) (sizeprofile.SampleSet, error) {
	set := sizeprofile.SampleSet{}
	if err := w.walk(data, desc, "", set); err != nil {
		return nil, fmt.Errorf("walking %s: %w", desc.FullName(), err)
	}
	return set, nil
}

func (w *Walker) walk(data []byte, desc protoreflect.MessageDescriptor, path sizeprofile.FieldPath, set sizeprofile.SampleSet) error {
	for len(data) > 0 {
		num, typ, tagLen := protowire.ConsumeTag(data)
		if tagLen < 0 {
			return fmt.Errorf("consuming tag: %w", protowire.ParseError(tagLen))
		}
		valLen := protowire.ConsumeFieldValue(num, typ, data[tagLen:])
		if valLen < 0 {
			return fmt.Errorf("consuming field %d: %w", num, protowire.ParseError(valLen))
		}
		fieldLen := tagLen + valLen

		w.metrics.fieldsDecoded.Inc()

		fd := desc.Fields().ByNumber(num)
		if fd == nil {
			// Schema drift or a truncated descriptor. Account for the bytes
			// under a synthetic name rather than dropping them.
			w.metrics.unknownFields.Inc()
			level.Debug(w.logger).Log("msg", "field not in descriptor", "number", num, "message", desc.FullName())
			fieldPath := path.Append("#" + strconv.Itoa(int(num)))
			set[fieldPath] = append(set[fieldPath], uint64(fieldLen))
			data = data[fieldLen:]
			continue
		}

		fieldPath := path.Append(string(fd.Name()))

		switch {
		case typ == protowire.BytesType && fd.Kind() == protoreflect.MessageKind:
			set[fieldPath] = append(set[fieldPath], uint64(fieldLen))
			payload, _ := protowire.ConsumeBytes(data[tagLen:])
			if err := w.walk(payload, fd.Message(), fieldPath, set); err != nil {
				return err
			}
		case typ == protowire.StartGroupType && fd.Kind() == protoreflect.GroupKind:
			set[fieldPath] = append(set[fieldPath], uint64(fieldLen))
			payload, _ := protowire.ConsumeGroup(num, data[tagLen:])
			if err := w.walk(payload, fd.Message(), fieldPath, set); err != nil {
				return err
			}
		case typ == protowire.BytesType && packedScalar(fd):
			// Packed repeated scalars arrive as one length-delimited record;
			// each element counts as its own occurrence. The tag and length
			// overhead is not attributed to any element.
			payload, _ := protowire.ConsumeBytes(data[tagLen:])
			if err := packedElements(payload, fd.Kind(), fieldPath, set); err != nil {
				return err
			}
		default:
			set[fieldPath] = append(set[fieldPath], uint64(fieldLen))
		}

		data = data[fieldLen:]
	}
	return nil
}

// packedScalar reports whether a length-delimited record for fd holds packed
// numeric elements rather than a single value.
func packedScalar(fd protoreflect.FieldDescriptor) bool {
	if !fd.IsList() {
		return false
	}
	switch fd.Kind() {
	case protoreflect.StringKind, protoreflect.BytesKind, protoreflect.MessageKind, protoreflect.GroupKind:
		return false
	default:
		return true
	}
}

func packedElements(payload []byte, kind protoreflect.Kind, path sizeprofile.FieldPath, set sizeprofile.SampleSet) error {
	for len(payload) > 0 {
		var n int
		switch kind {
		case protoreflect.Fixed32Kind, protoreflect.Sfixed32Kind, protoreflect.FloatKind:
			n = 4
		case protoreflect.Fixed64Kind, protoreflect.Sfixed64Kind, protoreflect.DoubleKind:
			n = 8
		default:
			_, n = protowire.ConsumeVarint(payload)
			if n < 0 {
				return fmt.Errorf("consuming packed element of %s: %w", path, protowire.ParseError(n))
			}
		}
		if n > len(payload) {
			return fmt.Errorf("truncated packed element of %s", path)
		}
		set[path] = append(set[path], uint64(n))
		payload = payload[n:]
	}
	return nil
}
