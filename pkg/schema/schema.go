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

// Package schema resolves .proto sources into message descriptors so payload
// types never need to be compiled into the binary.
package schema

import (
	"fmt"
	"path/filepath"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jhump/protoreflect/desc/protoparse"
	"google.golang.org/protobuf/reflect/protoreflect"
)

type Resolver struct {
	logger log.Logger
}

func NewResolver(logger log.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// Resolve parses filename (resolved against importPaths; with none given, the
// file's own directory is used) and returns the descriptor for messageType.
// An empty messageType selects the first top-level message of the file.
// Parse errors carry file:line:column positions from the parser.
func (r *Resolver) Resolve(filename string, importPaths []string, messageType string) (protoreflect.MessageDescriptor, error) {
	if len(importPaths) == 0 {
		dir, base := filepath.Split(filename)
		if dir == "" {
			dir = "."
		}
		importPaths = []string{dir}
		filename = base
	}

	parser := protoparse.Parser{
		ImportPaths: importPaths,
		WarningReporter: func(err protoparse.ErrorWithPos) {
			level.Warn(r.logger).Log("msg", "schema warning", "err", err)
		},
	}

	fds, err := parser.ParseFiles(filename)
	if err != nil {
		return nil, fmt.Errorf("parsing schema %s: %w", filename, err)
	}
	fd := fds[0]

	if messageType == "" {
		msgs := fd.GetMessageTypes()
		if len(msgs) == 0 {
			return nil, fmt.Errorf("schema %s declares no message types", filename)
		}
		return msgs[0].UnwrapMessage(), nil
	}

	md := fd.FindMessage(messageType)
	if md == nil {
		return nil, fmt.Errorf("message type %q not found in %s", messageType, filename)
	}
	return md.UnwrapMessage(), nil
}
