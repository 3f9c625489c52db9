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

// protoprofile profiles the size of a serialized protobuf message: it breaks
// the payload down field by field against a schema resolved at runtime and
// writes the per-field byte statistics as a pprof profile, so standard pprof
// tooling can show which fields of a trace consume the most bytes.
package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	pprofprofile "github.com/google/pprof/profile"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/parca-dev/protoprofile/pkg/fieldwalker"
	"github.com/parca-dev/protoprofile/pkg/logger"
	"github.com/parca-dev/protoprofile/pkg/schema"
	"github.com/parca-dev/protoprofile/pkg/sizeprofile"
)

type flags struct {
	LogLevel    string   `kong:"enum='error,warn,info,debug',help='Log level.',default='info'"`
	Schema      string   `kong:"required,help='Path to the .proto file describing the input message.'"`
	ImportPath  []string `kong:"name='import-path',help='Directories to resolve .proto imports against. Defaults to the schema file directory.'"`
	MessageType string   `kong:"help='Fully-qualified root message type. Defaults to the first message declared in the schema file.'"`

	InputPath  string `kong:"required,arg,name='input-path',help='Path to the serialized message to profile.'"`
	OutputPath string `kong:"required,arg,name='output-path',help='Path to write the pprof profile to.'"`
}

func main() {
	flags := flags{}
	kong.Parse(&flags)

	logger := logger.NewLogger(flags.LogLevel, logger.LogFormatLogfmt, "protoprofile")

	if err := run(logger, prometheus.NewRegistry(), flags); err != nil {
		level.Error(logger).Log("err", err)
		os.Exit(1)
	}
}

// run is the whole batch pipeline; any error is terminal and leaves the
// output file contents undefined.
func run(logger log.Logger, reg *prometheus.Registry, flags flags) error {
	data, err := os.ReadFile(flags.InputPath)
	if err != nil {
		return fmt.Errorf("reading input %s: %w", flags.InputPath, err)
	}

	md, err := schema.NewResolver(logger).Resolve(flags.Schema, flags.ImportPath, flags.MessageType)
	if err != nil {
		return fmt.Errorf("resolving schema %s: %w", flags.Schema, err)
	}
	level.Debug(logger).Log("msg", "resolved root message", "type", md.FullName())

	set, err := fieldwalker.New(logger, reg).Compute(data, md)
	if err != nil {
		return fmt.Errorf("decoding %s against schema: %w", flags.InputPath, err)
	}

	out := sizeprofile.NewComputer(logger).Compute(set)

	// Cheap sanity check that what we are about to write parses as pprof.
	p, err := pprofprofile.ParseData(out)
	if err != nil {
		return fmt.Errorf("assembled profile does not parse: %w", err)
	}

	f, err := os.Create(flags.OutputPath)
	if err != nil {
		return fmt.Errorf("opening output %s: %w", flags.OutputPath, err)
	}
	if _, err := f.Write(out); err != nil {
		f.Close()
		return fmt.Errorf("writing output %s: %w", flags.OutputPath, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("flushing output %s: %w", flags.OutputPath, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing output %s: %w", flags.OutputPath, err)
	}

	level.Info(logger).Log(
		"msg", "profile written",
		"path", flags.OutputPath,
		"input", humanize.Bytes(uint64(len(data))),
		"output", humanize.Bytes(uint64(len(out))),
		"paths", len(set),
		"samples", len(p.Sample),
		"fields", len(p.Function),
	)

	if mfs, err := reg.Gather(); err == nil {
		for _, mf := range mfs {
			for _, m := range mf.GetMetric() {
				level.Debug(logger).Log("metric", mf.GetName(), "value", m.GetCounter().GetValue())
			}
		}
	}

	return nil
}
