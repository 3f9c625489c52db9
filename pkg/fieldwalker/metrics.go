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

package fieldwalker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	fieldsDecoded prometheus.Counter
	unknownFields prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	return &metrics{
		fieldsDecoded: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "protoprofile_walker_fields_decoded_total",
				Help: "Number of field occurrences decoded from the input message.",
			},
		),
		unknownFields: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "protoprofile_walker_unknown_fields_total",
				Help: "Number of field occurrences with no descriptor entry.",
			},
		),
	}
}
