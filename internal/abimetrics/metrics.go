// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package abimetrics exposes a small set of prometheus counters/histograms
// around the codec's encode/decode entry points, for embedding callers that
// already run a /metrics endpoint. The collectors are registered with the
// default registry in init(), and importing is harmless even when nothing
// ever scrapes it.
package abimetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EncodeCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tvmabi_encode_calls_total",
		Help: "Number of function input/output encode operations, by function name and outcome.",
	}, []string{"function", "outcome"})

	DecodeCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tvmabi_decode_calls_total",
		Help: "Number of function input/output decode operations, by function name and outcome.",
	}, []string{"function", "outcome"})

	CellChainLength = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "tvmabi_cell_chain_length",
		Help:    "Number of cells produced by pack_cells_into_chain per call.",
		Buckets: prometheus.LinearBuckets(1, 1, 10),
	})
)

func init() {
	prometheus.MustRegister(EncodeCalls, DecodeCalls, CellChainLength)
}
