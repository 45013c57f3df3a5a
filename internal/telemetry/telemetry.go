// Copyright 2025 The graingc Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package telemetry carries the arena's cold-path observability: structured
// logging of trace-lifecycle events and a Prometheus metrics registry for
// the statistics the message queue already reports. Neither is on any
// allocation or fix fast path: logging fires once per trace-phase transition
// at most, and metrics are updated at those transitions and once per AWL
// single-access barrier hit.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// T bundles the logger and metrics registry for one arena.
type T struct {
	Log     *zap.Logger
	Metrics *Metrics
}

// New builds telemetry using a no-op logger and a metrics set registered only
// in its own fresh registry, suitable as a default when the client supplies neither.
func New() *T {
	return &T{Log: zap.NewNop(), Metrics: NewMetrics()}
}

// WithLogger returns a copy of t using the given logger instead.
func (t *T) WithLogger(log *zap.Logger) *T {
	return &T{Log: log, Metrics: t.Metrics}
}

// Metrics holds the Prometheus collectors mirroring the `gc` message's
// statistics (spec: condemnedSize, reclaimSize, preservedInPlaceCount) plus
// the single-access barrier counters AWL is required to bound.
type Metrics struct {
	Registry *prometheus.Registry

	TracesStarted  prometheus.Counter
	TracesFinished prometheus.Counter
	CondemnedSize  prometheus.Histogram
	ReclaimSize    prometheus.Histogram
	LiveSize       prometheus.Gauge
	Preserved      prometheus.Counter
	SingleAccess   *prometheus.CounterVec // labeled by pool name
	EmergencyMode  prometheus.Counter
}

// NewMetrics constructs a fresh, registered Metrics set.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		TracesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "graingc_traces_started_total",
			Help: "Number of traces created (entered the INIT state).",
		}),
		TracesFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "graingc_traces_finished_total",
			Help: "Number of traces that reached FINISHED.",
		}),
		CondemnedSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "graingc_condemned_bytes",
			Help:    "Size of the condemned set at flip, per trace.",
			Buckets: prometheus.ExponentialBuckets(4096, 4, 12),
		}),
		ReclaimSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "graingc_reclaimed_bytes",
			Help:    "Size reclaimed at the end of a trace.",
			Buckets: prometheus.ExponentialBuckets(4096, 4, 12),
		}),
		LiveSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "graingc_live_bytes",
			Help: "Estimated live size after the most recent trace.",
		}),
		Preserved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "graingc_preserved_in_place_total",
			Help: "Objects preserved in place rather than moved, cumulative.",
		}),
		SingleAccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "graingc_single_access_total",
			Help: "AWL barrier-provoked single-reference scans, by pool.",
		}, []string{"pool"}),
		EmergencyMode: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "graingc_emergency_mode_total",
			Help: "Number of times a trace entered emergency (non-allocating) fix.",
		}),
	}

	reg.MustRegister(
		m.TracesStarted, m.TracesFinished, m.CondemnedSize, m.ReclaimSize,
		m.LiveSize, m.Preserved, m.SingleAccess, m.EmergencyMode,
	)
	return m
}
