// SPDX-License-Identifier: AGPL-3.0-or-later
// xrd-ha-app - Cloud high-availability controller for redundant XRd routers
// Copyright (C) 2024-2026 the xrd-ha-app authors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// The source code is available at <https://github.com/ios-xr/xrd-ha-app>

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics carries the controller's instrumentation. Each instance owns its
// registry so that tests can create as many as they need.
type Metrics struct {
	registry *prometheus.Registry

	// Engine metrics
	ObservationsTotal       *prometheus.CounterVec
	GoActiveDispatchesTotal prometheus.Counter
	ActionFailuresTotal     *prometheus.CounterVec
	ReconcileSweepsTotal    prometheus.Counter
	ReconcileDuration       prometheus.Histogram

	// Telemetry metrics
	TelemetryMessagesTotal *prometheus.CounterVec
	TelemetryStreamActive  prometheus.Gauge
}

func NewMetrics() *Metrics {
	metrics := &Metrics{
		registry: prometheus.NewRegistry(),
		ObservationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ha_app_observations_total",
			Help: "The total number of VRRP observations delivered to the engine",
		}, []string{"role"}),
		GoActiveDispatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ha_app_go_active_dispatches_total",
			Help: "The total number of go-active tasks dispatched to the worker pool",
		}),
		ActionFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ha_app_action_failures_total",
			Help: "The total number of failed cloud actions",
		}, []string{"stage"}),
		ReconcileSweepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ha_app_reconcile_sweeps_total",
			Help: "The total number of completed reconciliation sweeps",
		}),
		ReconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ha_app_reconcile_duration_seconds",
			Help:    "Duration of reconciliation sweeps",
			Buckets: prometheus.DefBuckets,
		}),
		TelemetryMessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ha_app_telemetry_messages_total",
			Help: "The total number of telemetry messages by outcome",
		}, []string{"status"}),
		TelemetryStreamActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ha_app_telemetry_stream_active",
			Help: "Whether a telemetry stream is currently established",
		}),
	}
	metrics.register()
	return metrics
}

func (m *Metrics) register() {
	m.registry.MustRegister(m.ObservationsTotal)
	m.registry.MustRegister(m.GoActiveDispatchesTotal)
	m.registry.MustRegister(m.ActionFailuresTotal)
	m.registry.MustRegister(m.ReconcileSweepsTotal)
	m.registry.MustRegister(m.ReconcileDuration)
	m.registry.MustRegister(m.TelemetryMessagesTotal)
	m.registry.MustRegister(m.TelemetryStreamActive)
}
