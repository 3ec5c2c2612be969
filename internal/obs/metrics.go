// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package obs provides HTTP endpoints for metrics and health checks, and the
// Prometheus metrics the log plugin host records while it runs.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the Prometheus metrics the Host, PressureMonitor, and
// PluginWorker record while a job runs.
type Metrics struct {
	// QueueDepth reports the last-sampled depth of a plugin's OutputQueue.
	QueueDepth *prometheus.GaugeVec
	// ShortCircuitsTotal counts latch trips, labeled by the reason
	// ("pressure" or "initialize_failed").
	ShortCircuitsTotal *prometheus.CounterVec
	// PluginErrorsTotal counts ProcessLine/Finalize failures recorded per
	// plugin, whether or not they made it into the capped error list.
	PluginErrorsTotal *prometheus.CounterVec
	// LinesEnqueuedTotal counts lines accepted onto a plugin's queue.
	LinesEnqueuedTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the log plugin host's Prometheus
// metrics against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "logplugin_host_queue_depth",
				Help: "Current depth of a plugin's output queue as last sampled by the pressure monitor",
			},
			[]string{"plugin"},
		),
		ShortCircuitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logplugin_host_shortcircuits_total",
				Help: "Total number of times a plugin was short-circuited, by reason",
			},
			[]string{"plugin", "reason"},
		),
		PluginErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logplugin_host_plugin_errors_total",
				Help: "Total number of errors recorded for a plugin",
			},
			[]string{"plugin"},
		),
		LinesEnqueuedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "logplugin_host_lines_enqueued_total",
				Help: "Total number of log lines accepted onto a plugin's queue",
			},
			[]string{"plugin"},
		),
	}

	reg.MustRegister(m.QueueDepth)
	reg.MustRegister(m.ShortCircuitsTotal)
	reg.MustRegister(m.PluginErrorsTotal)
	reg.MustRegister(m.LinesEnqueuedTotal)

	return m
}
