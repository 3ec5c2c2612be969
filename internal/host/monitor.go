// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package host

import (
	"context"
	"log/slog"
	"time"

	"github.com/Melon-Tropics/azure-pipelines-agent/internal/obs"
)

// consecutiveSamplesToTrip is fixed, not configurable: a transient burst
// from a single fat step must not trip the safety valve, only sustained
// (~period * this many) pressure does.
const consecutiveSamplesToTrip = 10

// MonitorConfig tunes the PressureMonitor.
type MonitorConfig struct {
	// Threshold is the queue depth beyond which a sample counts as
	// overflow.
	Threshold int
	// Period is how often the monitor samples every plugin's queue.
	Period time.Duration
}

// DefaultMonitorConfig returns the spec's defaults: a 1000-line threshold
// sampled every 10 seconds.
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{Threshold: 1000, Period: 10 * time.Second}
}

// pressureMonitor is a single goroutine that periodically samples every
// plugin's queue depth and trips a plugin's latch after
// consecutiveSamplesToTrip consecutive overflow samples. It never pops a
// queue and never blocks a producer; sampling is its only tool.
type pressureMonitor struct {
	states  []*pluginState
	cfg     MonitorConfig
	log     *slog.Logger
	metrics *obs.Metrics
}

func newPressureMonitor(states []*pluginState, cfg MonitorConfig, log *slog.Logger, metrics *obs.Metrics) *pressureMonitor {
	return &pressureMonitor{states: states, cfg: cfg, log: log, metrics: metrics}
}

// run loops until ctx is done. Cancellation is only observed at the top of
// the loop: if ctx is cancelled while the monitor is waiting out the
// period, it still completes one more sweep before exiting on the next
// pass. This mirrors the source's "wait either period or cancellation,
// then re-evaluate the loop condition" shape; it is not a bug to fix.
func (m *pressureMonitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Period)
	defer ticker.Stop()

	for ctx.Err() == nil {
		select {
		case <-ticker.C:
		case <-ctx.Done():
		}
		m.sweep()
	}
}

func (m *pressureMonitor) sweep() {
	for _, st := range m.states {
		if st.latch.isSet() {
			continue
		}

		depth := st.queue.depth()
		if m.metrics != nil {
			m.metrics.QueueDepth.WithLabelValues(st.name).Set(float64(depth))
		}

		if depth > m.cfg.Threshold {
			st.pressureN++
			m.log.Debug("plugin queue over threshold",
				"plugin", st.name, "depth", depth, "consecutive", st.pressureN)

			if st.pressureN >= consecutiveSamplesToTrip {
				st.latch.set()
				if m.metrics != nil {
					m.metrics.ShortCircuitsTotal.WithLabelValues(st.name, "pressure").Inc()
				}
				m.log.Warn("plugin short-circuited: sustained queue pressure",
					"plugin", st.name, "depth", depth)
			}
			continue
		}

		if st.pressureN != 0 {
			m.log.Debug("plugin queue back under threshold", "plugin", st.name)
		}
		st.pressureN = 0
	}
}
