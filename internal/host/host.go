// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package host implements the Log Plugin Host: an in-process dispatcher
// that fans an ordered stream of job log lines out to a static set of
// logplugin.Plugin implementations, isolates them from one another,
// enforces a memory-pressure safety valve, and shuts down deterministically
// once the job signals completion.
package host

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/Melon-Tropics/azure-pipelines-agent/internal/errutil"
	"github.com/Melon-Tropics/azure-pipelines-agent/internal/obs"
	"github.com/Melon-Tropics/azure-pipelines-agent/pkg/logplugin"
)

// Config configures a Host at construction time.
type Config struct {
	// Service, Steps, Endpoints, Repositories, Variables are handed
	// unchanged to every plugin's Context.
	Service      *logplugin.ServiceContext
	Steps        []*logplugin.Step
	Endpoints    []*logplugin.Endpoint
	Repositories []*logplugin.Repository
	Variables    map[string]string

	// Trace is the sink plugin output and host diagnostics are written
	// to. Defaults to a Trace writing both channels to os.Stdout.
	Trace logplugin.Sink

	// Monitor tunes the PressureMonitor. Zero value is replaced by
	// DefaultMonitorConfig.
	Monitor MonitorConfig

	// Logger receives the host's own structured diagnostics, distinct
	// from the plugin-facing Trace. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics, if non-nil, receives Prometheus observations of queue
	// depth, short circuits, plugin errors, and enqueued lines.
	Metrics *obs.Metrics
}

// Host dispatches log lines to a static set of plugins. Construct one with
// New, call Enqueue as lines arrive, call Finish once the job completes,
// and call Run to drive the shutdown protocol to completion.
type Host struct {
	cfg     Config
	states  []*pluginState
	stepsBy map[string]*logplugin.Step
	log     *slog.Logger
	runID   string

	finishOnce sync.Once
	finishCh   chan struct{}

	ran atomic.Bool
}

// New constructs a Host for the given plugins. Construction allocates each
// plugin's queue, latch, and Context; no goroutines are started until Run.
func New(plugins []logplugin.Plugin, cfg Config) *Host {
	if cfg.Trace == nil {
		cfg.Trace = logplugin.NewTrace(os.Stdout, os.Stdout)
	}
	if cfg.Monitor.Period == 0 {
		cfg.Monitor = DefaultMonitorConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	stepsBy := make(map[string]*logplugin.Step, len(cfg.Steps))
	for _, s := range cfg.Steps {
		stepsBy[s.ID] = s
	}

	h := &Host{
		cfg:      cfg,
		stepsBy:  stepsBy,
		log:      cfg.Logger,
		runID:    ulid.Make().String(),
		finishCh: make(chan struct{}),
	}

	for _, p := range plugins {
		name := p.FriendlyName()
		pctx := logplugin.NewContext(
			logplugin.WithPrefix(cfg.Trace, name),
			cfg.Steps, cfg.Endpoints, cfg.Repositories, cfg.Variables, cfg.Service,
		)
		h.states = append(h.states, &pluginState{
			name:   name,
			plugin: p,
			queue:  newQueue(),
			latch:  newLatch(),
			pctx:   pctx,
		})
	}

	return h
}

// RunID returns the identifier this Host stamps, as "run_id", onto its own
// start and finish log records. Worker and monitor log records and the
// metrics do not carry it.
func (h *Host) RunID() string {
	return h.runID
}

// StateLatched reports whether the named plugin's short-circuit latch has
// tripped, so callers (tests, operators) can observe a short circuit
// without waiting for Run to return. Returns false for an unknown name.
func (h *Host) StateLatched(name string) bool {
	for _, st := range h.states {
		if st.name == name {
			return st.latch.isSet()
		}
	}
	return false
}

// Enqueue appends line to every plugin whose latch is currently unset,
// after splitting it on the first colon into a step id and message. Empty
// lines are dropped silently. Safe to call concurrently with Run and from
// multiple producer goroutines.
func (h *Host) Enqueue(line string) {
	if line == "" {
		return
	}

	id, msg, _ := strings.Cut(line, ":")
	l := Line{StepID: id, Message: msg}

	for _, st := range h.states {
		if st.latch.isSet() {
			continue
		}
		st.queue.enqueue(l)
		if h.cfg.Metrics != nil {
			h.cfg.Metrics.LinesEnqueuedTotal.WithLabelValues(st.name).Inc()
		}
	}
}

// Finish signals that no more lines will be enqueued. Idempotent.
func (h *Host) Finish() {
	h.finishOnce.Do(func() { close(h.finishCh) })
}

// Run drives the host's shutdown protocol to completion:
//
//  1. start the PressureMonitor;
//  2. start one Worker per plugin;
//  3. wait for Finish (or ctx cancellation);
//  4. cancel the workers' steady-state loop, but not the monitor yet;
//  5. await every Worker;
//  6. cancel and await the monitor;
//  7. Finalize every plugin whose latch is still unset;
//  8. await all finalizers concurrently;
//  9. return.
//
// It is an error to call Run more than once on the same Host.
func (h *Host) Run(ctx context.Context) error {
	if !h.ran.CompareAndSwap(false, true) {
		return oops.Code("ALREADY_RUNNING").Errorf("logplugin: Run called more than once")
	}

	h.log.Info("log plugin host starting", "run_id", h.runID, "plugins", len(h.states))

	monitorCtx, cancelMonitor := context.WithCancel(ctx)
	defer cancelMonitor()

	monitor := newPressureMonitor(h.states, h.cfg.Monitor, h.log, h.cfg.Metrics)
	var monitorWG sync.WaitGroup
	monitorWG.Add(1)
	go func() {
		defer monitorWG.Done()
		monitor.run(monitorCtx)
	}()

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	var workerWG sync.WaitGroup
	for _, st := range h.states {
		st := st
		workerWG.Add(1)
		go func() {
			defer workerWG.Done()
			h.runWorker(ctx, runCtx, st)
		}()
	}

	select {
	case <-h.finishCh:
	case <-ctx.Done():
	}
	cancelRun()
	workerWG.Wait()

	cancelMonitor()
	monitorWG.Wait()

	h.finalizeAll(ctx)

	h.log.Info("log plugin host finished", "run_id", h.runID)
	return nil
}

// runWorker runs one plugin's Worker, recovering any panic that escapes
// the worker itself (as opposed to a recovered plugin-callback panic,
// which worker.run already isolates) so that one misbehaving plugin can
// never take the whole Run down.
func (h *Host) runWorker(ctx, runCtx context.Context, st *pluginState) {
	defer func() {
		if r := recover(); r != nil {
			errutil.LogError(h.log, "plugin worker panicked", wrapPluginErrorf(st.name, "worker panic: %v", r))
		}
	}()

	w := newWorker(st, h.stepsBy, h.log, h.cfg.Metrics)
	w.run(ctx, runCtx)
}

// finalizeAll calls Finalize on every plugin whose latch is unset,
// concurrently, swallowing and tracing per-plugin failures so one
// plugin's finalize cannot starve another's.
func (h *Host) finalizeAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, st := range h.states {
		if st.latch.isSet() {
			continue
		}
		st := st
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.finalizeOne(ctx, st)
		}()
	}
	wg.Wait()
}

func (h *Host) finalizeOne(ctx context.Context, st *pluginState) {
	defer func() {
		if r := recover(); r != nil {
			errutil.LogError(h.log, "plugin finalize panicked", wrapPluginErrorf(st.name, "finalize panic: %v", r))
			if h.cfg.Metrics != nil {
				h.cfg.Metrics.PluginErrorsTotal.WithLabelValues(st.name).Inc()
			}
		}
	}()

	if err := st.plugin.Finalize(ctx, st.pctx); err != nil {
		errutil.LogError(h.log, "plugin finalize failed", wrapPluginError(st.name, err))
		if h.cfg.Metrics != nil {
			h.cfg.Metrics.PluginErrorsTotal.WithLabelValues(st.name).Inc()
		}
	}
}

// wrapPluginError attaches the plugin's name to err as oops context, so the
// host's own logs can be correlated back to the plugin that caused them.
func wrapPluginError(name string, err error) error {
	return oops.With("plugin", name).Wrap(err)
}

// wrapPluginErrorf is wrapPluginError for a recovered panic value rather
// than an existing error.
func wrapPluginErrorf(name string, format string, args ...any) error {
	return oops.With("plugin", name).Errorf(format, args...)
}
