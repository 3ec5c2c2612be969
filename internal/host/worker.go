// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package host

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/Melon-Tropics/azure-pipelines-agent/internal/obs"
	"github.com/Melon-Tropics/azure-pipelines-agent/pkg/logplugin"
)

// idleBackoff is the fixed sleep between empty-queue retries during the
// steady-state drain.
const idleBackoff = 500 * time.Millisecond

// worker drains one plugin's queue for the lifetime of a Host.Run call: it
// runs Initialize, the steady-state drain, the post-finish drain, and the
// end-of-run report, honoring the plugin's latch throughout. A worker
// never returns an error: every plugin fault is isolated and surfaces only
// through the plugin's own trace/output channel and its capped error list.
type worker struct {
	state   *pluginState
	steps   map[string]*logplugin.Step
	log     *slog.Logger
	metrics *obs.Metrics
}

func newWorker(state *pluginState, steps map[string]*logplugin.Step, log *slog.Logger, metrics *obs.Metrics) *worker {
	return &worker{state: state, steps: steps, log: log, metrics: metrics}
}

// run executes the four phases described in the host's shutdown protocol.
// ctx is passed through to every plugin callback and carries no
// cancellation of its own meaning to the plugin beyond whatever the
// caller's Host.Run context already implies; runCtx is cancelled when
// Finish() fires and drives the Phase 2 -> Phase 3 transition.
func (w *worker) run(ctx context.Context, runCtx context.Context) {
	if !w.initialize(ctx) {
		w.report()
		return
	}

	w.steadyState(ctx, runCtx)
	w.postFinishDrain(ctx)
	w.report()
}

// initialize runs Phase 1. On failure it latches the plugin, records the
// error, and emits the "skip" message; the caller must not proceed to
// Phase 2/3 for this plugin.
func (w *worker) initialize(ctx context.Context) bool {
	ok, err := w.callInitialize(ctx)
	if err != nil || !ok {
		if err != nil {
			w.state.recordError(err)
			w.log.Error("plugin initialize failed", "plugin", w.state.name, "error", err)
		} else {
			w.log.Warn("plugin declined to initialize", "plugin", w.state.name)
		}
		w.state.pctx.Output("Skip process outputs...")
		w.state.latch.set()
		w.state.initialized = false
		if w.metrics != nil {
			w.metrics.ShortCircuitsTotal.WithLabelValues(w.state.name, "initialize_failed").Inc()
		}
		return false
	}

	w.state.initialized = true
	return true
}

func (w *worker) callInitialize(ctx context.Context) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = oops.Errorf("plugin panic in initialize: %v", r)
		}
	}()
	return w.state.plugin.Initialize(ctx, w.state.pctx)
}

// steadyState runs Phase 2: drain to empty, sleep idleBackoff, repeat,
// until the latch trips or runCtx is cancelled.
func (w *worker) steadyState(ctx context.Context, runCtx context.Context) {
	for !w.state.latch.isSet() && runCtx.Err() == nil {
		w.drainOnce(ctx)
		if w.state.latch.isSet() {
			return
		}

		select {
		case <-runCtx.Done():
		case <-time.After(idleBackoff):
		}
	}

	if runCtx.Err() != nil && !w.state.latch.isSet() {
		if depth := w.state.queue.depth(); depth > 0 {
			w.state.pctx.Trace(fmt.Sprintf("Pending process %d log lines", depth))
		}
	}
}

// postFinishDrain runs Phase 3: one more pass over the queue, with no
// sleep between empties, to pick up lines that arrived in the window
// between Finish() and the worker waking up.
func (w *worker) postFinishDrain(ctx context.Context) {
	if w.state.latch.isSet() {
		return
	}
	w.drainOnce(ctx)
}

// drainOnce dequeues and processes lines until the queue empties or the
// latch trips.
func (w *worker) drainOnce(ctx context.Context) {
	for {
		if w.state.latch.isSet() {
			return
		}
		line, ok := w.state.queue.tryDequeue()
		if !ok {
			return
		}
		w.processLine(ctx, line)
	}
}

// processLine looks up line's step (line was already split at Enqueue
// time) and races a ProcessLine call against the latch. If the latch
// wins, processLine returns without waiting for the plugin call to
// finish — any goroutine or resource the call is holding is the plugin's
// own problem to eventually release.
//
// A step id with no matching entry in the step table is itself a plugin
// error: it is recorded and counted exactly like a failed ProcessLine
// call, and the plugin is never invoked for that line.
func (w *worker) processLine(ctx context.Context, line Line) {
	step, ok := w.steps[line.StepID]
	if !ok {
		w.state.recordError(oops.Errorf("unknown step id %q", line.StepID))
		if w.metrics != nil {
			w.metrics.PluginErrorsTotal.WithLabelValues(w.state.name).Inc()
		}
		return
	}

	done := make(chan error, 1)
	go func() {
		done <- w.callProcessLine(ctx, step, line.Message)
	}()

	select {
	case <-w.state.latch.done():
		return
	case err := <-done:
		if err != nil {
			w.state.recordError(err)
			if w.metrics != nil {
				w.metrics.PluginErrorsTotal.WithLabelValues(w.state.name).Inc()
			}
		}
	}
}

func (w *worker) callProcessLine(ctx context.Context, step *logplugin.Step, message string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = oops.Errorf("plugin panic in process_line: %v", r)
		}
	}()
	return w.state.plugin.ProcessLine(ctx, w.state.pctx, step, message)
}

// report runs Phase 4: the short-circuit notice (if applicable), an
// unconditional queue clear, and the accumulated error report.
func (w *worker) report() {
	if w.state.latch.isSet() && w.state.initialized {
		w.state.pctx.Output("Plugin has been short circuited due to exceed memory usage limit.")
	}
	w.state.queue.clear()

	for _, e := range w.state.errs {
		w.state.pctx.Output("Fail to process output: " + e)
	}
}
