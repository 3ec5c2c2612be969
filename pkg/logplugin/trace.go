// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package logplugin

import (
	"fmt"
	"io"
	"sync"
)

// diagnosticMarker prefixes every line written to the diagnostic channel,
// the same way Azure Pipelines' own logging commands are prefixed with
// "##[...]" so a downstream log viewer can fold them away from user output.
const diagnosticMarker = "##[plugin.trace]"

// Sink is a two-channel destination for plugin messages: Trace for the
// host's own diagnostic log, Output for the job's user-visible log. Writes
// must be line-atomic and safe for concurrent use, since every plugin's
// worker goroutine writes through the same underlying Sink concurrently.
type Sink interface {
	Trace(msg string)
	Output(msg string)
}

// Trace is the default Sink implementation: it serializes writes to two
// io.Writers (typically both os.Stdout) behind a mutex so concurrent
// plugins never interleave partial lines.
type Trace struct {
	mu   sync.Mutex
	diag io.Writer
	user io.Writer
}

// NewTrace builds a Sink writing diagnostic lines to diag and user-visible
// lines to user. Either may be nil to discard that channel.
func NewTrace(diag, user io.Writer) *Trace {
	return &Trace{diag: diag, user: user}
}

// Trace writes a diagnostic line, prefixed by the host-recognized marker.
func (t *Trace) Trace(msg string) {
	t.writeLine(t.diag, diagnosticMarker+" "+msg)
}

// Output writes a plain, user-visible line.
func (t *Trace) Output(msg string) {
	t.writeLine(t.user, msg)
}

func (t *Trace) writeLine(w io.Writer, line string) {
	if w == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(w, line)
}

// prefixedSink wraps a Sink so every message is prefixed with a plugin's
// friendly name, per the PluginContext contract ("<friendly>: <msg>").
type prefixedSink struct {
	underlying Sink
	prefix     string
}

// WithPrefix returns a Sink that prefixes every message with name before
// delegating to sink.
func WithPrefix(sink Sink, name string) Sink {
	return &prefixedSink{underlying: sink, prefix: name}
}

func (p *prefixedSink) Trace(msg string) {
	p.underlying.Trace(p.prefix + ": " + msg)
}

func (p *prefixedSink) Output(msg string) {
	p.underlying.Output(p.prefix + ": " + msg)
}
