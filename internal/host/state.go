// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package host

import "github.com/Melon-Tropics/azure-pipelines-agent/pkg/logplugin"

// maxRecordedErrors bounds the per-plugin error list. A flapping plugin
// must not exhaust host memory through its own error log; further
// failures past this count are silently dropped.
const maxRecordedErrors = 10

// pluginState is the Host's per-plugin bookkeeping. It is constructed once
// at Host construction and lives for the Host's lifetime. The queue and
// latch are safe for concurrent access by design; initialized and errs are
// written only by this plugin's Worker goroutine and read by the Host only
// after that goroutine has joined, so they need no lock of their own.
// pressureN is owned exclusively by the PressureMonitor.
type pluginState struct {
	name   string
	plugin logplugin.Plugin
	queue  *queue
	latch  *latch
	pctx   *logplugin.Context

	initialized bool
	errs        []string

	pressureN int
}

// recordError appends err's message to the plugin's error list, dropping it
// silently once the list has reached maxRecordedErrors.
func (s *pluginState) recordError(err error) {
	if len(s.errs) >= maxRecordedErrors {
		return
	}
	s.errs = append(s.errs, err.Error())
}
