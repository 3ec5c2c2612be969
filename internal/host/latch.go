// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package host

import "sync"

// latch is a one-shot, monotone signal: once set, it stays set forever and
// is observable by any number of readers without polling, via done(). It is
// the sole coordination channel between the PressureMonitor and a plugin's
// Worker for "stop this plugin now."
type latch struct {
	once sync.Once
	ch   chan struct{}
}

func newLatch() *latch {
	return &latch{ch: make(chan struct{})}
}

// set trips the latch. Idempotent: the second and later calls are no-ops.
func (l *latch) set() {
	l.once.Do(func() { close(l.ch) })
}

// isSet reports whether the latch has been tripped.
func (l *latch) isSet() bool {
	select {
	case <-l.ch:
		return true
	default:
		return false
	}
}

// done returns a channel that is closed the first time set is observed.
func (l *latch) done() <-chan struct{} {
	return l.ch
}
