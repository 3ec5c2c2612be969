// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package host

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLatch_InitiallyUnset(t *testing.T) {
	l := newLatch()
	assert.False(t, l.isSet())

	select {
	case <-l.done():
		t.Fatal("done() should not be closed before set()")
	default:
	}
}

func TestLatch_SetIsObservableEverywhere(t *testing.T) {
	l := newLatch()
	l.set()

	assert.True(t, l.isSet())

	select {
	case <-l.done():
	case <-time.After(time.Second):
		t.Fatal("done() did not unblock after set()")
	}
}

func TestLatch_SetIsIdempotent(t *testing.T) {
	l := newLatch()
	assert.NotPanics(t, func() {
		l.set()
		l.set()
		l.set()
	})
	assert.True(t, l.isSet())
}

func TestLatch_ConcurrentSetIsSafe(t *testing.T) {
	l := newLatch()
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			l.set()
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
	assert.True(t, l.isSet())
}
