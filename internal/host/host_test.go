// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package host

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Melon-Tropics/azure-pipelines-agent/internal/errutil"
	"github.com/Melon-Tropics/azure-pipelines-agent/pkg/logplugin"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestHost_HappyPathProcessesAllLinesAndFinalizes(t *testing.T) {
	p := &fakePlugin{initOK: true}
	h := New([]logplugin.Plugin{p}, Config{
		Steps:   []*logplugin.Step{{ID: "s1", Name: "Step One"}},
		Monitor: MonitorConfig{Threshold: 1000, Period: time.Hour},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- h.Run(ctx) }()

	h.Enqueue("s1:hello")
	h.Enqueue("s1:world")
	h.Finish()

	select {
	case err := <-runDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}

	assert.Equal(t, int32(2), atomic.LoadInt32(&p.processed))
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.finalized))
}

func TestHost_InitializeDeclineSkipsProcessingAndFinalize(t *testing.T) {
	p := &fakePlugin{initOK: false}
	h := New([]logplugin.Plugin{p}, Config{Monitor: MonitorConfig{Threshold: 1000, Period: time.Hour}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- h.Run(ctx) }()

	h.Enqueue("s1:hello")
	h.Finish()

	require.NoError(t, <-runDone)

	assert.Equal(t, int32(0), atomic.LoadInt32(&p.processed))
	assert.Equal(t, int32(0), atomic.LoadInt32(&p.finalized))
}

func TestHost_PressureTripShortCircuitsWithoutWaitingForBlockedPlugin(t *testing.T) {
	unblock := make(chan struct{})
	p := &fakePlugin{initOK: true, processFunc: func(ctx context.Context, step *logplugin.Step, message string) error {
		<-unblock
		return nil
	}}

	h := New([]logplugin.Plugin{p}, Config{
		Steps:   []*logplugin.Step{{ID: "s1", Name: "Step One"}},
		Monitor: MonitorConfig{Threshold: 5, Period: 5 * time.Millisecond},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- h.Run(ctx) }()

	for i := 0; i < 2000; i++ {
		h.Enqueue("s1:line")
	}

	require.Eventually(t, func() bool {
		return h.states[0].latch.isSet()
	}, 5*time.Second, 10*time.Millisecond, "plugin was never short-circuited under sustained pressure")

	h.Finish()

	select {
	case err := <-runDone:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after short circuit")
	}

	// The blocked ProcessLine goroutine is the plugin's own leak to own;
	// release it so this test itself doesn't leak under goleak.
	close(unblock)
}

func TestHost_FinalizeErrorDoesNotFailRun(t *testing.T) {
	p := &fakePlugin{initOK: true, finalizeErr: assertErr}
	h := New([]logplugin.Plugin{p}, Config{Monitor: MonitorConfig{Threshold: 1000, Period: time.Hour}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- h.Run(ctx) }()

	h.Finish()

	require.NoError(t, <-runDone)
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.finalized))
}

func TestHost_RunTwiceReturnsError(t *testing.T) {
	p := &fakePlugin{initOK: true}
	h := New([]logplugin.Plugin{p}, Config{Monitor: MonitorConfig{Threshold: 1000, Period: time.Hour}})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- h.Run(ctx) }()
	h.Finish()
	require.NoError(t, <-runDone)

	err := h.Run(context.Background())
	errutil.AssertErrorCode(t, err, "ALREADY_RUNNING")
}

func TestWrapPluginError_CarriesPluginNameAsContext(t *testing.T) {
	err := wrapPluginError("flaky", assertErr)
	errutil.AssertErrorContext(t, err, "plugin", "flaky")
}

func TestWrapPluginErrorf_CarriesPluginNameAsContext(t *testing.T) {
	err := wrapPluginErrorf("flaky", "finalize panic: %v", "boom")
	errutil.AssertErrorContext(t, err, "plugin", "flaky")
}

var assertErr = &testFinalizeError{}

type testFinalizeError struct{}

func (e *testFinalizeError) Error() string { return "finalize failed" }
