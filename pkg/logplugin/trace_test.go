// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package logplugin_test

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Melon-Tropics/azure-pipelines-agent/pkg/logplugin"
)

func TestTrace_EmitsMarkerAndPlain(t *testing.T) {
	var diag, user bytes.Buffer
	tr := logplugin.NewTrace(&diag, &user)

	tr.Trace("hello")
	tr.Output("world")

	assert.Equal(t, "##[plugin.trace] hello\n", diag.String())
	assert.Equal(t, "world\n", user.String())
}

func TestTrace_NilWriterDiscardsChannel(t *testing.T) {
	var user bytes.Buffer
	tr := logplugin.NewTrace(nil, &user)

	require.NotPanics(t, func() {
		tr.Trace("ignored")
	})
	assert.Empty(t, user.String())
}

func TestTrace_ConcurrentWritesAreLineAtomic(t *testing.T) {
	var user bytes.Buffer
	tr := logplugin.NewTrace(nil, &user)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Output("aaaaaaaaaa")
		}()
	}
	wg.Wait()

	lines := bytes.Count(user.Bytes(), []byte("\n"))
	assert.Equal(t, 50, lines)
}

func TestWithPrefix_PrependsFriendlyName(t *testing.T) {
	var diag, user bytes.Buffer
	tr := logplugin.NewTrace(&diag, &user)
	prefixed := logplugin.WithPrefix(tr, "uploader")

	prefixed.Trace("starting")
	prefixed.Output("done")

	assert.Equal(t, "##[plugin.trace] uploader: starting\n", diag.String())
	assert.Equal(t, "uploader: done\n", user.String())
}
