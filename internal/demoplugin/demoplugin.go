// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package demoplugin ships one small, fully working logplugin.Plugin so
// cmd/logplugindemo has something real to run against the host.
package demoplugin

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/Melon-Tropics/azure-pipelines-agent/pkg/logplugin"
)

// FailureAnnotator is a Plugin that watches for lines containing any of a
// configured set of keywords and, on Finalize, writes one summary line for
// each step it saw trouble in. It is deliberately small: a worked example
// of the Plugin contract, not a production log processor.
type FailureAnnotator struct {
	Keywords []string

	mu      sync.Mutex
	flagged map[string]int
}

// NewFailureAnnotator returns an annotator that flags lines containing any
// of keywords (case-insensitive). A nil or empty keyword list defaults to
// {"error", "failed", "exception"}.
func NewFailureAnnotator(keywords ...string) *FailureAnnotator {
	if len(keywords) == 0 {
		keywords = []string{"error", "failed", "exception"}
	}
	return &FailureAnnotator{Keywords: keywords, flagged: make(map[string]int)}
}

func (f *FailureAnnotator) FriendlyName() string { return "failure-annotator" }

func (f *FailureAnnotator) Initialize(ctx context.Context, pctx *logplugin.Context) (bool, error) {
	pctx.Trace(fmt.Sprintf("watching for keywords: %s", strings.Join(f.Keywords, ", ")))
	return true, nil
}

func (f *FailureAnnotator) ProcessLine(ctx context.Context, pctx *logplugin.Context, step *logplugin.Step, message string) error {
	lower := strings.ToLower(message)
	for _, kw := range f.Keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			f.mu.Lock()
			f.flagged[step.Name]++
			f.mu.Unlock()
			break
		}
	}
	return nil
}

func (f *FailureAnnotator) Finalize(ctx context.Context, pctx *logplugin.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.flagged) == 0 {
		pctx.Output("no flagged lines observed")
		return nil
	}

	for step, count := range f.flagged {
		pctx.Output(fmt.Sprintf("step %q had %d flagged line(s)", step, count))
	}
	return nil
}
