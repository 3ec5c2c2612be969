// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package logplugin defines the contract that log plugins implement and the
// per-plugin context the host hands them.
package logplugin

import "context"

// Plugin is user-supplied code that reacts to job log lines. Implementations
// are registered with a Host at construction time and are isolated from one
// another: a panic or error inside one plugin's callback never affects the
// others, and a plugin that falls behind can be short-circuited without
// taking down the run.
//
// The host invokes the callbacks in order: Initialize, then zero or more
// ProcessLine calls, then (unless short-circuited) Finalize at most once.
// Any of them may perform blocking I/O; the host has no per-call timeout.
// ProcessLine in particular must be safe to abandon mid-flight: if the
// plugin is short-circuited while a ProcessLine call is outstanding, the
// host stops waiting on it without cancelling it. Resources a ProcessLine
// call allocates before being abandoned are the plugin's own responsibility
// to clean up eventually.
type Plugin interface {
	// FriendlyName returns a stable, human-readable name used in
	// user-visible messages the host emits on the plugin's behalf.
	FriendlyName() string

	// Initialize prepares the plugin for this job. Returning false, or a
	// non-nil error, declines processing entirely: the plugin receives no
	// ProcessLine or Finalize calls for this run.
	Initialize(ctx context.Context, pctx *Context) (bool, error)

	// ProcessLine handles one log line already split into its step and
	// message. step is never nil: a line whose step id has no entry in the
	// table supplied at host construction is recorded as a plugin error
	// without ever reaching ProcessLine. Any error ProcessLine itself
	// returns is likewise recorded and reported at the end of the run; it
	// never aborts the drain.
	ProcessLine(ctx context.Context, pctx *Context, step *Step, message string) error

	// Finalize runs once after all lines have been delivered, provided the
	// plugin initialized successfully and was never short-circuited. It is
	// the plugin's chance to flush buffered work (e.g. a bulk upload).
	Finalize(ctx context.Context, pctx *Context) error
}
