// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package logplugin

// ServiceContext is an opaque bundle of whatever a plugin needs to reach the
// outside world: an HTTPS client, credentials, proxy and certificate
// configuration. The host never inspects it; it is constructed by the
// runner and handed through unchanged.
type ServiceContext struct {
	value any
}

// NewServiceContext wraps an arbitrary value as an opaque ServiceContext.
func NewServiceContext(value any) *ServiceContext {
	return &ServiceContext{value: value}
}

// Value returns the wrapped value. Plugin authors type-assert it to
// whatever concrete type the runner actually constructs.
func (s *ServiceContext) Value() any {
	if s == nil {
		return nil
	}
	return s.value
}

// Step is a job-defined unit of work, addressable by the id embedded at the
// front of every log line.
type Step struct {
	ID   string
	Name string
	Type string
}

// Endpoint is a remote service endpoint the job was configured with.
type Endpoint struct {
	ID   string
	Name string
	URL  string
}

// Repository describes a source repository associated with the job.
type Repository struct {
	ID   string
	Name string
	Type string
}

// Context is the immutable, per-plugin handle passed to every Plugin
// callback. It bundles the opaque ServiceContext with read-only views of
// the job's steps, endpoints, repositories and variables, plus a trace
// sink that prefixes every message with the plugin's friendly name.
type Context struct {
	Service      *ServiceContext
	Steps        []*Step
	Endpoints    []*Endpoint
	Repositories []*Repository
	Variables    map[string]string

	trace Sink
}

// newContext builds a Context for one plugin. trace is the plugin's
// name-prefixed Sink (see WithPrefix); steps/endpoints/repositories/
// variables are shared read-only snapshots handed to every plugin.
func newContext(trace Sink, steps []*Step, endpoints []*Endpoint, repos []*Repository, vars map[string]string, svc *ServiceContext) *Context {
	return &Context{
		Service:      svc,
		Steps:        steps,
		Endpoints:    endpoints,
		Repositories: repos,
		Variables:    vars,
		trace:        trace,
	}
}

// NewContext is exported for tests and for callers embedding the Host in a
// larger harness without going through Host construction.
func NewContext(trace Sink, steps []*Step, endpoints []*Endpoint, repos []*Repository, vars map[string]string, svc *ServiceContext) *Context {
	return newContext(trace, steps, endpoints, repos, vars, svc)
}

// Trace emits a diagnostic line on the host's own log, prefixed with the
// plugin's friendly name.
func (c *Context) Trace(msg string) {
	if c == nil || c.trace == nil {
		return
	}
	c.trace.Trace(msg)
}

// Output emits a plain line on the job log, prefixed with the plugin's
// friendly name.
func (c *Context) Output(msg string) {
	if c == nil || c.trace == nil {
		return
	}
	c.trace.Output(msg)
}
