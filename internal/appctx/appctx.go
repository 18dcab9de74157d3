// Package appctx implements the Application Context: a process-wide handle
// to the resolved configuration, notifier, and downloaded-episodes state,
// supporting atomic hot-swap of the configuration registry on reload.
package appctx

import (
	"sync/atomic"

	"github.com/watcherhq/wetvlo/internal/config"
	"github.com/watcherhq/wetvlo/internal/index"
	"github.com/watcherhq/wetvlo/internal/notify"
)

// Context is the process-wide root object. It is explicitly constructed and
// passed into the Queue Manager and Session Scheduler — there is no
// package-level singleton, so tests can build independent instances.
type Context struct {
	registry atomic.Pointer[config.Registry]
	Notifier notify.Notifier
	Index    index.Index
}

// New constructs a Context with an initial registry.
func New(reg *config.Registry, notifier notify.Notifier, idx index.Index) *Context {
	c := &Context{Notifier: notifier, Index: idx}
	c.registry.Store(reg)
	return c
}

// Registry returns the current configuration registry. Every executor
// invocation reads this once at entry, so a concurrent ReloadConfig is
// observed on the next task without mid-task inconsistency.
func (c *Context) Registry() *config.Registry {
	return c.registry.Load()
}

// ReloadConfig atomically replaces the configuration registry.
func (c *Context) ReloadConfig(reg *config.Registry) {
	c.registry.Store(reg)
}
