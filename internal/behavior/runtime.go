package behavior

import (
	"context"
	"log/slog"
	"time"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"

	"github.com/arborist-labs/bteng/internal/script"
)

// Runtime is the per-tree execution context threaded through every Start /
// Tick / Halt call (§4.1). It bundles the tree's cloned script runtime, its
// structured logger, a clock (for deterministic tests), and the cooperative
// event loop used as the driver's yield point (§4.8, §5).
//
// Grounded on the teacher repo's Bridge (internal/builtin/bt/bridge.go),
// which owns a *goja_nodejs/eventloop.EventLoop the same way: the loop is
// started by the owner (here, the tree driver) before any tick, and ticks
// never block directly on goja — they only use the loop as a cooperative
// yield point between scheduling rounds.
type Runtime struct {
	Logger *slog.Logger
	Script *script.Runtime
	// Now returns the current time; overridable in tests. Defaults to
	// time.Now.
	Now func() time.Time

	loop *eventloop.EventLoop
}

// NewRuntime constructs a Runtime around the given script runtime (stored
// as is, not cloned) and an unstarted event loop.
func NewRuntime(logger *slog.Logger, sc *script.Runtime) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{
		Logger: logger,
		Script: sc,
		Now:    time.Now,
		loop:   eventloop.NewEventLoop(),
	}
}

// Start brings up the cooperative event loop backing this Runtime's yield
// point. Must be called once before the owning tree is first ticked.
func (r *Runtime) Start() { r.loop.Start() }

// Stop tears down the event loop. Safe to call once the owning tree is done.
func (r *Runtime) Stop() { r.loop.Stop() }

// Yield gives the event loop goroutine a chance to run any pending jobs
// scheduled by async nodes, then returns once that round-trip completes.
// This is the driver's "yield once to let spawned timers/tasks progress"
// step from spec.md §4.8.
func (r *Runtime) Yield(ctx context.Context) {
	done := make(chan struct{})
	r.loop.RunOnLoop(func(*goja.Runtime) { close(done) })
	select {
	case <-done:
	case <-ctx.Done():
	}
}
