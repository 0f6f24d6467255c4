// Package driver implements the tree driver of spec.md §4.8: the owner of
// one root tree element, its cloned script runtime, its kept-alive plugin
// library references, and the mailbox of out-of-band commands an observer
// connection sends in between ticks.
//
// Grounded on the teacher repo's Bridge (internal/builtin/bt/bridge.go),
// which owns an event loop the same way and exposes a small mailbox-style
// command surface (RunOnLoop) rather than letting external callers reach
// into the running tree directly.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/registry"
	"github.com/arborist-labs/bteng/internal/treenode"
)

// Command is an out-of-band mailbox message, drained before each tick
// (§4.8). The only commands named by the spec are attaching/removing an
// observer's hooks; Func carries the actual effect so the observer package
// can define concrete command constructors without this package importing
// it back.
type Command struct {
	Name string
	Func func()
}

// Tree owns a built root node and drives its lifecycle. One Tree instance
// corresponds to one running behavior tree (§5: "each has its own
// shared-runtime lock and mailbox").
type Tree struct {
	Root    *treenode.Node
	Runtime *behavior.Runtime

	reg       *registry.Registry
	libraries []string

	mailbox chan Command

	mu      sync.Mutex
	started bool
}

// New constructs a Tree around an already-built root node. reg may be nil
// if the tree was built without plugin libraries to keep alive.
func New(root *treenode.Node, rt *behavior.Runtime, reg *registry.Registry) *Tree {
	return &Tree{
		Root:    root,
		Runtime: rt,
		reg:     reg,
		mailbox: make(chan Command, 32),
	}
}

// Start brings up the driver's cooperative event loop. Must be called once
// before the first tick.
func (t *Tree) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return
	}
	t.started = true
	t.Runtime.Start()
}

// Stop tears down the event loop and releases every kept-alive plugin
// library reference acquired by AcquireLibrary.
func (t *Tree) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.started {
		return
	}
	t.started = false
	t.Runtime.Stop()
	if t.reg != nil {
		for _, name := range t.libraries {
			t.reg.ReleaseLibrary(name)
		}
	}
	t.libraries = nil
}

// AcquireLibrary records that this tree depends on a plugin library,
// incrementing the registry's kept-alive refcount (§5 "Shared resources").
func (t *Tree) AcquireLibrary(name string) {
	if t.reg == nil {
		return
	}
	t.reg.AcquireLibrary(name)
	t.mu.Lock()
	t.libraries = append(t.libraries, name)
	t.mu.Unlock()
}

// Post enqueues a mailbox command, draining before the driver's next tick
// (§4.8). Commands are dropped silently if the mailbox is full, matching
// the cooperative-scheduling model's "best effort, never block a tick"
// stance on out-of-band traffic.
func (t *Tree) Post(cmd Command) {
	select {
	case t.mailbox <- cmd:
	default:
	}
}

func (t *Tree) drainMailbox() {
	for {
		select {
		case cmd := <-t.mailbox:
			if cmd.Func != nil {
				cmd.Func()
			}
		default:
			return
		}
	}
}

// TickOnce drains the mailbox, then ticks the root once.
func (t *Tree) TickOnce() (behavior.Status, error) {
	t.drainMailbox()
	return t.Root.Tick(t.Runtime)
}

// TickWhileRunning loops TickOnce until the root returns a non-Running
// status, draining the mailbox between iterations, then yields once on
// exit to let spawned timers/tasks progress (§4.8). ctx bounds both the
// loop (checked between iterations) and the final yield.
func (t *Tree) TickWhileRunning(ctx context.Context) (behavior.Status, error) {
	for {
		status, err := t.TickOnce()
		if err != nil {
			return status, err
		}
		if status != behavior.Running {
			t.Runtime.Yield(ctx)
			return status, nil
		}
		select {
		case <-ctx.Done():
			return status, ctx.Err()
		default:
		}
	}
}

// Reset halts the root and clears its script-runtime state (§4.8). Clearing
// script state means discarding the cloned runtime's mutable globals;
// enum constants survive since they are part of the registry's seed, not
// per-tick state — achieved here by re-cloning from the registry.
func (t *Tree) Reset() error {
	if _, err := t.Root.Halt(t.Runtime); err != nil {
		return err
	}
	if t.reg != nil {
		t.Runtime.Script = t.reg.Script.Clone()
	}
	return nil
}

// Iter performs a read-only depth-first traversal of the tree.
func (t *Tree) Iter(fn func(*treenode.Node)) {
	t.Root.Walk(fn)
}

// IterMut is Iter's mutable-intent alias: Go has no const-node type, so
// both traversals are the same Walk; IterMut exists to mirror §4.8's
// iter/iter_mut API pair for callers translating from the source.
func (t *Tree) IterMut(fn func(*treenode.Node)) {
	t.Root.Walk(fn)
}

// Find locates the first node whose Data.Path equals path, used by the
// observer's hook-attach commands to resolve a uid/path reference (§6.4).
func (t *Tree) Find(path string) (*treenode.Node, error) {
	var found *treenode.Node
	t.Iter(func(n *treenode.Node) {
		if found == nil && n.Data.Path == path {
			found = n
		}
	})
	if found == nil {
		return nil, fmt.Errorf("no node at path %q", path)
	}
	return found, nil
}

// Logger returns the driver's structured logger, defaulting to slog's
// package-level default if the runtime has none set.
func (t *Tree) Logger() *slog.Logger {
	if t.Runtime.Logger != nil {
		return t.Runtime.Logger
	}
	return slog.Default()
}
