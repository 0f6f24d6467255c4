package decorator

import (
	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/port"
	"github.com/arborist-labs/bteng/internal/treenode"
)

// RunOnce ticks its child at most once. Once it reaches a terminal status,
// that status (or Skipped, if then_skip) is remembered and returned on
// every subsequent tick without re-invoking the child (§4.3).
type RunOnce struct {
	completed  bool
	remembered behavior.Status
}

func NewRunOnce() *RunOnce { return &RunOnce{} }

func (r *RunOnce) Kind() behavior.Kind { return behavior.DecoratorKind }
func (r *RunOnce) ProvidedPorts() port.List {
	return port.List{port.Input("bool", "then_skip", "true", "return Skipped (vs the remembered status) after the first run")}
}
func (r *RunOnce) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return r.Tick(d, c, rt)
}
func (r *RunOnce) Tick(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	child, err := onlyChild(d, children)
	if err != nil {
		return behavior.Idle, err
	}
	thenSkip, err := treenode.GetInput[bool](d, "then_skip", "true")
	if err != nil {
		return behavior.Idle, err
	}
	if r.completed {
		if thenSkip {
			return behavior.Skipped, nil
		}
		return r.remembered, nil
	}
	status, err := child.Tick(rt)
	if err != nil {
		return behavior.Idle, err
	}
	if status.IsCompleted() {
		r.completed = true
		r.remembered = status
	}
	return status, nil
}
func (r *RunOnce) Halt(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	r.completed = false
	return behavior.Idle, treenode.HaltAll(children, rt)
}

// EntryUpdated ticks its child only when the configured blackboard entry's
// sequence id has changed since the last check; otherwise it returns the
// configured StateIfNotUpdated (§4.3). The first call is always "updated".
type EntryUpdated struct {
	StateIfNotUpdated behavior.Status
	lastSeq           uint64
	seen              bool
}

func NewEntryUpdated(stateIfNotUpdated behavior.Status) *EntryUpdated {
	return &EntryUpdated{StateIfNotUpdated: stateIfNotUpdated}
}

func (e *EntryUpdated) Kind() behavior.Kind { return behavior.DecoratorKind }
func (e *EntryUpdated) ProvidedPorts() port.List {
	return port.List{port.Input("string", "entry", "", "blackboard key to watch for updates")}
}
func (e *EntryUpdated) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	e.seen = false
	e.lastSeq = 0
	return e.Tick(d, c, rt)
}
func (e *EntryUpdated) Tick(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	child, err := onlyChild(d, children)
	if err != nil {
		return behavior.Idle, err
	}
	entry, err := treenode.GetInput[string](d, "entry", "")
	if err != nil {
		return behavior.Idle, err
	}
	updated := !e.seen
	var current uint64
	if e.seen {
		updated, current = d.Board.WasUpdated(entry, e.lastSeq)
	} else {
		current = d.Board.SequenceID(entry)
	}
	e.seen = true
	e.lastSeq = current
	if !updated {
		return e.StateIfNotUpdated, nil
	}
	return child.Tick(rt)
}
func (e *EntryUpdated) Halt(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return behavior.Idle, treenode.HaltAll(children, rt)
}

// NewEntryUpdatedSkipped / NewEntryUpdatedRunning expose the two
// concrete default variants spec.md §4.3 names.
func NewEntryUpdatedSkipped() *EntryUpdated { return NewEntryUpdated(behavior.Skipped) }
func NewEntryUpdatedRunning() *EntryUpdated { return NewEntryUpdated(behavior.Running) }
