// Package decorator implements the Decorator behaviors of spec.md §4.3.
package decorator

import (
	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/bterr"
	"github.com/arborist-labs/bteng/internal/port"
	"github.com/arborist-labs/bteng/internal/script"
	"github.com/arborist-labs/bteng/internal/treenode"
)

func onlyChild(d *treenode.Data, children []*treenode.Node) (*treenode.Node, error) {
	if len(children) != 1 {
		return nil, bterr.Compositionf(d.Path, "decorator requires exactly one child, got %d", len(children))
	}
	return children[0], nil
}

func childCountErr(d *treenode.Data, want, got int) error {
	return bterr.Compositionf(d.Path, "decorator requires %d children, got %d", want, got)
}

// evalGuard evaluates expr against d's blackboard and reports its truthiness,
// for decorators whose branching is driven by a script expression rather
// than a child condition node (Precondition's `if` port, §4.3).
func evalGuard(d *treenode.Data, rt *behavior.Runtime, expr string) (bool, error) {
	env := script.NewBoardEnv(d.Board)
	v, err := rt.Script.Run(expr, env)
	if err != nil {
		return false, bterr.Scriptf(d.Path, err, "evaluating guard %q", expr)
	}
	return v.Truthy(), nil
}

// Inverter swaps Success <-> Failure; Running/Skipped pass through.
type Inverter struct{}

func NewInverter() *Inverter                { return &Inverter{} }
func (Inverter) Kind() behavior.Kind        { return behavior.DecoratorKind }
func (Inverter) ProvidedPorts() port.List   { return nil }
func (v *Inverter) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return v.Tick(d, c, rt)
}
func (v *Inverter) Tick(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	child, err := onlyChild(d, children)
	if err != nil {
		return behavior.Idle, err
	}
	status, err := child.Tick(rt)
	if err != nil {
		return behavior.Idle, err
	}
	switch status {
	case behavior.Success:
		return behavior.Failure, nil
	case behavior.Failure:
		return behavior.Success, nil
	default:
		return status, nil
	}
}
func (v *Inverter) Halt(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return behavior.Idle, treenode.HaltAll(children, rt)
}

// ForceState overrides terminal outcomes to a configured Status; Running and
// Skipped pass through unchanged.
type ForceState struct {
	State behavior.Status
}

func NewForceSuccess() *ForceState { return &ForceState{State: behavior.Success} }
func NewForceFailure() *ForceState { return &ForceState{State: behavior.Failure} }

func (f *ForceState) Kind() behavior.Kind      { return behavior.DecoratorKind }
func (f *ForceState) ProvidedPorts() port.List { return nil }
func (f *ForceState) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return f.Tick(d, c, rt)
}
func (f *ForceState) Tick(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	child, err := onlyChild(d, children)
	if err != nil {
		return behavior.Idle, err
	}
	status, err := child.Tick(rt)
	if err != nil {
		return behavior.Idle, err
	}
	if status.IsCompleted() {
		return f.State, nil
	}
	return status, nil
}
func (f *ForceState) Halt(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return behavior.Idle, treenode.HaltAll(children, rt)
}

// KeepRunningUntilFailure collapses a child Success into Running (halting
// and re-arming the child); Failure propagates.
type KeepRunningUntilFailure struct{}

func NewKeepRunningUntilFailure() *KeepRunningUntilFailure { return &KeepRunningUntilFailure{} }
func (KeepRunningUntilFailure) Kind() behavior.Kind        { return behavior.DecoratorKind }
func (KeepRunningUntilFailure) ProvidedPorts() port.List   { return nil }
func (k *KeepRunningUntilFailure) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return k.Tick(d, c, rt)
}
func (k *KeepRunningUntilFailure) Tick(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	child, err := onlyChild(d, children)
	if err != nil {
		return behavior.Idle, err
	}
	status, err := child.Tick(rt)
	if err != nil {
		return behavior.Idle, err
	}
	switch status {
	case behavior.Success:
		if _, err := child.Halt(rt); err != nil {
			return behavior.Idle, err
		}
		return behavior.Running, nil
	case behavior.Failure:
		return behavior.Failure, nil
	default:
		return status, nil
	}
}
func (k *KeepRunningUntilFailure) Halt(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return behavior.Idle, treenode.HaltAll(children, rt)
}
