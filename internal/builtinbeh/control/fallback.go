package control

import (
	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/bterr"
	"github.com/arborist-labs/bteng/internal/port"
	"github.com/arborist-labs/bteng/internal/treenode"
)

// Fallback is the dual of Sequence: Success short-circuits, Failures
// advance the index (§4.2).
type Fallback struct {
	childIdx     int
	allSkipped   bool
	asynchronous bool
}

func NewFallback() *Fallback             { return &Fallback{allSkipped: true} }
func NewFallbackAsync() *Fallback        { return &Fallback{allSkipped: true, asynchronous: true} }

func (f *Fallback) Kind() behavior.Kind      { return behavior.ControlKind }
func (f *Fallback) ProvidedPorts() port.List { return nil }
func (f *Fallback) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	f.childIdx = 0
	f.allSkipped = true
	return f.Tick(d, c, rt)
}

func (f *Fallback) Tick(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	for f.childIdx < len(children) {
		child := children[f.childIdx]
		wasIdle := child.Data.Status() == behavior.Idle
		status, err := child.Tick(rt)
		if err != nil {
			return behavior.Idle, err
		}
		switch status {
		case behavior.Running:
			return behavior.Running, nil
		case behavior.Failure:
			f.allSkipped = false
			f.childIdx++
		case behavior.Skipped:
			f.childIdx++
		case behavior.Success:
			if err := treenode.HaltAll(children, rt); err != nil {
				return behavior.Idle, err
			}
			f.childIdx = 0
			f.allSkipped = true
			return behavior.Success, nil
		default:
			return behavior.Idle, bterr.Compositionf(d.Path, "child returned invalid status %v", status)
		}
		if f.asynchronous && wasIdle && status == behavior.Failure {
			return behavior.Running, nil
		}
	}
	if err := treenode.HaltAll(children, rt); err != nil {
		return behavior.Idle, err
	}
	result := behavior.Failure
	if f.allSkipped {
		result = behavior.Skipped
	}
	f.childIdx = 0
	f.allSkipped = true
	return result, nil
}

func (f *Fallback) Halt(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	f.childIdx = 0
	f.allSkipped = true
	return behavior.Idle, treenode.HaltAll(children, rt)
}

// ReactiveFallback is the dual of ReactiveSequence with respect to
// Success/Failure.
type ReactiveFallback struct {
	runningIdx int
}

func NewReactiveFallback() *ReactiveFallback { return &ReactiveFallback{runningIdx: -1} }

func (f *ReactiveFallback) Kind() behavior.Kind      { return behavior.ControlKind }
func (f *ReactiveFallback) ProvidedPorts() port.List { return nil }
func (f *ReactiveFallback) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return f.Tick(d, c, rt)
}

func (f *ReactiveFallback) Tick(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	allSkipped := true
	seenRunning := -1
	for i, child := range children {
		status, err := child.Tick(rt)
		if err != nil {
			return behavior.Idle, err
		}
		switch status {
		case behavior.Success:
			if err := treenode.HaltAll(children, rt); err != nil {
				return behavior.Idle, err
			}
			f.runningIdx = -1
			return behavior.Success, nil
		case behavior.Running:
			if seenRunning != -1 {
				return behavior.Idle, bterr.Compositionf(d.Path, "more than one child Running in ReactiveFallback")
			}
			seenRunning = i
			allSkipped = false
			if f.runningIdx != -1 && f.runningIdx != i {
				if err := treenode.HaltAll(children[f.runningIdx:f.runningIdx+1], rt); err != nil {
					return behavior.Idle, err
				}
			}
			f.runningIdx = i
			return behavior.Running, nil
		case behavior.Skipped:
			if err := treenode.HaltAll(children[i:i+1], rt); err != nil {
				return behavior.Idle, err
			}
		case behavior.Failure:
			allSkipped = false
		default:
			return behavior.Idle, bterr.Compositionf(d.Path, "child returned invalid status %v", status)
		}
	}
	f.runningIdx = -1
	if allSkipped {
		return behavior.Skipped, nil
	}
	return behavior.Failure, nil
}

func (f *ReactiveFallback) Halt(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	f.runningIdx = -1
	return behavior.Idle, treenode.HaltAll(children, rt)
}
