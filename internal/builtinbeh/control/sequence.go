// Package control implements the Control behaviors of spec.md §4.2:
// Sequence family, Fallback family, Parallel family, IfThenElse/WhileDoElse,
// and Switch<N>.
//
// Grounded on the teacher repo's bt.js composite conventions described in
// internal/builtin/bt/doc.go (stateless, index-based child iteration,
// synchronous-first with Promise/Running escalation only when genuinely
// needed) — reworked here against our own Status/Kind sum types rather than
// go-behaviortree's 3-state Status, since that type cannot express
// Idle/Skipped (see DESIGN.md).
package control

import (
	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/bterr"
	"github.com/arborist-labs/bteng/internal/port"
	"github.com/arborist-labs/bteng/internal/treenode"
)

// Sequence is the synchronous, memory-keeping Sequence of spec.md §4.2.
type Sequence struct {
	childIdx   int
	allSkipped bool
}

func NewSequence() *Sequence { return &Sequence{allSkipped: true} }

func (s *Sequence) Kind() behavior.Kind         { return behavior.ControlKind }
func (s *Sequence) ProvidedPorts() port.List    { return nil }
func (s *Sequence) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	s.childIdx = 0
	s.allSkipped = true
	return s.Tick(d, c, rt)
}

func (s *Sequence) Tick(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	for s.childIdx < len(children) {
		status, err := children[s.childIdx].Tick(rt)
		if err != nil {
			return behavior.Idle, err
		}
		switch status {
		case behavior.Running:
			return behavior.Running, nil
		case behavior.Success:
			s.allSkipped = false
			s.childIdx++
		case behavior.Skipped:
			s.childIdx++
		case behavior.Failure:
			if err := treenode.HaltAll(children, rt); err != nil {
				return behavior.Idle, err
			}
			s.childIdx = 0
			s.allSkipped = true
			return behavior.Failure, nil
		default:
			return behavior.Idle, bterr.Compositionf(d.Path, "child returned invalid status %v", status)
		}
	}
	if err := treenode.HaltAll(children, rt); err != nil {
		return behavior.Idle, err
	}
	result := behavior.Success
	if s.allSkipped {
		result = behavior.Skipped
	}
	s.childIdx = 0
	s.allSkipped = true
	return result, nil
}

func (s *Sequence) Halt(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	s.childIdx = 0
	s.allSkipped = true
	return behavior.Idle, treenode.HaltAll(children, rt)
}

// SequenceAsync is identical to Sequence except it surfaces Running for one
// tick immediately after a child transitions Idle -> Success this tick,
// breaking a synchronous run into one child per parent tick.
type SequenceAsync struct {
	childIdx   int
	allSkipped bool
}

func NewSequenceAsync() *SequenceAsync { return &SequenceAsync{allSkipped: true} }

func (s *SequenceAsync) Kind() behavior.Kind      { return behavior.ControlKind }
func (s *SequenceAsync) ProvidedPorts() port.List { return nil }
func (s *SequenceAsync) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	s.childIdx = 0
	s.allSkipped = true
	return s.Tick(d, c, rt)
}

func (s *SequenceAsync) Tick(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	for s.childIdx < len(children) {
		child := children[s.childIdx]
		wasIdle := child.Data.Status() == behavior.Idle
		status, err := child.Tick(rt)
		if err != nil {
			return behavior.Idle, err
		}
		switch status {
		case behavior.Running:
			return behavior.Running, nil
		case behavior.Success:
			s.allSkipped = false
			s.childIdx++
			if wasIdle {
				return behavior.Running, nil
			}
		case behavior.Skipped:
			s.childIdx++
		case behavior.Failure:
			if err := treenode.HaltAll(children, rt); err != nil {
				return behavior.Idle, err
			}
			s.childIdx = 0
			s.allSkipped = true
			return behavior.Failure, nil
		default:
			return behavior.Idle, bterr.Compositionf(d.Path, "child returned invalid status %v", status)
		}
	}
	if err := treenode.HaltAll(children, rt); err != nil {
		return behavior.Idle, err
	}
	result := behavior.Success
	if s.allSkipped {
		result = behavior.Skipped
	}
	s.childIdx = 0
	s.allSkipped = true
	return result, nil
}

func (s *SequenceAsync) Halt(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	s.childIdx = 0
	s.allSkipped = true
	return behavior.Idle, treenode.HaltAll(children, rt)
}

// SequenceWithMemory is like Sequence, but a Failure does not reset the
// index: it stays pointed at the failing child, and only descendants at or
// beyond that index are halted.
type SequenceWithMemory struct {
	childIdx   int
	allSkipped bool
}

func NewSequenceWithMemory() *SequenceWithMemory { return &SequenceWithMemory{allSkipped: true} }

func (s *SequenceWithMemory) Kind() behavior.Kind      { return behavior.ControlKind }
func (s *SequenceWithMemory) ProvidedPorts() port.List { return nil }
func (s *SequenceWithMemory) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return s.Tick(d, c, rt)
}

func (s *SequenceWithMemory) Tick(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	for s.childIdx < len(children) {
		status, err := children[s.childIdx].Tick(rt)
		if err != nil {
			return behavior.Idle, err
		}
		switch status {
		case behavior.Running:
			return behavior.Running, nil
		case behavior.Success:
			s.allSkipped = false
			s.childIdx++
		case behavior.Skipped:
			s.childIdx++
		case behavior.Failure:
			if err := treenode.HaltAll(children[s.childIdx:], rt); err != nil {
				return behavior.Idle, err
			}
			return behavior.Failure, nil
		default:
			return behavior.Idle, bterr.Compositionf(d.Path, "child returned invalid status %v", status)
		}
	}
	if err := treenode.HaltAll(children, rt); err != nil {
		return behavior.Idle, err
	}
	result := behavior.Success
	if s.allSkipped {
		result = behavior.Skipped
	}
	s.childIdx = 0
	s.allSkipped = true
	return result, nil
}

func (s *SequenceWithMemory) Halt(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	s.childIdx = 0
	s.allSkipped = true
	return behavior.Idle, treenode.HaltAll(children, rt)
}

// ReactiveSequence re-evaluates all children from index 0 every tick,
// tracking at most one Running child at a time (§4.2, §8 reactive
// one-running invariant).
type ReactiveSequence struct {
	runningIdx int
}

func NewReactiveSequence() *ReactiveSequence { return &ReactiveSequence{runningIdx: -1} }

func (s *ReactiveSequence) Kind() behavior.Kind      { return behavior.ControlKind }
func (s *ReactiveSequence) ProvidedPorts() port.List { return nil }
func (s *ReactiveSequence) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return s.Tick(d, c, rt)
}

func (s *ReactiveSequence) Tick(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	allSkipped := true
	seenRunning := -1
	for i, child := range children {
		status, err := child.Tick(rt)
		if err != nil {
			return behavior.Idle, err
		}
		switch status {
		case behavior.Failure:
			if err := treenode.HaltAll(children, rt); err != nil {
				return behavior.Idle, err
			}
			s.runningIdx = -1
			return behavior.Failure, nil
		case behavior.Running:
			if seenRunning != -1 {
				return behavior.Idle, bterr.Compositionf(d.Path, "more than one child Running in ReactiveSequence")
			}
			seenRunning = i
			allSkipped = false
			if s.runningIdx != -1 && s.runningIdx != i {
				if err := treenode.HaltAll(children[s.runningIdx:s.runningIdx+1], rt); err != nil {
					return behavior.Idle, err
				}
			}
			s.runningIdx = i
			return behavior.Running, nil
		case behavior.Skipped:
			if err := treenode.HaltAll(children[i:i+1], rt); err != nil {
				return behavior.Idle, err
			}
		case behavior.Success:
			allSkipped = false
		default:
			return behavior.Idle, bterr.Compositionf(d.Path, "child returned invalid status %v", status)
		}
	}
	s.runningIdx = -1
	if allSkipped {
		return behavior.Skipped, nil
	}
	return behavior.Success, nil
}

func (s *ReactiveSequence) Halt(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	s.runningIdx = -1
	return behavior.Idle, treenode.HaltAll(children, rt)
}
