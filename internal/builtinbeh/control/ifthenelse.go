package control

import (
	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/bterr"
	"github.com/arborist-labs/bteng/internal/port"
	"github.com/arborist-labs/bteng/internal/treenode"
)

// IfThenElse accepts 2 or 3 children: child 0 is the condition, child 1 the
// "then" branch, and an optional child 2 the "else" branch (§4.2). Once a
// branch is chosen it is ticked to completion before the condition is
// re-evaluated.
type IfThenElse struct {
	branch int // 0 = evaluating condition, 1 = then active, 2 = else active
}

func NewIfThenElse() *IfThenElse { return &IfThenElse{} }

func (n *IfThenElse) Kind() behavior.Kind      { return behavior.ControlKind }
func (n *IfThenElse) ProvidedPorts() port.List { return nil }
func (n *IfThenElse) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	n.branch = 0
	return n.Tick(d, c, rt)
}

func (n *IfThenElse) Tick(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	if len(children) != 2 && len(children) != 3 {
		return behavior.Idle, bterr.Compositionf(d.Path, "IfThenElse requires 2 or 3 children, got %d", len(children))
	}
	if n.branch == 0 {
		status, err := children[0].Tick(rt)
		if err != nil {
			return behavior.Idle, err
		}
		switch status {
		case behavior.Running, behavior.Skipped:
			return status, nil
		case behavior.Success:
			n.branch = 1
		case behavior.Failure:
			if len(children) == 3 {
				n.branch = 2
			} else {
				return behavior.Failure, nil
			}
		default:
			return behavior.Idle, bterr.Compositionf(d.Path, "condition returned invalid status %v", status)
		}
	}

	status, err := children[n.branch].Tick(rt)
	if err != nil {
		return behavior.Idle, err
	}
	if status == behavior.Running {
		return behavior.Running, nil
	}
	n.branch = 0
	return status, nil
}

func (n *IfThenElse) Halt(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	n.branch = 0
	return behavior.Idle, treenode.HaltAll(children, rt)
}

// WhileDoElse is the reactive variant of IfThenElse: the condition is
// re-evaluated every tick, and switching branches halts the previously
// active one first (§4.2).
type WhileDoElse struct {
	lastBranch int // -1, or index into children of the active branch
}

func NewWhileDoElse() *WhileDoElse { return &WhileDoElse{lastBranch: -1} }

func (n *WhileDoElse) Kind() behavior.Kind      { return behavior.ControlKind }
func (n *WhileDoElse) ProvidedPorts() port.List { return nil }
func (n *WhileDoElse) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	n.lastBranch = -1
	return n.Tick(d, c, rt)
}

func (n *WhileDoElse) Tick(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	if len(children) != 2 && len(children) != 3 {
		return behavior.Idle, bterr.Compositionf(d.Path, "WhileDoElse requires 2 or 3 children, got %d", len(children))
	}
	condStatus, err := children[0].Tick(rt)
	if err != nil {
		return behavior.Idle, err
	}

	var chosen int
	switch condStatus {
	case behavior.Running, behavior.Skipped:
		if n.lastBranch != -1 {
			if _, err := children[n.lastBranch].Halt(rt); err != nil {
				return behavior.Idle, err
			}
		}
		n.lastBranch = -1
		return condStatus, nil
	case behavior.Success:
		chosen = 1
	case behavior.Failure:
		if len(children) == 3 {
			chosen = 2
		} else {
			if n.lastBranch != -1 {
				if _, err := children[n.lastBranch].Halt(rt); err != nil {
					return behavior.Idle, err
				}
			}
			n.lastBranch = -1
			return behavior.Failure, nil
		}
	default:
		return behavior.Idle, bterr.Compositionf(d.Path, "condition returned invalid status %v", condStatus)
	}

	if n.lastBranch != -1 && n.lastBranch != chosen {
		if _, err := children[n.lastBranch].Halt(rt); err != nil {
			return behavior.Idle, err
		}
	}
	status, err := children[chosen].Tick(rt)
	if err != nil {
		return behavior.Idle, err
	}
	if status == behavior.Running {
		n.lastBranch = chosen
		return behavior.Running, nil
	}
	n.lastBranch = -1
	return status, nil
}

func (n *WhileDoElse) Halt(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	n.lastBranch = -1
	return behavior.Idle, treenode.HaltAll(children, rt)
}
