package treenode

import (
	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/bterr"
)

// Node is one element of the runtime tree: a Behavior instance, its Data,
// and its children (§3.6). UIDs are assigned by the parser in depth-first
// creation order; the root of a tree gets uid 0.
type Node struct {
	Behavior Behavior
	Data     *Data
	Children []*Node
}

// New wraps a Behavior with its Data and children into a tree element,
// validating the shape invariant of §3.2 for the behavior's Kind.
func New(b Behavior, d *Data, children []*Node) (*Node, error) {
	if err := b.Kind().ValidateChildCount(len(children)); err != nil {
		return nil, bterr.Compositionf(d.Path, "%v", err)
	}
	return &Node{Behavior: b, Data: d, Children: children}, nil
}

var preConditionOrder = []struct {
	attr   string
	status behavior.Status
}{
	{"_failureIf", behavior.Failure},
	{"_successIf", behavior.Success},
	{"_skipIf", behavior.Skipped},
	{"_while", behavior.Skipped},
}

// Tick runs the reserved pre/post-condition protocol around the node's
// underlying Behavior (§4.1).
func (n *Node) Tick(rt *behavior.Runtime) (behavior.Status, error) {
	d := n.Data
	if d.suspended != nil && d.suspended() {
		return behavior.Running, nil
	}
	prior := d.status

	if prior == behavior.Idle || prior == behavior.Skipped {
		for _, pc := range preConditionOrder {
			expr, ok := d.PreConditions[pc.attr]
			if !ok {
				continue
			}
			v, err := evalCondition(d, rt, expr)
			if err != nil {
				return behavior.Idle, err
			}
			if v.Truthy() {
				if pc.attr == "_skipIf" || pc.attr == "_while" {
					// Skipped overrides never overwrite the node's
					// authoritative observed status (§4.1 closing para).
					if err := runPostCondition(d, rt, "_post"); err != nil {
						return behavior.Idle, err
					}
					return behavior.Skipped, nil
				}
				d.setStatus(pc.status)
				if err := n.runTerminalPostHooks(rt, pc.status); err != nil {
					return behavior.Idle, err
				}
				return pc.status, nil
			}
		}
		return n.invoke(rt, true)
	}

	if prior == behavior.Running {
		if expr, ok := d.PreConditions["_while"]; ok {
			v, err := evalCondition(d, rt, expr)
			if err != nil {
				return behavior.Idle, err
			}
			if !v.Truthy() {
				if _, err := n.Halt(rt); err != nil {
					return behavior.Idle, err
				}
				if err := runPostCondition(d, rt, "_post"); err != nil {
					return behavior.Idle, err
				}
				return behavior.Skipped, nil
			}
		}
		return n.invoke(rt, false)
	}

	// Terminal status revisited without an intervening reset.
	return n.invoke(rt, false)
}

// invoke calls Start (if allowed and not yet started) or Tick on the
// underlying Behavior, then runs the applicable post-condition hooks.
func (n *Node) invoke(rt *behavior.Runtime, allowStart bool) (behavior.Status, error) {
	d := n.Data
	var status behavior.Status
	var err error
	if allowStart && !d.started {
		d.started = true
		status, err = n.Behavior.Start(d, n.Children, rt)
	} else {
		status, err = n.Behavior.Tick(d, n.Children, rt)
	}
	if err != nil {
		return behavior.Idle, err
	}
	if status == behavior.Idle {
		return behavior.Idle, bterr.Compositionf(d.Path, "behavior %q returned Idle from tick, which is illegal", d.ID)
	}
	d.setStatus(status)
	if status != behavior.Running {
		d.started = false
	}
	if err := n.runTerminalPostHooks(rt, status); err != nil {
		return behavior.Idle, err
	}
	return status, nil
}

func (n *Node) runTerminalPostHooks(rt *behavior.Runtime, status behavior.Status) error {
	switch status {
	case behavior.Success:
		if err := runPostCondition(n.Data, rt, "_onSuccess"); err != nil {
			return err
		}
	case behavior.Failure:
		if err := runPostCondition(n.Data, rt, "_onFailure"); err != nil {
			return err
		}
	}
	return runPostCondition(n.Data, rt, "_post")
}

// Halt imperatively cancels the node: delegates to the Behavior's own Halt
// (composites propagate to children there), then forces the node back to
// Idle and runs _onHalted. Idempotent.
func (n *Node) Halt(rt *behavior.Runtime) (behavior.Status, error) {
	d := n.Data
	if d.status == behavior.Idle && !d.started {
		return behavior.Idle, nil
	}
	_, err := n.Behavior.Halt(d, n.Children, rt)
	d.started = false
	d.setStatus(behavior.Idle)
	if err != nil {
		return behavior.Idle, err
	}
	if hookErr := runPostCondition(d, rt, "_onHalted"); hookErr != nil {
		return behavior.Idle, hookErr
	}
	return behavior.Idle, nil
}

// HaltAll halts every child, used by composite Behaviors implementing the
// default halt discipline (§4.1: "halt on every active child").
func HaltAll(children []*Node, rt *behavior.Runtime) error {
	for _, c := range children {
		if _, err := c.Halt(rt); err != nil {
			return err
		}
	}
	return nil
}

// Reset halts the node (propagating structurally) and clears its started
// flag, returning it to Idle for a fresh lifecycle (§3.8).
func (n *Node) Reset(rt *behavior.Runtime) error {
	_, err := n.Halt(rt)
	return err
}

// Walk performs a depth-first traversal, calling fn on every node including
// n itself.
func (n *Node) Walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
