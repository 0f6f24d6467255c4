package control

import (
	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/bterr"
	"github.com/arborist-labs/bteng/internal/port"
	"github.com/arborist-labs/bteng/internal/treenode"
)

// Parallel ticks every non-completed child each tick, accumulating
// success/failure/skip counts and resolving against configurable thresholds
// (§4.2). Completed children are halted once the parent resolves.
type Parallel struct {
	done []bool // per-child completion memo across ticks within one run
}

func NewParallel() *Parallel { return &Parallel{} }

func (p *Parallel) Kind() behavior.Kind { return behavior.ControlKind }
func (p *Parallel) ProvidedPorts() port.List {
	return port.List{
		port.Input("int", "success_count", "-1", "number of successes required; -1 means all children"),
		port.Input("int", "failure_count", "-1", "number of failures required; -1 means all children"),
	}
}

func (p *Parallel) Start(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	p.done = make([]bool, len(children))
	return p.Tick(d, children, rt)
}

func (p *Parallel) thresholds(d *treenode.Data, n int) (success, failure int, err error) {
	success, err = treenode.GetInput[int](d, "success_count", "-1")
	if err != nil {
		return 0, 0, err
	}
	failure, err = treenode.GetInput[int](d, "failure_count", "-1")
	if err != nil {
		return 0, 0, err
	}
	if success < 0 {
		success = n
	}
	if failure < 0 {
		failure = n
	}
	return success, failure, nil
}

func (p *Parallel) Tick(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	n := len(children)
	successThresh, failureThresh, err := p.thresholds(d, n)
	if err != nil {
		return behavior.Idle, err
	}
	if n < successThresh || n < failureThresh {
		return behavior.Idle, bterr.Compositionf(d.Path, "Parallel child count %d below threshold(s) %d/%d", n, successThresh, failureThresh)
	}
	if p.done == nil || len(p.done) != n {
		p.done = make([]bool, n)
	}

	successes, failures, skips := 0, 0, 0
	for i, child := range children {
		if p.done[i] {
			switch child.Data.Status() {
			case behavior.Success:
				successes++
			case behavior.Failure:
				failures++
			case behavior.Skipped:
				skips++
			}
			continue
		}
		status, err := child.Tick(rt)
		if err != nil {
			return behavior.Idle, err
		}
		switch status {
		case behavior.Success:
			successes++
			p.done[i] = true
		case behavior.Failure:
			failures++
			p.done[i] = true
		case behavior.Skipped:
			skips++
			p.done[i] = true
		case behavior.Running:
		default:
			return behavior.Idle, bterr.Compositionf(d.Path, "child returned invalid status %v", status)
		}
	}

	if successes+failures+skips < n {
		return behavior.Running, nil
	}

	var result behavior.Status
	switch {
	case successes+failures == 0:
		result = behavior.Skipped
	case successThresh <= 0 && failureThresh <= 0:
		result = behavior.Success
	case failureThresh <= 0:
		if successes >= successThresh {
			result = behavior.Success
		} else {
			result = behavior.Failure
		}
	default:
		if failures > failureThresh || successes < successThresh {
			result = behavior.Failure
		} else {
			result = behavior.Success
		}
	}

	if err := treenode.HaltAll(children, rt); err != nil {
		return behavior.Idle, err
	}
	p.done = nil
	return result, nil
}

func (p *Parallel) Halt(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	p.done = nil
	return behavior.Idle, treenode.HaltAll(children, rt)
}

// ParallelAll waits for every child to complete even after a threshold is
// crossed, and never halts a child early (§4.2).
type ParallelAll struct {
	done []bool
}

func NewParallelAll() *ParallelAll { return &ParallelAll{} }

func (p *ParallelAll) Kind() behavior.Kind { return behavior.ControlKind }
func (p *ParallelAll) ProvidedPorts() port.List {
	return port.List{
		port.Input("int", "max_failures", "-1", "failures tolerated before the node fails; -1 means unlimited"),
	}
}

func (p *ParallelAll) Start(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	p.done = make([]bool, len(children))
	return p.Tick(d, children, rt)
}

func (p *ParallelAll) Tick(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	n := len(children)
	if p.done == nil || len(p.done) != n {
		p.done = make([]bool, n)
	}

	failures := 0
	allDone := true
	for i, child := range children {
		if p.done[i] {
			if child.Data.Status() == behavior.Failure {
				failures++
			}
			continue
		}
		status, err := child.Tick(rt)
		if err != nil {
			return behavior.Idle, err
		}
		switch status {
		case behavior.Success, behavior.Skipped:
			p.done[i] = true
		case behavior.Failure:
			p.done[i] = true
			failures++
		case behavior.Running:
			allDone = false
		default:
			return behavior.Idle, bterr.Compositionf(d.Path, "child returned invalid status %v", status)
		}
	}

	if !allDone {
		return behavior.Running, nil
	}

	p.done = nil
	maxFailures, err := treenode.GetInput[int](d, "max_failures", "-1")
	if err != nil {
		return behavior.Idle, err
	}
	if maxFailures >= 0 && failures > maxFailures {
		return behavior.Failure, nil
	}
	return behavior.Success, nil
}

func (p *ParallelAll) Halt(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	p.done = nil
	return behavior.Idle, treenode.HaltAll(children, rt)
}
