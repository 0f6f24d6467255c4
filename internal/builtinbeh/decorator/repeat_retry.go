package decorator

import (
	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/port"
	"github.com/arborist-labs/bteng/internal/treenode"
)

// Repeat ticks its child until it has succeeded num_cycles times
// (default -1 = infinite). A Failure resets the counter (§4.3).
type Repeat struct {
	count int
}

func NewRepeat() *Repeat { return &Repeat{} }

func (r *Repeat) Kind() behavior.Kind { return behavior.DecoratorKind }
func (r *Repeat) ProvidedPorts() port.List {
	return port.List{port.Input("int", "num_cycles", "-1", "number of successes required; -1 = infinite")}
}
func (r *Repeat) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	r.count = 0
	return r.Tick(d, c, rt)
}
func (r *Repeat) Tick(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	child, err := onlyChild(d, children)
	if err != nil {
		return behavior.Idle, err
	}
	numCycles, err := treenode.GetInput[int](d, "num_cycles", "-1")
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
		r.count++
		if numCycles >= 0 && r.count >= numCycles {
			r.count = 0
			return behavior.Success, nil
		}
		return behavior.Running, nil
	case behavior.Failure:
		r.count = 0
		return behavior.Failure, nil
	case behavior.Skipped:
		return behavior.Skipped, nil
	default:
		return status, nil
	}
}
func (r *Repeat) Halt(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	r.count = 0
	return behavior.Idle, treenode.HaltAll(children, rt)
}

// RetryUntilSuccessful is the dual of Repeat: it retries on Failure up to
// num_attempts times (default -1 = infinite); Success halts and returns
// immediately. Retries happen within the same parent tick unless the child
// returns Running (§4.3).
type RetryUntilSuccessful struct {
	attempts int
}

func NewRetryUntilSuccessful() *RetryUntilSuccessful {
	return &RetryUntilSuccessful{}
}

func (r *RetryUntilSuccessful) Kind() behavior.Kind { return behavior.DecoratorKind }
func (r *RetryUntilSuccessful) ProvidedPorts() port.List {
	return port.List{port.Input("int", "num_attempts", "-1", "attempts before giving up; -1 = infinite")}
}
func (r *RetryUntilSuccessful) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	r.attempts = 0
	return r.Tick(d, c, rt)
}
func (r *RetryUntilSuccessful) Tick(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	child, err := onlyChild(d, children)
	if err != nil {
		return behavior.Idle, err
	}
	numAttempts, err := treenode.GetInput[int](d, "num_attempts", "-1")
	if err != nil {
		return behavior.Idle, err
	}
	for {
		status, err := child.Tick(rt)
		if err != nil {
			return behavior.Idle, err
		}
		switch status {
		case behavior.Success:
			r.attempts = 0
			return behavior.Success, nil
		case behavior.Running:
			return behavior.Running, nil
		case behavior.Skipped:
			return behavior.Skipped, nil
		case behavior.Failure:
			r.attempts++
			if _, err := child.Halt(rt); err != nil {
				return behavior.Idle, err
			}
			if numAttempts >= 0 && r.attempts >= numAttempts {
				r.attempts = 0
				return behavior.Failure, nil
			}
			// retry within the same tick per §4.3's non-reactive note.
			continue
		default:
			return status, nil
		}
	}
}
func (r *RetryUntilSuccessful) Halt(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	r.attempts = 0
	return behavior.Idle, treenode.HaltAll(children, rt)
}
