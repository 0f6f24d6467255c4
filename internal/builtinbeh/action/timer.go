package action

import (
	"time"

	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/port"
	"github.com/arborist-labs/bteng/internal/treenode"
)

// Sleep returns Running until `msec` milliseconds have elapsed since it was
// first ticked, then Success (§6.2, §4.4). Per the async-portability note,
// a host that cannot supply a real timer future may treat msec==0 (or any
// deadline already in the past relative to Now) as immediate completion.
type Sleep struct {
	armed    bool
	deadline time.Time
}

func NewSleep() *Sleep { return &Sleep{} }

func (s *Sleep) Kind() behavior.Kind { return behavior.ActionKind }
func (s *Sleep) ProvidedPorts() port.List {
	return leafPorts(port.Input("int", "msec", "0", "milliseconds to sleep"))
}
func (s *Sleep) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	msec, err := treenode.GetInput[int](d, "msec", "0")
	if err != nil {
		return behavior.Idle, err
	}
	s.deadline = rt.Now().Add(time.Duration(msec) * time.Millisecond)
	s.armed = true
	return s.Tick(d, c, rt)
}
func (s *Sleep) Tick(d *treenode.Data, _ []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	if !s.armed {
		return s.Start(d, nil, rt)
	}
	if rt.Now().Before(s.deadline) {
		return behavior.Running, nil
	}
	s.armed = false
	return behavior.Success, nil
}
func (s *Sleep) Halt(d *treenode.Data, _ []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	s.armed = false
	return behavior.Idle, nil
}

// ChangeStateAfter returns Running for (count-1) ticks, state1 on the
// count-th tick, and final_state on every tick after that, until reset
// (§4.4). With count<=0 it reports final_state from the very first tick —
// the construction AlwaysFailure/AlwaysSuccess use.
type ChangeStateAfter struct {
	State1     behavior.Status
	FinalState behavior.Status
	Count      int

	ticks int
	done  bool
}

func NewChangeStateAfter(state1, finalState behavior.Status, count int) *ChangeStateAfter {
	return &ChangeStateAfter{State1: state1, FinalState: finalState, Count: count}
}

func (c *ChangeStateAfter) Kind() behavior.Kind      { return behavior.ActionKind }
func (c *ChangeStateAfter) ProvidedPorts() port.List { return nil }
func (c *ChangeStateAfter) Start(d *treenode.Data, ch []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	c.ticks = 0
	c.done = false
	return c.Tick(d, ch, rt)
}
func (c *ChangeStateAfter) Tick(d *treenode.Data, _ []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	if c.done || c.Count <= 0 {
		return c.FinalState, nil
	}
	c.ticks++
	if c.ticks >= c.Count {
		c.done = true
		return c.State1, nil
	}
	return behavior.Running, nil
}
func (c *ChangeStateAfter) Halt(d *treenode.Data, _ []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	c.ticks = 0
	c.done = false
	return behavior.Idle, nil
}

// NewAlwaysSuccess / NewAlwaysFailure build the ChangeStateAfter(count=0)
// instances spec.md's scenario 1 names directly (§8 scenario 1:
// "AlwaysFailure = ChangeStateAfter(Running, Failure, 0)").
// NewAlwaysRunning uses Running for both state1 and final_state, so it never
// completes.
func NewAlwaysSuccess() *ChangeStateAfter {
	return NewChangeStateAfter(behavior.Running, behavior.Success, 0)
}
func NewAlwaysFailure() *ChangeStateAfter {
	return NewChangeStateAfter(behavior.Running, behavior.Failure, 0)
}
func NewAlwaysRunning() *ChangeStateAfter {
	return NewChangeStateAfter(behavior.Running, behavior.Running, 1<<30)
}
