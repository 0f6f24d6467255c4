package decorator

import (
	"time"

	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/port"
	"github.com/arborist-labs/bteng/internal/treenode"
)

// Delay returns Running for `delay_msec` milliseconds before ticking its
// child for the first time; once the deadline passes it delegates every
// subsequent tick straight to the child (§4.3). Uses the Runtime's Now
// clock rather than a real timer, so it is driven purely by ticks.
type Delay struct {
	armed    bool
	deadline time.Time
}

func NewDelay() *Delay { return &Delay{} }

func (d *Delay) Kind() behavior.Kind { return behavior.DecoratorKind }
func (d *Delay) ProvidedPorts() port.List {
	return port.List{port.Input("int", "delay_msec", "0", "milliseconds to wait before the first child tick")}
}
func (dec *Delay) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	dec.armed = false
	return dec.Tick(d, c, rt)
}
func (dec *Delay) Tick(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	child, err := onlyChild(d, children)
	if err != nil {
		return behavior.Idle, err
	}
	if !dec.armed {
		msec, err := treenode.GetInput[int](d, "delay_msec", "0")
		if err != nil {
			return behavior.Idle, err
		}
		dec.deadline = rt.Now().Add(time.Duration(msec) * time.Millisecond)
		dec.armed = true
	}
	if rt.Now().Before(dec.deadline) {
		return behavior.Running, nil
	}
	status, err := child.Tick(rt)
	if err != nil {
		return behavior.Idle, err
	}
	if status.IsCompleted() {
		dec.armed = false
	}
	return status, nil
}
func (dec *Delay) Halt(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	dec.armed = false
	return behavior.Idle, treenode.HaltAll(children, rt)
}

// Timeout fails the node if its child is still Running after `msec`
// milliseconds, halting the child immediately (§4.3).
type Timeout struct {
	armed    bool
	deadline time.Time
}

func NewTimeout() *Timeout { return &Timeout{} }

func (t *Timeout) Kind() behavior.Kind { return behavior.DecoratorKind }
func (t *Timeout) ProvidedPorts() port.List {
	return port.List{port.Input("int", "msec", "0", "milliseconds before the running child is halted and Failure returned")}
}
func (to *Timeout) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	to.armed = false
	return to.Tick(d, c, rt)
}
func (to *Timeout) Tick(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	child, err := onlyChild(d, children)
	if err != nil {
		return behavior.Idle, err
	}
	if !to.armed {
		msec, err := treenode.GetInput[int](d, "msec", "0")
		if err != nil {
			return behavior.Idle, err
		}
		to.deadline = rt.Now().Add(time.Duration(msec) * time.Millisecond)
		to.armed = true
	}
	if !rt.Now().Before(to.deadline) {
		to.armed = false
		if _, err := child.Halt(rt); err != nil {
			return behavior.Idle, err
		}
		return behavior.Failure, nil
	}
	status, err := child.Tick(rt)
	if err != nil {
		return behavior.Idle, err
	}
	if status.IsCompleted() {
		to.armed = false
	}
	return status, nil
}
func (to *Timeout) Halt(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	to.armed = false
	return behavior.Idle, treenode.HaltAll(children, rt)
}
