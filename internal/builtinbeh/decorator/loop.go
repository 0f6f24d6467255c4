package decorator

import (
	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/blackboard"
	"github.com/arborist-labs/bteng/internal/port"
	"github.com/arborist-labs/bteng/internal/treenode"
)

// Loop implements Loop<T> (§4.3): each tick pops the front of the shared
// `queue`, binds it to the `value` output port, and ticks the child once.
// An empty queue returns `if_empty` (default Success) without touching the
// child; a child Failure propagates, anything else is reported as Running
// so the driver keeps draining the queue across ticks.
type Loop[T any] struct{}

func NewLoop[T any]() *Loop[T] { return &Loop[T]{} }

func (l *Loop[T]) Kind() behavior.Kind { return behavior.DecoratorKind }
func (l *Loop[T]) ProvidedPorts() port.List {
	return port.List{
		port.Input("SharedQueue", "queue", "", "shared deque popped from front each tick"),
		port.Input("string", "if_empty", "SUCCESS", "status literal returned when the queue is empty"),
		port.Output("any", "value", "item popped this tick"),
	}
}
func (l *Loop[T]) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return l.Tick(d, c, rt)
}
func (l *Loop[T]) Tick(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	child, err := onlyChild(d, children)
	if err != nil {
		return behavior.Idle, err
	}
	queue, err := treenode.GetInput[*blackboard.Queue[T]](d, "queue", "")
	if err != nil {
		return behavior.Idle, err
	}
	if queue.Empty() {
		ifEmpty, err := treenode.GetInput[string](d, "if_empty", "SUCCESS")
		if err != nil {
			return behavior.Idle, err
		}
		status, ok := behavior.ParseStatus(ifEmpty)
		if !ok {
			status = behavior.Success
		}
		return status, nil
	}
	value, _ := queue.PopFront()
	if err := treenode.SetOutput(d, "value", value); err != nil {
		return behavior.Idle, err
	}
	status, err := child.Tick(rt)
	if err != nil {
		return behavior.Idle, err
	}
	if status == behavior.Failure {
		return behavior.Failure, nil
	}
	return behavior.Running, nil
}
func (l *Loop[T]) Halt(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return behavior.Idle, treenode.HaltAll(children, rt)
}
