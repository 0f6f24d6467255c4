// Package action implements the Action/Condition built-ins of spec.md §4.4
// and §6.2: thin leaf wrappers over the blackboard and script runtime, plus
// the MockBehavior/ChangeStateAfter test-substitution nodes.
package action

import (
	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/blackboard"
	"github.com/arborist-labs/bteng/internal/port"
	"github.com/arborist-labs/bteng/internal/treenode"
)

func leafPorts(ports ...port.Port) port.List { return port.List(ports) }

// SetBlackboard writes its `value` input into the `output_key` entry, then
// returns Success (§6.2).
type SetBlackboard[T any] struct{}

func NewSetBlackboard[T any]() *SetBlackboard[T] { return &SetBlackboard[T]{} }

func (s *SetBlackboard[T]) Kind() behavior.Kind { return behavior.ActionKind }
func (s *SetBlackboard[T]) ProvidedPorts() port.List {
	return leafPorts(
		port.Input("any", "value", "", "value to write"),
		port.InOutPort("any", "output_key", "", "blackboard key written"),
	)
}
func (s *SetBlackboard[T]) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return s.Tick(d, c, rt)
}
func (s *SetBlackboard[T]) Tick(d *treenode.Data, _ []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	value, err := treenode.GetInput[T](d, "value", "")
	if err != nil {
		return behavior.Idle, err
	}
	if err := treenode.SetOutput(d, "output_key", value); err != nil {
		return behavior.Idle, err
	}
	return behavior.Success, nil
}
func (s *SetBlackboard[T]) Halt(d *treenode.Data, _ []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return behavior.Idle, nil
}

// UnsetBlackboard deletes `key`'s entry. It never fails, even if the key is
// already absent (§6.2).
type UnsetBlackboard[T any] struct{}

func NewUnsetBlackboard[T any]() *UnsetBlackboard[T] { return &UnsetBlackboard[T]{} }

func (u *UnsetBlackboard[T]) Kind() behavior.Kind { return behavior.ActionKind }
func (u *UnsetBlackboard[T]) ProvidedPorts() port.List {
	return leafPorts(port.Input("string", "key", "", "blackboard key to delete"))
}
func (u *UnsetBlackboard[T]) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return u.Tick(d, c, rt)
}
func (u *UnsetBlackboard[T]) Tick(d *treenode.Data, _ []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	key, err := treenode.GetInput[string](d, "key", "")
	if err != nil {
		return behavior.Idle, err
	}
	d.Board.Delete(key)
	return behavior.Success, nil
}
func (u *UnsetBlackboard[T]) Halt(d *treenode.Data, _ []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return behavior.Idle, nil
}

// PopFromQueue<T> pops the queue's front item into `popped_item`; Success on
// a non-empty queue, Failure when it was already empty (§6.2).
type PopFromQueue[T any] struct{}

func NewPopFromQueue[T any]() *PopFromQueue[T] { return &PopFromQueue[T]{} }

func (p *PopFromQueue[T]) Kind() behavior.Kind { return behavior.ActionKind }
func (p *PopFromQueue[T]) ProvidedPorts() port.List {
	return leafPorts(
		port.Input("SharedQueue", "queue", "", "shared deque to pop from"),
		port.Output("any", "popped_item", "item popped this tick"),
	)
}
func (p *PopFromQueue[T]) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return p.Tick(d, c, rt)
}
func (p *PopFromQueue[T]) Tick(d *treenode.Data, _ []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	queue, err := treenode.GetInput[*blackboard.Queue[T]](d, "queue", "")
	if err != nil {
		return behavior.Idle, err
	}
	value, ok := queue.PopFront()
	if !ok {
		return behavior.Failure, nil
	}
	if err := treenode.SetOutput(d, "popped_item", value); err != nil {
		return behavior.Idle, err
	}
	return behavior.Success, nil
}
func (p *PopFromQueue[T]) Halt(d *treenode.Data, _ []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return behavior.Idle, nil
}
