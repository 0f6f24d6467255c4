package decorator

import (
	"strings"

	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/port"
	"github.com/arborist-labs/bteng/internal/treenode"
)

// Precondition guards its single child behind the `if` expression: if it
// evaluates truthy, the child is ticked and its status returned. Otherwise
// the child is halted without ticking and `else` supplies the result: a
// status literal (SUCCESS/FAILURE/RUNNING/SKIPPED/IDLE) returned verbatim,
// or an expression mapped truthy->Success, falsy->Failure (§4.3).
type Precondition struct{}

func NewPrecondition() *Precondition { return &Precondition{} }

func (p *Precondition) Kind() behavior.Kind { return behavior.DecoratorKind }
func (p *Precondition) ProvidedPorts() port.List {
	return port.List{
		port.Input("string", "if", "", "guard expression"),
		port.Input("string", "else", "FAILURE", "status literal or expression used when `if` is falsy"),
	}
}
func (p *Precondition) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return p.Tick(d, c, rt)
}
func (p *Precondition) Tick(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	child, err := onlyChild(d, children)
	if err != nil {
		return behavior.Idle, err
	}

	ifExpr, err := treenode.GetInput[string](d, "if", "")
	if err != nil {
		return behavior.Idle, err
	}
	truthy, err := evalGuard(d, rt, ifExpr)
	if err != nil {
		return behavior.Idle, err
	}
	if truthy {
		return child.Tick(rt)
	}

	if _, err := child.Halt(rt); err != nil {
		return behavior.Idle, err
	}
	elseExpr, err := treenode.GetInput[string](d, "else", "FAILURE")
	if err != nil {
		return behavior.Idle, err
	}
	if status, ok := behavior.ParseStatus(strings.ToUpper(strings.TrimSpace(elseExpr))); ok {
		return status, nil
	}
	elseTruthy, err := evalGuard(d, rt, elseExpr)
	if err != nil {
		return behavior.Idle, err
	}
	if elseTruthy {
		return behavior.Success, nil
	}
	return behavior.Failure, nil
}
func (p *Precondition) Halt(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return behavior.Idle, treenode.HaltAll(children, rt)
}
