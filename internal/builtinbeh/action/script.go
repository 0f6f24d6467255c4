package action

import (
	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/bterr"
	"github.com/arborist-labs/bteng/internal/port"
	"github.com/arborist-labs/bteng/internal/script"
	"github.com/arborist-labs/bteng/internal/treenode"
)

// Script evaluates `code` against the node's blackboard for side effects
// and always returns Success (§6.2, §4.4). Identical evaluation path to
// pre/post-condition hooks and ScriptCondition, just without the
// truthiness mapping.
type Script struct{}

func NewScript() *Script { return &Script{} }

func (s *Script) Kind() behavior.Kind { return behavior.ActionKind }
func (s *Script) ProvidedPorts() port.List {
	return leafPorts(port.Input("string", "code", "", "expression evaluated for its side effects"))
}
func (s *Script) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return s.Tick(d, c, rt)
}
func (s *Script) Tick(d *treenode.Data, _ []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	code, err := treenode.GetInput[string](d, "code", "")
	if err != nil {
		return behavior.Idle, err
	}
	if _, err := runExpr(d, rt, code); err != nil {
		return behavior.Idle, err
	}
	return behavior.Success, nil
}
func (s *Script) Halt(d *treenode.Data, _ []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return behavior.Idle, nil
}

// ScriptCondition evaluates `code` and returns Success iff the result is
// truthy, Failure otherwise (§6.2).
type ScriptCondition struct{}

func NewScriptCondition() *ScriptCondition { return &ScriptCondition{} }

func (s *ScriptCondition) Kind() behavior.Kind { return behavior.ConditionKind }
func (s *ScriptCondition) ProvidedPorts() port.List {
	return leafPorts(port.Input("string", "code", "", "expression evaluated for its truthiness"))
}
func (s *ScriptCondition) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return s.Tick(d, c, rt)
}
func (s *ScriptCondition) Tick(d *treenode.Data, _ []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	code, err := treenode.GetInput[string](d, "code", "")
	if err != nil {
		return behavior.Idle, err
	}
	v, err := runExpr(d, rt, code)
	if err != nil {
		return behavior.Idle, err
	}
	if v.Truthy() {
		return behavior.Success, nil
	}
	return behavior.Failure, nil
}
func (s *ScriptCondition) Halt(d *treenode.Data, _ []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return behavior.Idle, nil
}

// WasEntryUpdated reports Success iff `entry`'s sequence id has changed
// since this node last ticked (§6.2); the very first tick is always
// "updated" (no prior sequence id recorded yet).
type WasEntryUpdated struct {
	seen    bool
	lastSeq uint64
}

func NewWasEntryUpdated() *WasEntryUpdated { return &WasEntryUpdated{} }

func (w *WasEntryUpdated) Kind() behavior.Kind { return behavior.ConditionKind }
func (w *WasEntryUpdated) ProvidedPorts() port.List {
	return leafPorts(port.Input("string", "entry", "", "blackboard key to watch"))
}
func (w *WasEntryUpdated) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	w.seen = false
	return w.Tick(d, c, rt)
}
func (w *WasEntryUpdated) Tick(d *treenode.Data, _ []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	entry, err := treenode.GetInput[string](d, "entry", "")
	if err != nil {
		return behavior.Idle, err
	}
	if !w.seen {
		w.seen = true
		w.lastSeq = d.Board.SequenceID(entry)
		return behavior.Success, nil
	}
	updated, current := d.Board.WasUpdated(entry, w.lastSeq)
	w.lastSeq = current
	if updated {
		return behavior.Success, nil
	}
	return behavior.Failure, nil
}
func (w *WasEntryUpdated) Halt(d *treenode.Data, _ []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return behavior.Idle, nil
}

func runExpr(d *treenode.Data, rt *behavior.Runtime, code string) (script.Value, error) {
	env := script.NewBoardEnv(d.Board)
	v, err := rt.Script.Run(code, env)
	if err != nil {
		return script.Value{}, bterr.Scriptf(d.Path, err, "evaluating %q", code)
	}
	return v, nil
}
