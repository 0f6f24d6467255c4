package treenode

import (
	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/bterr"
	"github.com/arborist-labs/bteng/internal/script"
)

// evalCondition evaluates a pre/post-condition expression against this
// node's blackboard and reports its truthiness.
func evalCondition(d *Data, rt *behavior.Runtime, expr string) (script.Value, error) {
	env := script.NewBoardEnv(d.Board)
	v, err := rt.Script.Run(expr, env)
	if err != nil {
		return script.Value{}, bterr.Scriptf(d.Path, err, "evaluating condition %q", expr)
	}
	return v, nil
}

// runPostCondition evaluates a post-condition expression purely for its side
// effects (e.g. `_onSuccess="count := count + 1"`); the result value is
// discarded.
func runPostCondition(d *Data, rt *behavior.Runtime, name string) error {
	expr, ok := d.PostConditions[name]
	if !ok {
		return nil
	}
	_, err := evalCondition(d, rt, expr)
	return err
}
