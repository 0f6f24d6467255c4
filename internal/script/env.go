package script

import (
	"github.com/arborist-labs/bteng/internal/blackboard"
)

// Env is the environment trait an expression executes against, per
// spec.md §9: "env exposes get_env / set_env / define_env over the node's
// blackboard."
type Env interface {
	// GetEnv looks up name, resolving through the node's blackboard
	// remapping chain (so `A` in an expression reads the port named `A`,
	// which may be remapped to an arbitrary key).
	GetEnv(name string) (Value, bool)
	// SetEnv writes name back through the same resolution.
	SetEnv(name string, v Value) error
	// DefineEnv introduces a new local binding (e.g. `x := 1`) without
	// going through blackboard remapping at all — a pure scripting
	// temporary, discarded when the expression's evaluation ends unless
	// the script runtime chooses to persist it for the node's lifetime.
	DefineEnv(name string, v Value) error
	// Keys lists the names the runtime should bind into scope before
	// evaluating an expression against this Env.
	Keys() []string
}

// BoardEnv adapts a blackboard.Board directly into an Env, for Script /
// ScriptCondition / pre-post-condition evaluation where every free variable
// in the expression is implicitly a blackboard key.
type BoardEnv struct {
	Board *blackboard.Board
	// locals holds DefineEnv bindings that are not persisted to the board.
	locals map[string]Value
}

func NewBoardEnv(b *blackboard.Board) *BoardEnv {
	return &BoardEnv{Board: b, locals: make(map[string]Value)}
}

func (e *BoardEnv) GetEnv(name string) (Value, bool) {
	if v, ok := e.locals[name]; ok {
		return v, true
	}
	raw, err := e.Board.Get(name)
	if err != nil {
		return Value{}, false
	}
	return toValue(raw), true
}

func (e *BoardEnv) SetEnv(name string, v Value) error {
	if _, isLocal := e.locals[name]; isLocal {
		e.locals[name] = v
		return nil
	}
	return e.Board.Set(name, fromValue(v))
}

func (e *BoardEnv) DefineEnv(name string, v Value) error {
	e.locals[name] = v
	return nil
}

// Keys lists every name visible to an expression evaluated against this
// Env: the board's own keys plus any locals already defined this call.
func (e *BoardEnv) Keys() []string {
	keys := e.Board.Keys()
	for k := range e.locals {
		found := false
		for _, existing := range keys {
			if existing == k {
				found = true
				break
			}
		}
		if !found {
			keys = append(keys, k)
		}
	}
	return keys
}

func toValue(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return NilValue()
	case bool:
		return BoolValue(x)
	case float64:
		return FloatValue(x)
	case float32:
		return FloatValue(float64(x))
	case int:
		return IntValue(int64(x))
	case int32:
		return IntValue(int64(x))
	case int64:
		return IntValue(x)
	case string:
		return StringValue(x)
	default:
		return StringValue("")
	}
}

func fromValue(v Value) any {
	switch v.Kind {
	case Bool:
		return v.B
	case Float:
		return v.F
	case Int:
		return v.I
	case String:
		return v.S
	default:
		return nil
	}
}
