// Package script wraps the expression evaluator the spec treats as an
// opaque collaborator (spec.md §1 "Out of scope", §9 "Script evaluator
// coupling"): `run(code, env) -> scalar` plus an environment trait exposing
// get_env/set_env/define_env over a node's blackboard.
//
// The default implementation embeds goja (github.com/dop251/goja), grounded
// directly on the teacher repo's internal/builtin/bt adapter and
// internal/scripting engine, which both use goja as the sole scripting
// runtime embedded in a Go host.
package script

import (
	"fmt"
	"strconv"
)

// Kind is the scalar variant tag returned by Run, per spec.md §9.
type Kind uint8

const (
	Nil Kind = iota
	Bool
	Float
	Int
	String
)

// Value is the scalar result of evaluating an expression.
type Value struct {
	Kind Kind
	B    bool
	F    float64
	I    int64
	S    string
}

func NilValue() Value           { return Value{Kind: Nil} }
func BoolValue(b bool) Value    { return Value{Kind: Bool, B: b} }
func FloatValue(f float64) Value { return Value{Kind: Float, F: f} }
func IntValue(i int64) Value    { return Value{Kind: Int, I: i} }
func StringValue(s string) Value { return Value{Kind: String, S: s} }

// Truthy applies the engine's notion of truthiness for condition expressions:
// Nil is false, Bool is itself, numbers are false iff zero, strings are false
// iff empty or the literal "false"/"0".
func (v Value) Truthy() bool {
	switch v.Kind {
	case Nil:
		return false
	case Bool:
		return v.B
	case Float:
		return v.F != 0
	case Int:
		return v.I != 0
	case String:
		return v.S != "" && v.S != "false" && v.S != "0"
	default:
		return false
	}
}

// AsString renders the value as text, e.g. for blackboard storage.
func (v Value) AsString() string {
	switch v.Kind {
	case Nil:
		return ""
	case Bool:
		return strconv.FormatBool(v.B)
	case Float:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case Int:
		return strconv.FormatInt(v.I, 10)
	case String:
		return v.S
	default:
		return ""
	}
}

// AsFloat coerces the value to a float64, used by Switch's numeric-equality
// fallback (spec.md §4.2: "both parse as same int/float within 2e-15").
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case Float:
		return v.F, true
	case Int:
		return float64(v.I), true
	case String:
		f, err := strconv.ParseFloat(v.S, 64)
		return f, err == nil
	case Bool:
		if v.B {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func (v Value) GoString() string {
	return fmt.Sprintf("Value{%v}", v.AsString())
}
