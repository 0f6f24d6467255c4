package script

import (
	"strings"
	"sync"

	"github.com/dop251/goja"

	"github.com/arborist-labs/bteng/internal/bterr"
)

// Runtime is the opaque expression evaluator of spec.md §9:
// run(code, env) -> scalar. The default implementation embeds goja, the same
// embedding the teacher repo uses throughout internal/builtin/bt and
// internal/scripting.
//
// A Runtime is shared under a mutex across every node in one tree (§4.8,
// §5 "Shared resources"); evaluations are expected to be short expressions
// and must not re-enter the same mutex (no expression may itself trigger
// another Run on the same Runtime).
type Runtime struct {
	mu           sync.Mutex
	vm           *goja.Runtime
	builtinNames map[string]bool
	enums        map[string]int64
}

// NewRuntime constructs a fresh goja-backed Runtime with no enum constants
// registered yet.
func NewRuntime() *Runtime {
	vm := goja.New()
	builtin := make(map[string]bool)
	for _, k := range vm.GlobalObject().Keys() {
		builtin[k] = true
	}
	return &Runtime{vm: vm, builtinNames: builtin, enums: make(map[string]int64)}
}

// Clone returns a new Runtime with the same registered enum constants, used
// when a tree driver needs its own mutable script state independent of the
// registry's (spec.md §4.8: "a cloned script runtime").
func (r *Runtime) Clone() *Runtime {
	r.mu.Lock()
	enums := make(map[string]int64, len(r.enums))
	for k, v := range r.enums {
		enums[k] = v
	}
	r.mu.Unlock()

	clone := NewRuntime()
	for name, value := range enums {
		clone.RegisterEnum(name, value)
	}
	return clone
}

// RegisterEnum binds a named integer constant into global scope, used by
// Switch<N>'s "resolve via the scripting enum table" rule (spec.md §4.2).
func (r *Runtime) RegisterEnum(name string, value int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_ = r.vm.Set(name, value)
	r.builtinNames[name] = true
	r.enums[name] = value
}

// LookupEnum returns a registered enum constant by name.
func (r *Runtime) LookupEnum(name string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.enums[name]
	return v, ok
}

// Run evaluates code against env and returns its scalar result.
//
// The expression grammar is unspecified by spec.md (§1 "out of scope");
// this implementation accepts JavaScript as evaluated by goja, with one
// textual accommodation: occurrences of ":=" are rewritten to "=" so that
// expressions written in the original engine's own assignment-operator
// style (e.g. "the_answer := 40 + 2") evaluate unchanged, since goja has no
// ":=" operator of its own. See DESIGN.md for this Open Question decision.
func (r *Runtime) Run(code string, env Env) (Value, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	code = strings.ReplaceAll(code, ":=", "=")

	global := r.vm.GlobalObject()
	for _, name := range env.Keys() {
		v, ok := env.GetEnv(name)
		if !ok {
			continue
		}
		if err := r.vm.Set(name, goValueOf(v)); err != nil {
			return Value{}, bterr.Scriptf("", err, "binding %q", name)
		}
	}

	result, err := r.vm.RunString(code)
	if err != nil {
		return Value{}, bterr.Scriptf("", err, "evaluating %q", code)
	}

	for _, name := range env.Keys() {
		got := global.Get(name)
		if got == nil {
			continue
		}
		if err := env.SetEnv(name, valueOfExported(got.Export())); err != nil {
			return Value{}, bterr.Scriptf("", err, "writing back %q", name)
		}
	}

	for _, name := range global.Keys() {
		if r.builtinNames[name] || containsString(env.Keys(), name) {
			continue
		}
		got := global.Get(name)
		if got == nil {
			continue
		}
		_ = env.DefineEnv(name, valueOfExported(got.Export()))
	}

	return valueOfExported(result.Export()), nil
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func goValueOf(v Value) any {
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

func valueOfExported(raw any) Value {
	switch x := raw.(type) {
	case nil:
		return NilValue()
	case bool:
		return BoolValue(x)
	case int64:
		return IntValue(x)
	case int:
		return IntValue(int64(x))
	case float64:
		// goja exports whole-number floats as float64; keep Int vs Float
		// distinction only where the JS value was produced from an
		// explicit Int binding — otherwise default to Float, matching
		// JS's single numeric type.
		return FloatValue(x)
	case string:
		return StringValue(x)
	default:
		return StringValue("")
	}
}
