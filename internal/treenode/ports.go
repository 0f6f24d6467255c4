package treenode

import (
	"strings"

	"github.com/arborist-labs/bteng/internal/blackboard"
	"github.com/arborist-labs/bteng/internal/bterr"
)

// resolveTarget turns a raw remapping attribute value into either a
// blackboard key (ok=true) or signals that value is a literal (ok=false).
// `{=}` expands to `{port_name}` at read time only, per §3.4.
func resolveTarget(portName, target string) (key string, isLiteral bool) {
	if target == "{=}" {
		return portName, false
	}
	if strings.HasPrefix(target, "{") && strings.HasSuffix(target, "}") {
		inner := target[1 : len(target)-1]
		if strings.HasPrefix(inner, "@") {
			return inner, false // "@name" — BoardEnv/Board.Get handles the leading '@'
		}
		return inner, false
	}
	return target, true
}

// GetInput resolves portName for node d: follows its remapping to a
// blackboard key, or parses a literal/default value directly. def is used
// when the port has no remapping attribute at all (the behavior's declared
// default).
func GetInput[T any](d *Data, portName, def string) (T, error) {
	var zero T
	target, hasRemap := d.RemappingFor(portName)
	if !hasRemap {
		if def == "" {
			return zero, bterr.BlackboardMissf(d.Path, portName, "port %q has no remapping and no default", portName)
		}
		return blackboard.ParseString[T](def)
	}
	key, isLiteral := resolveTarget(portName, target)
	if isLiteral {
		return blackboard.ParseString[T](key)
	}
	return blackboard.Get[T](d.Board, key)
}

// SetOutput writes value to portName's resolved blackboard key. Writing to a
// port with a literal (non-pointer) remapping is a composition error.
func SetOutput(d *Data, portName string, value any) error {
	target, hasRemap := d.RemappingFor(portName)
	if !hasRemap {
		return bterr.Compositionf(d.Path, "output port %q has no remapping", portName)
	}
	key, isLiteral := resolveTarget(portName, target)
	if isLiteral {
		return bterr.Compositionf(d.Path, "output port %q is bound to a literal, cannot write", portName)
	}
	return d.Board.Set(key, value)
}
