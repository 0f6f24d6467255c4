package control

import (
	"fmt"
	"math"
	"strconv"

	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/bterr"
	"github.com/arborist-labs/bteng/internal/port"
	"github.com/arborist-labs/bteng/internal/treenode"
)

// Switch implements Switch<N> (§4.2): N case children plus a trailing
// default child (N+1 children total). The first case whose value equals
// `variable` is selected, by string equality, numeric equivalence (within
// 2e-15), or via the script runtime's registered enum table.
type Switch struct {
	N          int
	runningIdx int
}

// NewSwitch constructs a Switch<N> for the given case count; the node must
// be built with exactly n+1 children (n cases + one default).
func NewSwitch(n int) *Switch { return &Switch{N: n, runningIdx: -1} }

func (s *Switch) Kind() behavior.Kind { return behavior.ControlKind }

func (s *Switch) ProvidedPorts() port.List {
	ports := port.List{port.Input("string", "variable", "", "blackboard pointer compared against each case")}
	for i := 1; i <= s.N; i++ {
		ports = append(ports, port.Input("string", fmt.Sprintf("case_%d", i), "", "case value"))
	}
	return ports
}

func (s *Switch) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	s.runningIdx = -1
	return s.Tick(d, c, rt)
}

func (s *Switch) Tick(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	if len(children) != s.N+1 {
		return behavior.Idle, bterr.Compositionf(d.Path, "Switch<%d> requires %d children, got %d", s.N, s.N+1, len(children))
	}
	variable, err := treenode.GetInput[string](d, "variable", "")
	if err != nil {
		return behavior.Idle, err
	}

	idx := s.N // default branch
	for i := 1; i <= s.N; i++ {
		caseVal, err := treenode.GetInput[string](d, fmt.Sprintf("case_%d", i), "")
		if err != nil {
			continue
		}
		if switchMatch(variable, caseVal, rt) {
			idx = i - 1
			break
		}
	}

	if s.runningIdx != -1 && s.runningIdx != idx {
		if _, err := children[s.runningIdx].Halt(rt); err != nil {
			return behavior.Idle, err
		}
	}

	status, err := children[idx].Tick(rt)
	if err != nil {
		return behavior.Idle, err
	}
	switch status {
	case behavior.Running:
		s.runningIdx = idx
	case behavior.Skipped:
		s.runningIdx = -1
	default:
		s.runningIdx = -1
	}
	return status, nil
}

func (s *Switch) Halt(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	s.runningIdx = -1
	return behavior.Idle, treenode.HaltAll(children, rt)
}

func switchMatch(a, b string, rt *behavior.Runtime) bool {
	if a == b {
		return true
	}
	af, aok := numericOrEnum(a, rt)
	bf, bok := numericOrEnum(b, rt)
	if aok && bok {
		return math.Abs(af-bf) < 2e-15
	}
	return false
}

func numericOrEnum(s string, rt *behavior.Runtime) (float64, bool) {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	if rt != nil && rt.Script != nil {
		if v, ok := rt.Script.LookupEnum(s); ok {
			return float64(v), true
		}
	}
	return 0, false
}
