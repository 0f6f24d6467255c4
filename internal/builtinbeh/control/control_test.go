package control

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/blackboard"
	"github.com/arborist-labs/bteng/internal/builtinbeh/action"
	"github.com/arborist-labs/bteng/internal/port"
	"github.com/arborist-labs/bteng/internal/script"
	"github.com/arborist-labs/bteng/internal/treenode"
)

// countBehavior is a minimal leaf that records how many times Start/Tick were
// invoked, used to observe which children a composite actually re-visits.
type countBehavior struct {
	state          behavior.Status
	starts, ticks  int
}

func (c *countBehavior) Kind() behavior.Kind         { return behavior.ActionKind }
func (c *countBehavior) ProvidedPorts() port.List    { return nil }
func (c *countBehavior) Start(*treenode.Data, []*treenode.Node, *behavior.Runtime) (behavior.Status, error) {
	c.starts++
	return c.state, nil
}
func (c *countBehavior) Tick(*treenode.Data, []*treenode.Node, *behavior.Runtime) (behavior.Status, error) {
	c.ticks++
	return c.state, nil
}
func (c *countBehavior) Halt(*treenode.Data, []*treenode.Node, *behavior.Runtime) (behavior.Status, error) {
	return behavior.Idle, nil
}

func newRuntime() *behavior.Runtime {
	return behavior.NewRuntime(nil, script.NewRuntime())
}

func leaf(t *testing.T, uid uint16, state behavior.Status) *treenode.Node {
	t.Helper()
	n, err := treenode.New(action.NewMockBehavior(action.MockBehaviorConfig{ReturnState: state}), treenode.NewData(uid, "leaf", "Mock", blackboard.New()), nil)
	require.NoError(t, err)
	return n
}

func asyncLeaf(t *testing.T, uid uint16, state behavior.Status) *treenode.Node {
	t.Helper()
	n, err := treenode.New(action.NewMockBehavior(action.MockBehaviorConfig{ReturnState: state, AsyncDelayMsec: 1000}), treenode.NewData(uid, "leaf", "Mock", blackboard.New()), nil)
	require.NoError(t, err)
	return n
}

func parentOf(t *testing.T, b treenode.Behavior, children ...*treenode.Node) *treenode.Node {
	t.Helper()
	n, err := treenode.New(b, treenode.NewData(0, "root", "Root", blackboard.New()), children)
	require.NoError(t, err)
	return n
}

func TestSequence_AllSuccessYieldsSuccess(t *testing.T) {
	t.Parallel()
	rt := newRuntime()
	p := parentOf(t, NewSequence(), leaf(t, 1, behavior.Success), leaf(t, 2, behavior.Success))

	status, err := p.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
}

func TestSequence_FailureShortCircuitsAndResets(t *testing.T) {
	t.Parallel()
	rt := newRuntime()
	second := leaf(t, 2, behavior.Success)
	p := parentOf(t, NewSequence(), leaf(t, 1, behavior.Failure), second)

	status, err := p.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Failure, status)
	// Second child never ticked: failure short-circuits.
	require.Equal(t, behavior.Idle, second.Data.Status())
}

func TestSequence_AllSkippedYieldsSkipped(t *testing.T) {
	t.Parallel()
	rt := newRuntime()
	a := leaf(t, 1, behavior.Success)
	a.Data.PreConditions["_skipIf"] = "true"
	b := leaf(t, 2, behavior.Success)
	b.Data.PreConditions["_skipIf"] = "true"
	p := parentOf(t, NewSequence(), a, b)

	status, err := p.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Skipped, status)
}

func TestSequenceWithMemory_FailureKeepsIndex(t *testing.T) {
	t.Parallel()
	rt := newRuntime()

	first := &countBehavior{state: behavior.Success}
	second := &countBehavior{state: behavior.Failure}
	c0, err := treenode.New(first, treenode.NewData(1, "c0", "Count", blackboard.New()), nil)
	require.NoError(t, err)
	c1, err := treenode.New(second, treenode.NewData(2, "c1", "Count", blackboard.New()), nil)
	require.NoError(t, err)
	children := []*treenode.Node{c0, c1}

	seq := NewSequenceWithMemory()
	d := treenode.NewData(0, "root", "Root", blackboard.New())

	status, err := seq.Start(d, children, rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Failure, status)
	require.Equal(t, 1, first.starts)
	require.Equal(t, 1, second.starts)

	// SequenceWithMemory does not reset childIdx back to 0 on Failure, so a
	// subsequent Tick re-visits only the failing child onward. The failing
	// child was halted back to Idle, so the re-visit starts it afresh.
	status, err = seq.Tick(d, children, rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Failure, status)
	require.Equal(t, 1, first.starts)
	require.Equal(t, 0, first.ticks)
	require.Equal(t, 2, second.starts)
}

func TestFallback_FirstSuccessShortCircuits(t *testing.T) {
	t.Parallel()
	rt := newRuntime()
	second := leaf(t, 2, behavior.Success)
	p := parentOf(t, NewFallback(), leaf(t, 1, behavior.Success), second)

	status, err := p.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
	require.Equal(t, behavior.Idle, second.Data.Status())
}

func TestFallback_AllFailureYieldsFailure(t *testing.T) {
	t.Parallel()
	rt := newRuntime()
	p := parentOf(t, NewFallback(), leaf(t, 1, behavior.Failure), leaf(t, 2, behavior.Failure))

	status, err := p.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Failure, status)
}

func TestReactiveSequence_ReactivityHaltsPreviouslyRunningChild(t *testing.T) {
	t.Parallel()
	rt := newRuntime()

	cond := leaf(t, 1, behavior.Success)
	running := asyncLeaf(t, 2, behavior.Success)
	p := parentOf(t, NewReactiveSequence(), cond, running)

	status, err := p.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Running, status)
	require.Equal(t, behavior.Running, running.Data.Status())

	// Flip the condition to Failure: the running child must be re-evaluated
	// from index 0 every tick and the whole sequence fails immediately,
	// halting the previously-Running child back to Idle.
	cond.Behavior = action.NewMockBehavior(action.MockBehaviorConfig{ReturnState: behavior.Failure})
	status, err = p.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Failure, status)
	require.Equal(t, behavior.Idle, running.Data.Status())
}

func TestParallel_ThresholdOrdering(t *testing.T) {
	t.Parallel()
	rt := newRuntime()

	p := NewParallel()
	node := parentOf(t, p, leaf(t, 1, behavior.Success), leaf(t, 2, behavior.Success), leaf(t, 3, behavior.Failure))
	node.Data.Remappings = []treenode.Remapping{{Port: "success_count", Target: "2"}}

	status, err := node.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
}

func TestParallel_FailureThresholdWins(t *testing.T) {
	t.Parallel()
	rt := newRuntime()

	p := NewParallel()
	node := parentOf(t, p, leaf(t, 1, behavior.Success), leaf(t, 2, behavior.Failure), leaf(t, 3, behavior.Failure))
	node.Data.Remappings = []treenode.Remapping{
		{Port: "success_count", Target: "1"},
		{Port: "failure_count", Target: "1"},
	}

	status, err := node.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Failure, status)
}

func TestParallelAll_WaitsForEveryChild(t *testing.T) {
	t.Parallel()
	rt := newRuntime()

	running := asyncLeaf(t, 1, behavior.Success)
	p := parentOf(t, NewParallelAll(), running, leaf(t, 2, behavior.Success))
	p.Data.Remappings = []treenode.Remapping{{Port: "max_failures", Target: "0"}}

	status, err := p.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Running, status)
}

func TestParallelAll_DefaultMaxFailuresToleratesAnyFailureCount(t *testing.T) {
	t.Parallel()
	rt := newRuntime()

	p := NewParallelAll()
	node := parentOf(t, p, leaf(t, 1, behavior.Failure), leaf(t, 2, behavior.Failure))

	status, err := node.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
}

func TestIfThenElse_ChoosesBranchByCondition(t *testing.T) {
	t.Parallel()
	rt := newRuntime()

	cond := leaf(t, 1, behavior.Success)
	then := leaf(t, 2, behavior.Success)
	els := leaf(t, 3, behavior.Success)
	p := parentOf(t, NewIfThenElse(), cond, then, els)

	status, err := p.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
	require.Equal(t, behavior.Idle, els.Data.Status())
}

func TestIfThenElse_ElseBranchOnFailure(t *testing.T) {
	t.Parallel()
	rt := newRuntime()

	cond := leaf(t, 1, behavior.Failure)
	then := leaf(t, 2, behavior.Success)
	els := leaf(t, 3, behavior.Success)
	p := parentOf(t, NewIfThenElse(), cond, then, els)

	status, err := p.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
	require.Equal(t, behavior.Idle, then.Data.Status())
}

func TestSwitch_StringAndNumericEquivalence(t *testing.T) {
	t.Parallel()
	rt := newRuntime()

	case1 := leaf(t, 1, behavior.Success)
	case2 := leaf(t, 2, behavior.Success)
	def := leaf(t, 3, behavior.Failure)

	s := NewSwitch(2)
	p := parentOf(t, s, case1, case2, def)
	p.Data.Remappings = []treenode.Remapping{
		{Port: "variable", Target: "2"},
		{Port: "case_1", Target: "1"},
		{Port: "case_2", Target: "2.0"},
	}

	status, err := p.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
	require.Equal(t, behavior.Success, case2.Data.Status())
	require.Equal(t, behavior.Idle, case1.Data.Status())
}

func TestSwitch_EnumLookup(t *testing.T) {
	t.Parallel()
	rt := newRuntime()
	rt.Script.RegisterEnum("RED", 1)
	rt.Script.RegisterEnum("BLUE", 2)

	case1 := leaf(t, 1, behavior.Success)
	def := leaf(t, 2, behavior.Failure)

	s := NewSwitch(1)
	p := parentOf(t, s, case1, def)
	p.Data.Remappings = []treenode.Remapping{
		{Port: "variable", Target: "BLUE"},
		{Port: "case_1", Target: "2"},
	}

	status, err := p.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
}

func TestSwitch_NoMatchFallsToDefault(t *testing.T) {
	t.Parallel()
	rt := newRuntime()

	case1 := leaf(t, 1, behavior.Success)
	def := leaf(t, 2, behavior.Failure)

	s := NewSwitch(1)
	p := parentOf(t, s, case1, def)
	p.Data.Remappings = []treenode.Remapping{
		{Port: "variable", Target: "unmatched"},
		{Port: "case_1", Target: "1"},
	}

	status, err := p.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Failure, status)
}
