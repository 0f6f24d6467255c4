package treenode_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/blackboard"
	"github.com/arborist-labs/bteng/internal/builtinbeh/action"
	"github.com/arborist-labs/bteng/internal/script"
	"github.com/arborist-labs/bteng/internal/treenode"
)

func newTestRuntime() *behavior.Runtime {
	return behavior.NewRuntime(nil, script.NewRuntime())
}

func mockNode(t *testing.T, state behavior.Status) *treenode.Node {
	t.Helper()
	b := action.NewMockBehavior(action.MockBehaviorConfig{ReturnState: state})
	n, err := treenode.New(b, treenode.NewData(1, "mock", "Mock", blackboard.New()), nil)
	require.NoError(t, err)
	return n
}

func TestNode_TickReturnsBehaviorStatus(t *testing.T) {
	t.Parallel()

	rt := newTestRuntime()
	n := mockNode(t, behavior.Success)

	status, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
	require.Equal(t, behavior.Success, n.Data.Status())
}

func TestNode_SuccessIfPrecondition(t *testing.T) {
	t.Parallel()

	rt := newTestRuntime()
	n := mockNode(t, behavior.Failure)
	n.Data.PreConditions["_successIf"] = "true"

	status, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
	require.Equal(t, behavior.Success, n.Data.Status())
}

func TestNode_SkipIfDoesNotOverwriteObservedStatus(t *testing.T) {
	t.Parallel()

	rt := newTestRuntime()
	n := mockNode(t, behavior.Success)
	n.Data.PreConditions["_skipIf"] = "true"

	status, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Skipped, status)
	// Authoritative status untouched by a Skipped override (§4.1).
	require.Equal(t, behavior.Idle, n.Data.Status())
}

func TestNode_WhileHaltsRunningNodeToSkipped(t *testing.T) {
	t.Parallel()

	rt := newTestRuntime()
	n := mockNode(t, behavior.Success)
	n.Data.Board.Set("go", true)
	n.Data.PreConditions["_while"] = "go"

	status, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)

	// Re-arm as Running via a fresh async mock to exercise the _while branch.
	async := action.NewMockBehavior(action.MockBehaviorConfig{ReturnState: behavior.Success, AsyncDelayMsec: 1000})
	n2, err := treenode.New(async, treenode.NewData(2, "async", "Mock", blackboard.New()), nil)
	require.NoError(t, err)
	n2.Data.Board.Set("go", true)
	n2.Data.PreConditions["_while"] = "go"

	status, err = n2.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Running, status)

	n2.Data.Board.Set("go", false)
	status, err = n2.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Skipped, status)
	require.Equal(t, behavior.Idle, n2.Data.Status())
}

func TestNode_PostConditionHooksFireOnTerminalStatus(t *testing.T) {
	t.Parallel()

	rt := newTestRuntime()
	n := mockNode(t, behavior.Success)
	n.Data.Board.Set("hits", int64(0))
	n.Data.PostConditions["_onSuccess"] = "hits = hits + 1"
	n.Data.PostConditions["_post"] = "hits = hits + 10"

	_, err := n.Tick(rt)
	require.NoError(t, err)

	v, err := n.Data.Board.Get("hits")
	require.NoError(t, err)
	require.EqualValues(t, 11, v)
}

func TestNode_HaltIsIdempotentAndResetsToIdle(t *testing.T) {
	t.Parallel()

	rt := newTestRuntime()
	n := mockNode(t, behavior.Success)
	n.Data.PostConditions["_onHalted"] = "halted = true"

	// Halting an already-Idle, never-started node is a no-op.
	status, err := n.Halt(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Idle, status)
	require.False(t, n.Data.Board.Has("halted"))

	async := action.NewMockBehavior(action.MockBehaviorConfig{ReturnState: behavior.Success, AsyncDelayMsec: 1000})
	r, err := treenode.New(async, treenode.NewData(3, "async", "Mock", blackboard.New()), nil)
	require.NoError(t, err)
	r.Data.PostConditions["_onHalted"] = "halted = true"

	status, err = r.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Running, status)

	status, err = r.Halt(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Idle, status)
	v, err := r.Data.Board.Get("halted")
	require.NoError(t, err)
	require.Equal(t, true, v)

	// Halting again is a no-op and does not re-fire the hook.
	r.Data.Board.Set("halted", false)
	_, err = r.Halt(rt)
	require.NoError(t, err)
	v, err = r.Data.Board.Get("halted")
	require.NoError(t, err)
	require.Equal(t, false, v)
}

func TestNode_BreakpointSuspendsTick(t *testing.T) {
	t.Parallel()

	rt := newTestRuntime()
	n := mockNode(t, behavior.Success)

	suspended := true
	n.Data.SetBreakpoint(func() bool { return suspended })

	status, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Running, status)
	// The underlying behavior never ran; observed status stays Idle.
	require.Equal(t, behavior.Idle, n.Data.Status())

	suspended = false
	status, err = n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
}

func TestNode_WalkVisitsEveryNode(t *testing.T) {
	t.Parallel()

	child := mockNode(t, behavior.Success)
	parent, err := treenode.New(action.NewMockBehavior(action.MockBehaviorConfig{ReturnState: behavior.Success}), treenode.NewData(4, "parent", "Mock", blackboard.New()), nil)
	require.NoError(t, err)
	parent.Children = []*treenode.Node{child}

	var visited []uint16
	parent.Walk(func(n *treenode.Node) { visited = append(visited, n.Data.UID) })
	require.Equal(t, []uint16{4, 1}, visited)
}
