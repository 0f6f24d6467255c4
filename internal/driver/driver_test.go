package driver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/blackboard"
	"github.com/arborist-labs/bteng/internal/builtinbeh/action"
	"github.com/arborist-labs/bteng/internal/registry"
	"github.com/arborist-labs/bteng/internal/script"
	"github.com/arborist-labs/bteng/internal/treenode"
)

func leaf(t *testing.T, uid uint16, state behavior.Status) *treenode.Node {
	t.Helper()
	n, err := treenode.New(action.NewMockBehavior(action.MockBehaviorConfig{ReturnState: state}), treenode.NewData(uid, "leaf", "Mock", blackboard.New()), nil)
	require.NoError(t, err)
	n.Data.Path = "/root/leaf"
	return n
}

func newTree(t *testing.T, state behavior.Status) (*Tree, *treenode.Node) {
	t.Helper()
	reg := registry.New(script.NewRuntime())
	root := leaf(t, 1, state)
	rt := behavior.NewRuntime(nil, reg.Script)
	tr := New(root, rt, reg)
	return tr, root
}

func TestTree_TickOnceDrainsMailboxThenTicks(t *testing.T) {
	t.Parallel()
	tr, _ := newTree(t, behavior.Success)

	var ran bool
	tr.Post(Command{Name: "noop", Func: func() { ran = true }})

	status, err := tr.TickOnce()
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
	require.True(t, ran)
}

func TestTree_PostDropsWhenMailboxFull(t *testing.T) {
	t.Parallel()
	tr, _ := newTree(t, behavior.Success)

	for i := 0; i < 64; i++ {
		tr.Post(Command{Name: "x", Func: func() {}})
	}
	// Should not block or panic even though the 32-slot buffer is long full.
	tr.Post(Command{Name: "overflow", Func: func() {}})
}

func TestTree_TickWhileRunningStopsOnNonRunning(t *testing.T) {
	t.Parallel()
	tr, _ := newTree(t, behavior.Failure)
	tr.Start()
	defer tr.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	status, err := tr.TickWhileRunning(ctx)
	require.NoError(t, err)
	require.Equal(t, behavior.Failure, status)
}

func TestTree_TickWhileRunningStopsOnContextDone(t *testing.T) {
	t.Parallel()
	reg := registry.New(script.NewRuntime())
	root := leaf(t, 1, behavior.Running)
	rt := behavior.NewRuntime(nil, reg.Script)
	tr := New(root, rt, reg)
	tr.Start()
	defer tr.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	status, err := tr.TickWhileRunning(ctx)
	require.Error(t, err)
	require.Equal(t, behavior.Running, status)
}

func TestTree_StartIsIdempotentAndStopReleasesLibraries(t *testing.T) {
	t.Parallel()
	tr, _ := newTree(t, behavior.Success)
	tr.Start()
	tr.Start() // idempotent, must not panic or double-start the loop

	tr.AcquireLibrary("plugin.so")
	tr.AcquireLibrary("plugin.so")
	tr.Stop()

	// A second Stop before another Start is a no-op.
	tr.Stop()
}

func TestTree_ResetHaltsAndReclonesScript(t *testing.T) {
	t.Parallel()
	reg := registry.New(script.NewRuntime())
	root := leaf(t, 1, behavior.Running)
	rt := behavior.NewRuntime(nil, reg.Script)
	tr := New(root, rt, reg)

	_, err := tr.TickOnce()
	require.NoError(t, err)
	require.Equal(t, behavior.Running, root.Data.Status())

	oldScript := tr.Runtime.Script
	require.NoError(t, tr.Reset())

	require.Equal(t, behavior.Idle, root.Data.Status())
	require.NotSame(t, oldScript, tr.Runtime.Script)
}

func TestTree_FindLocatesNodeByPath(t *testing.T) {
	t.Parallel()
	tr, root := newTree(t, behavior.Success)

	found, err := tr.Find("/root/leaf")
	require.NoError(t, err)
	require.Same(t, root, found)

	_, err = tr.Find("/does/not/exist")
	require.Error(t, err)
}

func TestTree_IterVisitsRoot(t *testing.T) {
	t.Parallel()
	tr, root := newTree(t, behavior.Success)

	var visited []*treenode.Node
	tr.Iter(func(n *treenode.Node) { visited = append(visited, n) })
	require.Equal(t, []*treenode.Node{root}, visited)
}

func TestTree_LoggerDefaultsWhenUnset(t *testing.T) {
	t.Parallel()
	tr, _ := newTree(t, behavior.Success)
	require.NotNil(t, tr.Logger())
}
