package observer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/script"
)

func TestBreakpoints_InsertSuspendsTick(t *testing.T) {
	t.Parallel()
	rt := behavior.NewRuntime(nil, script.NewRuntime())
	n := leaf(t, 9)

	b := NewBreakpoints()
	require.True(t, b.Insert(n, 9))

	status, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Running, status)
	require.Equal(t, behavior.Idle, n.Data.Status())
}

func TestBreakpoints_InsertMissingUIDFails(t *testing.T) {
	t.Parallel()
	n := leaf(t, 9)

	b := NewBreakpoints()
	require.False(t, b.Insert(n, 123))
}

func TestBreakpoints_RemoveResumesTicking(t *testing.T) {
	t.Parallel()
	rt := behavior.NewRuntime(nil, script.NewRuntime())
	n := leaf(t, 9)

	b := NewBreakpoints()
	require.True(t, b.Insert(n, 9))
	status, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Running, status)

	b.Remove(9)
	status, err = n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
}

func TestBreakpoints_DumpListsInstalledUIDs(t *testing.T) {
	t.Parallel()
	n := leaf(t, 1)
	b := NewBreakpoints()
	require.True(t, b.Insert(n, 1))
	require.ElementsMatch(t, []uint16{1}, b.Dump())
}

func TestBreakpoints_RemoveAllClearsEveryHook(t *testing.T) {
	t.Parallel()
	rt := behavior.NewRuntime(nil, script.NewRuntime())
	n := leaf(t, 1)
	b := NewBreakpoints()
	require.True(t, b.Insert(n, 1))

	b.RemoveAll()
	require.Empty(t, b.Dump())

	status, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
}

func TestBreakpoints_DisableSuspendsNoticingWithoutRemoving(t *testing.T) {
	t.Parallel()
	rt := behavior.NewRuntime(nil, script.NewRuntime())
	n := leaf(t, 1)
	b := NewBreakpoints()
	require.True(t, b.Insert(n, 1))

	b.Disable()
	require.ElementsMatch(t, []uint16{1}, b.Dump())

	status, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
}

func TestBreakpoints_UnlockReleasesParkedNode(t *testing.T) {
	t.Parallel()
	rt := behavior.NewRuntime(nil, script.NewRuntime())
	n := leaf(t, 1)
	b := NewBreakpoints()
	require.True(t, b.Insert(n, 1))

	status, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Running, status)

	b.Unlock(1)
	status, err = n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
}
