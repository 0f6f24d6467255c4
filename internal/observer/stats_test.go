package observer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/blackboard"
	"github.com/arborist-labs/bteng/internal/builtinbeh/action"
	"github.com/arborist-labs/bteng/internal/script"
	"github.com/arborist-labs/bteng/internal/treenode"
)

func leaf(t *testing.T, uid uint16) *treenode.Node {
	t.Helper()
	n, err := treenode.New(action.NewMockBehavior(action.MockBehaviorConfig{ReturnState: behavior.Success}), treenode.NewData(uid, "leaf", "Mock", blackboard.New()), nil)
	require.NoError(t, err)
	return n
}

func newCounterClock() func() int64 {
	var n int64
	return func() int64 {
		n++
		return n
	}
}

func TestStats_WireByteReflectsLatestStatus(t *testing.T) {
	t.Parallel()
	rt := behavior.NewRuntime(nil, script.NewRuntime())

	n := leaf(t, 5)
	s := NewStats(newCounterClock())
	s.Attach(n)

	// Never run yet.
	require.Equal(t, byte(behavior.Idle), s.WireByte(5))

	_, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, byte(behavior.Success), s.WireByte(5))
}

func TestStats_IdleAfterCompletionEncodesPrevPlusTen(t *testing.T) {
	t.Parallel()
	rt := behavior.NewRuntime(nil, script.NewRuntime())

	n := leaf(t, 7)
	s := NewStats(newCounterClock())
	s.Attach(n)

	_, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, byte(behavior.Success), s.WireByte(7))

	_, err = n.Halt(rt)
	require.NoError(t, err)
	require.Equal(t, byte(behavior.Success)+10, s.WireByte(7))
}

func TestStats_SnapshotReturnsACopy(t *testing.T) {
	t.Parallel()
	rt := behavior.NewRuntime(nil, script.NewRuntime())

	n := leaf(t, 1)
	s := NewStats(newCounterClock())
	s.Attach(n)
	_, err := n.Tick(rt)
	require.NoError(t, err)

	snap := s.Snapshot()
	require.Equal(t, behavior.Success, snap[1])

	snap[1] = behavior.Failure
	require.Equal(t, byte(behavior.Success), s.WireByte(1))
}

func TestStats_RecordingRingBufferWrapsAtCapacity(t *testing.T) {
	t.Parallel()
	rt := behavior.NewRuntime(nil, script.NewRuntime())

	n := leaf(t, 1)
	s := NewStats(newCounterClock())
	s.Attach(n)
	s.StartRecording()

	// Each Tick/Halt pair produces 2 transitions (Idle->Success, Success->Idle);
	// 60 cycles yields 120 transitions, overflowing the 100-capacity ring.
	for i := 0; i < 60; i++ {
		_, err := n.Tick(rt)
		require.NoError(t, err)
		_, err = n.Halt(rt)
		require.NoError(t, err)
	}

	transitions := s.Transitions()
	require.Len(t, transitions, ringCapacity)
	// Oldest entries were dropped: timestamps should be strictly increasing
	// and the first one is not the very first transition recorded (ts=1).
	require.Greater(t, transitions[0].TimestampUs, int64(1))
	for i := 1; i < len(transitions); i++ {
		require.Greater(t, transitions[i].TimestampUs, transitions[i-1].TimestampUs)
	}
}

func TestStats_StopRecordingKeepsBufferButStopsGrowth(t *testing.T) {
	t.Parallel()
	rt := behavior.NewRuntime(nil, script.NewRuntime())

	n := leaf(t, 1)
	s := NewStats(newCounterClock())
	s.Attach(n)
	s.StartRecording()

	_, err := n.Tick(rt)
	require.NoError(t, err)
	s.StopRecording()
	before := len(s.Transitions())

	_, err = n.Halt(rt)
	require.NoError(t, err)
	require.Equal(t, before, len(s.Transitions()))
}
