package decorator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/blackboard"
	"github.com/arborist-labs/bteng/internal/builtinbeh/action"
	"github.com/arborist-labs/bteng/internal/script"
	"github.com/arborist-labs/bteng/internal/treenode"
)

// nowVar is a manually-advanced clock for deterministic Delay/Timeout tests.
type nowVar struct {
	t time.Time
}

func (n *nowVar) now() time.Time { return n.t }
func (n *nowVar) advance(msec int) {
	n.t = n.t.Add(time.Duration(msec) * time.Millisecond)
}

func newRuntime() *behavior.Runtime {
	return behavior.NewRuntime(nil, script.NewRuntime())
}

func decoratorNode(t *testing.T, b treenode.Behavior, child *treenode.Node) *treenode.Node {
	t.Helper()
	n, err := treenode.New(b, treenode.NewData(0, "dec", "Dec", blackboard.New()), []*treenode.Node{child})
	require.NoError(t, err)
	return n
}

func mock(t *testing.T, uid uint16, state behavior.Status) *treenode.Node {
	t.Helper()
	n, err := treenode.New(action.NewMockBehavior(action.MockBehaviorConfig{ReturnState: state}), treenode.NewData(uid, "leaf", "Mock", blackboard.New()), nil)
	require.NoError(t, err)
	return n
}

func TestInverter_SwapsSuccessAndFailure(t *testing.T) {
	t.Parallel()
	rt := newRuntime()

	n := decoratorNode(t, NewInverter(), mock(t, 1, behavior.Success))
	status, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Failure, status)
}

func TestForceSuccess_OverridesFailure(t *testing.T) {
	t.Parallel()
	rt := newRuntime()

	n := decoratorNode(t, NewForceSuccess(), mock(t, 1, behavior.Failure))
	status, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
}

func TestKeepRunningUntilFailure_CollapsesSuccessToRunning(t *testing.T) {
	t.Parallel()
	rt := newRuntime()

	n := decoratorNode(t, NewKeepRunningUntilFailure(), mock(t, 1, behavior.Success))
	status, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Running, status)
}

func TestRepeat_CountsSuccessesUntilNumCycles(t *testing.T) {
	t.Parallel()
	rt := newRuntime()

	child := mock(t, 1, behavior.Success)
	n := decoratorNode(t, NewRepeat(), child)
	n.Data.Remappings = []treenode.Remapping{{Port: "num_cycles", Target: "2"}}

	status, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Running, status)

	status, err = n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
}

func TestRetryUntilSuccessful_RetriesWithinOneTick(t *testing.T) {
	t.Parallel()
	rt := newRuntime()

	child := mock(t, 1, behavior.Failure)
	n := decoratorNode(t, NewRetryUntilSuccessful(), child)
	n.Data.Remappings = []treenode.Remapping{{Port: "num_attempts", Target: "3"}}

	status, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Failure, status)
}

func TestRunOnce_RemembersFirstResult(t *testing.T) {
	t.Parallel()
	rt := newRuntime()

	child := mock(t, 1, behavior.Success)
	n := decoratorNode(t, NewRunOnce(), child)
	n.Data.Remappings = []treenode.Remapping{{Port: "then_skip", Target: "false"}}

	status, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)

	// Child forced to Failure now, but RunOnce should not re-tick it.
	child.Behavior = action.NewMockBehavior(action.MockBehaviorConfig{ReturnState: behavior.Failure})
	status, err = n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
}

func TestEntryUpdated_FirstTickAlwaysUpdated(t *testing.T) {
	t.Parallel()
	rt := newRuntime()

	child := mock(t, 1, behavior.Success)
	e := NewEntryUpdatedSkipped()
	n := decoratorNode(t, e, child)
	n.Data.Board.Set("watched", 1)
	n.Data.Remappings = []treenode.Remapping{{Port: "entry", Target: "watched"}}

	status, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
}

func TestEntryUpdated_SkipsWhenUnchanged(t *testing.T) {
	t.Parallel()
	rt := newRuntime()

	child := mock(t, 1, behavior.Success)
	e := NewEntryUpdatedSkipped()
	n := decoratorNode(t, e, child)
	n.Data.Board.Set("watched", 1)
	n.Data.Remappings = []treenode.Remapping{{Port: "entry", Target: "watched"}}

	status, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)

	status, err = n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Skipped, status)

	n.Data.Board.Set("watched", 2)
	status, err = n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
}

func TestPrecondition_ElseStatusLiteral(t *testing.T) {
	t.Parallel()
	rt := newRuntime()

	child := mock(t, 1, behavior.Success)
	n := decoratorNode(t, NewPrecondition(), child)
	n.Data.Board.Set("go", false)
	n.Data.Remappings = []treenode.Remapping{
		{Port: "if", Target: "go"},
		{Port: "else", Target: "FAILURE"},
	}

	status, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Failure, status)
	require.Equal(t, behavior.Idle, child.Data.Status())
}

func TestPrecondition_TicksChildWhenTruthy(t *testing.T) {
	t.Parallel()
	rt := newRuntime()

	child := mock(t, 1, behavior.Success)
	n := decoratorNode(t, NewPrecondition(), child)
	n.Data.Board.Set("go", true)
	n.Data.Remappings = []treenode.Remapping{{Port: "if", Target: "go"}}

	status, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
}

func TestTimeout_FailsAfterDeadline(t *testing.T) {
	t.Parallel()

	base := nowVar{}
	rt := newRuntime()
	rt.Now = base.now

	child, err := treenode.New(action.NewMockBehavior(action.MockBehaviorConfig{ReturnState: behavior.Success, AsyncDelayMsec: 10000}), treenode.NewData(1, "leaf", "Mock", blackboard.New()), nil)
	require.NoError(t, err)
	n := decoratorNode(t, NewTimeout(), child)
	n.Data.Remappings = []treenode.Remapping{{Port: "msec", Target: "100"}}

	status, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Running, status)

	base.advance(200)
	status, err = n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Failure, status)
}

func TestDelay_HoldsRunningUntilDeadline(t *testing.T) {
	t.Parallel()

	base := nowVar{}
	rt := newRuntime()
	rt.Now = base.now

	child := mock(t, 1, behavior.Success)
	n := decoratorNode(t, NewDelay(), child)
	n.Data.Remappings = []treenode.Remapping{{Port: "delay_msec", Target: "100"}}

	status, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Running, status)
	require.Equal(t, behavior.Idle, child.Data.Status())

	base.advance(200)
	status, err = n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
}

func TestLoop_PopsQueueUntilEmpty(t *testing.T) {
	t.Parallel()
	rt := newRuntime()

	q := blackboard.NewQueue("a", "b")
	child := mock(t, 1, behavior.Success)
	l := NewLoop[string]()
	n := decoratorNode(t, l, child)
	n.Data.Board.Set("q", q)
	n.Data.Remappings = []treenode.Remapping{
		{Port: "queue", Target: "{q}"},
		{Port: "value", Target: "{popped}"},
	}

	status, err := n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Running, status)
	v, err := n.Data.Board.Get("popped")
	require.NoError(t, err)
	require.Equal(t, "a", v)

	status, err = n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Running, status)
	v, err = n.Data.Board.Get("popped")
	require.NoError(t, err)
	require.Equal(t, "b", v)

	status, err = n.Tick(rt)
	require.NoError(t, err)
	require.Equal(t, behavior.Success, status)
}
