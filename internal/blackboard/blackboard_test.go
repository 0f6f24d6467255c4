package blackboard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBoard_BasicOperations(t *testing.T) {
	t.Parallel()

	b := New()
	require.False(t, b.Has("key1"))

	require.NoError(t, b.Set("key1", "value1"))
	v, err := b.Get("key1")
	require.NoError(t, err)
	require.Equal(t, "value1", v)
	require.True(t, b.Has("key1"))

	b.Delete("key1")
	require.False(t, b.Has("key1"))
	_, err = b.Get("key1")
	require.Error(t, err)
}

func TestBoard_TypePinning(t *testing.T) {
	t.Parallel()

	b := New()
	require.NoError(t, b.Set("n", 1))
	require.Error(t, b.Set("n", "not an int"))
}

func TestBoard_SequenceMonotonicity(t *testing.T) {
	t.Parallel()

	b := New()
	require.NoError(t, b.Set("k", 1))
	first := b.SequenceID("k")
	require.NoError(t, b.Set("k", 2))
	second := b.SequenceID("k")
	require.Greater(t, second, first)

	updated, cur := b.WasUpdated("k", first)
	require.True(t, updated)
	require.Equal(t, second, cur)

	updated, _ = b.WasUpdated("k", second)
	require.False(t, updated)
}

func TestBoard_GlobalPointerResolvesRoot(t *testing.T) {
	t.Parallel()

	root := New()
	mid := root.NewChild(nil, false)
	leaf := mid.NewChild(nil, false)

	require.NoError(t, leaf.Set("@shared", "from leaf"))
	v, err := root.Get("shared")
	require.NoError(t, err)
	require.Equal(t, "from leaf", v)

	v, err = mid.Get("@shared")
	require.NoError(t, err)
	require.Equal(t, "from leaf", v)
}

func TestBoard_ExplicitRemap(t *testing.T) {
	t.Parallel()

	parent := New()
	require.NoError(t, parent.Set("outer_key", "parent value"))

	child := parent.NewChild(map[string]string{"inner_key": "outer_key"}, false)
	v, err := child.Get("inner_key")
	require.NoError(t, err)
	require.Equal(t, "parent value", v)

	require.NoError(t, child.Set("inner_key", "child wrote"))
	v, err = parent.Get("outer_key")
	require.NoError(t, err)
	require.Equal(t, "child wrote", v)
}

func TestBoard_Autoremap(t *testing.T) {
	t.Parallel()

	parent := New()
	require.NoError(t, parent.Set("x", 10))

	child := parent.NewChild(nil, true)
	v, err := child.Get("x")
	require.NoError(t, err)
	require.Equal(t, 10, v)

	// A key with no ancestor entry stays local even with autoremap enabled.
	require.NoError(t, child.Set("only_local", 1))
	require.False(t, parent.Has("only_local"))
}

func TestGet_ParsesFromString(t *testing.T) {
	t.Parallel()

	b := New()
	require.NoError(t, b.Set("n", "42"))
	n, err := Get[int](b, "n")
	require.NoError(t, err)
	require.Equal(t, 42, n)
}

func TestBoard_BackupRestore(t *testing.T) {
	t.Parallel()

	b := New()
	require.NoError(t, b.Set("a", 1))
	snap := b.Backup()

	require.NoError(t, b.Set("a", 2))
	before := b.SequenceID("a")

	b.Restore(snap)
	v, err := b.Get("a")
	require.NoError(t, err)
	require.Equal(t, 1, v)
	require.Greater(t, b.SequenceID("a"), before)
}
