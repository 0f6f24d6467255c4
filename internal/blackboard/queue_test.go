package blackboard

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	t.Parallel()

	q := NewQueue("Hello", "World", "!")
	require.Equal(t, 3, q.Len())
	require.False(t, q.Empty())

	v, ok := q.PopFront()
	require.True(t, ok)
	require.Equal(t, "Hello", v)

	q.PushBack("again")
	v, ok = q.PopFront()
	require.True(t, ok)
	require.Equal(t, "World", v)

	v, ok = q.PopFront()
	require.True(t, ok)
	require.Equal(t, "!", v)

	v, ok = q.PopFront()
	require.True(t, ok)
	require.Equal(t, "again", v)

	require.True(t, q.Empty())
	_, ok = q.PopFront()
	require.False(t, ok)
}
