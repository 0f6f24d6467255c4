package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/script"
	"github.com/arborist-labs/bteng/internal/treenode"
)

func TestRegistry_RegisterConflict(t *testing.T) {
	t.Parallel()
	r := New(script.NewRuntime())

	factory := func(*CreationContext) (treenode.Behavior, error) { return nil, nil }
	require.NoError(t, r.Register("Foo", "", nil, factory))
	err := r.Register("Foo", "", nil, factory)
	require.Error(t, err)
}

func TestRegistry_LookupMiss(t *testing.T) {
	t.Parallel()
	r := New(script.NewRuntime())
	_, _, ok := r.Lookup("Nope")
	require.False(t, ok)
}

func TestRegistry_SubstitutionRuleFirstMatchWins(t *testing.T) {
	t.Parallel()
	r := New(script.NewRuntime())
	r.AddSubstitutionRule("/root/*", "First")
	r.AddSubstitutionRule("/root/leaf::1", "Second")

	rule, _, ok := r.ResolveSubstitution("/root/leaf::1")
	require.True(t, ok)
	require.Equal(t, "First", rule.Target)
}

func TestRegistry_SubstitutionRuleResolvesConfigVsRename(t *testing.T) {
	t.Parallel()
	r := New(script.NewRuntime())
	r.RegisterMockConfig("StubOK", MockBehaviorConfig{ReturnState: behavior.Success})
	r.AddSubstitutionRule("/mock/*", "StubOK")
	r.AddSubstitutionRule("/rename/*", "OtherBehaviorID")

	_, isConfig, ok := r.ResolveSubstitution("/mock/leaf::1")
	require.True(t, ok)
	require.True(t, isConfig)

	_, isConfig, ok = r.ResolveSubstitution("/rename/leaf::2")
	require.True(t, ok)
	require.False(t, isConfig)
}

func TestRegistry_LibraryRefcounting(t *testing.T) {
	t.Parallel()
	r := New(script.NewRuntime())
	r.AcquireLibrary("plugin.so")
	r.AcquireLibrary("plugin.so")
	r.ReleaseLibrary("plugin.so")
	r.ReleaseLibrary("plugin.so")

	// A second release below zero is a no-op, not a panic.
	r.ReleaseLibrary("plugin.so")
}

func TestRegistry_MainTreeIDAndTreeDef(t *testing.T) {
	t.Parallel()
	r := New(script.NewRuntime())
	r.SetMainTreeID("Main")
	require.Equal(t, "Main", r.MainTreeID())

	r.SetTreeDef("Main", TreeDef{Source: "<root/>", Start: 0, End: 7})
	def, ok := r.TreeDef("Main")
	require.True(t, ok)
	require.Equal(t, 7, def.End)
}
