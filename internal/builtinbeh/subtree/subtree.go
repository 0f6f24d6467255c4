// Package subtree implements the dedicated SubTree node kind of spec.md
// §3.2/§4.5: a pass-through to its single child, whose own blackboard is a
// scoped child of the including tree's board. The scoping itself lives in
// the blackboard's parent-chain/remap mechanism (§3.5) and the XML
// builder that constructs it (internal/xmlfmt) — this behavior is
// intentionally thin, existing only to give the subtree boundary its own
// Kind tag and uid, matching the source's "two SubTree variants" note
// resolved in favor of a dedicated kind (spec.md §9 Open Questions).
package subtree

import (
	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/bterr"
	"github.com/arborist-labs/bteng/internal/port"
	"github.com/arborist-labs/bteng/internal/treenode"
)

// SubTree ticks its single child (the root of the referenced tree body)
// and returns its status unchanged.
type SubTree struct{}

func New() *SubTree { return &SubTree{} }

func (s *SubTree) Kind() behavior.Kind      { return behavior.SubTreeKind }
func (s *SubTree) ProvidedPorts() port.List { return nil }

func (s *SubTree) Start(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return s.Tick(d, children, rt)
}

func (s *SubTree) Tick(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	if len(children) != 1 {
		return behavior.Idle, bterr.Compositionf(d.Path, "SubTree requires exactly one child, got %d", len(children))
	}
	return children[0].Tick(rt)
}

func (s *SubTree) Halt(d *treenode.Data, children []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	return behavior.Idle, treenode.HaltAll(children, rt)
}
