// Package treenode implements the tree element of spec.md §3.6: a recursive
// node wrapping a Behavior implementation, its children, and its pre/post
// condition hooks, plus the reserved-attribute tick wrapper protocol of §4.1.
package treenode

import (
	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/port"
)

// Behavior is the polymorphic contract every node implementation satisfies
// (§4.1). Kind is static metadata, not a type hierarchy — control, decorator
// and leaf behaviors all implement the same four methods; only their
// Kind() tag and child-count expectations differ.
type Behavior interface {
	// Start is called the first time the engine ticks the node after it
	// last became Idle. Most leaf/decorator behaviors implement this as a
	// direct call to Tick; behaviors with setup (timers, external state)
	// override it.
	Start(d *Data, children []*Node, rt *behavior.Runtime) (behavior.Status, error)
	// Tick performs one scheduling step.
	Tick(d *Data, children []*Node, rt *behavior.Runtime) (behavior.Status, error)
	// Halt imperatively cancels the node. Composites call HaltAll on their
	// children; leaves typically no-op beyond what Node.Halt already does.
	Halt(d *Data, children []*Node, rt *behavior.Runtime) (behavior.Status, error)
	// ProvidedPorts is the static port description used by the XML parser
	// and model export.
	ProvidedPorts() port.List
	// Kind is the static shape category (§3.2).
	Kind() behavior.Kind
}
