package observer

import (
	"sync"

	"github.com/arborist-labs/bteng/internal/treenode"
)

// hook is one installed breakpoint: disabled (X) keeps the record without
// suspending; locked tracks whether the node is currently parked waiting
// for an "U" unlock.
type hook struct {
	node     *treenode.Node
	disabled bool
	locked   bool
}

// Breakpoints implements the Groot2-style hook protocol recovered from the
// original source's observer (request types I/R/D/A/X/N/U, §6.4): "I"
// attaches a breakpoint to a uid that suspends the tree (the node returns
// Running instead of ticking until "U" unlocks it), "R" removes one hook,
// "D" dumps all hook uids, "A" removes all, "X" disables without removing.
type Breakpoints struct {
	mu    sync.Mutex
	hooks map[uint16]*hook
}

// NewBreakpoints constructs an empty hook table.
func NewBreakpoints() *Breakpoints {
	return &Breakpoints{hooks: make(map[uint16]*hook)}
}

// Insert attaches a breakpoint to the node at uid ("I"). Returns false if
// no such node exists in tree.
func (b *Breakpoints) Insert(tree *treenode.Node, uid uint16) bool {
	node := findUID(tree, uid)
	if node == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	h := &hook{node: node}
	b.hooks[uid] = h
	node.Data.SetBreakpoint(func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return !h.disabled
	})
	return true
}

// Remove detaches the breakpoint at uid ("R").
func (b *Breakpoints) Remove(uid uint16) {
	b.mu.Lock()
	h, ok := b.hooks[uid]
	if ok {
		delete(b.hooks, uid)
	}
	b.mu.Unlock()
	if ok {
		h.node.Data.SetBreakpoint(nil)
	}
}

// RemoveAll detaches every installed breakpoint ("A").
func (b *Breakpoints) RemoveAll() {
	b.mu.Lock()
	hooks := b.hooks
	b.hooks = make(map[uint16]*hook)
	b.mu.Unlock()
	for _, h := range hooks {
		h.node.Data.SetBreakpoint(nil)
	}
}

// Disable marks every installed breakpoint inactive without removing it
// ("X"); it may later be re-enabled by a fresh Insert call.
func (b *Breakpoints) Disable() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, h := range b.hooks {
		h.disabled = true
	}
}

// Dump returns every installed hook's uid ("D").
func (b *Breakpoints) Dump() []uint16 {
	b.mu.Lock()
	defer b.mu.Unlock()
	uids := make([]uint16, 0, len(b.hooks))
	for uid := range b.hooks {
		uids = append(uids, uid)
	}
	return uids
}

// Unlock releases a parked breakpoint, letting its node resume ticking
// normally ("U"). It removes the hook, exactly as Remove does; a later
// suspension needs a fresh Insert.
func (b *Breakpoints) Unlock(uid uint16) {
	b.Remove(uid)
}

func findUID(root *treenode.Node, uid uint16) *treenode.Node {
	var found *treenode.Node
	root.Walk(func(n *treenode.Node) {
		if found == nil && n.Data.UID == uid {
			found = n
		}
	})
	return found
}
