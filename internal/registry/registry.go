// Package registry implements the behavior registry and tree factory of
// spec.md §4.6: the id -> behavior table, registered tree definitions,
// substitution rules, and the shared script runtime a built tree clones
// from.
//
// Grounded on the teacher repo's internal/scripting registry pattern (a
// name -> constructor map guarded by a mutex) generalized to the engine's
// id -> (description, factory) behavior table.
package registry

import (
	"path"
	"sync"

	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/bterr"
	"github.com/arborist-labs/bteng/internal/port"
	"github.com/arborist-labs/bteng/internal/script"
	"github.com/arborist-labs/bteng/internal/treenode"
)

// CreationContext carries everything a BehaviorFactory needs at
// instantiation time beyond the runtime Behavior contract itself: the raw
// XML attributes of the element (for constructor-level parameters that are
// not blackboard ports, e.g. Switch<N>'s case count or ChangeStateAfter's
// state/count triple) and the node's fully-qualified path (for error
// messages and substitution matching).
//
// This is the engine's analogue of the original source's per-node "extra
// creation args" mechanism (§C, grounded on original_source/t08, t13).
type CreationContext struct {
	Path  string
	Attrs map[string]string
}

// Attr looks up a raw XML attribute by name.
func (c *CreationContext) Attr(name string) (string, bool) {
	v, ok := c.Attrs[name]
	return v, ok
}

// BehaviorFactory constructs a fresh Behavior instance for one node.
// Factories must be side-effect free beyond allocating the Behavior: they
// are called once per instantiated node, never shared.
type BehaviorFactory func(ctx *CreationContext) (treenode.Behavior, error)

type behaviorEntry struct {
	description string
	ports       port.List
	new         BehaviorFactory
}

// TreeDef is a registered <BehaviorTree> definition: the full source text
// it came from plus the byte offsets of its own element within that text
// (§4.7 registration pass).
type TreeDef struct {
	Source     string
	Start, End int
}

// MockBehaviorConfig is the registry's own record of a named mock
// configuration, mirroring action.MockBehaviorConfig; Factory.FetchBehavior
// turns it into an action.MockBehavior through mockBehaviorFactory
// (factory.go).
type MockBehaviorConfig struct {
	ReturnState    behavior.Status
	SuccessScript  string
	FailureScript  string
	PostScript     string
	AsyncDelayMsec int
	CompleteFunc   string
}

// SubstitutionRule is one entry of §6.3's SubstitutionRules map, in
// insertion order (first match wins, per §4.6).
type SubstitutionRule struct {
	Pattern string // glob with '*', matched against a node's fully-qualified path
	Target  string // a MockBehaviorConfig name, or a behavior id (rename)
}

// Registry is the engine's id -> behavior table plus the ancillary state
// spec.md §4.6 groups alongside it: tree definitions, tree-node models,
// substitution rules, the main tree id, the shared script runtime, and the
// set of plugin libraries kept alive by any tree built from this registry.
type Registry struct {
	mu sync.RWMutex

	behaviors       map[string]behaviorEntry
	treeDefs        map[string]TreeDef
	treeNodesModels map[string]port.List
	mockConfigs     map[string]MockBehaviorConfig
	subRules        []SubstitutionRule
	mainTreeID      string

	Script *script.Runtime

	// libraries is the kept-alive reference set of loaded plugin libraries
	// (§4.6, §5 "Shared resources"). dlopen-style dynamic loading is out of
	// scope for this engine (no pack library exercises it); the set is
	// still tracked so registry/driver lifetime bookkeeping matches the
	// spec even though nothing populates it from a real .so/.dll today.
	libraries map[string]int
}

// New builds an empty Registry backed by the given script runtime.
func New(sc *script.Runtime) *Registry {
	return &Registry{
		behaviors:       make(map[string]behaviorEntry),
		treeDefs:        make(map[string]TreeDef),
		treeNodesModels: make(map[string]port.List),
		mockConfigs:     make(map[string]MockBehaviorConfig),
		libraries:       make(map[string]int),
		Script:          sc,
	}
}

// Register adds a behavior id to the table. Re-registering an existing id
// is a RegistrationConflict (§7).
func (r *Registry) Register(id, description string, ports port.List, factory BehaviorFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.behaviors[id]; exists {
		return bterr.RegistrationConflictf("behavior id %q already registered", id)
	}
	r.behaviors[id] = behaviorEntry{description: description, ports: ports, new: factory}
	return nil
}

// Lookup returns the registered factory/ports for id.
func (r *Registry) Lookup(id string) (BehaviorFactory, port.List, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.behaviors[id]
	if !ok {
		return nil, nil, false
	}
	return e.new, e.ports, true
}

// RegisterMockConfig adds a named MockBehaviorConfig, loaded from the JSON
// substitution config's MockBehaviorConfigs table (§6.3).
func (r *Registry) RegisterMockConfig(name string, cfg MockBehaviorConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mockConfigs[name] = cfg
}

// MockConfig returns a registered MockBehaviorConfig by name.
func (r *Registry) MockConfig(name string) (MockBehaviorConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.mockConfigs[name]
	return cfg, ok
}

// AddSubstitutionRule appends a rule; rules are scanned in insertion order
// and the first pattern match wins (§4.6).
func (r *Registry) AddSubstitutionRule(pattern, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subRules = append(r.subRules, SubstitutionRule{Pattern: pattern, Target: target})
}

// ResolveSubstitution scans substitution rules in insertion order against
// nodePath, per §4.6's "patterns match on the fully-qualified path of the
// node being created, not on id." ok is false if nothing matched.
func (r *Registry) ResolveSubstitution(nodePath string) (rule SubstitutionRule, isConfigRule bool, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, rule := range r.subRules {
		matched, _ := path.Match(rule.Pattern, nodePath)
		if !matched {
			continue
		}
		_, isConfig := r.mockConfigs[rule.Target]
		return rule, isConfig, true
	}
	return SubstitutionRule{}, false, false
}

// SetTreeDef registers (or overwrites) the source definition for a
// BehaviorTree id, per §4.7's registration pass.
func (r *Registry) SetTreeDef(id string, def TreeDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.treeDefs[id] = def
}

// TreeDef looks up a registered tree definition.
func (r *Registry) TreeDef(id string) (TreeDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.treeDefs[id]
	return d, ok
}

// SetTreeNodesModel records supplementary port/remapping metadata parsed
// from a <TreeNodesModel> element for a given behavior/tree id (§4.7).
func (r *Registry) SetTreeNodesModel(id string, ports port.List) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.treeNodesModels[id] = ports
}

// TreeNodesModel returns the supplementary port model for id, if any.
func (r *Registry) TreeNodesModel(id string) (port.List, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.treeNodesModels[id]
	return p, ok
}

// SetMainTreeID records the root's main_tree_to_execute attribute.
func (r *Registry) SetMainTreeID(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mainTreeID = id
}

// MainTreeID returns the registered main tree id, if any was set.
func (r *Registry) MainTreeID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mainTreeID
}

// AcquireLibrary increments the kept-alive refcount for a plugin library
// name (§5 "Shared resources").
func (r *Registry) AcquireLibrary(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.libraries[name]++
}

// ReleaseLibrary decrements the refcount, dropping the entry at zero.
func (r *Registry) ReleaseLibrary(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.libraries[name] <= 1 {
		delete(r.libraries, name)
		return
	}
	r.libraries[name]--
}
