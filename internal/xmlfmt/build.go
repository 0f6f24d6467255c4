package xmlfmt

import (
	"fmt"

	"github.com/arborist-labs/bteng/internal/blackboard"
	"github.com/arborist-labs/bteng/internal/bterr"
	"github.com/arborist-labs/bteng/internal/builtinbeh/subtree"
	"github.com/arborist-labs/bteng/internal/port"
	"github.com/arborist-labs/bteng/internal/registry"
	"github.com/arborist-labs/bteng/internal/treenode"
)

// genericTags are the reserved element names the parser treats as carrying
// an explicit ID attribute selecting the real behavior id (§4.7).
var genericTags = map[string]bool{
	"Action": true, "Condition": true, "Control": true, "Decorator": true,
}

// preConditionAttrs / postConditionAttrs list the reserved hook attribute
// names recognized verbatim on any element (§3.7, §4.7).
var preConditionAttrs = map[string]bool{"_failureIf": true, "_successIf": true, "_skipIf": true, "_while": true}
var postConditionAttrs = map[string]bool{"_onSuccess": true, "_onFailure": true, "_onHalted": true, "_post": true}

// Build performs §4.7's instantiation pass: fetch treeID's registered
// definition, parse its body, and recursively construct the runtime tree.
// If externalBoard is nil a fresh root blackboard is created.
func Build(f *registry.Factory, treeID string, externalBoard *blackboard.Board) (*treenode.Node, error) {
	uid := new(uint16)
	board := externalBoard
	if board == nil {
		board = blackboard.New()
	}
	return buildTreeRef(f, treeID, board, "", uid, map[string]bool{})
}

// buildTreeRef instantiates the body of a registered <BehaviorTree id>,
// used both for the top-level Build call and for inline SubTree/
// BehaviorTree references encountered while walking another tree.
// ancestors is the set of tree ids currently being expanded along this
// recursion path; a tree id reappearing there is a cycle (§4.5/§4.7
// composition error) rather than a crash from unbounded recursion.
func buildTreeRef(f *registry.Factory, treeID string, board *blackboard.Board, path string, uid *uint16, ancestors map[string]bool) (*treenode.Node, error) {
	if ancestors[treeID] {
		return nil, bterr.Compositionf(path, "tree %q recursively references itself", treeID)
	}
	def, ok := f.TreeDef(treeID)
	if !ok {
		return nil, bterr.NotRegisteredf("tree id %q is not registered", treeID)
	}
	if def.Start < 0 || def.End > len(def.Source) || def.Start >= def.End {
		return nil, bterr.Parsef("tree %q has an invalid byte range", treeID)
	}
	treeEl, err := parseDocument(def.Source[def.Start:def.End])
	if err != nil {
		return nil, err
	}
	if len(treeEl.Kids) != 1 {
		return nil, bterr.Compositionf(path, "<BehaviorTree ID=%q> must have exactly one root child, got %d", treeID, len(treeEl.Kids))
	}
	nested := make(map[string]bool, len(ancestors)+1)
	for k := range ancestors {
		nested[k] = true
	}
	nested[treeID] = true
	return buildElement(f, board, treeEl.Kids[0], path, uid, nested)
}

// buildElement constructs one runtime Node (and, recursively, its
// subtree) from an Element, per §4.7's element-recognition and
// attribute-handling rules. ancestors is threaded through unchanged for
// plain elements and extended by buildTreeRef whenever a SubTree
// reference is expanded, so a cycle anywhere in the descent is caught.
func buildElement(f *registry.Factory, board *blackboard.Board, el *Element, parentPath string, uid *uint16, ancestors map[string]bool) (*treenode.Node, error) {
	id := el.Tag
	isSubTreeRef := el.Tag == "SubTree" || el.Tag == "BehaviorTree"
	if genericTags[el.Tag] || isSubTreeRef {
		explicitID, ok := el.Attr("ID")
		if !ok {
			return nil, bterr.Compositionf(parentPath, "<%s> requires an ID attribute", el.Tag)
		}
		id = explicitID
	} else if _, ok := f.TreeDef(id); ok {
		// A tag matching a registered tree id directly (without an
		// explicit <SubTree> wrapper) is also a subtree call site, the
		// common BT.CPP shorthand (§4.7 "Tag equal to a registered
		// behavior id").
		isSubTreeRef = true
	}

	name, hasName := el.Attr("name")
	humanName := name
	if !hasName {
		humanName = id
	}
	nodeUID := *uid
	*uid++
	path := fmt.Sprintf("%s/%s::%d", parentPath, humanName, nodeUID)

	// A SubTree reference (explicit <SubTree ID="X"/>, an inline
	// <BehaviorTree ID="X"/> call site, or a bare tag matching a
	// registered tree id) spawns a scoped child board and recurses into
	// the referenced definition's body (§4.5, §4.7).
	if isSubTreeRef {
		return buildSubTree(f, board, el, id, humanName, path, nodeUID, uid, ancestors)
	}

	data := treenode.NewData(nodeUID, humanName, id, board)
	data.Path = path
	if err := applyAttrs(data, el); err != nil {
		return nil, err
	}

	ctx := &registry.CreationContext{Path: path, Attrs: attrMap(el)}
	beh, err := f.FetchBehavior(id, path, ctx)
	if err != nil {
		return nil, err
	}

	if err := validatePorts(beh.ProvidedPorts(), data, path); err != nil {
		return nil, err
	}

	children := make([]*treenode.Node, 0, len(el.Kids))
	for _, kid := range el.Kids {
		child, err := buildElement(f, board, kid, path, uid, ancestors)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return treenode.New(beh, data, children)
}

func buildSubTree(f *registry.Factory, parentBoard *blackboard.Board, el *Element, refID, humanName, path string, nodeUID uint16, uid *uint16, ancestors map[string]bool) (*treenode.Node, error) {
	remap := make(map[string]string)
	autoremap := false
	for _, a := range el.Attrs {
		switch {
		case a.Name.Local == "ID" || a.Name.Local == "name":
			continue
		case a.Name.Local == "_autoremap":
			autoremap = a.Value == "true"
		case preConditionAttrs[a.Name.Local] || postConditionAttrs[a.Name.Local]:
			continue
		default:
			remap[a.Name.Local] = a.Value
		}
	}
	childBoard := parentBoard.NewChild(remap, autoremap)

	// Share the caller's uid counter rather than starting a fresh one: uid
	// assignment must stay flat and monotonic across an entire built tree,
	// including every nested subtree body, per §9's 16-bit uid space and
	// §6.4's flat per-uid wire-protocol state buffer.
	bodyRoot, err := buildTreeRef(f, refID, childBoard, path, uid, ancestors)
	if err != nil {
		return nil, err
	}

	data := treenode.NewData(nodeUID, humanName, refID, childBoard)
	data.Path = path
	if err := applyAttrs(data, el); err != nil {
		return nil, err
	}
	return treenode.New(subtree.New(), data, []*treenode.Node{bodyRoot})
}

// applyAttrs splits an element's attribute list into remappings and
// pre/post-condition hooks, per §3.7/§4.7. Non-reserved, non-ID/name
// attributes become ordered Remapping entries regardless of whether the
// target behavior actually declares that port — port-name validation
// happens later, in validatePorts, against the behavior's own
// ProvidedPorts (subtree roots accept arbitrary remappings and skip it).
func applyAttrs(d *treenode.Data, el *Element) error {
	for _, a := range el.Attrs {
		name := a.Name.Local
		switch {
		case name == "ID" || name == "name":
			continue
		case name == "_autoremap":
			continue
		case preConditionAttrs[name]:
			d.PreConditions[name] = a.Value
		case postConditionAttrs[name]:
			d.PostConditions[name] = a.Value
		default:
			d.Remappings = append(d.Remappings, treenode.Remapping{Port: name, Target: a.Value})
		}
	}
	return nil
}

// validatePorts enforces §4.7's "any other attribute must match a
// declared port name" rule for every remapping parsed onto d.
func validatePorts(ports port.List, d *treenode.Data, path string) error {
	for _, r := range d.Remappings {
		if _, ok := ports.Lookup(r.Port); !ok {
			return bterr.Compositionf(path, "attribute %q is not a declared port", r.Port)
		}
	}
	return nil
}

func attrMap(el *Element) map[string]string {
	m := make(map[string]string, len(el.Attrs))
	for _, a := range el.Attrs {
		m[a.Name.Local] = a.Value
	}
	return m
}
