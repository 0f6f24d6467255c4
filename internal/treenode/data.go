package treenode

import (
	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/blackboard"
)

// Remapping is one ordered port-name -> target binding, per §3.4. Target is
// the raw attribute text: a literal, a `{key}` pointer, the `{=}` shortcut,
// a `{@key}` global pointer, or an expression.
type Remapping struct {
	Port   string
	Target string
}

// Data is the per-node runtime state owned by a Node (§3.6): uid, observed
// status, remappings, blackboard, human description, and the state-change
// hook list.
type Data struct {
	UID  uint16
	Name string // human name attribute, or tag/id default
	ID   string // behavior id, as registered in the factory
	Path string // Groot-style "name::uid" for subtrees, slash-path otherwise

	// Remappings is the ordered attribute list parsed from XML, preserved
	// in document order per §3.4.
	Remappings []Remapping

	Board *blackboard.Board

	PreConditions  map[string]string // _failureIf, _successIf, _skipIf, _while
	PostConditions map[string]string // _onSuccess, _onFailure, _onHalted, _post

	// status is the authoritative observed status surfaced to hooks and
	// observers. It is NOT overwritten by a Skipped precondition override
	// (§4.1 closing paragraph) — only Tick's return value reflects the
	// override in that case.
	status behavior.Status
	// started tracks whether Start has been called since the last Idle
	// transition, so a resumed Running node calls Tick, never Start, again.
	started bool

	onStateChange []func(old, new behavior.Status)

	// suspended, when non-nil, is consulted at the top of every Tick; while
	// it returns true the node short-circuits to Running without invoking
	// its Behavior at all. Set by the observer's breakpoint hooks (§6.4
	// request types I/R/D/A/X/N/U), left nil otherwise.
	suspended func() bool
}

// SetBreakpoint installs (or, with nil, removes) a suspension predicate
// consulted before every Tick, the mechanism behind the visualizer wire
// protocol's "hook_insert" breakpoints (§6.4).
func (d *Data) SetBreakpoint(suspended func() bool) {
	d.suspended = suspended
}

// NewData constructs a Data in its initial Idle state.
func NewData(uid uint16, name, id string, board *blackboard.Board) *Data {
	return &Data{
		UID:            uid,
		Name:           name,
		ID:             id,
		Board:          board,
		PreConditions:  make(map[string]string),
		PostConditions: make(map[string]string),
		status:         behavior.Idle,
	}
}

// Status returns the node's authoritative observed status.
func (d *Data) Status() behavior.Status { return d.status }

// OnStateChange registers a hook invoked whenever setStatus changes status.
func (d *Data) OnStateChange(fn func(old, new behavior.Status)) {
	d.onStateChange = append(d.onStateChange, fn)
}

func (d *Data) setStatus(s behavior.Status) {
	if d.status == s {
		return
	}
	old := d.status
	d.status = s
	for _, fn := range d.onStateChange {
		fn(old, s)
	}
}

// RemappingFor returns the configured target for a port name, if any.
func (d *Data) RemappingFor(portName string) (string, bool) {
	for _, r := range d.Remappings {
		if r.Port == portName {
			return r.Target, true
		}
	}
	return "", false
}
