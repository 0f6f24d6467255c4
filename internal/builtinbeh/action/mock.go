package action

import (
	"time"

	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/port"
	"github.com/arborist-labs/bteng/internal/treenode"
)

// MockBehaviorConfig is the substitution_rules payload of §6.3's
// MockBehaviorConfigs table, and the direct configuration of a MockBehavior
// node built programmatically (§4.4).
type MockBehaviorConfig struct {
	ReturnState    behavior.Status
	SuccessScript  string
	FailureScript  string
	PostScript     string
	AsyncDelayMsec int
	// CompleteFunc, if set, is evaluated (as a script expression) once per
	// tick while the node is armed; a truthy result completes the node
	// immediately instead of waiting for AsyncDelayMsec to elapse.
	CompleteFunc string
}

// MockBehavior is the generic test/substitution leaf described in §4.4,
// used by the registry's substitution_rules (§6.3) to swap a real behavior
// for a scripted stand-in without touching the tree XML.
type MockBehavior struct {
	Config MockBehaviorConfig

	armed    bool
	deadline time.Time
}

func NewMockBehavior(cfg MockBehaviorConfig) *MockBehavior {
	return &MockBehavior{Config: cfg}
}

func (m *MockBehavior) Kind() behavior.Kind { return behavior.ActionKind }
func (m *MockBehavior) ProvidedPorts() port.List { return nil }

func (m *MockBehavior) Start(d *treenode.Data, c []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	if m.Config.AsyncDelayMsec > 0 {
		m.armed = true
		m.deadline = rt.Now().Add(time.Duration(m.Config.AsyncDelayMsec) * time.Millisecond)
		return behavior.Running, nil
	}
	return m.complete(d, rt)
}

func (m *MockBehavior) Tick(d *treenode.Data, _ []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	if !m.armed {
		return m.complete(d, rt)
	}
	if m.Config.CompleteFunc != "" {
		v, err := runExpr(d, rt, m.Config.CompleteFunc)
		if err != nil {
			return behavior.Idle, err
		}
		if !v.Truthy() {
			return behavior.Running, nil
		}
	} else if rt.Now().Before(m.deadline) {
		return behavior.Running, nil
	}
	m.armed = false
	return m.complete(d, rt)
}

func (m *MockBehavior) complete(d *treenode.Data, rt *behavior.Runtime) (behavior.Status, error) {
	state := m.Config.ReturnState
	var script string
	if state == behavior.Success {
		script = m.Config.SuccessScript
	} else if state == behavior.Failure {
		script = m.Config.FailureScript
	}
	if script != "" {
		if _, err := runExpr(d, rt, script); err != nil {
			return behavior.Idle, err
		}
	}
	if m.Config.PostScript != "" {
		if _, err := runExpr(d, rt, m.Config.PostScript); err != nil {
			return behavior.Idle, err
		}
	}
	return state, nil
}

func (m *MockBehavior) Halt(d *treenode.Data, _ []*treenode.Node, rt *behavior.Runtime) (behavior.Status, error) {
	m.armed = false
	return behavior.Idle, nil
}
