// Package observer implements the external interfaces of spec.md §6.4: a
// per-node status observer feeding a recording ring buffer, breakpoint
// hooks, and the visualizer wire protocol server built on top of both.
package observer

import (
	"sync"

	"github.com/arborist-labs/bteng/internal/behavior"
	"github.com/arborist-labs/bteng/internal/treenode"
)

// Transition is one recorded state change, the unit the "t" wire request
// replays (§6.4).
type Transition struct {
	TimestampUs int64
	UID         uint16
	Status      behavior.Status
}

// ringCapacity is the recording ring buffer's fixed capacity (§6.4:
// "Recording ring-buffer capacity is 100; overflow drops oldest").
const ringCapacity = 100

// Stats attaches to every node of a built tree via Data.OnStateChange and
// maintains the latest status per uid plus an optional recording ring
// buffer of transitions, the data both the "S" and "t" wire requests serve.
type Stats struct {
	mu         sync.Mutex
	latest     map[uint16]behavior.Status
	lastResult map[uint16]behavior.Status // last Success/Failure/Skipped seen, for idle-after-completion encoding
	recording  bool
	ring       []Transition
	ringNext   int
	nowUs      func() int64
}

// NewStats constructs an empty Stats. nowUs supplies microseconds-since-
// epoch for recorded transitions (overridable in tests); nil defaults to
// a monotonically increasing counter starting at 0, since the driver
// forbids wall-clock calls inside this module.
func NewStats(nowUs func() int64) *Stats {
	if nowUs == nil {
		var counter int64
		nowUs = func() int64 {
			counter++
			return counter
		}
	}
	return &Stats{
		latest:     make(map[uint16]behavior.Status),
		lastResult: make(map[uint16]behavior.Status),
		nowUs:      nowUs,
	}
}

// Attach registers a state-change hook on every node of root and its
// descendants, recording their status transitions (§6.4 "S"/"t" requests).
func (s *Stats) Attach(root *treenode.Node) {
	root.Walk(func(n *treenode.Node) {
		uid := n.Data.UID
		n.Data.OnStateChange(func(_, newStatus behavior.Status) {
			s.record(uid, newStatus)
		})
	})
}

func (s *Stats) record(uid uint16, status behavior.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest[uid] = status
	if status == behavior.Success || status == behavior.Failure || status == behavior.Skipped {
		s.lastResult[uid] = status
	}
	if !s.recording {
		return
	}
	t := Transition{TimestampUs: s.nowUs(), UID: uid, Status: status}
	if len(s.ring) < ringCapacity {
		s.ring = append(s.ring, t)
		return
	}
	s.ring[s.ringNext] = t
	s.ringNext = (s.ringNext + 1) % ringCapacity
}

// WireByte encodes uid's current status as the "S" reply's single status
// byte (§6.4): the plain status ordinal, except a node idle after having
// completed is encoded as prev_state+10 so the visualizer can distinguish
// "never run" from "done, then reset."
func (s *Stats) WireByte(uid uint16) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.latest[uid]
	if !ok {
		return byte(behavior.Idle)
	}
	if status == behavior.Idle {
		if prev, ok := s.lastResult[uid]; ok {
			return byte(prev) + 10
		}
	}
	return byte(status)
}

// Snapshot returns the latest observed status for every uid.
func (s *Stats) Snapshot() map[uint16]behavior.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uint16]behavior.Status, len(s.latest))
	for k, v := range s.latest {
		out[k] = v
	}
	return out
}

// StartRecording clears the ring buffer and enables recording, returning
// the start timestamp in microseconds (the "r" start reply's payload).
func (s *Stats) StartRecording() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ring = nil
	s.ringNext = 0
	s.recording = true
	return s.nowUs()
}

// StopRecording disables recording without clearing the buffer.
func (s *Stats) StopRecording() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recording = false
}

// Transitions returns the recorded ring buffer in chronological order.
func (s *Stats) Transitions() []Transition {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ring) < ringCapacity {
		out := make([]Transition, len(s.ring))
		copy(out, s.ring)
		return out
	}
	out := make([]Transition, ringCapacity)
	for i := 0; i < ringCapacity; i++ {
		out[i] = s.ring[(s.ringNext+i)%ringCapacity]
	}
	return out
}
