// Package blackboard implements the hierarchical, typed key-value store
// described in spec.md §3.5: a Board may chain to a parent Board through an
// explicit remapping table and/or an autoremap flag, global ("@") pointers
// always resolve on the outermost root board, and every write bumps a
// strictly monotonic per-key sequence id used to detect updates.
//
// The design mirrors the teacher repo's internal/builtin/bt.Blackboard
// (sync.RWMutex-guarded map, lazily initialized, shallow Snapshot) but adds
// the parent chain, remapping resolution, sequence ids and type pinning that
// a single flat map cannot express.
package blackboard

import (
	"fmt"
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/arborist-labs/bteng/internal/bterr"
)

// entry is one stored value: its pinned Go type, the value itself, and the
// sequence id assigned on its most recent write.
type entry struct {
	typ reflect.Type
	val any
	seq uint64
}

// Board is a hierarchical blackboard scope. The zero value is not usable;
// construct with New or NewChild.
type Board struct {
	mu     sync.RWMutex
	parent *Board
	// remap maps a local key (as used by this board's owning subtree) to the
	// key name it should resolve to on parent. Populated from explicit XML
	// remapping attributes, e.g. `other_key="{target}"`.
	remap map[string]string
	// autoremap, when true, causes keys with no explicit remap entry and no
	// local value to fall through to parent under the same name (§3.5 rule c).
	autoremap bool

	data map[string]*entry

	// seqCounter is shared by every board in a tree (via the root), so
	// sequence ids are globally monotonic, not just per key.
	seqCounter *uint64
}

// New creates a root blackboard with no parent.
func New() *Board {
	var counter uint64
	return &Board{data: make(map[string]*entry), seqCounter: &counter}
}

// NewChild creates a scoped child board, used for SubTree instantiation
// (§4.5). remap is the explicit local-key -> parent-key table parsed from the
// subtree's XML attributes; autoremap enables full passthrough (§3.5 rule c).
func (b *Board) NewChild(remap map[string]string, autoremap bool) *Board {
	root := b.Root()
	rm := make(map[string]string, len(remap))
	for k, v := range remap {
		rm[k] = v
	}
	return &Board{
		parent:     b,
		remap:      rm,
		autoremap:  autoremap,
		data:       make(map[string]*entry),
		seqCounter: root.seqCounter,
	}
}

// Root walks the parent chain and returns the outermost board.
func (b *Board) Root() *Board {
	for b.parent != nil {
		b = b.parent
	}
	return b
}

// resolve finds the board and local key that actually own a read/write for
// the given key, per §3.5's ordered resolution rule.
func (b *Board) resolve(key string) (owner *Board, localKey string) {
	if len(key) > 0 && key[0] == '@' {
		return b.Root(), key[1:]
	}
	if b.remap != nil {
		if target, ok := b.remap[key]; ok {
			if b.parent == nil {
				return b, key
			}
			return b.parent.resolve(target)
		}
	}
	if b.autoremap && b.parent != nil {
		if b.parent.hasLocked(key) {
			return b.parent.resolve(key)
		}
	}
	return b, key
}

func (b *Board) hasLocked(key string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.data[key]
	if ok {
		return true
	}
	// autoremap passthrough may chain further up; check ancestor existence
	// without mutating resolution state.
	if b.autoremap && b.parent != nil {
		return b.parent.hasLocked(key)
	}
	if target, ok := b.remap[key]; ok && b.parent != nil {
		return b.parent.hasLocked(target)
	}
	return false
}

func (b *Board) nextSeq() uint64 {
	return atomic.AddUint64(b.seqCounter, 1)
}

// Set writes value under key, pinning key's type on first write. A later
// write of a different Go type returns a WrongType error.
func (b *Board) Set(key string, value any) error {
	owner, local := b.resolve(key)
	owner.mu.Lock()
	defer owner.mu.Unlock()
	t := reflect.TypeOf(value)
	if e, ok := owner.data[local]; ok && e.typ != nil && t != nil && e.typ != t {
		return bterr.WrongTypef("", key, "cannot write %s to key %q pinned as %s", t, key, e.typ)
	}
	owner.data[local] = &entry{typ: t, val: value, seq: owner.nextSeq()}
	return nil
}

// Get reads the raw value stored under key.
func (b *Board) Get(key string) (any, error) {
	owner, local := b.resolve(key)
	owner.mu.RLock()
	defer owner.mu.RUnlock()
	e, ok := owner.data[local]
	if !ok {
		return nil, bterr.BlackboardMissf("", key, "key %q not found", key)
	}
	return e.val, nil
}

// Has reports whether key currently resolves to a stored value.
func (b *Board) Has(key string) bool {
	owner, local := b.resolve(key)
	owner.mu.RLock()
	defer owner.mu.RUnlock()
	_, ok := owner.data[local]
	return ok
}

// Delete removes key's entry, including its sequence id.
func (b *Board) Delete(key string) {
	owner, local := b.resolve(key)
	owner.mu.Lock()
	defer owner.mu.Unlock()
	delete(owner.data, local)
}

// SequenceID returns the current sequence id for key, or 0 if absent.
func (b *Board) SequenceID(key string) uint64 {
	owner, local := b.resolve(key)
	owner.mu.RLock()
	defer owner.mu.RUnlock()
	if e, ok := owner.data[local]; ok {
		return e.seq
	}
	return 0
}

// WasUpdated reports whether key's sequence id has advanced since last,
// returning the current sequence id to store for the next comparison.
func (b *Board) WasUpdated(key string, last uint64) (updated bool, current uint64) {
	current = b.SequenceID(key)
	return current != last && current != 0, current
}

// GetString reads key and renders it as a string: if the stored value is
// already a string it's returned as-is; otherwise it is formatted with %v.
func (b *Board) GetString(key string) (string, error) {
	v, err := b.Get(key)
	if err != nil {
		return "", err
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprintf("%v", v), nil
}

// Get parses the value stored at key into T. If the stored value is already
// a T, it's returned directly (zero-copy); if it's a string, a best-effort
// parse is attempted (the "parse from string" fallback required because XML
// and expressions both yield strings, per design note in spec.md §9).
func Get[T any](b *Board, key string) (T, error) {
	var zero T
	raw, err := b.Get(key)
	if err != nil {
		return zero, err
	}
	if v, ok := raw.(T); ok {
		return v, nil
	}
	s, ok := raw.(string)
	if !ok {
		return zero, bterr.WrongTypef("", key, "key %q holds %T, not %T and not a parseable string", key, raw, zero)
	}
	parsed, err := ParseString[T](s)
	if err != nil {
		return zero, bterr.WrongTypef("", key, "key %q: %v", key, err)
	}
	return parsed, nil
}

// ParseString parses a literal string (as found directly in an XML
// attribute) into T — the "parse from string" fallback spec.md §9 requires
// because XML and expressions both yield strings.
func ParseString[T any](s string) (T, error) {
	return parseAs[T](s)
}

func parseAs[T any](s string) (T, error) {
	var zero T
	var out any
	switch any(zero).(type) {
	case int:
		n, err := strconv.Atoi(s)
		if err != nil {
			return zero, err
		}
		out = n
	case int32:
		n, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return zero, err
		}
		out = int32(n)
	case int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return zero, err
		}
		out = n
	case float64:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return zero, err
		}
		out = n
	case bool:
		n, err := strconv.ParseBool(s)
		if err != nil {
			return zero, err
		}
		out = n
	case string:
		out = s
	default:
		return zero, fmt.Errorf("no string-parse rule for %T", zero)
	}
	return out.(T), nil
}

// Snapshot is a point-in-time copy of one board's own entries (not its
// ancestors'), used by Backup/Restore (spec.md §C.4, t17_blackboard_backup).
type Snapshot struct {
	entries map[string]entry
}

// Backup returns a deep-enough snapshot of this board's local entries to
// later Restore, without touching parent boards.
func (b *Board) Backup() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]entry, len(b.data))
	for k, e := range b.data {
		out[k] = *e
	}
	return Snapshot{entries: out}
}

// Restore replaces this board's local entries with a prior Backup, bumping
// sequence ids for every restored key so WasUpdated observers see a change.
func (b *Board) Restore(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data = make(map[string]*entry, len(s.entries))
	for k, e := range s.entries {
		ec := e
		ec.seq = b.nextSeq()
		b.data[k] = &ec
	}
}

// Keys returns the local keys stored directly on this board (not ancestors).
func (b *Board) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	return keys
}
