package observer

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/arborist-labs/bteng/internal/driver"
	"github.com/arborist-labs/bteng/internal/treenode"
	"github.com/arborist-labs/bteng/internal/xmlfmt"
)

// Request types, the single ASCII byte at request header offset 1 (§6.4).
const (
	ReqFullTree          = 'T'
	ReqState             = 'S'
	ReqBlackboard        = 'B'
	ReqHookInsert        = 'I'
	ReqHookRemove        = 'R'
	ReqHooksDump         = 'D'
	ReqRemoveAllHooks    = 'A'
	ReqDisableAllHooks   = 'X'
	ReqBreakpointReached = 'N'
	ReqBreakpointUnlock  = 'U'
	ReqToggleRecording   = 'r'
	ReqGetTransitions    = 't'
)

const protocolID = 2

// requestHeader is the 6-byte request header (§6.4).
type requestHeader struct {
	protocolID  byte
	requestType byte
	uid         [4]byte // opaque client token, echoed verbatim
}

func readRequestHeader(r io.Reader) (requestHeader, error) {
	var buf [6]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return requestHeader{}, err
	}
	var h requestHeader
	h.protocolID = buf[0]
	h.requestType = buf[1]
	copy(h.uid[:], buf[2:6])
	return h, nil
}

func (h requestHeader) bytes() [6]byte {
	var buf [6]byte
	buf[0] = h.protocolID
	buf[1] = h.requestType
	copy(buf[2:6], h.uid[:])
	return buf
}

// Server serves the visualizer wire protocol (§6.4) for one driven Tree. A
// Server instance is single-tree; multiple trees each run their own
// Server on their own listener, matching §5's "each has its own ... mailbox."
type Server struct {
	tree        *driver.Tree
	stats       *Stats
	breakpoints *Breakpoints
	treeUUID    uuid.UUID
	mainTreeID  string

	// mu serializes request handling across connections, mirroring a
	// ZeroMQ REP socket's single-in-flight-request semantics (§6.4 "TCP
	// request/reply over a ZeroMQ REP socket"; no pack example imports a
	// ZeroMQ binding, so this is a plain net.Listener server that reads
	// fixed 6-byte request headers and writes replies without any framing,
	// preserving the same one-at-a-time contract — see DESIGN.md).
	mu sync.Mutex
}

// NewServer wires a Stats/Breakpoints pair to the driven tree they observe.
func NewServer(tree *driver.Tree, stats *Stats, breakpoints *Breakpoints, mainTreeID string) *Server {
	return &Server{
		tree:        tree,
		stats:       stats,
		breakpoints: breakpoints,
		treeUUID:    uuid.New(),
		mainTreeID:  mainTreeID,
	}
}

// Serve accepts connections on ln until it returns an error (typically from
// ln being closed by the caller).
func (s *Server) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		req, err := readRequestHeader(r)
		if err != nil {
			return
		}
		if req.protocolID != protocolID {
			// Protocol: malformed request dropped with no reply (§7).
			continue
		}
		s.mu.Lock()
		reply := s.handleRequest(req)
		s.mu.Unlock()
		if reply == nil {
			continue
		}
		if _, err := conn.Write(reply); err != nil {
			return
		}
	}
}

func (s *Server) replyHeader(req requestHeader) []byte {
	hdr := req.bytes()
	out := make([]byte, 0, 22)
	out = append(out, hdr[:]...)
	id := s.treeUUID
	out = append(out, id[:]...)
	return out
}

func (s *Server) handleRequest(req requestHeader) []byte {
	switch req.requestType {
	case ReqFullTree:
		return s.handleFullTree(req)
	case ReqState:
		return s.handleState(req)
	case ReqBlackboard:
		return s.handleBlackboard(req)
	case ReqHookInsert:
		return s.handleHookInsert(req)
	case ReqHookRemove:
		return s.handleHookRemove(req)
	case ReqHooksDump:
		return s.handleHooksDump(req)
	case ReqRemoveAllHooks:
		s.breakpoints.RemoveAll()
		return s.replyHeader(req)
	case ReqDisableAllHooks:
		s.breakpoints.Disable()
		return s.replyHeader(req)
	case ReqBreakpointReached:
		return s.handleBreakpointReached(req)
	case ReqBreakpointUnlock:
		return s.handleBreakpointUnlock(req)
	case ReqToggleRecording:
		return s.handleToggleRecording(req)
	case ReqGetTransitions:
		return s.handleGetTransitions(req)
	default:
		return nil // Protocol error: dropped with no reply (§7).
	}
}

func (s *Server) handleFullTree(req requestHeader) []byte {
	out := s.replyHeader(req)
	xmlText := xmlfmt.Export(s.tree.Root, xmlfmt.ExportOptions{Metadata: true, MainTreeID: s.mainTreeID})
	return append(out, []byte(xmlText)...)
}

func (s *Server) handleState(req requestHeader) []byte {
	out := s.replyHeader(req)
	var uids []uint16
	s.tree.Iter(func(n *treenode.Node) {
		if n.Data.UID != 0 {
			uids = append(uids, n.Data.UID)
		}
	})
	buf := make([]byte, 0, 3*len(uids))
	for _, uid := range uids {
		var u [2]byte
		binary.LittleEndian.PutUint16(u[:], uid)
		buf = append(buf, u[0], u[1], s.stats.WireByte(uid))
	}
	return append(out, buf...)
}

// handleBlackboard dumps the root node's blackboard as key=value text
// lines; the spec narrates only the "B" letter, not a byte layout, so this
// format is this implementation's own choice (documented in DESIGN.md).
func (s *Server) handleBlackboard(req requestHeader) []byte {
	out := s.replyHeader(req)
	var text string
	board := s.tree.Root.Data.Board
	for _, key := range board.Keys() {
		v, err := board.Get(key)
		if err != nil {
			continue
		}
		text += fmt.Sprintf("%s=%v\n", key, v)
	}
	return append(out, []byte(text)...)
}

func (s *Server) handleHookInsert(req requestHeader) []byte {
	uid := binary.LittleEndian.Uint16(req.uid[:2])
	s.breakpoints.Insert(s.tree.Root, uid)
	return s.replyHeader(req)
}

func (s *Server) handleHookRemove(req requestHeader) []byte {
	uid := binary.LittleEndian.Uint16(req.uid[:2])
	s.breakpoints.Remove(uid)
	return s.replyHeader(req)
}

func (s *Server) handleHooksDump(req requestHeader) []byte {
	out := s.replyHeader(req)
	uids := s.breakpoints.Dump()
	buf := make([]byte, 2*len(uids))
	for i, uid := range uids {
		binary.LittleEndian.PutUint16(buf[i*2:], uid)
	}
	return append(out, buf...)
}

func (s *Server) handleBreakpointReached(req requestHeader) []byte {
	uid := binary.LittleEndian.Uint16(req.uid[:2])
	out := s.replyHeader(req)
	reached := byte(0)
	for _, hu := range s.breakpoints.Dump() {
		if hu == uid {
			reached = 1
		}
	}
	return append(out, reached)
}

func (s *Server) handleBreakpointUnlock(req requestHeader) []byte {
	uid := binary.LittleEndian.Uint16(req.uid[:2])
	s.breakpoints.Unlock(uid)
	return s.replyHeader(req)
}

func (s *Server) handleToggleRecording(req requestHeader) []byte {
	out := s.replyHeader(req)
	// uid[0] doubles as the start(1)/stop(0) flag for this request type,
	// since "r" carries no other payload in the request (§6.4).
	if req.uid[0] != 0 {
		startUs := s.stats.StartRecording()
		return append(out, []byte(strconv.FormatInt(startUs, 10))...)
	}
	s.stats.StopRecording()
	return out
}

func (s *Server) handleGetTransitions(req requestHeader) []byte {
	out := s.replyHeader(req)
	for _, t := range s.stats.Transitions() {
		var rec [9]byte
		put48(rec[0:6], t.TimestampUs)
		binary.LittleEndian.PutUint16(rec[6:8], t.UID)
		rec[8] = byte(t.Status)
		out = append(out, rec[:]...)
	}
	return out
}

// put48 writes the lower 48 bits of v as little-endian into buf (§6.4's
// 6-byte transition timestamp field).
func put48(buf []byte, v int64) {
	u := uint64(v)
	for i := 0; i < 6; i++ {
		buf[i] = byte(u >> (8 * i))
	}
}
