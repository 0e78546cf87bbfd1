// Package protocol implements the MembershipNode state machine: join
// procedure, heartbeat gossip, membership-list maintenance, and
// timeout-based failure detection, driven by an external tick loop.
package protocol

import (
	"errors"
	"fmt"

	"gossipmesh/internal/check"
	"gossipmesh/internal/membership/addrcodec"
	"gossipmesh/internal/membership/config"
	"gossipmesh/internal/membership/detector"
	"gossipmesh/internal/membership/eventlog"
	"gossipmesh/internal/membership/table"
	"gossipmesh/internal/membership/wire"
)

// ErrSelfReference marks a peer entry whose id matches the local node's
// own id. It is never returned to a caller: both insertPeer and
// handleJoinRep treat it as a silently skipped entry, logged only at
// debug level.
var ErrSelfReference = errors.New("protocol: self-referencing peer entry skipped")

// Sender is the subset of the external network emulator's send operation
// THE CORE depends on. Implementations must not block.
type Sender interface {
	Send(from, to addrcodec.Address, frame []byte)
}

// Node is the per-process membership state machine described in spec §3–§4.
// A Node owns its table, inbox, and counters exclusively; the emulator only
// ever appends to the inbox via Deliver.
type Node struct {
	cfg  config.Config
	addr addrcodec.Address
	log  *eventlog.Log
	net  Sender

	inited  bool
	inGroup bool
	failed  bool

	heartbeat      int64
	timeoutCounter int64
	pingCounter    int64

	table *table.Table
	inbox [][]byte
}

// New constructs a Node bound to addr, using cfg's tunables, net for
// outbound sends, and log for the NODE_ADDED/NODE_REMOVED event sink.
func New(cfg config.Config, addr addrcodec.Address, net Sender, log *eventlog.Log) *Node {
	if log == nil {
		log = eventlog.New(nil)
	}
	return &Node{cfg: cfg, addr: addr, net: net, log: log}
}

// Start initializes NodeState and either bootstraps alone (if addr is the
// introducer) or emits a JOINREQ to the introducer.
func (n *Node) Start(introducer addrcodec.Address) error {
	n.inited = true
	n.inGroup = false
	n.failed = false
	n.heartbeat = 0
	n.timeoutCounter = -1
	n.pingCounter = n.cfg.TFail
	n.table = table.New()
	n.inbox = nil

	if n.addr.Equal(introducer) {
		n.inGroup = true
		return nil
	}

	frame := wire.Encode(wire.JoinReq{SenderAddr: n.addr, SenderHeartbeat: n.heartbeat})
	n.net.Send(n.addr, introducer, frame)
	return nil
}

// FinishUp tears down the node's state. Idempotent.
func (n *Node) FinishUp() {
	n.inited = false
	n.inGroup = false
	n.failed = false
	n.heartbeat = 0
	n.timeoutCounter = -1
	n.pingCounter = 0
	n.table = table.New()
	n.inbox = nil
}

// Deliver pushes a raw frame into the inbox for processing on the next
// Tick. Never blocks.
func (n *Node) Deliver(frame []byte) {
	if !n.inited || n.failed {
		return
	}
	buf := make([]byte, len(frame))
	copy(buf, frame)
	n.inbox = append(n.inbox, buf)
}

// Inited reports whether Start has completed (and FinishUp has not since).
func (n *Node) Inited() bool { return n.inited }

// InGroup reports whether the join handshake has completed.
func (n *Node) InGroup() bool { return n.inGroup }

// Failed reports whether the node's activity is currently suppressed.
func (n *Node) Failed() bool { return n.failed }

// SetFailed sets the failed latch. A failed node's Tick is a no-op; its
// state otherwise remains observable.
func (n *Node) SetFailed(failed bool) { n.failed = failed }

// Heartbeat returns the node's own monotonically increasing heartbeat
// counter.
func (n *Node) Heartbeat() int64 { return n.heartbeat }

// TimeoutCounter returns the local logical clock, advanced once per tick.
func (n *Node) TimeoutCounter() int64 { return n.timeoutCounter }

// Snapshot returns a read-only copy of the current membership table.
func (n *Node) Snapshot() []table.MemberEntry {
	if n.table == nil {
		return nil
	}
	return n.table.Iter()
}

// Tick runs one logical period: a no-op if failed or not yet started.
// Otherwise it drains the inbox in FIFO order, then — only if inGroup —
// runs loopOps.
func (n *Node) Tick() {
	if !n.inited || n.failed {
		return
	}

	n.drainInbox()

	if n.inGroup {
		n.loopOps()
	}
}

func (n *Node) drainInbox() {
	for _, frame := range n.inbox {
		n.handleFrame(frame)
	}
	n.inbox = nil
}

func (n *Node) handleFrame(frame []byte) {
	msg, err := wire.Decode(frame)
	if err != nil {
		n.log.DroppedFrame(n.addr, err)
		return
	}

	switch m := msg.(type) {
	case wire.JoinReq:
		n.handleJoinReq(m)
	case wire.JoinRep:
		n.handleJoinRep(m)
	case wire.Heartbeat:
		n.handleHeartbeat(m)
	default:
		check.Assertf(false, "protocol: Decode returned unhandled type %T", msg)
	}
}

func (n *Node) handleJoinReq(m wire.JoinReq) {
	n.insertPeer(m.SenderAddr.ID(), m.SenderAddr.Port(), m.SenderHeartbeat, n.timeoutCounter)

	rep := wire.JoinRep{Entries: make([]wire.JoinRepEntry, 0, n.table.Len())}
	for _, e := range n.table.Iter() {
		rep.Entries = append(rep.Entries, wire.JoinRepEntry{
			ID: e.ID, Port: e.Port, Heartbeat: e.Heartbeat, Timestamp: e.Timestamp,
		})
	}
	n.net.Send(n.addr, m.SenderAddr, wire.Encode(rep))
}

func (n *Node) handleJoinRep(m wire.JoinRep) {
	n.inGroup = true
	for _, e := range m.Entries {
		if e.ID == n.addr.ID() {
			n.log.SkippedEntry(n.addr, ErrSelfReference)
			continue
		}
		n.insertPeer(e.ID, e.Port, e.Heartbeat, e.Timestamp)
	}
}

func (n *Node) handleHeartbeat(m wire.Heartbeat) {
	id := m.SenderAddr.ID()
	if n.table.Contains(id) {
		existing, _ := n.table.Get(id)
		if m.SenderHeartbeat < existing.Heartbeat {
			// Max-wins (I5): never rewind a stored heartbeat.
			return
		}
		n.table.Update(id, m.SenderHeartbeat, n.timeoutCounter)
		return
	}
	n.insertPeer(id, m.SenderAddr.Port(), m.SenderHeartbeat, n.timeoutCounter)
}

// insertPeer inserts a new table entry and emits NODE_ADDED, skipping
// self-references (invariant I1).
func (n *Node) insertPeer(id uint32, port uint16, heartbeat, timestamp int64) {
	if id == n.addr.ID() {
		n.log.SkippedEntry(n.addr, ErrSelfReference)
		return
	}
	if n.table.Contains(id) {
		return
	}
	n.table.Insert(id, port, heartbeat, timestamp)
	n.log.NodeAdded(n.addr, addrcodec.New(id, port))
}

// loopOps runs the periodic heartbeat broadcast, failure detection, and
// tick advance, in that order — ordering is significant (see spec §4.5).
func (n *Node) loopOps() {
	check.Assert(n.inGroup, "loopOps called while not in group")

	if n.pingCounter == 0 {
		n.heartbeat++
		frame := wire.Encode(wire.Heartbeat{SenderAddr: n.addr, SenderHeartbeat: n.heartbeat})
		for _, e := range n.table.Iter() {
			peer := addrcodec.New(e.ID, e.Port)
			if peer.Equal(n.addr) {
				continue
			}
			n.net.Send(n.addr, peer, frame)
		}
		n.pingCounter = n.cfg.TFail
	} else {
		n.pingCounter--
	}

	for _, victim := range detector.Sweep(n.table, n.timeoutCounter, n.cfg.TRemove) {
		n.log.NodeRemoved(n.addr, addrcodec.New(victim.ID, victim.Port))
	}

	n.timeoutCounter++
}

// Address returns the node's own address.
func (n *Node) Address() addrcodec.Address { return n.addr }

func (n *Node) String() string {
	return fmt.Sprintf("Node(%s inited=%t inGroup=%t failed=%t hb=%d tc=%d members=%d)",
		n.addr, n.inited, n.inGroup, n.failed, n.heartbeat, n.timeoutCounter, n.table.Len())
}
