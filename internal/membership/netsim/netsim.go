// Package netsim is the in-memory network emulator and tick driver that
// THE CORE treats as an external collaborator (spec §6): a lossy,
// unordered, best-effort datagram service plus a loop that calls recv then
// tick on every node once per simulated time unit.
package netsim

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"gossipmesh/internal/membership/addrcodec"
	"gossipmesh/internal/membership/protocol"
)

// Node is the subset of protocol.Node the network drives.
type Node interface {
	Tick()
	Deliver(frame []byte)
	Address() addrcodec.Address
}

// Options configures loss/reorder injection.
type Options struct {
	// DropRate is the probability, in [0,1), that a sent frame is dropped
	// before it reaches its destination's mailbox.
	DropRate float64
	// ReorderWindow, if > 0, delays a frame's arrival by a random number
	// of ticks in [0, ReorderWindow], shuffling delivery order relative to
	// send order.
	ReorderWindow int
}

type pendingFrame struct {
	deliverAtTick int64
	to            addrcodec.Address
	frame         []byte
}

// Network is a channel-free, in-memory implementation of spec §6's
// send/recv contract. It is safe for concurrent Send calls but Advance
// must be called from a single driver goroutine per Network.
type Network struct {
	mu      sync.Mutex
	opts    Options
	rng     *rand.Rand
	nodes   map[addrcodec.Address]Node
	pending []pendingFrame
	tick    int64

	// RunID correlates this simulated run's log output; generated once
	// per Network for operators inspecting concurrent runs.
	RunID uuid.UUID
}

// New builds a Network with the given loss/reorder options.
func New(opts Options) *Network {
	return &Network{
		opts:  opts,
		rng:   rand.New(rand.NewPCG(1, 2)),
		nodes: make(map[addrcodec.Address]Node),
		RunID: uuid.New(),
	}
}

// Register attaches a node to the network under its own address. The
// network holds only a weak reference: it never mutates node state
// directly, it only calls Deliver.
func (net *Network) Register(n Node) {
	net.mu.Lock()
	defer net.mu.Unlock()
	net.nodes[n.Address()] = n
}

// Send is spec §6's best-effort, unordered send. It never blocks.
func (net *Network) Send(from, to addrcodec.Address, frame []byte) {
	net.mu.Lock()
	defer net.mu.Unlock()

	if net.opts.DropRate > 0 && net.rng.Float64() < net.opts.DropRate {
		return
	}

	delay := int64(0)
	if net.opts.ReorderWindow > 0 {
		delay = int64(net.rng.IntN(net.opts.ReorderWindow + 1))
	}

	buf := make([]byte, len(frame))
	copy(buf, frame)
	net.pending = append(net.pending, pendingFrame{
		deliverAtTick: net.tick + delay,
		to:            to,
		frame:         buf,
	})
}

var _ protocol.Sender = (*Network)(nil)

// Advance drains every pending frame due at the current simulated tick
// into its destination's inbox, then ticks every registered node exactly
// once, in address-sorted order for determinism.
func (net *Network) Advance() {
	net.mu.Lock()
	var due []pendingFrame
	var rest []pendingFrame
	for _, p := range net.pending {
		if p.deliverAtTick <= net.tick {
			due = append(due, p)
		} else {
			rest = append(rest, p)
		}
	}
	net.pending = rest
	nodes := net.nodesSortedLocked()
	net.tick++
	net.mu.Unlock()

	for _, p := range due {
		if n, ok := net.lookup(p.to); ok {
			n.Deliver(p.frame)
		}
	}
	for _, n := range nodes {
		n.Tick()
	}
}

func (net *Network) lookup(addr addrcodec.Address) (Node, bool) {
	net.mu.Lock()
	defer net.mu.Unlock()
	n, ok := net.nodes[addr]
	return n, ok
}

func (net *Network) nodesSortedLocked() []Node {
	out := make([]Node, 0, len(net.nodes))
	for _, n := range net.nodes {
		out = append(out, n)
	}
	sortNodesByAddress(out)
	return out
}

func sortNodesByAddress(nodes []Node) {
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0 && less(nodes[j].Address(), nodes[j-1].Address()); j-- {
			nodes[j], nodes[j-1] = nodes[j-1], nodes[j]
		}
	}
}

func less(a, b addrcodec.Address) bool {
	if a.ID() != b.ID() {
		return a.ID() < b.ID()
	}
	return a.Port() < b.Port()
}

// Run advances the network for n simulated ticks.
func (net *Network) Run(n int) {
	for i := 0; i < n; i++ {
		net.Advance()
	}
}

// RunParallel runs count independent Networks concurrently for n ticks
// each, returning once all have finished. A run whose goroutine starts
// after ctx is cancelled is skipped and reports ctx.Err(); a run already
// in progress is not interrupted. Errors from individual runs (today only
// that cancellation error — Advance cannot fail — but the shape mirrors a
// driver that might add fallible per-run setup) are aggregated with
// go-multierror rather than discarded on first failure.
func RunParallel(ctx context.Context, count, n int, newNetwork func() *Network) ([]*Network, error) {
	nets := make([]*Network, count)
	errs := make([]error, count)
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < count; i++ {
		i := i
		nets[i] = newNetwork()
		g.Go(func() error {
			select {
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return errs[i]
			default:
			}
			nets[i].Run(n)
			return nil
		})
	}

	_ = g.Wait()
	var result error
	for _, err := range errs {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	return nets, result
}
