// Package simrf is an in-memory RF medium implementing the dot11.RF
// collaborator interface. It exists so the package's own tests have
// something concrete to drive the Receiver/Transmitter/Link against,
// standing in for real radio hardware behind a mutex-guarded struct.
package simrf

import (
	"sync"
	"time"

	"github.com/go-dot11/dot11mac"
)

// Filter lets a test intercept a frame in flight: returning deliver=false
// drops it (simulating a lost ACK or collision); returning corrupt=true
// flips a byte before delivery (simulating a CRC failure).
type Filter func(from *Node, raw []byte) (deliver bool, corrupt bool)

// Medium is a shared bus: every Transmit from one Node is offered to every
// other Node's inbound queue, and the bus tracks a single busy-until
// deadline so InUse() reflects genuine contention between nodes.
type Medium struct {
	mu        sync.Mutex
	start     time.Time
	nodes     []*Node
	busyUntil time.Time
	timing    dot11.Timing
	filter    Filter

	// bitsPerMS controls how long InUse() reports busy after a Transmit,
	// scaled to the frame length, so larger frames hold the channel longer.
	bitsPerMS int
}

// NewMedium creates a medium with the given timing constants, exposed to
// nodes via dot11.RF.Timing().
func NewMedium(timing dot11.Timing) *Medium {
	return &Medium{
		start:     time.Now(),
		timing:    timing,
		bitsPerMS: 64,
	}
}

// SetFilter installs a frame-in-flight filter, or clears it if f is nil.
func (m *Medium) SetFilter(f Filter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter = f
}

// NewNode attaches a new node to the medium and returns its dot11.RF view.
func (m *Medium) NewNode() *Node {
	n := &Node{medium: m, inbox: make(chan []byte, 64)}
	m.mu.Lock()
	m.nodes = append(m.nodes, n)
	m.mu.Unlock()
	return n
}

func (m *Medium) clockMS() int64 {
	return time.Since(m.start).Milliseconds()
}

// Node is one station's view of the Medium; it implements dot11.RF.
type Node struct {
	medium *Medium
	inbox  chan []byte
}

var _ dot11.RF = (*Node)(nil)

// Receive blocks for the next frame delivered to this node.
func (n *Node) Receive() []byte {
	return <-n.inbox
}

// Transmit marks the bus busy for a duration proportional to the frame
// length and offers the bytes to every other node's inbox, subject to the
// medium's filter.
func (n *Node) Transmit(raw []byte) {
	m := n.medium
	m.mu.Lock()
	busyFor := time.Duration(len(raw)*8/m.bitsPerMS+1) * time.Millisecond
	m.busyUntil = time.Now().Add(busyFor)
	peers := make([]*Node, 0, len(m.nodes))
	for _, p := range m.nodes {
		if p != n {
			peers = append(peers, p)
		}
	}
	filter := m.filter
	m.mu.Unlock()

	for _, p := range peers {
		out := raw
		if filter != nil {
			deliver, corrupt := filter(n, raw)
			if !deliver {
				continue
			}
			if corrupt {
				out = append([]byte(nil), raw...)
				out[0] ^= 0xFF
			}
		}
		select {
		case p.inbox <- out:
		default:
			// peer inbox saturated: dropped, mirroring a real medium that
			// doesn't retry delivery on a node's behalf.
		}
	}
}

// InUse reports whether the bus is within its busy window.
func (n *Node) InUse() bool {
	m := n.medium
	m.mu.Lock()
	defer m.mu.Unlock()
	return time.Now().Before(m.busyUntil)
}

// Clock returns milliseconds since the medium was created.
func (n *Node) Clock() int64 {
	return n.medium.clockMS()
}

// Timing returns the medium's configured timing constants.
func (n *Node) Timing() dot11.Timing {
	return n.medium.timing
}
