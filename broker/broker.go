// Package broker provides a deterministic, synchronous in-memory message
// fabric standing in for real networking: handlers never run concurrently,
// and delivery order is plain FIFO.
package broker

import (
	"github.com/streamletproto/streamletsim/internal/logging"
)

var log = logging.Named("broker")

// Handler processes one message delivered to a registered node.
type Handler func(msg any)

type envelope struct {
	nodeID string
	msg    any
}

// Broker is a FIFO multiplexer keyed by node id. It is not safe for
// concurrent use from multiple goroutines — the simulation driver drives it
// from a single goroutine per spec.md's synchronous delivery model.
type Broker struct {
	handlers map[string]Handler
	order    []string
	queue    []envelope
	draining bool
}

// New returns an empty broker with no registered nodes.
func New() *Broker {
	return &Broker{handlers: make(map[string]Handler)}
}

// Register installs the handler for nodeID, replacing any prior handler.
func (b *Broker) Register(nodeID string, h Handler) {
	if _, exists := b.handlers[nodeID]; !exists {
		b.order = append(b.order, nodeID)
	}
	b.handlers[nodeID] = h
}

// Broadcast enqueues msg for every currently registered node, in
// registration order. If called during Deliver's drain, the new envelopes
// are appended to the queue rather than delivered immediately — handlers
// must never be re-entered from within another handler's call.
func (b *Broker) Broadcast(msg any) {
	for _, nodeID := range b.order {
		b.queue = append(b.queue, envelope{nodeID: nodeID, msg: msg})
	}
}

// Send enqueues msg for a single node.
func (b *Broker) Send(nodeID string, msg any) {
	b.queue = append(b.queue, envelope{nodeID: nodeID, msg: msg})
}

// Deliver drains the queue, invoking each recipient's handler in FIFO order.
// Messages enqueued by a handler during the drain (via Broadcast/Send) are
// appended and delivered within the same call, since the queue is consumed
// until empty rather than snapshotted up front.
func (b *Broker) Deliver() {
	if b.draining {
		// Re-entrant Deliver calls should never happen under the driver's
		// single-threaded epoch loop; guard against accidental recursion
		// silently folding into the outer drain.
		return
	}
	b.draining = true
	defer func() { b.draining = false }()

	for len(b.queue) > 0 {
		env := b.queue[0]
		b.queue = b.queue[1:]
		handler, ok := b.handlers[env.nodeID]
		if !ok {
			continue
		}
		b.dispatch(env.nodeID, handler, env.msg)
	}
}

func (b *Broker) dispatch(nodeID string, h Handler, msg any) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("handler panicked", "node_id", nodeID, "panic", r)
		}
	}()
	h(msg)
}
