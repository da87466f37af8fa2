// Package mempool holds each node's pending, not-yet-included transactions.
// Transactions are opaque byte bundles: the pool performs no signature or
// expiry validation, unlike the chain-wide mempool this is trimmed from.
package mempool

import "github.com/streamletproto/streamletsim/block"

// Mempool is a single node's insertion-ordered pending-transaction queue.
// It is not safe for concurrent use; the simulation driver runs each node's
// handlers on a single goroutine per spec.md's synchronous delivery model.
type Mempool struct {
	pending []block.Transaction
}

// New creates an empty mempool.
func New() *Mempool {
	return &Mempool{}
}

// Add appends a transaction to the back of the pending queue.
func (m *Mempool) Add(tx block.Transaction) {
	m.pending = append(m.pending, tx)
}

// Pending returns up to n pending transactions in insertion order, without
// removing them. A negative or zero n returns all pending transactions.
func (m *Mempool) Pending(n int) []block.Transaction {
	if n <= 0 || n > len(m.pending) {
		n = len(m.pending)
	}
	out := make([]block.Transaction, n)
	copy(out, m.pending[:n])
	return out
}

// Size returns the number of pending transactions.
func (m *Mempool) Size() int {
	return len(m.pending)
}
