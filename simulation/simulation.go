// Package simulation is the external collaborator that drives a Streamlet
// simulation run: it wires up a broker and a set of nodes, seeds each
// node's mempool every epoch, ticks the expected leader to propose, drains
// the broker, and collects each node's finalized log. It is not part of the
// consensus core — it merely exercises the core's driver interface.
package simulation

import (
	"encoding/json"
	"fmt"

	"github.com/streamletproto/streamletsim/block"
	"github.com/streamletproto/streamletsim/broker"
	"github.com/streamletproto/streamletsim/consensus"
	"github.com/streamletproto/streamletsim/internal/logging"
	"github.com/streamletproto/streamletsim/keys"
	"github.com/streamletproto/streamletsim/simconfig"
)

var log = logging.Named("simulation")

// Identity supplies (or loads) one node's signing key. The default
// constructs a fresh ephemeral identity; a keystore-backed implementation
// lets repeated runs reuse stable node identities.
type Identity func(nodeID string) (*keys.KeyManager, error)

// EphemeralIdentity generates a fresh key for every node on every run.
func EphemeralIdentity(string) (*keys.KeyManager, error) {
	return keys.New()
}

// Result is one run's outcome: each node's finalized log, in node order.
type Result struct {
	NodeIDs       []string
	FinalizedLogs [][]block.Transaction
}

// AllAgree reports whether every node finalized the identical transaction
// sequence, the correctness property the CLI's run command checks.
func (r Result) AllAgree() bool {
	if len(r.FinalizedLogs) == 0 {
		return true
	}
	want := serializeLog(r.FinalizedLogs[0])
	for _, nodeLog := range r.FinalizedLogs[1:] {
		if serializeLog(nodeLog) != want {
			return false
		}
	}
	return true
}

func serializeLog(txs []block.Transaction) string {
	data, _ := json.Marshal(txs)
	return string(data)
}

// Run executes one simulation according to cfg, using identity to obtain
// each node's signing key (EphemeralIdentity by default).
func Run(cfg *simconfig.Config, identity Identity) (Result, error) {
	if identity == nil {
		identity = EphemeralIdentity
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid config: %w", err)
	}

	b := broker.New()
	registry := make(consensus.PublicKeyRegistry)
	nodes := make([]*consensus.Node, cfg.NumNodes)
	nodeIDs := make([]string, cfg.NumNodes)

	for i := 0; i < cfg.NumNodes; i++ {
		nodeID := fmt.Sprintf("%d", i)
		km, err := identity(nodeID)
		if err != nil {
			return Result{}, fmt.Errorf("identity for node %s: %w", nodeID, err)
		}
		n, err := consensus.NewNode(nodeID, b, registry, cfg.NumNodes, km)
		if err != nil {
			return Result{}, fmt.Errorf("construct node %s: %w", nodeID, err)
		}
		nodes[i] = n
		nodeIDs[i] = nodeID
	}

	failSet := cfg.FailSet()
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		seedMempools(nodes, uint64(epoch), cfg.MempoolSeedTemplate)

		leaderID := consensus.ExpectedLeaderForEpoch(uint64(epoch), cfg.NumNodes)
		if _, suppressed := failSet[epoch]; suppressed {
			log.Infow("suppressing leader for epoch", "epoch", epoch, "leader_id", leaderID)
		} else {
			for _, n := range nodes {
				if n.NodeID == leaderID {
					n.Propose(uint64(epoch))
					break
				}
			}
		}
		b.Deliver()
	}
	// One final drain after the last epoch. Deliver already consumes
	// messages enqueued during delivery, so the loop above leaves the queue
	// empty and this call delivers nothing further.
	b.Deliver()

	result := Result{NodeIDs: nodeIDs, FinalizedLogs: make([][]block.Transaction, len(nodes))}
	for i, n := range nodes {
		result.FinalizedLogs[i] = n.FinalizedLog()
	}
	return result, nil
}

// seedMempools appends mempoolSeedTemplate synthetic transactions to every
// node's mempool for this epoch, mirroring the reference driver's
// {"epoch": e, "from": node_id, "val": ...} seed shape.
func seedMempools(nodes []*consensus.Node, epoch uint64, count int) {
	for _, n := range nodes {
		for i := 0; i < count; i++ {
			tx, err := json.Marshal(map[string]any{
				"epoch": epoch,
				"from":  n.NodeID,
				"val":   epoch*1000 + uint64(i),
			})
			if err != nil {
				continue
			}
			n.Mempool().Add(block.Transaction(tx))
		}
	}
}
