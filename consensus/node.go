// Package consensus implements Streamlet-style block proposal, voting, and
// finalization. Nodes propose and vote over a synchronous broker fabric;
// the leader for an epoch is derived independently by every node from the
// epoch number alone.
package consensus

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/streamletproto/streamletsim/block"
	"github.com/streamletproto/streamletsim/broker"
	"github.com/streamletproto/streamletsim/internal/logging"
	"github.com/streamletproto/streamletsim/keys"
	"github.com/streamletproto/streamletsim/mempool"
)

var log = logging.Named("consensus")

// PublicKeyRegistry maps node id to that node's public key, shared by every
// node in the simulation so signatures can be checked without a discovery
// protocol.
type PublicKeyRegistry map[string]*ecdsa.PublicKey

// Node runs one participant's Streamlet state machine.
type Node struct {
	NodeID     string
	keyManager *keys.KeyManager
	publicKeys PublicKeyRegistry
	totalNodes int
	broker     *broker.Broker
	mempool    *mempool.Mempool

	genesisHash string

	blocksByHash    map[string]block.Block
	votesByBlock    map[string]map[string]struct{}
	notarizedBlocks map[string]struct{}
	finalizedBlocks map[string]struct{}
	chains          *chainRegistry
	finalizedLog    []block.Transaction
	votedInEpoch    map[uint64]struct{}
}

// NewNode constructs a node, registers its identity in the shared public-key
// registry, constructs its genesis block, and registers its handler with the
// broker. km may be freshly generated (keys.New()) or loaded from an
// encrypted keystore file for a stable identity across runs.
func NewNode(nodeID string, b *broker.Broker, publicKeys PublicKeyRegistry, totalNodes int, km *keys.KeyManager) (*Node, error) {
	pubHex, err := km.PublicKeyHex()
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}
	pub, err := keys.ParsePublicKeyHex(pubHex)
	if err != nil {
		return nil, fmt.Errorf("parse own public key: %w", err)
	}
	publicKeys[nodeID] = pub

	genesis := block.Genesis()
	genesisHash := genesis.Hash()

	n := &Node{
		NodeID:          nodeID,
		keyManager:      km,
		publicKeys:      publicKeys,
		totalNodes:      totalNodes,
		broker:          b,
		mempool:         mempool.New(),
		genesisHash:     genesisHash,
		blocksByHash:    map[string]block.Block{genesisHash: genesis},
		votesByBlock:    make(map[string]map[string]struct{}),
		notarizedBlocks: map[string]struct{}{genesisHash: {}},
		finalizedBlocks: make(map[string]struct{}),
		chains:          newChainRegistry(genesisHash),
		votedInEpoch:    make(map[uint64]struct{}),
	}
	b.Register(nodeID, n.onMessage)
	return n, nil
}

// Mempool exposes the node's pending-transaction queue so the simulation
// driver can seed synthetic transactions before an epoch tick.
func (n *Node) Mempool() *mempool.Mempool {
	return n.mempool
}

// FinalizedLog returns the transactions finalized so far, in finalization
// order, for comparison across nodes or archival.
func (n *Node) FinalizedLog() []block.Transaction {
	return n.finalizedLog
}

func (n *Node) onMessage(msg any) {
	switch m := msg.(type) {
	case Proposal:
		n.onReceiveProposal(m)
	case Vote:
		n.onReceiveVote(m)
	default:
		log.Warnw("dropped message of unrecognized type", "node_id", n.NodeID)
	}
}

// Propose builds and broadcasts a block for epoch if this node is the
// expected leader; it is a no-op otherwise.
func (n *Node) Propose(epoch uint64) {
	if ExpectedLeaderForEpoch(epoch, n.totalNodes) != n.NodeID {
		return
	}
	notarized := n.notarizedBlocks
	parentChain := n.chains.longestNotarizedChains(notarized)[0]
	parentHash := parentChain[len(parentChain)-1]

	txs := n.mempool.Pending(-1)
	b := block.Block{
		ParentHash:   parentHash,
		Epoch:        epoch,
		Transactions: txs,
		ProposerID:   n.NodeID,
	}
	blockHash := b.Hash()
	n.blocksByHash[blockHash] = b

	serialized := b.Serialize()
	sig, err := n.keyManager.Sign(serialized)
	if err != nil {
		log.Errorw("failed to sign proposal", "node_id", n.NodeID, "epoch", epoch, "err", err)
		return
	}
	proposal := Proposal{
		SenderID:   n.NodeID,
		Epoch:      epoch,
		BlockHash:  blockHash,
		BlockBytes: serialized,
		Signature:  sig,
	}
	n.broker.Broadcast(proposal)
}

func (n *Node) onReceiveProposal(p Proposal) {
	if ExpectedLeaderForEpoch(p.Epoch, n.totalNodes) != p.SenderID {
		log.Debugw("dropped proposal from non-leader", "node_id", n.NodeID, "sender_id", p.SenderID, "epoch", p.Epoch)
		return
	}
	leaderPub, ok := n.publicKeys[p.SenderID]
	if !ok {
		log.Debugw("dropped proposal from unknown sender", "node_id", n.NodeID, "sender_id", p.SenderID)
		return
	}
	if !keys.Verify(leaderPub, p.BlockBytes, p.Signature) {
		log.Debugw("dropped proposal with invalid signature", "node_id", n.NodeID, "sender_id", p.SenderID, "epoch", p.Epoch)
		return
	}

	if _, exists := n.blocksByHash[p.BlockHash]; !exists {
		parsed, err := block.Parse(p.BlockBytes)
		if err != nil {
			log.Debugw("dropped proposal with unparseable block", "node_id", n.NodeID, "err", err)
			return
		}
		if parsed.Hash() != p.BlockHash {
			log.Debugw("dropped proposal with hash mismatch", "node_id", n.NodeID, "sender_id", p.SenderID)
			return
		}
		n.blocksByHash[p.BlockHash] = parsed
	}

	if _, voted := n.votedInEpoch[p.Epoch]; voted {
		log.Debugw("dropped proposal, already voted this epoch", "node_id", n.NodeID, "epoch", p.Epoch)
		return
	}

	parentHash := extractParentHash(p.BlockBytes)
	parentOK := false
	for _, chain := range n.chains.longestNotarizedChains(n.notarizedBlocks) {
		if chain[len(chain)-1] == parentHash {
			parentOK = true
			break
		}
	}
	if !parentOK {
		log.Debugw("dropped proposal, parent not tip of a longest notarized chain", "node_id", n.NodeID, "epoch", p.Epoch)
		return
	}

	sig, err := n.keyManager.Sign(p.BlockBytes)
	if err != nil {
		log.Errorw("failed to sign vote", "node_id", n.NodeID, "epoch", p.Epoch, "err", err)
		return
	}
	vote := Vote{
		SenderID:    n.NodeID,
		Epoch:       p.Epoch,
		BlockHash:   p.BlockHash,
		Signature:   sig,
		BlockBytes:  p.BlockBytes,
		ForLeaderID: p.SenderID,
	}
	n.votedInEpoch[p.Epoch] = struct{}{}
	n.broker.Broadcast(vote)
}

func (n *Node) onReceiveVote(v Vote) {
	voterPub, ok := n.publicKeys[v.SenderID]
	if !ok {
		log.Debugw("dropped vote from unknown sender", "node_id", n.NodeID, "sender_id", v.SenderID)
		return
	}
	if !keys.Verify(voterPub, v.BlockBytes, v.Signature) {
		log.Debugw("dropped vote with invalid signature", "node_id", n.NodeID, "sender_id", v.SenderID)
		return
	}

	votes, ok := n.votesByBlock[v.BlockHash]
	if !ok {
		votes = make(map[string]struct{})
		n.votesByBlock[v.BlockHash] = votes
	}
	if _, already := votes[v.SenderID]; already {
		return
	}
	votes[v.SenderID] = struct{}{}

	threshold := QuorumThreshold(n.totalNodes)
	if len(votes) < threshold {
		return
	}
	if _, already := n.notarizedBlocks[v.BlockHash]; already {
		return
	}
	n.notarizedBlocks[v.BlockHash] = struct{}{}

	parent, ok := n.parentOf(v.BlockHash)
	if !ok {
		return
	}
	n.chains.extendWithNotarized(v.BlockHash, parent)
	n.checkFinalization()
}

func (n *Node) parentOf(blockHash string) (string, bool) {
	b, ok := n.blocksByHash[blockHash]
	if !ok {
		return "", false
	}
	return b.ParentHash, true
}

// checkFinalization scans every tracked chain for three consecutive
// notarized blocks at three consecutive epochs and finalizes the middle
// block's transactions. finalizedBlocks guards against appending the same
// block's transactions twice when overlapping triples are rescanned on a
// later notarization.
func (n *Node) checkFinalization() {
	for _, chain := range n.chains.all() {
		if len(chain) < 3 {
			continue
		}
		epochs := make([]uint64, len(chain))
		resolvable := true
		for i, h := range chain {
			b, ok := n.blocksByHash[h]
			if !ok {
				resolvable = false
				break
			}
			epochs[i] = b.Epoch
		}
		if !resolvable {
			continue
		}
		for i := 0; i+2 < len(chain); i++ {
			h1, h2, h3 := chain[i], chain[i+1], chain[i+2]
			if !n.allNotarized(h1, h2, h3) {
				continue
			}
			if epochs[i+1] != epochs[i]+1 || epochs[i+2] != epochs[i+1]+1 {
				continue
			}
			if _, done := n.finalizedBlocks[h2]; done {
				continue
			}
			middle := n.blocksByHash[h2]
			n.finalizedLog = append(n.finalizedLog, middle.Transactions...)
			n.finalizedBlocks[h2] = struct{}{}
		}
	}
}

func (n *Node) allNotarized(hashes ...string) bool {
	for _, h := range hashes {
		if _, ok := n.notarizedBlocks[h]; !ok {
			return false
		}
	}
	return true
}

// extractParentHash parses raw canonical block bytes with block.Parse and
// returns their parent_hash, or "" when the bytes do not parse.
func extractParentHash(blockBytes []byte) string {
	b, err := block.Parse(blockBytes)
	if err != nil {
		return ""
	}
	return b.ParentHash
}
