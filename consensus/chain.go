package consensus

// chainRegistry tracks the forest of block-hash chains a node has observed,
// each identified by its list of hashes from genesis to tip.
//
// Chains are kept in an append-ordered slice: a brand-new branch is appended
// at the end, and extending an existing chain replaces it in place at its
// original index. "First" therefore means first-registered-tip, which is
// deterministic across nodes that received the same notarizations in the
// same order — guaranteed by the broker's FIFO fan-out.
type chainRegistry struct {
	genesisHash string
	chains      [][]string
}

func newChainRegistry(genesisHash string) *chainRegistry {
	return &chainRegistry{
		genesisHash: genesisHash,
		chains:      [][]string{{genesisHash}},
	}
}

// extendWithNotarized attaches a newly notarized block to every chain whose
// tip equals the block's parent, or starts a new branch if no chain's tip
// matches. Resulting chains are then deduplicated by tip, keeping the
// longest chain for any tip reached more than one way.
func (r *chainRegistry) extendWithNotarized(blockHash, parentHash string) {
	extended := false
	for i, chain := range r.chains {
		if chain[len(chain)-1] == parentHash {
			next := make([]string, len(chain)+1)
			copy(next, chain)
			next[len(chain)] = blockHash
			r.chains[i] = next
			extended = true
		}
	}
	if !extended {
		r.chains = append(r.chains, []string{parentHash, blockHash})
	}
	r.dedupeLongestByTip()
}

// dedupeLongestByTip collapses chains sharing a tip down to the single
// longest one, preserving first-registered order among surviving tips.
func (r *chainRegistry) dedupeLongestByTip() {
	bestByTip := make(map[string]int) // tip -> index into kept
	kept := make([][]string, 0, len(r.chains))
	for _, chain := range r.chains {
		tip := chain[len(chain)-1]
		if idx, ok := bestByTip[tip]; ok {
			if len(chain) > len(kept[idx]) {
				kept[idx] = chain
			}
			continue
		}
		bestByTip[tip] = len(kept)
		kept = append(kept, chain)
	}
	r.chains = kept
}

// longestNotarizedChains returns every chain whose every hash is in
// notarized, restricted to those of maximal length. It always returns at
// least one chain (the genesis-only chain) as a fallback.
func (r *chainRegistry) longestNotarizedChains(notarized map[string]struct{}) [][]string {
	var candidates [][]string
	maxLen := 0
	for _, chain := range r.chains {
		allNotarized := true
		for _, h := range chain {
			if _, ok := notarized[h]; !ok {
				allNotarized = false
				break
			}
		}
		if !allNotarized {
			continue
		}
		switch {
		case len(chain) > maxLen:
			candidates = [][]string{chain}
			maxLen = len(chain)
		case len(chain) == maxLen:
			candidates = append(candidates, chain)
		}
	}
	if len(candidates) == 0 {
		return [][]string{{r.genesisHash}}
	}
	return candidates
}

// all returns every chain currently tracked, for finalization scanning.
func (r *chainRegistry) all() [][]string {
	return r.chains
}
