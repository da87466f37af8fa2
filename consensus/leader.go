package consensus

import (
	"crypto/sha256"
	"fmt"
	"math/big"
)

// ExpectedLeaderForEpoch deterministically picks the round's leader from the
// decimal ASCII encoding of epoch, the same derivation every node computes
// independently and must agree on without communication.
func ExpectedLeaderForEpoch(epoch uint64, totalNodes int) string {
	digest := sha256.Sum256([]byte(fmt.Sprintf("%d", epoch)))
	n := new(big.Int).SetBytes(digest[:])
	idx := new(big.Int).Mod(n, big.NewInt(int64(totalNodes)))
	return idx.String()
}

// QuorumThreshold returns the minimum vote count needed to notarize a block
// among totalNodes participants: ceil(2N/3).
func QuorumThreshold(totalNodes int) int {
	return (2*totalNodes + 2) / 3
}
