package consensus

import (
	"strconv"
	"testing"
)

func TestExpectedLeaderForEpochIsDeterministic(t *testing.T) {
	a := ExpectedLeaderForEpoch(7, 4)
	b := ExpectedLeaderForEpoch(7, 4)
	if a != b {
		t.Errorf("leader election must be deterministic: %s vs %s", a, b)
	}
}

func TestExpectedLeaderForEpochInRange(t *testing.T) {
	const n = 5
	for epoch := uint64(0); epoch < 50; epoch++ {
		leader := ExpectedLeaderForEpoch(epoch, n)
		idx := -1
		for i := 0; i < n; i++ {
			if leader == strconv.Itoa(i) {
				idx = i
			}
		}
		if idx < 0 {
			t.Errorf("epoch %d: leader %q not a valid node id in [0,%d)", epoch, leader, n)
		}
	}
}

func TestQuorumThreshold(t *testing.T) {
	cases := []struct {
		n    int
		want int
	}{
		{1, 1},
		{3, 2},
		{4, 3},
		{5, 4},
		{6, 4},
		{7, 5},
		{9, 6},
	}
	for _, c := range cases {
		got := QuorumThreshold(c.n)
		if got != c.want {
			t.Errorf("QuorumThreshold(%d) = %d, want %d", c.n, got, c.want)
		}
	}
}
