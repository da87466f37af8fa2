package mempool

import (
	"encoding/json"
	"testing"

	"github.com/streamletproto/streamletsim/block"
)

func tx(v int) block.Transaction {
	data, _ := json.Marshal(map[string]int{"v": v})
	return data
}

func TestPendingPreservesInsertionOrder(t *testing.T) {
	m := New()
	m.Add(tx(1))
	m.Add(tx(2))
	m.Add(tx(3))

	got := m.Pending(-1)
	if len(got) != 3 {
		t.Fatalf("expected 3 pending, got %d", len(got))
	}
	for i, want := range []int{1, 2, 3} {
		var v map[string]int
		if err := json.Unmarshal(got[i], &v); err != nil {
			t.Fatal(err)
		}
		if v["v"] != want {
			t.Errorf("index %d: got %d want %d", i, v["v"], want)
		}
	}
}

func TestEmptyMempool(t *testing.T) {
	m := New()
	if m.Size() != 0 {
		t.Error("new mempool should be empty")
	}
	if len(m.Pending(-1)) != 0 {
		t.Error("pending on empty mempool should be empty")
	}
}
