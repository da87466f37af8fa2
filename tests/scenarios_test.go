// Package tests holds end-to-end scenarios spanning multiple packages,
// mirroring the reference driver's integration-level checks.
package tests

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/streamletproto/streamletsim/simconfig"
	"github.com/streamletproto/streamletsim/simulation"
)

// Scenario A: happy path, N=4, epochs 1..8, no failures.
func TestScenarioAHappyPath(t *testing.T) {
	cfg := simconfig.DefaultConfig()
	cfg.NumNodes = 4
	cfg.Epochs = 8
	cfg.MempoolSeedTemplate = 1

	result, err := simulation.Run(cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.AllAgree() {
		t.Fatal("all four nodes must agree on the finalized log")
	}
	if len(result.FinalizedLogs[0]) == 0 {
		t.Fatal("expected at least one finalized transaction over 8 epochs")
	}
}

// Scenario B: leader suppressed at epoch 5, N=4, epochs 1..8. Agreement
// must hold, and the failed run must finalize no more than the clean run.
func TestScenarioBSuppressedLeader(t *testing.T) {
	baseCfg := simconfig.DefaultConfig()
	baseCfg.NumNodes = 4
	baseCfg.Epochs = 8
	baseCfg.MempoolSeedTemplate = 1

	clean, err := simulation.Run(baseCfg, nil)
	if err != nil {
		t.Fatalf("Run (clean): %v", err)
	}

	failCfg := simconfig.DefaultConfig()
	failCfg.NumNodes = 4
	failCfg.Epochs = 8
	failCfg.MempoolSeedTemplate = 1
	failCfg.FailEpochs = []int{5}

	withFail, err := simulation.Run(failCfg, nil)
	if err != nil {
		t.Fatalf("Run (fail): %v", err)
	}

	if !withFail.AllAgree() {
		t.Fatal("all four nodes must agree even with a suppressed leader")
	}
	if len(withFail.FinalizedLogs[0]) > len(clean.FinalizedLogs[0]) {
		t.Errorf("run with a suppressed leader finalized more than the clean run: %d > %d",
			len(withFail.FinalizedLogs[0]), len(clean.FinalizedLogs[0]))
	}
}

func TestFinalizedTransactionsComeFromSomeNodesMempool(t *testing.T) {
	cfg := simconfig.DefaultConfig()
	cfg.NumNodes = 4
	cfg.Epochs = 6
	cfg.MempoolSeedTemplate = 1

	result, err := simulation.Run(cfg, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// The driver seeds {"epoch": e, "from": node_id, "val": e*1000+i} for
	// i < MempoolSeedTemplate into every node's mempool each epoch.
	seeded := make(map[string]bool)
	for e := 1; e <= cfg.Epochs; e++ {
		for id := 0; id < cfg.NumNodes; id++ {
			for i := 0; i < cfg.MempoolSeedTemplate; i++ {
				data, _ := json.Marshal(map[string]any{"epoch": e, "from": strconv.Itoa(id), "val": e*1000 + i})
				seeded[string(data)] = true
			}
		}
	}

	for _, tx := range result.FinalizedLogs[0] {
		if !seeded[string(tx)] {
			t.Errorf("finalized transaction was never seeded into any mempool: %s", tx)
		}
		var v map[string]any
		if err := json.Unmarshal(tx, &v); err != nil {
			t.Fatalf("finalized transaction is not valid JSON: %v", err)
		}
		if _, ok := v["epoch"]; !ok {
			t.Errorf("finalized transaction missing expected 'epoch' field: %s", tx)
		}
	}
}
