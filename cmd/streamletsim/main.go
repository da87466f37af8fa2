// Command streamletsim runs Streamlet consensus simulations and inspects
// their archived results.
package main

import (
	"crypto/sha256"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/streamletproto/streamletsim/block"
	"github.com/streamletproto/streamletsim/internal/logging"
	"github.com/streamletproto/streamletsim/keys"
	"github.com/streamletproto/streamletsim/keystore"
	"github.com/streamletproto/streamletsim/resultstore"
	"github.com/streamletproto/streamletsim/simconfig"
	"github.com/streamletproto/streamletsim/simulation"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	zapLogger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer zapLogger.Sync()
	logging.SetBase(zapLogger)

	var cmdErr error
	switch os.Args[1] {
	case "run":
		cmdErr = runCmd(os.Args[2:])
	case "archive":
		cmdErr = archiveCmd(os.Args[2:])
	case "history":
		cmdErr = historyCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if cmdErr != nil {
		fmt.Fprintln(os.Stderr, cmdErr)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: streamletsim <run|archive|history> [flags]")
}

func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "path to simulation config JSON (overrides other flags if set)")
	nodes := fs.Int("nodes", 4, "number of nodes")
	epochs := fs.Int("epochs", 8, "number of epochs")
	failEpoch := fs.Int("fail-epoch", 0, "epoch whose leader is suppressed (0 → none)")
	fs.Parse(args)

	cfg, err := loadOrBuildConfig(*configPath, *nodes, *epochs, *failEpoch)
	if err != nil {
		return err
	}
	identity, err := buildIdentity(cfg)
	if err != nil {
		return err
	}

	result, err := simulation.Run(cfg, identity)
	if err != nil {
		return fmt.Errorf("run simulation: %w", err)
	}

	for i, nodeID := range result.NodeIDs {
		fmt.Printf("node %s finalized %d transactions\n", nodeID, len(result.FinalizedLogs[i]))
	}
	if result.AllAgree() {
		fmt.Println("all nodes agree on the finalized log")
	} else {
		fmt.Println("WARNING: nodes disagree on the finalized log")
	}
	return nil
}

func archiveCmd(args []string) error {
	fs := flag.NewFlagSet("archive", flag.ExitOnError)
	configPath := fs.String("config", "", "path to simulation config JSON (overrides other flags if set)")
	nodes := fs.Int("nodes", 4, "number of nodes")
	epochs := fs.Int("epochs", 8, "number of epochs")
	failEpoch := fs.Int("fail-epoch", 0, "epoch whose leader is suppressed (0 → none)")
	runID := fs.String("run-id", "", "identifier to archive the result under (required)")
	archiveDir := fs.String("archive-dir", "./archive", "resultstore directory")
	fs.Parse(args)

	if *runID == "" {
		return fmt.Errorf("archive: -run-id is required")
	}

	cfg, err := loadOrBuildConfig(*configPath, *nodes, *epochs, *failEpoch)
	if err != nil {
		return err
	}
	identity, err := buildIdentity(cfg)
	if err != nil {
		return err
	}
	result, err := simulation.Run(cfg, identity)
	if err != nil {
		return fmt.Errorf("run simulation: %w", err)
	}

	store, err := resultstore.Open(*archiveDir)
	if err != nil {
		return err
	}
	defer store.Close()

	rr := resultstore.RunResult{
		RunID:      *runID,
		NumNodes:   cfg.NumNodes,
		Epochs:     cfg.Epochs,
		FailEpochs: cfg.FailEpochs,
		AllAgreed:  result.AllAgree(),
	}
	for i, nodeID := range result.NodeIDs {
		rr.Nodes = append(rr.Nodes, resultstore.NodeResult{
			NodeID:            nodeID,
			FinalizedTxCount:  len(result.FinalizedLogs[i]),
			FinalizedTxHashes: hashTransactions(result.FinalizedLogs[i]),
		})
	}
	if err := store.Put(rr); err != nil {
		return fmt.Errorf("archive run: %w", err)
	}
	fmt.Printf("archived run %q (%d nodes, agreed=%v)\n", *runID, cfg.NumNodes, rr.AllAgreed)
	return nil
}

func historyCmd(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	archiveDir := fs.String("archive-dir", "./archive", "resultstore directory")
	show := fs.String("show", "", "run id to show in detail (omit to list all runs)")
	fs.Parse(args)

	store, err := resultstore.Open(*archiveDir)
	if err != nil {
		return err
	}
	defer store.Close()

	if *show != "" {
		rr, err := store.Get(*show)
		if err != nil {
			return err
		}
		fmt.Printf("run %s: %d nodes, %d epochs, agreed=%v\n", rr.RunID, rr.NumNodes, rr.Epochs, rr.AllAgreed)
		for _, n := range rr.Nodes {
			fmt.Printf("  node %s: %d finalized txs\n", n.NodeID, n.FinalizedTxCount)
		}
		return nil
	}

	ids, err := store.List()
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

func loadOrBuildConfig(configPath string, nodes, epochs, failEpoch int) (*simconfig.Config, error) {
	if configPath != "" {
		return simconfig.Load(configPath)
	}
	cfg := simconfig.DefaultConfig()
	cfg.NumNodes = nodes
	cfg.Epochs = epochs
	if failEpoch > 0 {
		cfg.FailEpochs = []int{failEpoch}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}
	return cfg, nil
}

// buildIdentity returns nil (ephemeral identities) when cfg has no keystore
// directory configured, otherwise an Identity that persists each node's key
// under cfg.KeystoreDir, reusing it on subsequent runs.
func buildIdentity(cfg *simconfig.Config) (simulation.Identity, error) {
	if cfg.KeystoreDir == "" {
		return nil, nil
	}
	password := os.Getenv(cfg.KeystorePasswordEnv)
	if password == "" {
		return nil, fmt.Errorf("keystore: env var %q is unset or empty", cfg.KeystorePasswordEnv)
	}
	if err := os.MkdirAll(cfg.KeystoreDir, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}

	return func(nodeID string) (*keys.KeyManager, error) {
		path := filepath.Join(cfg.KeystoreDir, nodeID+".json")
		if _, err := os.Stat(path); err == nil {
			return keystore.Load(path, password)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("stat keystore for node %s: %w", nodeID, err)
		}
		km, err := keys.New()
		if err != nil {
			return nil, fmt.Errorf("generate identity for node %s: %w", nodeID, err)
		}
		if err := keystore.Save(path, password, km); err != nil {
			return nil, fmt.Errorf("save keystore for node %s: %w", nodeID, err)
		}
		return km, nil
	}, nil
}

func hashTransactions(txs []block.Transaction) []string {
	hashes := make([]string, len(txs))
	for i, tx := range txs {
		sum := sha256.Sum256(tx)
		hashes[i] = hex.EncodeToString(sum[:])
	}
	return hashes
}
