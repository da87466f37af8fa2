package simconfig

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestValidateRejectsZeroNodes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.NumNodes = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for num_nodes = 0")
	}
}

func TestValidateRejectsOutOfRangeFailEpoch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Epochs = 5
	cfg.FailEpochs = []int{6}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for fail epoch beyond epochs")
	}
}

func TestValidateRequiresPasswordEnvWithKeystoreDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.KeystoreDir = "/tmp/keys"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error when keystore_dir is set without keystore_password_env")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := DefaultConfig()
	cfg.NumNodes = 7
	cfg.FailEpochs = []int{3}

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.NumNodes != 7 {
		t.Errorf("NumNodes: got %d want 7", loaded.NumNodes)
	}
	if len(loaded.FailEpochs) != 1 || loaded.FailEpochs[0] != 3 {
		t.Errorf("FailEpochs: got %v want [3]", loaded.FailEpochs)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error loading a nonexistent config file")
	}
}

func TestFailSet(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FailEpochs = []int{2, 4}
	set := cfg.FailSet()
	if _, ok := set[2]; !ok {
		t.Error("expected epoch 2 in fail set")
	}
	if _, ok := set[3]; ok {
		t.Error("epoch 3 should not be in fail set")
	}
}
