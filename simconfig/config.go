// Package simconfig loads and validates the declarative configuration for a
// single simulation run: node count, epoch plan, and injected leader
// failures.
package simconfig

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds all parameters for one simulation run.
type Config struct {
	NumNodes            int    `json:"num_nodes"`
	Epochs              int    `json:"epochs"`
	FailEpochs          []int  `json:"fail_epochs,omitempty"`          // epochs whose leader is suppressed
	MempoolSeedTemplate int    `json:"mempool_seed_template"`          // synthetic txs appended per node per epoch
	KeystoreDir         string `json:"keystore_dir,omitempty"`         // "" → ephemeral in-memory identities
	KeystorePasswordEnv string `json:"keystore_password_env,omitempty"` // env var holding the keystore passphrase
}

// DefaultConfig returns a small, fast development run: 4 nodes, 8 epochs, no
// failures, one synthetic transaction per node per epoch.
func DefaultConfig() *Config {
	return &Config{
		NumNodes:            4,
		Epochs:              8,
		MempoolSeedTemplate: 1,
	}
}

// Load reads a JSON config file from path and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that every field is in range and that the keystore
// settings are consistent. It does not check which fields a loaded file
// set: absent fields keep their DefaultConfig values.
func (c *Config) Validate() error {
	if c.NumNodes < 1 {
		return fmt.Errorf("num_nodes must be >= 1, got %d", c.NumNodes)
	}
	if c.Epochs < 1 {
		return fmt.Errorf("epochs must be >= 1, got %d", c.Epochs)
	}
	if c.MempoolSeedTemplate < 0 {
		return fmt.Errorf("mempool_seed_template must be >= 0, got %d", c.MempoolSeedTemplate)
	}
	for _, e := range c.FailEpochs {
		if e < 1 || e > c.Epochs {
			return fmt.Errorf("fail_epochs entry %d out of range [1,%d]", e, c.Epochs)
		}
	}
	if c.KeystoreDir != "" && c.KeystorePasswordEnv == "" {
		return fmt.Errorf("keystore_password_env must be set when keystore_dir is set")
	}
	return nil
}

// Save writes the config to path as formatted JSON.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// FailSet returns FailEpochs as a lookup set.
func (c *Config) FailSet() map[int]struct{} {
	out := make(map[int]struct{}, len(c.FailEpochs))
	for _, e := range c.FailEpochs {
		out[e] = struct{}{}
	}
	return out
}
