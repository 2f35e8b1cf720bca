// Package config loads the YAML configuration the batch commands work
// from: the node endpoint, the token authority keypairs, the wallet set,
// and the scripted transfer cases.
package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/me/solbatch/internal/keys"
)

// EnvConfigPath is consulted when no --config flag is given.
const EnvConfigPath = "SOLBATCH_CONFIG"

// Config is the full configuration file.
type Config struct {
	RPC     RPCConfig      `yaml:"rpc"`
	Token   TokenConfig    `yaml:"token"`
	Wallets []keys.Keypair `yaml:"wallets"`
	Test    TestConfig     `yaml:"test"`
}

// RPCConfig points at the node.
type RPCConfig struct {
	URI string `yaml:"uri"`
}

// TokenConfig holds the token authority and mint keypairs.
type TokenConfig struct {
	Owner keys.Keypair `yaml:"owner"`
	Mint  keys.Keypair `yaml:"mint"`
}

// TestConfig holds scripted batch-transfer cases.
type TestConfig struct {
	Transfers TransferCases `yaml:"transfers"`
}

// TransferCases lists the SOL and token transfer scripts.
type TransferCases struct {
	Sols   []TransferCase `yaml:"sols"`
	Tokens []TransferCase `yaml:"tokens"`
}

// TransferCase is one scripted transfer between wallet indexes.
type TransferCase struct {
	From   int     `yaml:"from"`
	To     int     `yaml:"to"`
	Amount float64 `yaml:"amount"`
}

// DefaultPath returns the config path from the environment, or "".
func DefaultPath() string {
	return os.Getenv(EnvConfigPath)
}

// Load reads, parses, and validates a config file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("no config file: pass --config or set %s", EnvConfigPath)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the parts every config needs; per-command constraints
// (wallet indexes in transfer cases) are checked by the commands that
// use them.
func (c *Config) Validate() error {
	if c.RPC.URI == "" {
		return fmt.Errorf("rpc.uri is required")
	}
	u, err := url.Parse(c.RPC.URI)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("rpc.uri %q is not a valid URL", c.RPC.URI)
	}
	if c.Token.Owner.Zero() {
		return fmt.Errorf("token.owner keypair is required")
	}
	if c.Token.Mint.Zero() {
		return fmt.Errorf("token.mint keypair is required")
	}
	return nil
}

// CheckWalletIndex validates a transfer-case wallet index.
func (c *Config) CheckWalletIndex(i int) error {
	if i < 0 || i >= len(c.Wallets) {
		return fmt.Errorf("wallet index %d out of range (%d wallets)", i, len(c.Wallets))
	}
	return nil
}

// Render returns the config as YAML. Without secrets, keypairs are
// replaced by their public keys so the output is safe to share.
func (c *Config) Render(secrets bool) (string, error) {
	var doc any = c
	if !secrets {
		wallets := make([]string, len(c.Wallets))
		for i, kp := range c.Wallets {
			wallets[i] = kp.Pub().String()
		}
		doc = map[string]any{
			"rpc": map[string]any{"uri": c.RPC.URI},
			"token": map[string]any{
				"owner": c.Token.Owner.Pub().String(),
				"mint":  c.Token.Mint.Pub().String(),
			},
			"wallets": wallets,
			"test":    c.Test,
		}
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("render config: %w", err)
	}
	return string(out), nil
}
