package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/me/solbatch/internal/keys"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func generate(t *testing.T) keys.Keypair {
	t.Helper()
	kp, err := keys.Generate()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	return kp
}

func validConfigYAML(t *testing.T) (string, []keys.Keypair) {
	t.Helper()
	owner, mint := generate(t), generate(t)
	w1, w2 := generate(t), generate(t)
	body := fmt.Sprintf(`rpc:
  uri: http://localhost:8899
token:
  owner: %s
  mint: %s
wallets:
  - %s
  - %s
test:
  transfers:
    sols:
      - {from: 0, to: 1, amount: 0.5}
    tokens:
      - {from: 1, to: 0, amount: 2}
`, owner.Base58(), mint.Base58(), w1.Base58(), w2.Base58())
	return body, []keys.Keypair{owner, mint, w1, w2}
}

func TestLoadParsesFullConfig(t *testing.T) {
	body, kps := validConfigYAML(t)
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RPC.URI != "http://localhost:8899" {
		t.Errorf("rpc.uri = %s", cfg.RPC.URI)
	}
	if cfg.Token.Owner.Pub() != kps[0].Pub() || cfg.Token.Mint.Pub() != kps[1].Pub() {
		t.Error("token keypairs did not roundtrip")
	}
	if len(cfg.Wallets) != 2 {
		t.Fatalf("wallets = %d, want 2", len(cfg.Wallets))
	}
	if cfg.Wallets[0].Pub() != kps[2].Pub() {
		t.Error("wallet 0 did not roundtrip")
	}
	if len(cfg.Test.Transfers.Sols) != 1 || cfg.Test.Transfers.Sols[0].Amount != 0.5 {
		t.Errorf("sols transfers = %+v", cfg.Test.Transfers.Sols)
	}
	if len(cfg.Test.Transfers.Tokens) != 1 || cfg.Test.Transfers.Tokens[0].From != 1 {
		t.Errorf("tokens transfers = %+v", cfg.Test.Transfers.Tokens)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("Load(\"\") succeeded")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of a missing file succeeded")
	}
	if _, err := Load(writeConfig(t, "rpc: [broken")); err == nil {
		t.Error("Load of broken YAML succeeded")
	}
	if _, err := Load(writeConfig(t, "wallets:\n  - not-a-keypair\n")); err == nil {
		t.Error("Load accepted an invalid keypair")
	}
}

func TestValidate(t *testing.T) {
	owner, mint := generate(t), generate(t)
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"valid", Config{RPC: RPCConfig{URI: "http://localhost:8899"}, Token: TokenConfig{Owner: owner, Mint: mint}}, true},
		{"missing uri", Config{Token: TokenConfig{Owner: owner, Mint: mint}}, false},
		{"bad uri", Config{RPC: RPCConfig{URI: "::"}, Token: TokenConfig{Owner: owner, Mint: mint}}, false},
		{"missing owner", Config{RPC: RPCConfig{URI: "http://localhost:8899"}, Token: TokenConfig{Mint: mint}}, false},
		{"missing mint", Config{RPC: RPCConfig{URI: "http://localhost:8899"}, Token: TokenConfig{Owner: owner}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.ok && err != nil {
				t.Errorf("Validate: %v", err)
			}
			if !tc.ok && err == nil {
				t.Error("Validate accepted an invalid config")
			}
		})
	}
}

func TestCheckWalletIndex(t *testing.T) {
	cfg := Config{Wallets: []keys.Keypair{generate(t), generate(t)}}
	if err := cfg.CheckWalletIndex(1); err != nil {
		t.Errorf("CheckWalletIndex(1): %v", err)
	}
	if err := cfg.CheckWalletIndex(2); err == nil {
		t.Error("CheckWalletIndex(2) accepted an out-of-range index")
	}
	if err := cfg.CheckWalletIndex(-1); err == nil {
		t.Error("CheckWalletIndex(-1) accepted a negative index")
	}
}

func TestRenderRedactsKeypairs(t *testing.T) {
	body, kps := validConfigYAML(t)
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	redacted, err := cfg.Render(false)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if strings.Contains(redacted, kps[0].Base58()) {
		t.Error("redacted render leaks the owner keypair")
	}
	if !strings.Contains(redacted, kps[0].Pub().String()) {
		t.Error("redacted render misses the owner pubkey")
	}

	full, err := cfg.Render(true)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(full, kps[0].Base58()) {
		t.Error("full render misses the owner keypair")
	}
}
