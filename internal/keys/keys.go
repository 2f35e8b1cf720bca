// Package keys holds ed25519 wallet keypairs and their text encodings.
//
// A keypair is the 64-byte ed25519 private key (seed followed by the
// public half), shown to users as a base58 string. The base58 form of
// the 32-byte public half is the account address.
package keys

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
	"gopkg.in/yaml.v3"
)

// Pubkey is a 32-byte ed25519 public key (account address).
type Pubkey [32]byte

// String returns the base58 form of the address.
func (p Pubkey) String() string { return base58.Encode(p[:]) }

// Bytes returns the raw 32 bytes.
func (p Pubkey) Bytes() []byte { return p[:] }

// ParsePubkey decodes a base58 address.
func ParsePubkey(s string) (Pubkey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("decode pubkey %q: %w", s, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return Pubkey{}, fmt.Errorf("pubkey %q: got %d bytes, want %d", s, len(raw), ed25519.PublicKeySize)
	}
	var p Pubkey
	copy(p[:], raw)
	return p, nil
}

// Keypair wraps a 64-byte ed25519 private key.
type Keypair struct {
	priv ed25519.PrivateKey
}

// Generate creates a new random keypair.
func Generate() (Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, fmt.Errorf("generate keypair: %w", err)
	}
	return Keypair{priv: priv}, nil
}

// FromBytes validates and wraps a 64-byte private key. The embedded
// public half must match the seed, same as the solana-cli check.
func FromBytes(raw []byte) (Keypair, error) {
	if len(raw) != ed25519.PrivateKeySize {
		return Keypair{}, fmt.Errorf("keypair: got %d bytes, want %d", len(raw), ed25519.PrivateKeySize)
	}
	priv := ed25519.PrivateKey(append([]byte(nil), raw...))
	derived := priv.Public().(ed25519.PublicKey)
	if !bytes.Equal(derived, raw[ed25519.SeedSize:]) {
		return Keypair{}, fmt.Errorf("keypair: public key half does not match the seed")
	}
	return Keypair{priv: priv}, nil
}

// FromBase58 decodes a base58-encoded 64-byte private key.
func FromBase58(s string) (Keypair, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Keypair{}, fmt.Errorf("decode keypair: %w", err)
	}
	return FromBytes(raw)
}

// Zero reports whether the keypair is unset.
func (k Keypair) Zero() bool { return len(k.priv) == 0 }

// Bytes returns the raw 64-byte private key.
func (k Keypair) Bytes() []byte { return append([]byte(nil), k.priv...) }

// Base58 returns the base58 form of the 64-byte private key.
func (k Keypair) Base58() string { return base58.Encode(k.priv) }

// Pub returns the public key.
func (k Keypair) Pub() Pubkey {
	var p Pubkey
	if !k.Zero() {
		copy(p[:], k.priv.Public().(ed25519.PublicKey))
	}
	return p
}

// Sign signs msg with the private key.
func (k Keypair) Sign(msg []byte) [64]byte {
	var sig [64]byte
	copy(sig[:], ed25519.Sign(k.priv, msg))
	return sig
}

// String renders the keypair as its base58 private key, matching the
// wallet list output format.
func (k Keypair) String() string { return k.Base58() }

// MarshalYAML writes the keypair as a base58 string.
func (k Keypair) MarshalYAML() (any, error) {
	return k.Base58(), nil
}

// UnmarshalYAML reads a base58 keypair string.
func (k *Keypair) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	kp, err := FromBase58(s)
	if err != nil {
		return err
	}
	*k = kp
	return nil
}
