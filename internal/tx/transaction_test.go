package tx

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"testing"

	"github.com/mr-tron/base58"

	"github.com/me/solbatch/internal/keys"
)

func TestAppendShortvec(t *testing.T) {
	cases := []struct {
		n    int
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{255, []byte{0xff, 0x01}},
		{16384, []byte{0x80, 0x80, 0x01}},
	}
	for _, tc := range cases {
		if got := appendShortvec(nil, tc.n); !bytes.Equal(got, tc.want) {
			t.Errorf("appendShortvec(%d) = %x, want %x", tc.n, got, tc.want)
		}
	}
}

func TestFindProgramAddressIsDeterministicAndOffCurve(t *testing.T) {
	kp := mustGenerate(t)
	seeds := [][]byte{kp.Pub().Bytes(), []byte("vault")}

	addr1, bump1, err := FindProgramAddress(seeds, TokenProgramID)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	addr2, bump2, err := FindProgramAddress(seeds, TokenProgramID)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	if addr1 != addr2 || bump1 != bump2 {
		t.Error("derivation is not deterministic")
	}
	if isOnCurve(addr1) {
		t.Error("derived address lies on the curve")
	}
}

func TestAssociatedTokenAddressVariesByOwner(t *testing.T) {
	mint := mustGenerate(t).Pub()
	a, err := AssociatedTokenAddress(mustGenerate(t).Pub(), mint)
	if err != nil {
		t.Fatalf("AssociatedTokenAddress: %v", err)
	}
	b, err := AssociatedTokenAddress(mustGenerate(t).Pub(), mint)
	if err != nil {
		t.Fatalf("AssociatedTokenAddress: %v", err)
	}
	if a == b {
		t.Error("different owners derived the same token account")
	}
}

func TestBuildAndSignTransfer(t *testing.T) {
	from := mustGenerate(t)
	to := mustGenerate(t).Pub()
	blockhash := base58.Encode(bytes.Repeat([]byte{7}, 32))

	wire, sig, err := BuildAndSign(
		[]Instruction{SystemTransfer(from.Pub(), to, 1_000_000)},
		from, blockhash,
	)
	if err != nil {
		t.Fatalf("BuildAndSign: %v", err)
	}

	raw, err := base64.StdEncoding.DecodeString(wire)
	if err != nil {
		t.Fatalf("wire is not base64: %v", err)
	}

	// Layout: sig count, 64-byte signature, then the message.
	if raw[0] != 1 {
		t.Fatalf("signature count = %d, want 1", raw[0])
	}
	msg := raw[1+64:]

	// Header: one signer, no read-only signed, one read-only unsigned
	// (the system program).
	if msg[0] != 1 || msg[1] != 0 || msg[2] != 1 {
		t.Errorf("header = %v, want [1 0 1]", msg[:3])
	}
	if msg[3] != 3 {
		t.Fatalf("account count = %d, want 3", msg[3])
	}
	accountAt := func(i int) []byte { return msg[4+32*i : 4+32*(i+1)] }
	if !bytes.Equal(accountAt(0), from.Pub().Bytes()) {
		t.Error("fee payer is not the first account")
	}
	if !bytes.Equal(accountAt(1), to.Bytes()) {
		t.Error("recipient is not the second account")
	}
	if !bytes.Equal(accountAt(2), SystemProgramID.Bytes()) {
		t.Error("system program is not the last account")
	}
	if !bytes.Equal(msg[4+32*3:4+32*3+32], bytes.Repeat([]byte{7}, 32)) {
		t.Error("recent blockhash not embedded")
	}

	// The signature covers the serialized message.
	if !ed25519.Verify(ed25519.PublicKey(from.Pub().Bytes()), msg, raw[1:65]) {
		t.Error("signature does not verify over the message")
	}
	sigRaw, err := base58.Decode(sig)
	if err != nil || !bytes.Equal(sigRaw, raw[1:65]) {
		t.Error("returned signature does not match the wire signature")
	}
}

func TestBuildAndSignRequiresAllSigners(t *testing.T) {
	payer := mustGenerate(t)
	mint := mustGenerate(t)
	create := SystemCreateAccount(payer.Pub(), mint.Pub(), 1_000, MintAccountSize, TokenProgramID)

	blockhash := base58.Encode(bytes.Repeat([]byte{1}, 32))

	// Mint keypair missing: the new account must sign CreateAccount.
	if _, _, err := BuildAndSign([]Instruction{create}, payer, blockhash); err == nil {
		t.Error("expected a missing-signer error")
	}

	// With the mint provided the transaction carries two signatures.
	wire, _, err := BuildAndSign([]Instruction{create}, payer, blockhash, mint)
	if err != nil {
		t.Fatalf("BuildAndSign: %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(wire)
	if err != nil {
		t.Fatalf("decode wire: %v", err)
	}
	if raw[0] != 2 {
		t.Errorf("signature count = %d, want 2", raw[0])
	}
}

func mustGenerate(t *testing.T) keys.Keypair {
	t.Helper()
	kp, err := keys.Generate()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	return kp
}
