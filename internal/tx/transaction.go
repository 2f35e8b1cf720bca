// Package tx builds, signs, and serializes legacy-format transactions
// for submission over JSON-RPC.
package tx

import (
	"encoding/base64"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/me/solbatch/internal/keys"
)

// AccountMeta describes how an instruction touches an account.
type AccountMeta struct {
	Pubkey   keys.Pubkey
	Signer   bool
	Writable bool
}

// Instruction is one program invocation inside a transaction.
type Instruction struct {
	ProgramID keys.Pubkey
	Accounts  []AccountMeta
	Data      []byte
}

// BuildAndSign compiles the instructions into a signed legacy
// transaction. The fee payer signs first and determines the transaction
// signature; every other required signer must appear among extraSigners.
// It returns the base64 wire form (for sendTransaction) and the base58
// transaction signature.
func BuildAndSign(instrs []Instruction, payer keys.Keypair, recentBlockhash string, extraSigners ...keys.Keypair) (wire string, signature string, err error) {
	if len(instrs) == 0 {
		return "", "", fmt.Errorf("no instructions")
	}
	blockhash, err := base58.Decode(recentBlockhash)
	if err != nil || len(blockhash) != 32 {
		return "", "", fmt.Errorf("invalid recent blockhash %q", recentBlockhash)
	}

	accounts := compileAccounts(payer.Pub(), instrs)
	msg := serializeMessage(accounts, blockhash, instrs)

	signers := append([]keys.Keypair{payer}, extraSigners...)
	var sigs [][64]byte
	for _, acc := range accounts {
		if !acc.Signer {
			break // signers are sorted to the front
		}
		kp, ok := findSigner(signers, acc.Pubkey)
		if !ok {
			return "", "", fmt.Errorf("missing signer for account %s", acc.Pubkey)
		}
		sigs = append(sigs, kp.Sign(msg))
	}

	out := appendShortvec(nil, len(sigs))
	for _, sig := range sigs {
		out = append(out, sig[:]...)
	}
	out = append(out, msg...)

	return base64.StdEncoding.EncodeToString(out), base58.Encode(sigs[0][:]), nil
}

// compileAccounts merges every account referenced by the instructions
// (program ids included) into the message account table: fee payer
// first, then the remaining signers, then non-signers, writable before
// read-only within each group, first-reference order otherwise.
func compileAccounts(payer keys.Pubkey, instrs []Instruction) []AccountMeta {
	merged := []AccountMeta{{Pubkey: payer, Signer: true, Writable: true}}
	index := map[keys.Pubkey]int{payer: 0}

	add := func(meta AccountMeta) {
		if i, ok := index[meta.Pubkey]; ok {
			merged[i].Signer = merged[i].Signer || meta.Signer
			merged[i].Writable = merged[i].Writable || meta.Writable
			return
		}
		index[meta.Pubkey] = len(merged)
		merged = append(merged, meta)
	}
	for _, in := range instrs {
		for _, meta := range in.Accounts {
			add(meta)
		}
		add(AccountMeta{Pubkey: in.ProgramID})
	}

	rank := func(m AccountMeta) int {
		switch {
		case m.Pubkey == payer:
			return 0
		case m.Signer && m.Writable:
			return 1
		case m.Signer:
			return 2
		case m.Writable:
			return 3
		default:
			return 4
		}
	}
	// Stable insertion sort keeps first-reference order inside a rank.
	sorted := make([]AccountMeta, 0, len(merged))
	for r := 0; r <= 4; r++ {
		for _, m := range merged {
			if rank(m) == r {
				sorted = append(sorted, m)
			}
		}
	}
	return sorted
}

func serializeMessage(accounts []AccountMeta, blockhash []byte, instrs []Instruction) []byte {
	var numSigners, numReadonlySigned, numReadonlyUnsigned byte
	index := make(map[keys.Pubkey]byte, len(accounts))
	for i, acc := range accounts {
		index[acc.Pubkey] = byte(i)
		switch {
		case acc.Signer && !acc.Writable:
			numSigners++
			numReadonlySigned++
		case acc.Signer:
			numSigners++
		case !acc.Writable:
			numReadonlyUnsigned++
		}
	}

	msg := []byte{numSigners, numReadonlySigned, numReadonlyUnsigned}
	msg = appendShortvec(msg, len(accounts))
	for _, acc := range accounts {
		msg = append(msg, acc.Pubkey.Bytes()...)
	}
	msg = append(msg, blockhash...)
	msg = appendShortvec(msg, len(instrs))
	for _, in := range instrs {
		msg = append(msg, index[in.ProgramID])
		msg = appendShortvec(msg, len(in.Accounts))
		for _, meta := range in.Accounts {
			msg = append(msg, index[meta.Pubkey])
		}
		msg = appendShortvec(msg, len(in.Data))
		msg = append(msg, in.Data...)
	}
	return msg
}

func findSigner(signers []keys.Keypair, pk keys.Pubkey) (keys.Keypair, bool) {
	for _, kp := range signers {
		if kp.Pub() == pk {
			return kp, true
		}
	}
	return keys.Keypair{}, false
}
