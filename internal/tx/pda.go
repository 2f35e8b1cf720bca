package tx

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"

	"github.com/me/solbatch/internal/keys"
)

// FindProgramAddress derives a program address from the seeds: the
// highest bump seed (counting down from 255) whose hash does not land on
// the ed25519 curve, so no private key can exist for it.
func FindProgramAddress(seeds [][]byte, program keys.Pubkey) (keys.Pubkey, byte, error) {
	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{byte(bump)})
		h.Write(program.Bytes())
		h.Write([]byte("ProgramDerivedAddress"))

		var cand keys.Pubkey
		copy(cand[:], h.Sum(nil))
		if !isOnCurve(cand) {
			return cand, byte(bump), nil
		}
	}
	return keys.Pubkey{}, 0, errors.New("no viable program address bump found")
}

func isOnCurve(p keys.Pubkey) bool {
	_, err := new(edwards25519.Point).SetBytes(p.Bytes())
	return err == nil
}

// AssociatedTokenAddress derives the canonical token account (vault PDA)
// of owner for the given mint.
func AssociatedTokenAddress(owner, mint keys.Pubkey) (keys.Pubkey, error) {
	seeds := [][]byte{owner.Bytes(), TokenProgramID.Bytes(), mint.Bytes()}
	addr, _, err := FindProgramAddress(seeds, AssociatedTokenProgramID)
	if err != nil {
		return keys.Pubkey{}, fmt.Errorf("derive token account for %s: %w", owner, err)
	}
	return addr, nil
}
