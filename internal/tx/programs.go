package tx

import (
	"encoding/binary"

	"github.com/me/solbatch/internal/keys"
)

// Well-known program and sysvar addresses.
var (
	SystemProgramID          = mustPubkey("11111111111111111111111111111111")
	TokenProgramID           = mustPubkey("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
	AssociatedTokenProgramID = mustPubkey("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	MemoProgramID            = mustPubkey("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")
	SysvarRentID             = mustPubkey("SysvarRent111111111111111111111111111111111")
)

// MintAccountSize is the byte size of an SPL token mint account.
const MintAccountSize = 82

func mustPubkey(s string) keys.Pubkey {
	p, err := keys.ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return p
}

// SystemTransfer moves lamports between system accounts.
func SystemTransfer(from, to keys.Pubkey, lamports uint64) Instruction {
	data := make([]byte, 4, 12)
	binary.LittleEndian.PutUint32(data, 2) // Transfer
	data = binary.LittleEndian.AppendUint64(data, lamports)
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			{Pubkey: from, Signer: true, Writable: true},
			{Pubkey: to, Writable: true},
		},
		Data: data,
	}
}

// SystemCreateAccount creates a new account funded by from and owned by
// the given program.
func SystemCreateAccount(from, newAccount keys.Pubkey, lamports, space uint64, owner keys.Pubkey) Instruction {
	data := make([]byte, 4, 52)
	binary.LittleEndian.PutUint32(data, 0) // CreateAccount
	data = binary.LittleEndian.AppendUint64(data, lamports)
	data = binary.LittleEndian.AppendUint64(data, space)
	data = append(data, owner.Bytes()...)
	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			{Pubkey: from, Signer: true, Writable: true},
			{Pubkey: newAccount, Signer: true, Writable: true},
		},
		Data: data,
	}
}

// Memo attaches a UTF-8 note to the transaction.
func Memo(text string) Instruction {
	return Instruction{
		ProgramID: MemoProgramID,
		Data:      []byte(text),
	}
}

// TokenInitializeMint initializes a fresh mint account.
func TokenInitializeMint(mint keys.Pubkey, decimals byte, mintAuthority keys.Pubkey, freezeAuthority *keys.Pubkey) Instruction {
	data := make([]byte, 0, 67)
	data = append(data, 0, decimals) // InitializeMint
	data = append(data, mintAuthority.Bytes()...)
	if freezeAuthority != nil {
		data = append(data, 1)
		data = append(data, freezeAuthority.Bytes()...)
	} else {
		data = append(data, 0)
	}
	return Instruction{
		ProgramID: TokenProgramID,
		Accounts: []AccountMeta{
			{Pubkey: mint, Writable: true},
			{Pubkey: SysvarRentID},
		},
		Data: data,
	}
}

// TokenMintTo mints subunits into a token account. The mint authority
// must sign.
func TokenMintTo(mint, dest, authority keys.Pubkey, amount uint64) Instruction {
	data := make([]byte, 1, 9)
	data[0] = 7 // MintTo
	data = binary.LittleEndian.AppendUint64(data, amount)
	return Instruction{
		ProgramID: TokenProgramID,
		Accounts: []AccountMeta{
			{Pubkey: mint, Writable: true},
			{Pubkey: dest, Writable: true},
			{Pubkey: authority, Signer: true},
		},
		Data: data,
	}
}

// TokenTransfer moves subunits between token accounts. The source owner
// must sign.
func TokenTransfer(source, dest, owner keys.Pubkey, amount uint64) Instruction {
	data := make([]byte, 1, 9)
	data[0] = 3 // Transfer
	data = binary.LittleEndian.AppendUint64(data, amount)
	return Instruction{
		ProgramID: TokenProgramID,
		Accounts: []AccountMeta{
			{Pubkey: source, Writable: true},
			{Pubkey: dest, Writable: true},
			{Pubkey: owner, Signer: true},
		},
		Data: data,
	}
}

// CreateAssociatedTokenAccountIdempotent creates the owner's associated
// token account for mint if it does not exist yet. ata must be the
// address from AssociatedTokenAddress.
func CreateAssociatedTokenAccountIdempotent(payer, ata, owner, mint keys.Pubkey) Instruction {
	return Instruction{
		ProgramID: AssociatedTokenProgramID,
		Accounts: []AccountMeta{
			{Pubkey: payer, Signer: true, Writable: true},
			{Pubkey: ata, Writable: true},
			{Pubkey: owner},
			{Pubkey: mint},
			{Pubkey: SystemProgramID},
			{Pubkey: TokenProgramID},
		},
		Data: []byte{1}, // CreateIdempotent
	}
}
