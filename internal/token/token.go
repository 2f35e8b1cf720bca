// Package token drives the SPL-style token workflow: deploying a mint,
// minting into holder vaults, and moving balances between them.
package token

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/me/solbatch/internal/keys"
	"github.com/me/solbatch/internal/rpc"
	"github.com/me/solbatch/internal/tx"
)

// Decimals is the fixed decimal count of the deployed token.
const Decimals = 6

// CoinsToSubunits converts a user-facing amount to raw subunits,
// truncating below the smallest representable unit.
func CoinsToSubunits(amount float64) uint64 {
	factor := 1.0
	for i := 0; i < Decimals; i++ {
		factor *= 10
	}
	if amount <= 0 {
		return 0
	}
	return uint64(amount * factor)
}

// SubunitsToCoins converts raw subunits to the user-facing amount.
func SubunitsToCoins(subunits uint64) float64 {
	factor := 1.0
	for i := 0; i < Decimals; i++ {
		factor *= 10
	}
	return float64(subunits) / factor
}

// Client executes token operations against a node. The mint keypair is
// only needed for Deploy; every other operation signs with owner (the
// mint authority) or the transferring wallet.
type Client struct {
	rpc    *rpc.Client
	mint   keys.Keypair
	owner  keys.Keypair
	logger *slog.Logger
}

// NewClient creates a token client bound to a mint and its authority.
func NewClient(rpcClient *rpc.Client, mint, owner keys.Keypair, logger *slog.Logger) *Client {
	return &Client{
		rpc:    rpcClient,
		mint:   mint,
		owner:  owner,
		logger: logger.With("component", "token"),
	}
}

// Mint returns the mint address.
func (c *Client) Mint() keys.Pubkey { return c.mint.Pub() }

// Deploy creates and initializes the mint account, funded by the owner,
// and returns the deploy transaction signature.
func (c *Client) Deploy(ctx context.Context) (string, error) {
	rent, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, tx.MintAccountSize)
	if err != nil {
		return "", fmt.Errorf("rent exemption: %w", err)
	}
	blockhash, err := c.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("latest blockhash: %w", err)
	}

	ownerPub := c.owner.Pub()
	instrs := []tx.Instruction{
		tx.SystemCreateAccount(ownerPub, c.mint.Pub(), rent, tx.MintAccountSize, tx.TokenProgramID),
		tx.TokenInitializeMint(c.mint.Pub(), Decimals, ownerPub, &ownerPub),
	}
	wire, sig, err := tx.BuildAndSign(instrs, c.owner, blockhash, c.mint)
	if err != nil {
		return "", fmt.Errorf("build deploy transaction: %w", err)
	}
	c.logger.Debug("deploying mint", "mint", c.mint.Pub(), "sig", sig)
	return c.rpc.SendTransaction(ctx, wire)
}

// MintTo mints subunits into the holder's vault, creating the vault
// first when needed. The owner pays and signs as mint authority.
func (c *Client) MintTo(ctx context.Context, holder keys.Pubkey, subunits uint64) (string, error) {
	vault, err := tx.AssociatedTokenAddress(holder, c.mint.Pub())
	if err != nil {
		return "", err
	}
	blockhash, err := c.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("latest blockhash: %w", err)
	}

	ownerPub := c.owner.Pub()
	instrs := []tx.Instruction{
		tx.CreateAssociatedTokenAccountIdempotent(ownerPub, vault, holder, c.mint.Pub()),
		tx.TokenMintTo(c.mint.Pub(), vault, ownerPub, subunits),
	}
	wire, sig, err := tx.BuildAndSign(instrs, c.owner, blockhash)
	if err != nil {
		return "", fmt.Errorf("build mint transaction: %w", err)
	}
	c.logger.Debug("minting", "holder", holder, "vault", vault, "subunits", subunits, "sig", sig)
	return c.rpc.SendTransaction(ctx, wire)
}

// Transfer moves subunits from the sender's vault to the recipient's,
// creating the recipient's vault when needed. The sender signs and pays.
func (c *Client) Transfer(ctx context.Context, from keys.Keypair, to keys.Pubkey, subunits uint64) (string, error) {
	fromVault, err := tx.AssociatedTokenAddress(from.Pub(), c.mint.Pub())
	if err != nil {
		return "", err
	}
	toVault, err := tx.AssociatedTokenAddress(to, c.mint.Pub())
	if err != nil {
		return "", err
	}
	blockhash, err := c.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("latest blockhash: %w", err)
	}

	instrs := []tx.Instruction{
		tx.CreateAssociatedTokenAccountIdempotent(from.Pub(), toVault, to, c.mint.Pub()),
		tx.TokenTransfer(fromVault, toVault, from.Pub(), subunits),
	}
	wire, sig, err := tx.BuildAndSign(instrs, from, blockhash)
	if err != nil {
		return "", fmt.Errorf("build transfer transaction: %w", err)
	}
	c.logger.Debug("transferring", "from", from.Pub(), "to", to, "subunits", subunits, "sig", sig)
	return c.rpc.SendTransaction(ctx, wire)
}

// AssociatedBalance returns the holder's vault balance in subunits.
func (c *Client) AssociatedBalance(ctx context.Context, holder keys.Pubkey) (uint64, error) {
	vault, err := tx.AssociatedTokenAddress(holder, c.mint.Pub())
	if err != nil {
		return 0, err
	}
	amount, err := c.rpc.GetTokenAccountBalance(ctx, vault)
	if err != nil {
		return 0, err
	}
	subunits, err := strconv.ParseUint(amount.Amount, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse token amount %q: %w", amount.Amount, err)
	}
	return subunits, nil
}
