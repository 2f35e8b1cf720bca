package cli

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/me/solbatch/internal/keys"
	"github.com/me/solbatch/internal/rpc"
	"github.com/me/solbatch/internal/store"
	"github.com/me/solbatch/internal/token"
	"github.com/me/solbatch/internal/worker"
	"github.com/spf13/cobra"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Deploy the configured token and manage its balances",
	}
	cmd.AddCommand(
		newTokenDeployCmd(),
		newTokenMintCmd(),
		newTokenBalancesCmd(),
	)
	return cmd
}

func newTokenDeployCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Create and initialize the token mint from the config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp()
			if err != nil {
				return err
			}
			rec := openRecorder()
			defer rec.close()

			tc := app.tokenClient()
			ctx := cmd.Context()

			sig, err := tc.Deploy(ctx)
			if err != nil {
				return fmt.Errorf("deploying token: %w", err)
			}
			rec.record(ctx, &store.Record{
				Kind:      store.KindDeploy,
				Signature: sig,
				From:      app.cfg.Token.Owner.Pub().String(),
				To:        tc.Mint().String(),
			})
			fmt.Printf("mint %s: deploy submitted, signature %s\n", tc.Mint(), sig)

			if err := app.rpc.WaitForSignature(ctx, sig, rpc.CommitmentConfirmed); err != nil {
				rec.mark(ctx, sig, store.StatusFailed)
				return fmt.Errorf("confirming deploy: %w", err)
			}
			rec.mark(ctx, sig, store.StatusConfirmed)
			fmt.Printf("mint %s: deploy confirmed\n", tc.Mint())
			return nil
		},
	}
}

func newTokenMintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mint <holder> <amount>",
		Short: "Mint tokens to a holder (wallet index or base58 pubkey)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp()
			if err != nil {
				return err
			}

			holder, err := resolveHolder(app, args[0])
			if err != nil {
				return err
			}
			amount, err := strconv.ParseFloat(args[1], 64)
			if err != nil || amount <= 0 {
				return fmt.Errorf("amount must be a positive number, got %q", args[1])
			}
			subunits := token.CoinsToSubunits(amount)

			rec := openRecorder()
			defer rec.close()

			tc := app.tokenClient()
			ctx := cmd.Context()

			sig, err := tc.MintTo(ctx, holder, subunits)
			if err != nil {
				return fmt.Errorf("minting to %s: %w", holder, err)
			}
			rec.record(ctx, &store.Record{
				Kind:      store.KindMint,
				Signature: sig,
				From:      app.cfg.Token.Owner.Pub().String(),
				To:        holder.String(),
				Amount:    subunits,
			})
			fmt.Printf("minted %v tokens to %s, signature %s\n", amount, holder, sig)

			if err := app.rpc.WaitForSignature(ctx, sig, rpc.CommitmentConfirmed); err != nil {
				rec.mark(ctx, sig, store.StatusFailed)
				return fmt.Errorf("confirming mint: %w", err)
			}
			rec.mark(ctx, sig, store.StatusConfirmed)
			return nil
		},
	}
}

// resolveHolder accepts either a wallet index from the config or a raw
// base58 public key.
func resolveHolder(app *app, arg string) (keys.Pubkey, error) {
	if i, err := strconv.Atoi(arg); err == nil {
		kp, err := app.wallet(i)
		if err != nil {
			return keys.Pubkey{}, err
		}
		return kp.Pub(), nil
	}
	pub, err := keys.ParsePubkey(arg)
	if err != nil {
		return keys.Pubkey{}, fmt.Errorf("holder %q is neither a wallet index nor a pubkey: %w", arg, err)
	}
	return pub, nil
}

type tokenBalanceRow struct {
	idx      int
	label    string
	pub      keys.Pubkey
	subunits uint64
	err      error
}

func newTokenBalancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Print the token balance of every wallet and the token owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp()
			if err != nil {
				return err
			}
			tc := app.tokenClient()

			w := worker.New[tokenBalanceRow]()
			push := func(idx int, label string, pub keys.Pubkey) {
				w.Push(func(ctx context.Context) tokenBalanceRow {
					row := tokenBalanceRow{idx: idx, label: label, pub: pub}
					row.subunits, row.err = tc.AssociatedBalance(ctx, pub)
					return row
				})
			}
			for i, kp := range app.cfg.Wallets {
				push(i, fmt.Sprintf("wallet %d", i), kp.Pub())
			}
			push(len(app.cfg.Wallets), "token owner", app.cfg.Token.Owner.Pub())

			rows, err := w.RunAllJoinedAndCollectResults(cmd.Context())
			if err != nil {
				return err
			}
			sort.Slice(rows, func(i, j int) bool { return rows[i].idx < rows[j].idx })

			for _, row := range rows {
				if row.err != nil {
					logger.Error("token balance query failed", "account", row.pub, "error", row.err)
					continue
				}
				fmt.Printf("%-12s %s: %v tokens\n", row.label, row.pub, token.SubunitsToCoins(row.subunits))
			}
			return nil
		},
	}
}
