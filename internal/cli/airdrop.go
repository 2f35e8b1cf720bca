package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/me/solbatch/internal/keys"
	"github.com/me/solbatch/internal/rpc"
	"github.com/me/solbatch/internal/store"
	"github.com/me/solbatch/internal/worker"
	"github.com/spf13/cobra"
)

type airdropResult struct {
	label     string
	pub       keys.Pubkey
	signature string
	err       error
}

func newAirdropCmd() *cobra.Command {
	var confirm bool

	cmd := &cobra.Command{
		Use:   "airdrop <sols>",
		Short: "Request an airdrop to every wallet and the token owner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sols, err := strconv.ParseFloat(args[0], 64)
			if err != nil || sols <= 0 {
				return fmt.Errorf("sols must be a positive number, got %q", args[0])
			}
			lamports := solToLamports(sols)

			app, err := loadApp()
			if err != nil {
				return err
			}
			rec := openRecorder()
			defer rec.close()

			w := worker.New[airdropResult]()
			push := func(label string, pub keys.Pubkey) {
				w.Push(func(ctx context.Context) airdropResult {
					res := airdropResult{label: label, pub: pub}
					res.signature, res.err = app.rpc.RequestAirdrop(ctx, pub, lamports)
					if res.err != nil {
						logger.Error("airdrop request failed", "account", pub, "error", res.err)
						return res
					}
					rec.record(ctx, &store.Record{
						Kind:      store.KindAirdrop,
						Signature: res.signature,
						To:        pub.String(),
						Amount:    lamports,
					})
					fmt.Printf("%s %s: requested %v SOL, signature %s\n", res.label, pub, sols, res.signature)
					return res
				})
			}
			for i, kp := range app.cfg.Wallets {
				push(fmt.Sprintf("wallet %d", i), kp.Pub())
			}
			push("token owner", app.cfg.Token.Owner.Pub())

			results, err := w.RunAllJoinedAndCollectResults(cmd.Context())
			if err != nil {
				return err
			}
			if !confirm {
				return nil
			}

			// Second round, wait for every successful request to finalize.
			cw := worker.New[struct{}]()
			for _, res := range results {
				if res.err != nil {
					continue
				}
				cw.Push(func(ctx context.Context) struct{} {
					if err := app.rpc.WaitForSignature(ctx, res.signature, rpc.CommitmentFinalized); err != nil {
						logger.Error("airdrop confirmation failed", "account", res.pub, "signature", res.signature, "error", err)
						rec.mark(ctx, res.signature, store.StatusFailed)
						return struct{}{}
					}
					rec.mark(ctx, res.signature, store.StatusFinalized)
					fmt.Printf("%s %s: airdrop finalized\n", res.label, res.pub)
					return struct{}{}
				})
			}
			return cw.RunAllJoined(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&confirm, "confirm", false, "Wait until every airdrop is finalized")
	return cmd
}
