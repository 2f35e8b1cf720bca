package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/me/solbatch/internal/config"
	"github.com/me/solbatch/internal/keys"
	"github.com/me/solbatch/internal/rpc"
	"github.com/me/solbatch/internal/store"
	"github.com/me/solbatch/internal/token"
	"github.com/me/solbatch/internal/tx"
	"github.com/me/solbatch/internal/worker"
	"github.com/spf13/cobra"
)

// tokenBatchSize caps how many token transfers are in flight at once so
// a large script does not flood the node.
const tokenBatchSize = 32

func newTransferCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Run the scripted transfer batches from the config",
	}
	cmd.AddCommand(
		newTransferSolsCmd(),
		newTransferTokensCmd(),
	)
	return cmd
}

func newTransferSolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sols",
		Short: "Run every SOL transfer case concurrently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp()
			if err != nil {
				return err
			}
			rec := openRecorder()
			defer rec.close()

			w := worker.New[struct{}]()
			for i, tc := range app.cfg.Test.Transfers.Sols {
				from, to, err := resolveCase(app, tc)
				if err != nil {
					logger.Warn("skipping transfer case", "case", i, "error", err)
					continue
				}
				w.Push(func(ctx context.Context) struct{} {
					runSolTransfer(ctx, app, rec, i, from, to, tc.Amount)
					return struct{}{}
				})
			}
			logger.Info("submitting sol transfers", "cases", w.Len(), "lanes", w.Lanes())
			return w.RunAllJoined(cmd.Context())
		},
	}
}

func newTransferTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens",
		Short: "Run every token transfer case in bounded batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp()
			if err != nil {
				return err
			}
			rec := openRecorder()
			defer rec.close()

			tc := app.tokenClient()

			w := worker.New[struct{}]()
			for i, c := range app.cfg.Test.Transfers.Tokens {
				from, to, err := resolveCase(app, c)
				if err != nil {
					logger.Warn("skipping transfer case", "case", i, "error", err)
					continue
				}
				w.Push(func(ctx context.Context) struct{} {
					runTokenTransfer(ctx, app, tc, rec, i, from, to.Pub(), c.Amount)
					return struct{}{}
				})
			}
			logger.Info("submitting token transfers", "cases", w.Len(), "batch", tokenBatchSize)
			return w.RunSingleThreaded(cmd.Context(), tokenBatchSize)
		},
	}
}

func resolveCase(app *app, tc config.TransferCase) (from, to keys.Keypair, err error) {
	if from, err = app.wallet(tc.From); err != nil {
		return
	}
	to, err = app.wallet(tc.To)
	return
}

// runSolTransfer performs one scripted SOL transfer end to end. Errors
// are reported here rather than returned so one bad case never takes
// down the rest of the batch.
func runSolTransfer(ctx context.Context, app *app, rec *recorder, caseNo int, from, to keys.Keypair, sols float64) {
	lamports := solToLamports(sols)
	log := logger.With("case", caseNo, "from", from.Pub(), "to", to.Pub())

	balance, err := app.rpc.GetBalance(ctx, from.Pub())
	if err != nil {
		log.Error("balance query failed", "error", err)
		return
	}
	if balance < lamports {
		log.Error("insufficient balance", "have", balance, "need", lamports)
		return
	}

	blockhash, err := app.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		log.Error("blockhash query failed", "error", err)
		return
	}

	wire, _, err := tx.BuildAndSign([]tx.Instruction{
		tx.SystemTransfer(from.Pub(), to.Pub(), lamports),
		tx.Memo(fmt.Sprintf("solbatch transfer %d", caseNo)),
	}, from, blockhash)
	if err != nil {
		log.Error("building transaction failed", "error", err)
		return
	}

	start := time.Now()
	sig, err := app.rpc.SendTransaction(ctx, wire)
	if err != nil {
		log.Error("submit failed", "error", err)
		return
	}
	rec.record(ctx, &store.Record{
		Kind:      store.KindTransferSOL,
		Signature: sig,
		From:      from.Pub().String(),
		To:        to.Pub().String(),
		Amount:    lamports,
	})
	fmt.Printf("case %d: %v SOL %s -> %s, signature %s\n", caseNo, sols, from.Pub(), to.Pub(), sig)

	if err := app.rpc.WaitForSignature(ctx, sig, rpc.CommitmentConfirmed); err != nil {
		log.Error("confirmation failed", "signature", sig, "error", err)
		rec.mark(ctx, sig, store.StatusFailed)
		return
	}
	rec.mark(ctx, sig, store.StatusConfirmed)
	confirmed := time.Since(start)

	if err := app.rpc.WaitForSignature(ctx, sig, rpc.CommitmentFinalized); err != nil {
		log.Error("finalization failed", "signature", sig, "error", err)
		rec.mark(ctx, sig, store.StatusFailed)
		return
	}
	rec.mark(ctx, sig, store.StatusFinalized)
	fmt.Printf("case %d: confirmed in %v, finalized in %v\n", caseNo, confirmed, time.Since(start))
}

func runTokenTransfer(ctx context.Context, app *app, tc *token.Client, rec *recorder, caseNo int, from keys.Keypair, to keys.Pubkey, amount float64) {
	subunits := token.CoinsToSubunits(amount)
	log := logger.With("case", caseNo, "from", from.Pub(), "to", to)

	sig, err := tc.Transfer(ctx, from, to, subunits)
	if err != nil {
		log.Error("token transfer failed", "error", err)
		return
	}
	rec.record(ctx, &store.Record{
		Kind:      store.KindTransferToken,
		Signature: sig,
		From:      from.Pub().String(),
		To:        to.String(),
		Amount:    subunits,
	})
	fmt.Printf("case %d: %v tokens %s -> %s, signature %s\n", caseNo, amount, from.Pub(), to, sig)

	if err := app.rpc.WaitForSignature(ctx, sig, rpc.CommitmentConfirmed); err != nil {
		log.Error("confirmation failed", "signature", sig, "error", err)
		rec.mark(ctx, sig, store.StatusFailed)
		return
	}
	rec.mark(ctx, sig, store.StatusConfirmed)
}
