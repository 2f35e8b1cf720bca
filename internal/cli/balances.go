package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/me/solbatch/internal/keys"
	"github.com/me/solbatch/internal/worker"
	"github.com/spf13/cobra"
)

type balanceRow struct {
	idx      int
	label    string
	pub      keys.Pubkey
	lamports uint64
	err      error
}

func newBalancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balances",
		Short: "Print the SOL balance of every wallet and the token owner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp()
			if err != nil {
				return err
			}

			w := worker.New[balanceRow]()
			push := func(idx int, label string, pub keys.Pubkey) {
				w.Push(func(ctx context.Context) balanceRow {
					row := balanceRow{idx: idx, label: label, pub: pub}
					row.lamports, row.err = app.rpc.GetBalance(ctx, pub)
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
			// Collected results come back lane by lane, restore push order.
			sort.Slice(rows, func(i, j int) bool { return rows[i].idx < rows[j].idx })

			for _, row := range rows {
				if row.err != nil {
					logger.Error("balance query failed", "account", row.pub, "error", row.err)
					continue
				}
				fmt.Printf("%-12s %s: %d lamports (%v SOL)\n", row.label, row.pub, row.lamports, lamportsToSol(row.lamports))
			}
			return nil
		},
	}
}
