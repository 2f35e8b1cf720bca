package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently submitted transactions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec := openRecorder()
			defer rec.close()
			if rec.st == nil {
				return fmt.Errorf("history store unavailable")
			}

			records, err := rec.st.List(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("listing history: %w", err)
			}
			if len(records) == 0 {
				fmt.Println("no history yet")
				return nil
			}

			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tKIND\tAMOUNT\tFROM\tTO\tSTATUS\tSIGNATURE")
			for _, r := range records {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					humanize.Time(r.CreatedAt),
					r.Kind,
					humanize.Comma(int64(r.Amount)),
					shorten(r.From),
					shorten(r.To),
					r.Status,
					shorten(r.Signature),
				)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of records to show (0 for all)")
	return cmd
}

func shorten(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:6] + ".." + s[len(s)-4:]
}
