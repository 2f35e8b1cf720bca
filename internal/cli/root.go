package cli

import (
	"log/slog"

	"github.com/me/solbatch/internal/config"
	"github.com/me/solbatch/internal/logging"
	"github.com/spf13/cobra"
)

var (
	flagConfig      string
	flagDebug       bool
	flagLogLevel    string
	flagLogFormat   string
	flagHistoryPath string
	flagNoHistory   bool

	logger *slog.Logger
)

// NewRootCmd creates the root cobra command for the solbatch CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "solbatch",
		Short: "solbatch runs batched wallet operations against a Solana cluster",
		Long:  "solbatch generates wallets, requests airdrops, deploys a token, and runs scripted SOL and token transfer batches over concurrent worker lanes.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.New(logging.ParseLevel(flagLogLevel), flagLogFormat)
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", config.DefaultPath(), "Path to the YAML config file (or SOLBATCH_CONFIG env)")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")
	root.PersistentFlags().StringVar(&flagHistoryPath, "history", "", "Path to the history database (defaults to ~/.solbatch/history.db)")
	root.PersistentFlags().BoolVar(&flagNoHistory, "no-history", false, "Do not record submitted transactions locally")

	root.AddCommand(
		newWalletCmd(),
		newShowConfigCmd(),
		newBalancesCmd(),
		newAirdropCmd(),
		newTokenCmd(),
		newTransferCmd(),
		newHistoryCmd(),
	)

	return root
}
