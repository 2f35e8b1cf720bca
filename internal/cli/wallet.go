package cli

import (
	"fmt"
	"strconv"

	"github.com/me/solbatch/internal/keys"
	"github.com/spf13/cobra"
)

func newWalletCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Generate, inspect, and save wallet keypairs",
	}
	cmd.AddCommand(
		newWalletGenerateCmd(),
		newWalletListCmd(),
		newWalletSaveCmd(),
		newWalletReadCmd(),
	)
	return cmd
}

func newWalletGenerateCmd() *cobra.Command {
	var saveTo string

	cmd := &cobra.Command{
		Use:   "generate <count>",
		Short: "Generate new keypairs and print them as a YAML wallet list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			count, err := strconv.Atoi(args[0])
			if err != nil || count <= 0 {
				return fmt.Errorf("count must be a positive integer, got %q", args[0])
			}

			wallets := make([]keys.Keypair, count)
			for i := range wallets {
				kp, err := keys.Generate()
				if err != nil {
					return fmt.Errorf("generating keypair: %w", err)
				}
				wallets[i] = kp
			}

			if saveTo == "" {
				for _, kp := range wallets {
					fmt.Printf("  - %s\n", kp.Base58())
				}
				return nil
			}

			paths, err := keys.SaveWallets(saveTo, wallets)
			if err != nil {
				return fmt.Errorf("saving wallets: %w", err)
			}
			for i, kp := range wallets {
				fmt.Printf("  - %s # %s\n", kp.Base58(), paths[i])
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&saveTo, "save-to", "", "Also write each keypair as a JSON file into this directory")
	return cmd
}

func newWalletListCmd() *cobra.Command {
	var showPubkey, showKeypair bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the wallets from the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp()
			if err != nil {
				return err
			}
			// Neither flag means both columns.
			both := showPubkey == showKeypair
			for i, kp := range app.cfg.Wallets {
				switch {
				case both:
					fmt.Printf("%d: %s | %s\n", i, kp.Pub(), kp.Base58())
				case showPubkey:
					fmt.Printf("%d: %s\n", i, kp.Pub())
				default:
					fmt.Printf("%d: %s\n", i, kp.Base58())
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showPubkey, "pubkey", false, "Print only the public keys")
	cmd.Flags().BoolVar(&showKeypair, "keypair", false, "Print only the base58 keypairs")
	return cmd
}

func newWalletSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <dir>",
		Short: "Write every configured wallet as a JSON keypair file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp()
			if err != nil {
				return err
			}
			paths, err := keys.SaveWallets(args[0], app.cfg.Wallets)
			if err != nil {
				return fmt.Errorf("saving wallets: %w", err)
			}
			for i, kp := range app.cfg.Wallets {
				fmt.Printf("%d: %s -> %s\n", i, kp.Pub(), paths[i])
			}
			return nil
		},
	}
}

func newWalletReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <path>",
		Short: "Read a JSON keypair file and print it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := keys.ReadKeypairFile(args[0])
			if err != nil {
				return fmt.Errorf("reading keypair file: %w", err)
			}
			fmt.Printf("pubkey:  %s\n", kp.Pub())
			fmt.Printf("keypair: %s\n", kp.Base58())
			return nil
		},
	}
}
