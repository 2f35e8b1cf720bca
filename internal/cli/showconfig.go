package cli

import (
	"fmt"

	"github.com/me/solbatch/internal/config"
	"github.com/spf13/cobra"
)

func newShowConfigCmd() *cobra.Command {
	var secrets bool

	cmd := &cobra.Command{
		Use:   "show-config",
		Short: "Print the loaded configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			out, err := cfg.Render(secrets)
			if err != nil {
				return fmt.Errorf("rendering config: %w", err)
			}
			fmt.Print(out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&secrets, "secrets", false, "Print full keypairs instead of public keys")
	return cmd
}
