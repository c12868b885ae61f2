package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"launch-sniper/internal/launchpad"
)

// NewPairCommand creates the pair command.
func NewPairCommand(_ *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "pair <mint>",
		Short: "Print the bonding curve address of a mint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pair, err := launchpad.DeriveBondingCurve(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t(bump %d)\n", pair, pair.Bump)
			return nil
		},
	}
}
