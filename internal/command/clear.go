package command

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewClearCmd creates the clear command.
func NewClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the channel history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetContext(cmd, nil)
			if err != nil {
				return err
			}
			defer cc.Close()

			if _, err := cc.Client.ClearMessages(cmd.Context(), cc.Channel); err != nil {
				return err
			}
			if cc.Cache != nil {
				_ = cc.Cache.Clear(cc.Channel)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cleared #%s\n", cc.Channel)
			return nil
		},
	}
}
