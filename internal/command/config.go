package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adamavenir/office/internal/core"
)

// NewConfigCmd creates the config command group.
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or update the client configuration",
	}
	cmd.AddCommand(newConfigShowCmd(), newConfigSetCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := core.ReadConfig()
			if err != nil {
				return err
			}
			if jsonMode(cmd) {
				shown := config
				if shown.Token != "" {
					shown.Token = "(set)"
				}
				return writeJSON(cmd, shown)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "server   %s\n", config.ServerURL)
			token := "(unset)"
			if config.Token != "" {
				token = "(set)"
			}
			fmt.Fprintf(out, "token    %s\n", token)
			fmt.Fprintf(out, "channel  %s\n", config.Channel(""))
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <server|token|channel> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := core.ReadConfig()
			if err != nil {
				return err
			}
			switch args[0] {
			case "server":
				config.ServerURL = args[1]
			case "token":
				config.Token = args[1]
			case "channel":
				config.DefaultChannel = args[1]
			default:
				return fmt.Errorf("unknown config key %q (want server, token, or channel)", args[0])
			}
			if err := core.WriteConfig(config); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "set %s\n", args[0])
			return nil
		},
	}
}
