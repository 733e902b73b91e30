package command

import (
	"os"

	"github.com/spf13/cobra"
)

const AppName = "office"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "Office - live channel client for the AI office",
		Long:          "Office connects a terminal to the AI office server: chat, approvals, and channel status.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("channel", "", "channel to operate on (default from config, then main)")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")
	cmd.PersistentFlags().Bool("verbose", false, "log client internals to stderr")

	cmd.AddCommand(
		NewChatCmd(),
		NewSendCmd(),
		NewHistoryCmd(),
		NewApprovalsCmd(),
		NewStatusCmd(),
		NewChannelsCmd(),
		NewStopCmd(),
		NewClearCmd(),
		NewKillSwitchCmd(),
		NewConfigCmd(),
	)

	return cmd
}
