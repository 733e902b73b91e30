package command

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/adamavenir/office/internal/api"
	"github.com/adamavenir/office/internal/channel"
	"github.com/adamavenir/office/internal/types"
)

// NewApprovalsCmd creates the approvals command group.
func NewApprovalsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approvals",
		Short: "List and resolve pending approval requests",
	}
	cmd.AddCommand(newApprovalsListCmd(), newApprovalsResolveCmd(true), newApprovalsResolveCmd(false))
	return cmd
}

func newApprovalsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List pending requests for the channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, nil)
			if err != nil {
				return err
			}
			defer ctx.Close()

			reqs, err := pendingForChannel(cmd.Context(), ctx)
			if err != nil {
				return err
			}
			if jsonMode(cmd) {
				return writeJSON(cmd, reqs)
			}
			if len(reqs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no pending approvals")
				return nil
			}
			now := time.Now()
			for _, req := range reqs {
				remaining := "no deadline"
				if !req.ExpiresAt.IsZero() {
					remaining = fmt.Sprintf("%ds left", int(req.ExpiresAt.Sub(now).Seconds()))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s  %s  (%s)\n",
					shortID(req.ID), req.AgentID, req.ToolType, req.Command, remaining)
				if req.MissingScope != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "          needs scope %s\n", req.MissingScope)
				}
			}
			return nil
		},
	}
}

func newApprovalsResolveCmd(approve bool) *cobra.Command {
	use, short := "deny <id>", "Deny a pending request"
	if approve {
		use, short = "approve <id>", "Approve a pending request"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := GetContext(cmd, nil)
			if err != nil {
				return err
			}
			defer ctx.Close()

			req, project, err := findRequest(cmd.Context(), ctx, args[0])
			if err != nil {
				return err
			}

			opts := channel.ResolveOptions{}
			if approve {
				opts.GrantScope, _ = cmd.Flags().GetBool("grant-scope")
				level, _ := cmd.Flags().GetString("grant-level")
				opts.GrantLevel = api.GrantLevel(level)
				opts.GrantMinutes, _ = cmd.Flags().GetInt("grant-minutes")
				opts.TrustMinutes, _ = cmd.Flags().GetInt("trust-minutes")
			}

			_, err = channel.Resolve(cmd.Context(), ctx.Client, ctx.Channel, project, req, approve, opts)
			if err != nil {
				return err
			}
			verdict := "denied"
			if approve {
				verdict = "approved"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verdict, shortID(req.ID))
			return nil
		},
	}
	if approve {
		cmd.Flags().Bool("grant-scope", false, "grant the request's missing scope first")
		cmd.Flags().String("grant-level", "chat", "scope grant level (chat or project)")
		cmd.Flags().Int("grant-minutes", 0, "scope grant duration (default 10 for chat level)")
		cmd.Flags().Int("trust-minutes", 0, "start a trust session (15, 30, 60 or 120)")
	}
	return cmd
}

func pendingForChannel(ctx context.Context, cc *CommandContext) ([]types.ApprovalRequest, error) {
	project, err := cc.Client.ActiveProject(ctx, cc.Channel)
	if err != nil {
		return nil, err
	}
	return cc.Client.PendingApprovals(ctx, cc.Channel, project.Project)
}

// findRequest resolves an id or id prefix against the pending list.
func findRequest(ctx context.Context, cc *CommandContext, ref string) (types.ApprovalRequest, string, error) {
	project, err := cc.Client.ActiveProject(ctx, cc.Channel)
	if err != nil {
		return types.ApprovalRequest{}, "", err
	}
	reqs, err := cc.Client.PendingApprovals(ctx, cc.Channel, project.Project)
	if err != nil {
		return types.ApprovalRequest{}, "", err
	}
	var match *types.ApprovalRequest
	for i := range reqs {
		if reqs[i].ID == ref {
			return reqs[i], project.Project, nil
		}
		if len(ref) >= 4 && len(reqs[i].ID) >= len(ref) && reqs[i].ID[:len(ref)] == ref {
			if match != nil {
				return types.ApprovalRequest{}, "", fmt.Errorf("approval id prefix %q is ambiguous", ref)
			}
			match = &reqs[i]
		}
	}
	if match == nil {
		return types.ApprovalRequest{}, "", fmt.Errorf("no pending approval %q", ref)
	}
	return *match, project.Project, nil
}
