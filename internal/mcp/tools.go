package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/adamavenir/office/internal/api"
	"github.com/adamavenir/office/internal/channel"
	"github.com/adamavenir/office/internal/types"
)

// ToolContext carries the shared client stack for tool handlers.
type ToolContext struct {
	Client  *api.Client
	Manager *channel.Manager
	Channel string
}

func (tc *ToolContext) resolveChannel(arg string) string {
	if arg != "" {
		return arg
	}
	return tc.Channel
}

type sendArgs struct {
	Body     string `json:"body" jsonschema:"Message body to post to the channel."`
	Channel  string `json:"channel,omitempty" jsonschema:"Channel to post to (default from config, then main)"`
	ParentID string `json:"parent_id,omitempty" jsonschema:"Message id to reply to, starting a thread"`
}

type messagesArgs struct {
	Channel string `json:"channel,omitempty" jsonschema:"Channel to read (default from config, then main)"`
	Limit   int    `json:"limit,omitempty" jsonschema:"Maximum number of messages to return (default: 20)"`
}

type approvalsArgs struct {
	Channel string `json:"channel,omitempty" jsonschema:"Channel to list approvals for"`
}

type resolveArgs struct {
	ID           string `json:"id" jsonschema:"Approval request id"`
	Approve      bool   `json:"approve" jsonschema:"true approves the request, false denies it"`
	Channel      string `json:"channel,omitempty" jsonschema:"Channel the request belongs to"`
	GrantScope   bool   `json:"grant_scope,omitempty" jsonschema:"Grant the request's missing scope before approving"`
	TrustMinutes int    `json:"trust_minutes,omitempty" jsonschema:"Start a trust session for 15, 30, 60 or 120 minutes"`
}

type statusArgs struct {
	Channel string `json:"channel,omitempty" jsonschema:"Channel to report on"`
}

// RegisterTools registers the office tools.
func RegisterTools(server *mcp.Server, tc *ToolContext) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "office_send",
		Description: "Post a message to an office channel. Set parent_id to reply in a thread.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args sendArgs) (*mcp.CallToolResult, any, error) {
		return handleSend(ctx, tc, args), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "office_messages",
		Description: "Read recent messages from an office channel, oldest first.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args messagesArgs) (*mcp.CallToolResult, any, error) {
		return handleMessages(ctx, tc, args), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "office_approvals",
		Description: "List pending tool approval requests for a channel.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args approvalsArgs) (*mcp.CallToolResult, any, error) {
		return handleApprovals(ctx, tc, args), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "office_resolve_approval",
		Description: "Approve or deny a pending tool approval request by id.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args resolveArgs) (*mcp.CallToolResult, any, error) {
		return handleResolve(ctx, tc, args), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "office_status",
		Description: "Report channel status: conversation, active project, autonomy, permissions, processes.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, args statusArgs) (*mcp.CallToolResult, any, error) {
		return handleStatus(ctx, tc, args), nil, nil
	})
}

func handleSend(ctx context.Context, tc *ToolContext, args sendArgs) *mcp.CallToolResult {
	if strings.TrimSpace(args.Body) == "" {
		return toolError("Error: message body cannot be empty")
	}

	ch := tc.resolveChannel(args.Channel)
	session := tc.Manager.Session(ch)
	session.Acquire()
	defer session.Release()

	opts := channel.SendOptions{}
	if args.ParentID != "" {
		parent := args.ParentID
		opts.ParentID = &parent
	}
	if err := session.Send(ctx, args.Body, opts); err != nil {
		return toolError(fmt.Sprintf("Failed to send: %v", err))
	}
	return toolResult(fmt.Sprintf("Posted to #%s", ch), false)
}

func handleMessages(ctx context.Context, tc *ToolContext, args messagesArgs) *mcp.CallToolResult {
	limit := args.Limit
	if limit <= 0 {
		limit = 20
	}
	ch := tc.resolveChannel(args.Channel)

	messages, err := tc.Client.Messages(ctx, ch, limit)
	if err != nil {
		return toolError(err.Error())
	}
	if len(messages) == 0 {
		return toolResult(fmt.Sprintf("No messages in #%s", ch), false)
	}
	return toolResult(fmt.Sprintf("Messages in #%s (%d):\n\n%s", ch, len(messages), formatMessages(messages)), false)
}

func handleApprovals(ctx context.Context, tc *ToolContext, args approvalsArgs) *mcp.CallToolResult {
	ch := tc.resolveChannel(args.Channel)
	project, err := tc.Client.ActiveProject(ctx, ch)
	if err != nil {
		return toolError(err.Error())
	}
	reqs, err := tc.Client.PendingApprovals(ctx, ch, project.Project)
	if err != nil {
		return toolError(err.Error())
	}
	if len(reqs) == 0 {
		return toolResult(fmt.Sprintf("No pending approvals in #%s", ch), false)
	}

	now := time.Now()
	lines := make([]string, 0, len(reqs))
	for _, req := range reqs {
		line := fmt.Sprintf("[%s] %s wants %s: %s", req.ID, req.AgentID, req.ToolType, req.Command)
		if req.MissingScope != "" {
			line += fmt.Sprintf(" (needs scope %s)", req.MissingScope)
		}
		if !req.ExpiresAt.IsZero() {
			line += fmt.Sprintf(" (%ds left)", int(req.ExpiresAt.Sub(now).Seconds()))
		}
		lines = append(lines, line)
	}
	return toolResult(fmt.Sprintf("Pending approvals in #%s (%d):\n\n%s", ch, len(reqs), strings.Join(lines, "\n")), false)
}

func handleResolve(ctx context.Context, tc *ToolContext, args resolveArgs) *mcp.CallToolResult {
	if args.ID == "" {
		return toolError("Error: approval id is required")
	}

	ch := tc.resolveChannel(args.Channel)
	project, err := tc.Client.ActiveProject(ctx, ch)
	if err != nil {
		return toolError(err.Error())
	}
	reqs, err := tc.Client.PendingApprovals(ctx, ch, project.Project)
	if err != nil {
		return toolError(err.Error())
	}
	var req *types.ApprovalRequest
	for i := range reqs {
		if reqs[i].ID == args.ID {
			req = &reqs[i]
			break
		}
	}
	if req == nil {
		return toolError(fmt.Sprintf("Error: no pending approval %q", args.ID))
	}

	opts := channel.ResolveOptions{}
	if args.Approve {
		opts.GrantScope = args.GrantScope
		opts.TrustMinutes = args.TrustMinutes
	}
	if _, err := channel.Resolve(ctx, tc.Client, ch, project.Project, *req, args.Approve, opts); err != nil {
		return toolError(fmt.Sprintf("Failed to resolve: %v", err))
	}
	verdict := "Denied"
	if args.Approve {
		verdict = "Approved"
	}
	return toolResult(fmt.Sprintf("%s %s", verdict, req.ID), false)
}

func handleStatus(ctx context.Context, tc *ToolContext, args statusArgs) *mcp.CallToolResult {
	ch := tc.resolveChannel(args.Channel)
	var lines []string

	conv, err := tc.Client.Conversation(ctx, ch)
	if err != nil {
		return toolError(err.Error())
	}
	state := "idle"
	if conv.Active {
		state = "active"
	}
	lines = append(lines, fmt.Sprintf("conversation: %s (%d messages)", state, conv.MessageCount))

	if project, err := tc.Client.ActiveProject(ctx, ch); err == nil && project.Project != "" {
		lines = append(lines, fmt.Sprintf("project: %s@%s", project.Project, project.Branch))
		if mode, err := tc.Client.AutonomyMode(ctx, project.Project); err == nil {
			lines = append(lines, fmt.Sprintf("autonomy: %s", mode))
		}
	}

	if policy, err := tc.Client.Permissions(ctx, ch); err == nil {
		lines = append(lines, fmt.Sprintf("permissions: %s", policy.Effective(time.Now())))
	}
	if procs, err := tc.Client.Processes(ctx, ch); err == nil {
		lines = append(lines, fmt.Sprintf("processes: %d running / %d total", procs.Running, procs.Total))
	}

	return toolResult(fmt.Sprintf("#%s\n%s", ch, strings.Join(lines, "\n")), false)
}

func formatMessages(messages []types.Message) string {
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		thread := ""
		if msg.ParentID != nil {
			thread = fmt.Sprintf(" [re: %s]", *msg.ParentID)
		}
		lines = append(lines, fmt.Sprintf("[%s] %s @%s:%s %s",
			msg.CreatedAt.Local().Format("15:04"), msg.ID, msg.Sender, thread, msg.Content))
	}
	return strings.Join(lines, "\n")
}

func toolResult(text string, isError bool) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: isError,
	}
}

func toolError(text string) *mcp.CallToolResult {
	return toolResult(text, true)
}
