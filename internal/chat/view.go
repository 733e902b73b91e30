package chat

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/adamavenir/office/internal/channel"
	"github.com/adamavenir/office/internal/transport"
	"github.com/adamavenir/office/internal/types"
)

var (
	headerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236")).Padding(0, 1)
	timeStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	typingStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true)
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	reactionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	replyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Italic(true)
	panelStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("220")).Padding(0, 1)
	panelHintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	scopeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
)

func (m *Model) View() string {
	if !m.ready {
		return "loading..."
	}
	snap := m.session.Snapshot()

	var b strings.Builder
	b.WriteString(m.renderHeader(snap))
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(renderTyping(snap.Typing))
	b.WriteString("\n")
	if panel := m.renderApprovalPanel(snap); panel != "" {
		b.WriteString(panel)
		b.WriteString("\n")
	}
	b.WriteString(statusStyle.Render(m.status))
	b.WriteString("\n")
	b.WriteString(m.input.View())
	return b.String()
}

func (m *Model) renderHeader(snap channel.Snapshot) string {
	parts := []string{"#" + snap.Channel}
	if snap.Project.Project != "" {
		parts = append(parts, snap.Project.Project+"@"+snap.Project.Branch)
	}
	if snap.Autonomy != "" {
		parts = append(parts, string(snap.Autonomy))
	}
	parts = append(parts, permissionLabel(snap))
	if snap.Processes.Total > 0 {
		parts = append(parts, fmt.Sprintf("%d/%d procs", snap.Processes.Running, snap.Processes.Total))
	}
	if snap.Collab.Active {
		parts = append(parts, snap.Collab.Mode)
	}
	parts = append(parts, connLabel(snap.ConnState))
	return headerStyle.Width(m.width).Render(strings.Join(parts, " · "))
}

// permissionLabel shows the effective mode, with the auto deadline when
// one is set.
func permissionLabel(snap channel.Snapshot) string {
	if snap.EffectiveMode == types.PermissionAuto {
		if snap.Policy.ExpiresAt != nil {
			return "auto until " + snap.Policy.ExpiresAt.Local().Format("15:04")
		}
		return "auto"
	}
	return "ask"
}

func connLabel(state transport.State) string {
	switch state {
	case transport.StateOpen:
		return "● live"
	case transport.StateConnecting, transport.StateReconnecting:
		return "◌ " + state.String()
	default:
		return "○ " + state.String()
	}
}

func (m *Model) renderMessages(snap channel.Snapshot) string {
	var b strings.Builder
	for i, message := range snap.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(snap, message))
	}
	if len(snap.Messages) == 0 {
		b.WriteString(typingStyle.Render("no messages yet"))
	}
	return b.String()
}

func (m *Model) renderMessage(snap channel.Snapshot, message types.Message) string {
	var b strings.Builder

	stamp := timeStyle.Render(message.CreatedAt.Local().Format("15:04"))
	sender := m.senderStyle(message.Sender).Render(message.Sender)
	b.WriteString(stamp + " " + sender)

	if message.ParentID != nil && *message.ParentID != "" {
		if parent, ok := m.session.Store().Message(*message.ParentID); ok {
			b.WriteString(" " + replyStyle.Render("↳ re: "+snippet(parent.Content, 40)))
		} else {
			b.WriteString(" " + replyStyle.Render("↳ re: (earlier message)"))
		}
	}
	b.WriteString("\n")

	content := message.Content
	if message.MsgType == types.MsgTypeSystem {
		content = typingStyle.Render(content)
	} else {
		content = highlightFences(content)
	}
	b.WriteString(content)

	if summary, ok := snap.Reactions[message.ID]; ok && len(summary) > 0 {
		b.WriteString("\n" + reactionStyle.Render(formatReactions(summary)))
	}
	b.WriteString("\n")
	return b.String()
}

// formatReactions renders "👍 2 · 🎉 1" in stable emoji order.
func formatReactions(summary types.ReactionSummary) string {
	emojis := make([]string, 0, len(summary))
	for emoji := range summary {
		emojis = append(emojis, emoji)
	}
	sort.Strings(emojis)
	parts := make([]string, 0, len(emojis))
	for _, emoji := range emojis {
		parts = append(parts, fmt.Sprintf("%s %d", emoji, summary[emoji].Count))
	}
	return strings.Join(parts, " · ")
}

func renderTyping(agents []types.TypingAgent) string {
	if len(agents) == 0 {
		return ""
	}
	names := make([]string, len(agents))
	for i, agent := range agents {
		names[i] = agent.DisplayName
	}
	verb := "is typing…"
	if len(names) > 1 {
		verb = "are typing…"
	}
	return typingStyle.Render(strings.Join(names, ", ") + " " + verb)
}

func (m *Model) renderApprovalPanel(snap channel.Snapshot) string {
	active := snap.ActiveApproval
	if active == nil {
		return ""
	}

	position := 1
	for i, view := range snap.Approvals {
		if view.ID == active.ID {
			position = i + 1
			break
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "approval %d/%d · %s · %s · %s left\n",
		position, len(snap.Approvals), active.AgentID, active.ToolType, formatCountdown(active.Remaining))
	if active.Command != "" {
		b.WriteString(highlightPreview(active.Command, active.ToolType))
		b.WriteString("\n")
	}
	if active.Preview != "" && active.Preview != active.Command {
		b.WriteString(highlightPreview(clampLines(active.Preview, 6), active.ToolType))
		b.WriteString("\n")
	}
	if active.MissingScope != "" {
		if active.ScopeCovered {
			b.WriteString(panelHintStyle.Render("scope "+active.MissingScope+" already granted") + "\n")
		} else {
			b.WriteString(scopeStyle.Render("needs scope "+active.MissingScope) + "\n")
		}
	}
	b.WriteString(panelHintStyle.Render("^y approve  ^g approve+grant  ^n deny  ^o next"))
	return panelStyle.Width(m.width - 2).Render(strings.TrimRight(b.String(), "\n"))
}

// approvalPanelHeight estimates panel lines for viewport sizing.
func approvalPanelHeight(active *channel.ApprovalView) int {
	if active == nil {
		return 0
	}
	h := 4 // border top/bottom, header, hints
	if active.Command != "" {
		h++
	}
	if active.MissingScope != "" {
		h++
	}
	if active.Preview != "" && active.Preview != active.Command {
		h += strings.Count(clampLines(active.Preview, 6), "\n") + 1
	}
	return h
}

// clampLines keeps at most n lines of text.
func clampLines(text string, n int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:n], "\n") + "\n…"
}

func formatCountdown(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	d = d.Round(time.Second)
	if d >= time.Minute {
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}

func snippet(text string, max int) string {
	text = strings.TrimSpace(text)
	if first := strings.IndexByte(text, '\n'); first >= 0 && first < max {
		return text[:first] + "…"
	}
	if len(text) > max {
		return text[:max] + "…"
	}
	return text
}
