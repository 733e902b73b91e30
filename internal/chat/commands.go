package chat

import (
	"context"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/adamavenir/office/internal/channel"
	"github.com/adamavenir/office/internal/types"
)

const helpText = `/channel <id>    switch channel (main, dm:<agent>)
/react <emoji>   toggle a reaction on the last message
/yank            copy the last message to the clipboard
/trust <min>     auto-approve for 15, 30, 60 or 120 minutes
/approve [id]    approve the active (or given) request
/deny [id]       deny the active (or given) request
/stop            stop the active conversation
/clear           clear the channel history
/kill            kill switch: drop to SAFE, permissions to ask
/quit            leave`

// parseCommand splits "/name arg arg" into its parts.
func parseCommand(text string) (name string, args []string) {
	fields := strings.Fields(strings.TrimPrefix(text, "/"))
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

func (m *Model) runCommand(text string) (tea.Model, tea.Cmd) {
	name, args := parseCommand(text)
	switch name {
	case "help":
		m.status = "see key hints; commands: " + strings.ReplaceAll(helpText, "\n", "  ")
		return m, nil

	case "quit", "q":
		return m, tea.Quit

	case "channel", "ch":
		if len(args) != 1 {
			m.status = "usage: /channel <id>"
			return m, nil
		}
		m.switchChannel(args[0])
		return m, m.waitForUpdate()

	case "react":
		if len(args) != 1 {
			m.status = "usage: /react <emoji>"
			return m, nil
		}
		last, ok := m.lastMessage()
		if !ok {
			m.status = "nothing to react to"
			return m, nil
		}
		session := m.session
		emoji := args[0]
		return m, func() tea.Msg {
			if err := session.ToggleReaction(context.Background(), last.ID, emoji); err != nil {
				return actionDoneMsg{err: err}
			}
			return actionDoneMsg{}
		}

	case "yank":
		last, ok := m.lastMessage()
		if !ok {
			m.status = "nothing to copy"
			return m, nil
		}
		if err := copyText(last.Content); err != nil {
			m.status = "clipboard: " + err.Error()
		} else {
			m.status = "copied"
		}
		return m, nil

	case "trust":
		if len(args) != 1 {
			m.status = "usage: /trust <15|30|60|120>"
			return m, nil
		}
		minutes, err := strconv.Atoi(args[0])
		if err != nil {
			m.status = "usage: /trust <15|30|60|120>"
			return m, nil
		}
		return m, m.resolveActive(true, channel.ResolveOptions{TrustMinutes: minutes})

	case "approve":
		return m.resolveByArg(args, true)
	case "deny":
		return m.resolveByArg(args, false)

	case "stop":
		session := m.session
		return m, func() tea.Msg {
			if err := session.Stop(context.Background()); err != nil {
				return actionDoneMsg{err: err}
			}
			return actionDoneMsg{status: "conversation stopped"}
		}

	case "clear":
		session := m.session
		return m, func() tea.Msg {
			if err := session.ClearChat(context.Background()); err != nil {
				return actionDoneMsg{err: err}
			}
			return actionDoneMsg{status: "history cleared"}
		}

	case "kill":
		session := m.session
		return m, func() tea.Msg {
			if err := session.TriggerKillSwitch(context.Background()); err != nil {
				return actionDoneMsg{err: err}
			}
			return actionDoneMsg{status: "kill switch engaged"}
		}

	default:
		m.status = "unknown command /" + name
		return m, nil
	}
}

func (m *Model) resolveByArg(args []string, approved bool) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		return m, m.resolveActive(approved, channel.ResolveOptions{})
	}
	id := args[0]
	session := m.session
	return m, func() tea.Msg {
		if err := session.ResolveApproval(context.Background(), id, approved, channel.ResolveOptions{}); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{}
	}
}

// lastMessage returns the newest non-system message.
func (m *Model) lastMessage() (types.Message, bool) {
	snap := m.session.Snapshot()
	for i := len(snap.Messages) - 1; i >= 0; i-- {
		if snap.Messages[i].MsgType != types.MsgTypeSystem {
			return snap.Messages[i], true
		}
	}
	return types.Message{}, false
}
