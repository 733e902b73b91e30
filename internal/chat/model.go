package chat

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/adamavenir/office/internal/channel"
)

// reactionWindow is how many of the newest messages get their reaction
// summaries fetched eagerly.
const reactionWindow = 50

type stateMsg struct{}

type actionDoneMsg struct {
	err    error
	status string
}

type configMsg struct {
	channel string
}

// Model implements the chat UI.
type Model struct {
	manager *channel.Manager
	session *channel.Session

	updates chan struct{}
	unsub   func()

	viewport viewport.Model
	input    textarea.Model
	ready    bool
	width    int
	height   int

	status   string
	colorMap map[string]lipgloss.Color
}

func newModel(manager *channel.Manager, channelID string) *Model {
	input := textarea.New()
	input.Placeholder = "message #" + channelID + "  (/help for commands)"
	input.SetHeight(2)
	input.CharLimit = 0
	input.ShowLineNumbers = false
	input.Focus()

	return &Model{
		manager:  manager,
		session:  manager.Session(channelID),
		updates:  make(chan struct{}, 1),
		input:    input,
		colorMap: map[string]lipgloss.Color{},
	}
}

// attach subscribes to the session and takes a reference on it.
func (m *Model) attach() {
	m.unsub = m.session.Subscribe(func() {
		select {
		case m.updates <- struct{}{}:
		default:
		}
	})
	m.session.Acquire()
}

func (m *Model) detach() {
	if m.unsub != nil {
		m.unsub()
		m.unsub = nil
	}
	m.session.Release()
}

func (m *Model) waitForUpdate() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		<-updates
		return stateMsg{}
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.waitForUpdate())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refresh()
		return m, nil

	case stateMsg:
		m.refresh()
		return m, m.waitForUpdate()

	case actionDoneMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		} else if msg.status != "" {
			m.status = msg.status
		}
		m.refresh()
		return m, nil

	case configMsg:
		m.switchChannel(msg.channel)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "enter":
		text := m.input.Value()
		if strings.TrimSpace(text) == "" {
			return m, nil
		}
		m.input.Reset()
		if strings.HasPrefix(strings.TrimSpace(text), "/") {
			return m.runCommand(strings.TrimSpace(text))
		}
		return m, m.sendCmd(text)

	case "alt+enter", "ctrl+j":
		m.input.InsertString("\n")
		return m, nil

	case "pgup":
		m.viewport.HalfViewUp()
		return m, nil
	case "pgdown":
		m.viewport.HalfViewDown()
		return m, nil

	// approval panel shortcuts, active request only
	case "ctrl+y":
		return m, m.resolveActive(true, channel.ResolveOptions{})
	case "ctrl+g":
		return m, m.resolveActive(true, channel.ResolveOptions{GrantScope: true})
	case "ctrl+n":
		return m, m.resolveActive(false, channel.ResolveOptions{})
	case "ctrl+o":
		return m, m.focusNextApproval()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) sendCmd(text string) tea.Cmd {
	session := m.session
	return func() tea.Msg {
		if err := session.Send(context.Background(), text, channel.SendOptions{}); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{}
	}
}

func (m *Model) resolveActive(approved bool, opts channel.ResolveOptions) tea.Cmd {
	snap := m.session.Snapshot()
	if snap.ActiveApproval == nil {
		m.status = "no pending approvals"
		return nil
	}
	id := snap.ActiveApproval.ID
	session := m.session
	return func() tea.Msg {
		if err := session.ResolveApproval(context.Background(), id, approved, opts); err != nil {
			return actionDoneMsg{err: err}
		}
		verdict := "denied"
		if approved {
			verdict = "approved"
		}
		return actionDoneMsg{status: "request " + verdict}
	}
}

// focusNextApproval cycles the active request through the queue.
func (m *Model) focusNextApproval() tea.Cmd {
	snap := m.session.Snapshot()
	if len(snap.Approvals) < 2 {
		return nil
	}
	next := 0
	for i, view := range snap.Approvals {
		if view.Active {
			next = (i + 1) % len(snap.Approvals)
			break
		}
	}
	if err := m.session.FocusApproval(snap.Approvals[next].ID); err != nil {
		m.status = err.Error()
	}
	return nil
}

// switchChannel moves the UI to another channel, keeping the old
// session alive through its linger window.
func (m *Model) switchChannel(channelID string) {
	if channelID == m.session.Channel() {
		return
	}
	m.detach()
	m.session = m.manager.Session(channelID)
	m.attach()
	m.input.Placeholder = "message #" + channelID + "  (/help for commands)"
	m.status = "switched to #" + channelID
	m.refresh()
}

func (m *Model) layout() {
	chrome := m.input.Height() + 4 // header, typing, approval hint, status
	snap := m.session.Snapshot()
	if len(snap.Approvals) > 0 {
		chrome += approvalPanelHeight(snap.ActiveApproval)
	}
	h := m.height - chrome
	if h < 3 {
		h = 3
	}
	if !m.ready {
		m.viewport = viewport.New(m.width, h)
		m.ready = true
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = h
	}
	m.input.SetWidth(m.width)
}

// refresh re-renders the timeline and kicks reaction fetches for the
// newest messages.
func (m *Model) refresh() {
	if !m.ready {
		return
	}
	snap := m.session.Snapshot()
	m.layout()

	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderMessages(snap))
	if atBottom {
		m.viewport.GotoBottom()
	}

	msgs := snap.Messages
	if len(msgs) > reactionWindow {
		msgs = msgs[len(msgs)-reactionWindow:]
	}
	ids := make([]string, len(msgs))
	for i, message := range msgs {
		ids[i] = message.ID
	}
	m.session.EnsureReactions(ids...)
}
