// Package chat is the terminal UI for a live channel: timeline,
// composer, typing indicators, and the approval panel.
package chat

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/adamavenir/office/internal/channel"
	"github.com/adamavenir/office/internal/core"
)

// Options configure the chat UI.
type Options struct {
	Manager *channel.Manager
	Channel string
}

// Run starts the chat UI and blocks until the user quits.
func Run(opts Options) error {
	model := newModel(opts.Manager, opts.Channel)

	fmt.Printf("\033]0;office · #%s\007", opts.Channel)

	model.attach()
	defer model.detach()

	program := tea.NewProgram(model, tea.WithAltScreen())

	// Follow default-channel edits made while the UI is open, e.g.
	// "office config set channel dev" in another terminal.
	if stop, err := core.WatchConfig(func(config core.Config) {
		program.Send(configMsg{channel: config.Channel("")})
	}); err == nil {
		defer stop()
	}

	_, err := program.Run()
	return err
}
