package channel

import (
	"log"
	"sync"

	"github.com/adamavenir/office/internal/api"
	"github.com/adamavenir/office/internal/clock"
	"github.com/adamavenir/office/internal/transport"
	"github.com/adamavenir/office/internal/types"
)

// ManagerOptions configure shared session wiring.
type ManagerOptions struct {
	Client     *api.Client
	Clock      clock.Clock
	Logger     *log.Logger
	Cache      MessageCache
	Visible    func() bool
	OnApproval func(types.ApprovalRequest)
}

// Manager hands out one Session per channel, creating them lazily.
// Sessions persist across channel switches; an inactive one holds its
// last state until reacquired.
type Manager struct {
	opts ManagerOptions

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager builds a Manager around one API client.
func NewManager(opts ManagerOptions) *Manager {
	if opts.Clock == nil {
		opts.Clock = clock.System()
	}
	return &Manager{
		opts:     opts,
		sessions: make(map[string]*Session),
	}
}

// Session returns the session for a channel, creating it if needed.
// The caller still has to Acquire it.
func (m *Manager) Session(channel string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[channel]; ok {
		return s
	}
	s := NewSession(Config{
		Channel:    channel,
		API:        m.opts.Client,
		NewWire:    m.wireFactory(channel),
		Clock:      m.opts.Clock,
		Logger:     m.opts.Logger,
		Cache:      m.opts.Cache,
		Visible:    m.opts.Visible,
		OnApproval: m.opts.OnApproval,
	})
	m.sessions[channel] = s
	return s
}

func (m *Manager) wireFactory(channel string) WireFactory {
	return func(handler transport.Handler, onState func(transport.State)) Wire {
		url, err := m.opts.Client.WSURL(channel)
		if err != nil && m.opts.Logger != nil {
			m.opts.Logger.Printf("ws url %s: %v", channel, err)
		}
		return transport.New(transport.Options{
			URL:     url,
			Dial:    transport.NewWebSocketDialer(m.opts.Client.Token()),
			Clock:   m.opts.Clock,
			Logger:  m.opts.Logger,
			Handler: handler,
			OnState: onState,
		})
	}
}

// Shutdown tears down every session.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()
	for _, s := range sessions {
		s.Shutdown()
	}
}
