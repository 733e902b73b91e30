// Package transport maintains one live duplex connection per channel.
// It reconnects on socket loss with capped jittered backoff and queues
// outbound frames in FIFO order across reconnects.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/adamavenir/office/internal/clock"
)

// ErrClosed is returned by Send after Close.
var ErrClosed = errors.New("transport closed")

const drainWindow = 500 * time.Millisecond

// State is the connection lifecycle state.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateReconnecting
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateClosing:
		return "closing"
	}
	return "unknown"
}

// Conn is one framed duplex connection.
type Conn interface {
	ReadFrame(ctx context.Context) (json.RawMessage, error)
	WriteJSON(ctx context.Context, v any) error
	Close() error
}

// DialFunc establishes a Conn to the given URL.
type DialFunc func(ctx context.Context, url string) (Conn, error)

// Handler receives one inbound frame. Frames are delivered in arrival
// order on a single goroutine per connection.
type Handler func(eventType string, payload json.RawMessage)

// Options configure a Transport.
type Options struct {
	URL     string
	Dial    DialFunc
	Clock   clock.Clock
	Logger  *log.Logger
	Handler Handler
	OnState func(State)
	Backoff *Backoff
}

// Transport owns the connection for one channel.
type Transport struct {
	url     string
	dial    DialFunc
	clock   clock.Clock
	logger  *log.Logger
	handler Handler
	onState func(State)
	backoff *Backoff

	mu             sync.Mutex
	state          State
	conn           Conn
	gen            int
	outbox         []json.RawMessage
	flushing       bool
	reconnectTimer clock.Timer
	readCancel     context.CancelFunc
	closed         bool
}

// New builds a Transport; it stays idle until Open.
func New(opts Options) *Transport {
	t := &Transport{
		url:     opts.URL,
		dial:    opts.Dial,
		clock:   opts.Clock,
		logger:  opts.Logger,
		handler: opts.Handler,
		onState: opts.OnState,
		backoff: opts.Backoff,
	}
	if t.clock == nil {
		t.clock = clock.System()
	}
	if t.backoff == nil {
		t.backoff = NewBackoff()
	}
	return t
}

// State reports the current connection state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Queued reports how many outbound frames are waiting.
func (t *Transport) Queued() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.outbox)
}

// Open connects if idle. Already-open transports are a no-op. A failed
// attempt schedules a reconnect; Open itself does not return dial errors.
func (t *Transport) Open() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	if t.state != StateIdle {
		t.mu.Unlock()
		return nil
	}
	t.setStateLocked(StateConnecting)
	t.mu.Unlock()

	t.connect()
	return nil
}

// Send queues a frame for delivery. Frames are flushed FIFO whenever a
// connection is available; ordering is preserved across reconnects.
func (t *Transport) Send(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.outbox = append(t.outbox, raw)
	t.mu.Unlock()

	t.flush()
	return nil
}

// Close cancels pending reconnects, drains queued outbound frames for up
// to 500 ms, and releases the connection.
func (t *Transport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.setStateLocked(StateClosing)
	if t.reconnectTimer != nil {
		t.reconnectTimer.Stop()
		t.reconnectTimer = nil
	}
	if t.readCancel != nil {
		t.readCancel()
		t.readCancel = nil
	}
	conn := t.conn
	pending := t.outbox
	t.outbox = nil
	t.conn = nil
	t.mu.Unlock()

	if conn != nil {
		if len(pending) > 0 {
			ctx, cancel := context.WithTimeout(context.Background(), drainWindow)
			for _, raw := range pending {
				if err := conn.WriteJSON(ctx, raw); err != nil {
					break
				}
			}
			cancel()
		}
		_ = conn.Close()
	}

	t.mu.Lock()
	t.setStateLocked(StateIdle)
	t.mu.Unlock()
	return nil
}

func (t *Transport) connect() {
	conn, err := t.dial(context.Background(), t.url)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return
	}
	if err != nil {
		t.logf("connect %s: %v", t.url, err)
		t.scheduleReconnectLocked()
		t.mu.Unlock()
		return
	}

	t.gen++
	gen := t.gen
	t.conn = conn
	t.backoff.Reset()
	t.setStateLocked(StateOpen)
	ctx, cancel := context.WithCancel(context.Background())
	t.readCancel = cancel
	t.mu.Unlock()

	go t.readLoop(ctx, conn, gen)
	t.flush()
}

func (t *Transport) readLoop(ctx context.Context, conn Conn, gen int) {
	for {
		raw, err := conn.ReadFrame(ctx)
		if err != nil {
			t.handleLost(gen, err)
			return
		}
		var head struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &head); err != nil || head.Type == "" {
			t.logf("dropping frame without type: %.120s", string(raw))
			continue
		}
		if t.handler != nil {
			t.handler(head.Type, raw)
		}
	}
}

// handleLost reacts to socket loss. Stale generations (a reconnect
// already happened) are ignored. One loss is often reported twice, by
// the read loop and by a failed flush write; only the first report may
// arm the reconnect timer, so anything past StateOpen is a duplicate.
func (t *Transport) handleLost(gen int, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || gen != t.gen || t.state != StateOpen {
		return
	}
	t.logf("connection lost: %v", err)
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
	if t.readCancel != nil {
		t.readCancel()
		t.readCancel = nil
	}
	t.scheduleReconnectLocked()
}

func (t *Transport) scheduleReconnectLocked() {
	t.setStateLocked(StateReconnecting)
	delay, attempt := t.backoff.Next()
	t.logf("reconnect attempt %d in %s", attempt, delay)
	t.reconnectTimer = t.clock.AfterFunc(delay, func() {
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return
		}
		t.setStateLocked(StateConnecting)
		t.mu.Unlock()
		t.connect()
	})
}

// flush writes queued frames FIFO. Only one flusher runs at a time; a
// frame is removed from the queue only after a successful write so a
// mid-flush disconnect keeps order intact.
func (t *Transport) flush() {
	t.mu.Lock()
	if t.flushing || t.conn == nil || t.state != StateOpen {
		t.mu.Unlock()
		return
	}
	t.flushing = true
	gen := t.gen
	t.mu.Unlock()

	for {
		t.mu.Lock()
		if t.closed || gen != t.gen || t.conn == nil || len(t.outbox) == 0 {
			t.flushing = false
			t.mu.Unlock()
			return
		}
		raw := t.outbox[0]
		conn := t.conn
		t.mu.Unlock()

		if err := conn.WriteJSON(context.Background(), raw); err != nil {
			t.mu.Lock()
			t.flushing = false
			t.mu.Unlock()
			t.handleLost(gen, err)
			return
		}

		t.mu.Lock()
		if gen == t.gen && len(t.outbox) > 0 {
			t.outbox = t.outbox[1:]
		}
		t.mu.Unlock()
	}
}

func (t *Transport) setStateLocked(s State) {
	if t.state == s {
		return
	}
	t.state = s
	if t.onState != nil {
		go t.onState(s)
	}
}

func (t *Transport) logf(format string, args ...any) {
	if t.logger == nil {
		return
	}
	t.logger.Printf(format, args...)
}
