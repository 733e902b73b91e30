package transport

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/adamavenir/office/internal/clock"
)

type fakeConn struct {
	mu         sync.Mutex
	writes     []string
	failWrites bool
	inbound    chan json.RawMessage
	done       chan struct{}
	closeOnce  sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		inbound: make(chan json.RawMessage, 16),
		done:    make(chan struct{}),
	}
}

func (c *fakeConn) ReadFrame(ctx context.Context) (json.RawMessage, error) {
	select {
	case raw := <-c.inbound:
		return raw, nil
	case <-c.done:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) WriteJSON(ctx context.Context, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWrites {
		return io.ErrClosedPipe
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.writes = append(c.writes, string(data))
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) sentContents(t *testing.T) []string {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, w := range c.writes {
		var raw json.RawMessage
		if err := json.Unmarshal([]byte(w), &raw); err != nil {
			t.Fatalf("bad frame %q: %v", w, err)
		}
		var frame struct {
			Content string `json:"content"`
		}
		_ = json.Unmarshal(raw, &frame)
		out = append(out, frame.Content)
	}
	return out
}

type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	fail  bool
	dials int
}

func (d *fakeDialer) dial(_ context.Context, _ string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.fail {
		return nil, io.ErrUnexpectedEOF
	}
	conn := newFakeConn()
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[i]
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached")
}

type frame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func TestQueuedFramesFlushInOrderOnOpen(t *testing.T) {
	dialer := &fakeDialer{}
	fake := clock.NewFake(time.Unix(0, 0))
	tr := New(Options{
		URL:     "ws://test/ws/main",
		Dial:    dialer.dial,
		Clock:   fake,
		Backoff: &Backoff{Base: 10 * time.Millisecond, Max: 40 * time.Millisecond},
	})

	for _, content := range []string{"A", "B", "C"} {
		if err := tr.Send(frame{Type: "chat", Content: content}); err != nil {
			t.Fatal(err)
		}
	}
	if tr.State() != StateIdle {
		t.Fatalf("state = %s before open", tr.State())
	}

	if err := tr.Open(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return tr.Queued() == 0 })

	got := dialer.conn(0).sentContents(t)
	if len(got) != 3 || got[0] != "A" || got[1] != "B" || got[2] != "C" {
		t.Fatalf("sent = %v, want [A B C]", got)
	}
	if tr.State() != StateOpen {
		t.Errorf("state = %s, want open", tr.State())
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dialer := &fakeDialer{}
	tr := New(Options{URL: "ws://x", Dial: dialer.dial, Clock: clock.NewFake(time.Unix(0, 0))})
	if err := tr.Open(); err != nil {
		t.Fatal(err)
	}
	if err := tr.Open(); err != nil {
		t.Fatal(err)
	}
	if dialer.dialCount() != 1 {
		t.Errorf("dials = %d, want 1", dialer.dialCount())
	}
}

func TestReconnectPreservesOutboundOrder(t *testing.T) {
	dialer := &fakeDialer{}
	fake := clock.NewFake(time.Unix(0, 0))
	tr := New(Options{
		URL:     "ws://x",
		Dial:    dialer.dial,
		Clock:   fake,
		Backoff: &Backoff{Base: 10 * time.Millisecond, Max: 40 * time.Millisecond},
	})
	if err := tr.Open(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return tr.State() == StateOpen })

	// Drop the socket and queue frames while reconnecting.
	dialer.conn(0).Close()
	waitFor(t, func() bool { return tr.State() == StateReconnecting })

	_ = tr.Send(frame{Type: "chat", Content: "A"})
	_ = tr.Send(frame{Type: "chat", Content: "B"})
	_ = tr.Send(frame{Type: "chat", Content: "C"})

	fake.Advance(15 * time.Millisecond)
	waitFor(t, func() bool { return tr.Queued() == 0 })

	got := dialer.conn(1).sentContents(t)
	if len(got) != 3 || got[0] != "A" || got[1] != "B" || got[2] != "C" {
		t.Fatalf("sent after reconnect = %v, want [A B C]", got)
	}
}

func TestWriteFailureRetainsFrame(t *testing.T) {
	dialer := &fakeDialer{}
	fake := clock.NewFake(time.Unix(0, 0))
	tr := New(Options{
		URL:     "ws://x",
		Dial:    dialer.dial,
		Clock:   fake,
		Backoff: &Backoff{Base: 10 * time.Millisecond, Max: 40 * time.Millisecond},
	})
	if err := tr.Open(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return tr.State() == StateOpen })

	conn := dialer.conn(0)
	conn.mu.Lock()
	conn.failWrites = true
	conn.mu.Unlock()

	_ = tr.Send(frame{Type: "chat", Content: "A"})
	waitFor(t, func() bool { return tr.State() == StateReconnecting })
	if tr.Queued() != 1 {
		t.Fatalf("queued = %d, want 1", tr.Queued())
	}

	fake.Advance(15 * time.Millisecond)
	waitFor(t, func() bool { return tr.Queued() == 0 })
	got := dialer.conn(1).sentContents(t)
	if len(got) != 1 || got[0] != "A" {
		t.Fatalf("sent = %v, want [A]", got)
	}
}

func TestSocketLossArmsOneReconnect(t *testing.T) {
	dialer := &fakeDialer{}
	fake := clock.NewFake(time.Unix(0, 0))
	tr := New(Options{
		URL:     "ws://x",
		Dial:    dialer.dial,
		Clock:   fake,
		Backoff: &Backoff{Base: 10 * time.Millisecond, Max: 40 * time.Millisecond},
	})
	if err := tr.Open(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return tr.State() == StateOpen })

	// A failed write reports the loss from the flush loop; cancelling
	// the read context makes the read loop report the same loss again.
	conn := dialer.conn(0)
	conn.mu.Lock()
	conn.failWrites = true
	conn.mu.Unlock()
	_ = tr.Send(frame{Type: "chat", Content: "A"})

	waitFor(t, func() bool { return tr.State() == StateReconnecting })
	time.Sleep(10 * time.Millisecond) // let the read loop observe the cancel

	fake.Advance(100 * time.Millisecond)
	waitFor(t, func() bool { return tr.State() == StateOpen })
	time.Sleep(10 * time.Millisecond)

	if got := dialer.dialCount(); got != 2 {
		t.Fatalf("dials after one socket loss = %d, want 2 (1 initial + 1 reconnect)", got)
	}
	select {
	case <-dialer.conn(0).done:
	default:
		t.Error("lost connection was not closed")
	}

	// A later tick must not wake a leftover duplicate timer.
	fake.Advance(time.Second)
	if got := dialer.dialCount(); got != 2 {
		t.Errorf("dials after settle = %d, want 2", got)
	}
}

func TestInboundFramesDeliveredInOrder(t *testing.T) {
	dialer := &fakeDialer{}
	received := make(chan string, 16)
	tr := New(Options{
		URL:   "ws://x",
		Dial:  dialer.dial,
		Clock: clock.NewFake(time.Unix(0, 0)),
		Handler: func(eventType string, payload json.RawMessage) {
			received <- eventType
		},
	})
	if err := tr.Open(); err != nil {
		t.Fatal(err)
	}
	conn := dialer.conn(0)
	conn.inbound <- json.RawMessage(`{"type":"chat","content":"hi"}`)
	conn.inbound <- json.RawMessage(`{"no_type":true}`)
	conn.inbound <- json.RawMessage(`{"type":"typing","agent_id":"builder"}`)

	if got := <-received; got != "chat" {
		t.Errorf("first = %q", got)
	}
	if got := <-received; got != "typing" {
		t.Errorf("second = %q (untyped frame should be dropped)", got)
	}
	tr.Close()
}

func TestCloseCancelsReconnect(t *testing.T) {
	dialer := &fakeDialer{fail: true}
	fake := clock.NewFake(time.Unix(0, 0))
	tr := New(Options{
		URL:     "ws://x",
		Dial:    dialer.dial,
		Clock:   fake,
		Backoff: &Backoff{Base: 10 * time.Millisecond, Max: 40 * time.Millisecond},
	})
	if err := tr.Open(); err != nil {
		t.Fatal(err)
	}
	if dialer.dialCount() != 1 {
		t.Fatalf("dials = %d", dialer.dialCount())
	}
	if err := tr.Close(); err != nil {
		t.Fatal(err)
	}
	fake.Advance(time.Second)
	if dialer.dialCount() != 1 {
		t.Errorf("dials after close = %d, want 1", dialer.dialCount())
	}
	if err := tr.Send(frame{Type: "chat"}); err != ErrClosed {
		t.Errorf("Send after close = %v, want ErrClosed", err)
	}
	if tr.State() != StateIdle {
		t.Errorf("state = %s, want idle", tr.State())
	}
}
