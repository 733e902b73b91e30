package channel

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/adamavenir/office/internal/api"
	"github.com/adamavenir/office/internal/clock"
	"github.com/adamavenir/office/internal/transport"
	"github.com/adamavenir/office/internal/types"
)

const (
	defaultLinger       = 1500 * time.Millisecond
	defaultPollInterval = 2 * time.Second
)

// API is the REST surface a session calls. *api.Client implements it.
type API interface {
	Messages(ctx context.Context, channel string, limit int) ([]types.Message, error)
	Conversation(ctx context.Context, channel string) (types.ConversationStatus, error)
	StopConversation(ctx context.Context, channel string) error
	ClearMessages(ctx context.Context, channel string) (*types.Message, error)
	Reactions(ctx context.Context, messageID string) (types.ReactionSummary, error)
	ToggleReaction(ctx context.Context, messageID string, req api.ToggleReactionRequest) (types.ReactionSummary, error)
	Permissions(ctx context.Context, channel string) (types.PermissionPolicy, error)
	Grant(ctx context.Context, req api.GrantRequest) (types.PermissionPolicy, error)
	TrustSession(ctx context.Context, req api.TrustSessionRequest) (types.PermissionPolicy, error)
	ApprovalResponse(ctx context.Context, req api.ApprovalDecision) error
	PendingApprovals(ctx context.Context, channel, project string) ([]types.ApprovalRequest, error)
	Processes(ctx context.Context, channel string) (types.ProcessState, error)
	KillSwitch(ctx context.Context, channel string) error
	ActiveProject(ctx context.Context, channel string) (types.ActiveProject, error)
	AutonomyMode(ctx context.Context, project string) (types.AutonomyMode, error)
	CollabMode(ctx context.Context, channel string) (types.CollabMode, error)
	UploadFile(ctx context.Context, name, contentType string, r io.Reader) (api.UploadedFile, error)
}

// Wire is the live connection a session owns while active.
type Wire interface {
	Open() error
	Send(v any) error
	Close() error
	State() transport.State
}

// WireFactory builds a fresh Wire per activation. The handler receives
// inbound frames; onState reports connection state changes.
type WireFactory func(handler transport.Handler, onState func(transport.State)) Wire

// MessageCache persists messages for instant history on reopen.
// *cache.Cache implements it; nil disables caching.
type MessageCache interface {
	Messages(channel string, limit int) ([]types.Message, error)
	Put(channel string, msg types.Message) error
	Replace(channel string, msgs []types.Message) error
	Clear(channel string) error
}

// Config wires up a Session.
type Config struct {
	Channel string
	API     API
	NewWire WireFactory

	Clock   clock.Clock
	Logger  *log.Logger
	Cache   MessageCache
	Visible func() bool

	// OnApproval fires when a new approval request enters the queue.
	OnApproval func(types.ApprovalRequest)

	Linger       time.Duration
	PollInterval time.Duration
}

// Session is the live handle on one channel. It owns the store, the
// wire, the poll loop, and the once-a-second housekeeping tick. A
// session activates when the first holder acquires it and tears down
// after the last holder releases it plus a short linger, so a quick
// channel round-trip keeps the socket warm.
type Session struct {
	channel    string
	api        API
	newWire    WireFactory
	clock      clock.Clock
	logger     *log.Logger
	cache      MessageCache
	visible    func() bool
	onApproval func(types.ApprovalRequest)
	linger     time.Duration
	pollEvery  time.Duration
	store      *Store

	mu          sync.Mutex
	refs        int
	active      bool
	gen         int
	wire        Wire
	wireState   transport.State
	lingerTimer clock.Timer
	loadCtx     context.Context
	loadCancel  context.CancelFunc
	poll        *poller
	ticker      clock.Ticker
	tickStop    chan struct{}

	resolving      map[string]bool
	reactionState  map[string]reactionState
	reactionCancel map[string]context.CancelFunc

	listeners    map[int]func()
	nextListener int

	notifyCh chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewSession builds an idle session. Nothing runs until Acquire.
func NewSession(cfg Config) *Session {
	s := &Session{
		channel:        cfg.Channel,
		api:            cfg.API,
		newWire:        cfg.NewWire,
		clock:          cfg.Clock,
		logger:         cfg.Logger,
		cache:          cfg.Cache,
		visible:        cfg.Visible,
		onApproval:     cfg.OnApproval,
		linger:         cfg.Linger,
		pollEvery:      cfg.PollInterval,
		store:          NewStore(cfg.Channel),
		resolving:      make(map[string]bool),
		reactionState:  make(map[string]reactionState),
		reactionCancel: make(map[string]context.CancelFunc),
		listeners:      make(map[int]func()),
		notifyCh:       make(chan struct{}, 1),
		stopCh:         make(chan struct{}),
	}
	if s.clock == nil {
		s.clock = clock.System()
	}
	if s.visible == nil {
		s.visible = func() bool { return true }
	}
	if s.linger <= 0 {
		s.linger = defaultLinger
	}
	if s.pollEvery <= 0 {
		s.pollEvery = defaultPollInterval
	}
	go s.notifyLoop()
	return s
}

// Channel returns the channel id.
func (s *Session) Channel() string { return s.channel }

// Store exposes the underlying state for read helpers like Thread.
func (s *Session) Store() *Store { return s.store }

// Acquire takes a reference and activates the session if it was idle:
// open the wire, start the poll loop and housekeeping tick, load
// history.
func (s *Session) Acquire() {
	s.mu.Lock()
	s.refs++
	if s.lingerTimer != nil {
		s.lingerTimer.Stop()
		s.lingerTimer = nil
	}
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(context.Background())
	s.loadCtx, s.loadCancel = ctx, cancel
	s.wire = s.newWire(s.reduce, s.setWireState)
	wire := s.wire
	s.ticker = s.clock.NewTicker(time.Second)
	s.tickStop = make(chan struct{})
	ticker, tickStop := s.ticker, s.tickStop
	s.poll = newPoller(s)
	poll := s.poll
	s.mu.Unlock()

	if err := wire.Open(); err != nil {
		s.logf("open %s: %v", s.channel, err)
	}
	go s.tickLoop(ticker, tickStop)
	poll.start()
	go s.loadHistory(ctx, gen)
	s.notify()
}

// Release drops a reference. When the last holder releases, teardown is
// deferred by the linger window so an immediate re-acquire is free.
func (s *Session) Release() {
	s.mu.Lock()
	if s.refs > 0 {
		s.refs--
	}
	if s.refs > 0 || !s.active {
		s.mu.Unlock()
		return
	}
	s.lingerTimer = s.clock.AfterFunc(s.linger, s.teardown)
	s.mu.Unlock()
}

// Shutdown tears the session down immediately and stops its notifier.
func (s *Session) Shutdown() {
	s.mu.Lock()
	s.refs = 0
	if s.lingerTimer != nil {
		s.lingerTimer.Stop()
		s.lingerTimer = nil
	}
	s.mu.Unlock()
	s.teardown()
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func (s *Session) teardown() {
	s.mu.Lock()
	if s.refs > 0 || !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.gen++
	s.lingerTimer = nil
	if s.loadCancel != nil {
		s.loadCancel()
		s.loadCancel = nil
	}
	s.loadCtx = nil
	wire := s.wire
	s.wire = nil
	poll := s.poll
	s.poll = nil
	ticker := s.ticker
	s.ticker = nil
	tickStop := s.tickStop
	s.tickStop = nil
	for id, cancel := range s.reactionCancel {
		cancel()
		delete(s.reactionCancel, id)
	}
	for id, st := range s.reactionState {
		if st == reactionLoading {
			s.reactionState[id] = reactionUnknown
		}
	}
	s.wireState = transport.StateIdle
	s.mu.Unlock()

	if ticker != nil {
		ticker.Stop()
	}
	if tickStop != nil {
		close(tickStop)
	}
	if poll != nil {
		poll.stop()
	}
	if wire != nil {
		_ = wire.Close()
	}
	s.notify()
}

// Active reports whether the session is running.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Session) generation() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// genValid reports whether results tagged with gen may still be
// applied. Stale generations mean the channel was torn down or
// reactivated while the request was in flight.
func (s *Session) genValid(gen int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active && gen == s.gen
}

func (s *Session) isVisible() bool { return s.visible() }

func (s *Session) setWireState(st transport.State) {
	s.mu.Lock()
	s.wireState = st
	s.mu.Unlock()
	s.notify()
}

// Snapshot copies the current channel state for rendering.
func (s *Session) Snapshot() Snapshot {
	snap := s.store.Snapshot(s.clock.Now())
	s.mu.Lock()
	snap.ConnState = s.wireState
	s.mu.Unlock()
	return snap
}

// Subscribe registers a change listener and returns its cancel func.
// Notifications are coalesced; listeners should re-read Snapshot.
func (s *Session) Subscribe(fn func()) (cancel func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// notify schedules one coalesced listener round.
func (s *Session) notify() {
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

func (s *Session) notifyLoop() {
	for {
		select {
		case <-s.stopCh:
			return
		case <-s.notifyCh:
			s.mu.Lock()
			fns := make([]func(), 0, len(s.listeners))
			for _, fn := range s.listeners {
				fns = append(fns, fn)
			}
			s.mu.Unlock()
			for _, fn := range fns {
				fn()
			}
		}
	}
}

func (s *Session) tickLoop(ticker clock.Ticker, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C():
			s.onTick(now)
		}
	}
}

// onTick runs once a second: drop stale typing indicators, expire the
// active approval locally, and redraw countdowns.
func (s *Session) onTick(now time.Time) {
	changed := s.store.PruneTyping(now)
	if req, ok := s.store.ExpireActiveApproval(now); ok {
		s.logf("approval %s expired locally", req.ID)
		changed = true
	}
	if changed || s.store.ApprovalCount() > 0 {
		s.notify()
	}
}

// Stop asks the server to halt the active conversation.
func (s *Session) Stop(ctx context.Context) error {
	return s.api.StopConversation(ctx, s.channel)
}

// ClearChat wipes the channel history server-side and locally. The
// server may return a fresh marker message to seed the empty timeline.
func (s *Session) ClearChat(ctx context.Context) error {
	marker, err := s.api.ClearMessages(ctx, s.channel)
	if err != nil {
		return err
	}
	s.store.ClearMessages()
	if s.cache != nil {
		if cerr := s.cache.Clear(s.channel); cerr != nil {
			s.logf("cache clear %s: %v", s.channel, cerr)
		}
	}
	if marker != nil {
		s.store.AppendMessage(*marker)
		s.cachePut(*marker)
	}
	s.notify()
	return nil
}

// TriggerKillSwitch demotes the channel to safe mode. The server
// broadcasts a kill_switch event; the demotion is also applied locally
// so the UI does not wait on the round trip.
func (s *Session) TriggerKillSwitch(ctx context.Context) error {
	if err := s.api.KillSwitch(ctx, s.channel); err != nil {
		return err
	}
	s.store.SetAutonomy(types.AutonomySafe)
	s.store.SetPolicy(types.PermissionPolicy{Mode: types.PermissionAsk})
	s.notify()
	return nil
}

func (s *Session) cachePut(msg types.Message) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(s.channel, msg); err != nil {
		s.logf("cache put %s: %v", msg.ID, err)
	}
}

func (s *Session) logf(format string, args ...any) {
	if s.logger == nil {
		return
	}
	s.logger.Printf(format, args...)
}
