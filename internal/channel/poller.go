package channel

import (
	"context"
	"errors"
	"sync"

	"github.com/adamavenir/office/internal/clock"
)

// pollResource is one REST resource refreshed on the poll cadence.
type pollResource struct {
	name string
	run  func(ctx context.Context, gen int) error
}

func (s *Session) pollResources() []pollResource {
	return []pollResource{
		{"conversation", s.refreshConversation},
		{"collab", s.refreshCollab},
		{"project", s.refreshProject},
		{"permissions", s.refreshPermissions},
		{"processes", s.refreshProcesses},
		{"approvals", s.refreshApprovals},
	}
}

// poller refreshes channel status resources every pollEvery while the
// client is visible. Sweeps never overlap; a slow sweep makes the next
// tick a no-op instead of stacking requests. Each resource additionally
// cancels its own previous fetch if one is somehow still in flight.
type poller struct {
	s    *Session
	tick clock.Ticker
	done chan struct{}
	once sync.Once

	mu       sync.Mutex
	busy     bool
	inflight map[string]*pollRun
}

type pollRun struct {
	cancel context.CancelFunc
}

func newPoller(s *Session) *poller {
	return &poller{
		s:        s,
		done:     make(chan struct{}),
		inflight: make(map[string]*pollRun),
	}
}

func (p *poller) start() {
	p.tick = p.s.clock.NewTicker(p.s.pollEvery)
	go p.loop()
}

func (p *poller) loop() {
	for {
		select {
		case <-p.done:
			return
		case <-p.tick.C():
			p.onTick()
		}
	}
}

func (p *poller) onTick() {
	if !p.s.isVisible() {
		return
	}
	p.mu.Lock()
	if p.busy {
		p.mu.Unlock()
		return
	}
	p.busy = true
	p.mu.Unlock()
	go p.sweep()
}

func (p *poller) sweep() {
	gen := p.s.generation()
	var wg sync.WaitGroup
	for _, res := range p.s.pollResources() {
		res := res
		ctx, finish := p.begin(res.name)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer finish()
			if err := res.run(ctx, gen); err != nil && !errors.Is(err, context.Canceled) {
				p.s.logf("poll %s: %v", res.name, err)
			}
		}()
	}
	wg.Wait()

	p.mu.Lock()
	p.busy = false
	p.mu.Unlock()
	p.s.notify()
}

// begin cancels any in-flight fetch of the same resource and registers
// a fresh context for this one. The returned finish releases it.
func (p *poller) begin(name string) (context.Context, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if prev, ok := p.inflight[name]; ok {
		prev.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	run := &pollRun{cancel: cancel}
	p.inflight[name] = run
	finish := func() {
		cancel()
		p.mu.Lock()
		if p.inflight[name] == run {
			delete(p.inflight, name)
		}
		p.mu.Unlock()
	}
	return ctx, finish
}

func (p *poller) stop() {
	p.once.Do(func() {
		close(p.done)
		if p.tick != nil {
			p.tick.Stop()
		}
		p.mu.Lock()
		for name, run := range p.inflight {
			run.cancel()
			delete(p.inflight, name)
		}
		p.mu.Unlock()
	})
}
