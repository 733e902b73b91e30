package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually advanced Clock for tests. Advance fires due timers
// and ticker ticks in deadline order on the calling goroutine.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*fakeTimer
	tickers []*fakeTicker
}

// NewFake returns a Fake pinned at the given instant.
func NewFake(now time.Time) *Fake {
	return &Fake{now: now}
}

// Now returns the fake instant.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// NewTicker registers a ticker driven by Advance.
func (f *Fake) NewTicker(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{
		fake:     f,
		interval: d,
		next:     f.now.Add(d),
		ch:       make(chan time.Time, 64),
	}
	f.tickers = append(f.tickers, t)
	return t
}

// AfterFunc registers a one-shot call driven by Advance.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{fake: f, when: f.now.Add(d), fn: fn}
	f.timers = append(f.timers, t)
	return t
}

// Advance moves the fake clock forward, firing everything due.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		fn, at, ok := f.nextDue(target)
		if !ok {
			break
		}
		f.mu.Lock()
		if at.After(f.now) {
			f.now = at
		}
		f.mu.Unlock()
		fn()
	}

	f.mu.Lock()
	f.now = target
	f.mu.Unlock()
}

// nextDue pops the earliest timer or ticker tick at or before target.
func (f *Fake) nextDue(target time.Time) (func(), time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	type due struct {
		when  time.Time
		timer *fakeTimer
		tick  *fakeTicker
	}
	var candidates []due
	for _, t := range f.timers {
		if !t.stopped && !t.when.After(target) {
			candidates = append(candidates, due{when: t.when, timer: t})
		}
	}
	for _, tk := range f.tickers {
		if !tk.stopped && !tk.next.After(target) {
			candidates = append(candidates, due{when: tk.next, tick: tk})
		}
	}
	if len(candidates) == 0 {
		return nil, time.Time{}, false
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].when.Before(candidates[j].when) })
	c := candidates[0]

	if c.timer != nil {
		c.timer.stopped = true
		fn := c.timer.fn
		return fn, c.when, true
	}

	tk := c.tick
	at := tk.next
	tk.next = tk.next.Add(tk.interval)
	return func() {
		select {
		case tk.ch <- at:
		default:
		}
	}, at, true
}

type fakeTimer struct {
	fake    *Fake
	when    time.Time
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.fake.mu.Lock()
	defer t.fake.mu.Unlock()
	was := t.stopped
	t.stopped = true
	return !was
}

type fakeTicker struct {
	fake     *Fake
	interval time.Duration
	next     time.Time
	ch       chan time.Time
	stopped  bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.fake.mu.Lock()
	defer t.fake.mu.Unlock()
	t.stopped = true
}
