package syncer

import (
	"math"
	"sync"
	"time"

	"github.com/openroam/tripgraph/internal/domain"
)

// DefaultPresenceInterval is the minimum gap between presence publishes.
const DefaultPresenceInterval = 100 * time.Millisecond

// Broadcaster throttles pointer-position publishes: at most one per interval,
// with intervening moves coalesced into a single trailing publish carrying
// the latest position. Coordinates arrive already transformed into document
// space and are rounded to two decimal places.
type Broadcaster struct {
	self     domain.Presence
	interval time.Duration
	publish  func(domain.Presence) error

	mu      sync.Mutex
	last    time.Time
	pending *domain.Presence
	timer   *time.Timer
	stopped bool

	nowFn func() time.Time
}

// NewBroadcaster builds a broadcaster for the local user's identity. A zero
// interval uses the default.
func NewBroadcaster(self domain.Presence, interval time.Duration, publish func(domain.Presence) error) *Broadcaster {
	if interval <= 0 {
		interval = DefaultPresenceInterval
	}
	return &Broadcaster{
		self:     self,
		interval: interval,
		publish:  publish,
		nowFn:    time.Now,
	}
}

// Move records a pointer position. If the interval since the last publish has
// elapsed it publishes immediately; otherwise the position replaces any
// pending one and a single trailing timer flushes it, so the final position
// is always eventually published.
func (b *Broadcaster) Move(x, y float64) {
	p := b.self
	p.MouseX = roundCoord(x)
	p.MouseY = roundCoord(y)

	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		return
	}
	now := b.nowFn()
	if b.timer == nil && now.Sub(b.last) >= b.interval {
		b.last = now
		b.mu.Unlock()
		_ = b.publish(p)
		return
	}
	b.pending = &p
	if b.timer == nil {
		delay := b.interval - now.Sub(b.last)
		if delay < 0 {
			delay = 0
		}
		b.timer = time.AfterFunc(delay, b.flush)
	}
	b.mu.Unlock()
}

func (b *Broadcaster) flush() {
	b.mu.Lock()
	b.timer = nil
	if b.stopped || b.pending == nil {
		b.mu.Unlock()
		return
	}
	p := *b.pending
	b.pending = nil
	b.last = b.nowFn()
	b.mu.Unlock()

	_ = b.publish(p)
}

// Stop discards any pending publish and prevents further ones. Part of
// session teardown: after Stop no callback fires.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	b.pending = nil
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}

// WithClock overrides the time source (used in tests).
func (b *Broadcaster) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		b.nowFn = nowFn
	}
}

func roundCoord(v float64) float64 {
	return math.Round(v*100) / 100
}
