// Package session holds the locally materialized Session and notifies subscribers
// when it changes.
package session

import (
	"sync"
	"sync/atomic"

	"github.com/glosswerks/glosswerks-api/internal/domain/auth"
)

// Listener receives the newly committed session (nil after a clear).
// Listeners run synchronously inside Commit and must not call back into the Cache.
type Listener func(*auth.Session)

// Cache is the single owner of the current Session for one client.
// Reads are lock-free; commits are serialized so every listener sees changes in order.
type Cache struct {
	current atomic.Pointer[auth.Session]

	mu        sync.Mutex
	nextID    uint64
	listeners map[uint64]Listener
	order     []uint64
	watchers  map[chan *auth.Session]struct{}
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{
		listeners: make(map[uint64]Listener),
		watchers:  make(map[chan *auth.Session]struct{}),
	}
}

// Current returns a copy of the committed session, or nil when anonymous.
func (c *Cache) Current() *auth.Session {
	return clone(c.current.Load())
}

// Commit replaces the session when it differs structurally from the current one.
// It returns false, and notifies nobody, when nothing changed.
func (c *Cache) Commit(s *auth.Session) bool {
	next := clone(s)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current.Load().Equal(next) {
		return false
	}
	c.current.Store(next)

	for _, id := range c.order {
		if fn, ok := c.listeners[id]; ok {
			fn(clone(next))
		}
	}
	for ch := range c.watchers {
		offerLatest(ch, clone(next))
	}
	return true
}

// Clear drops the session. It is Commit(nil).
func (c *Cache) Clear() bool { return c.Commit(nil) }

// Subscribe registers fn for every future committed change.
func (c *Cache) Subscribe(fn Listener) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.listeners[id] = fn
	c.order = append(c.order, id)

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			delete(c.listeners, id)
			for i, v := range c.order {
				if v == id {
					c.order = append(c.order[:i], c.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Watch returns a channel carrying committed changes for streaming consumers.
// A slow reader only ever sees the newest pending value; intermediate ones are replaced.
func (c *Cache) Watch() (<-chan *auth.Session, func()) {
	ch := make(chan *auth.Session, 1)

	c.mu.Lock()
	c.watchers[ch] = struct{}{}
	c.mu.Unlock()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if _, ok := c.watchers[ch]; ok {
				delete(c.watchers, ch)
				drainAndClose(ch)
			}
		})
	}
	return ch, stop
}

// Close detaches every watcher. Listeners stay registered.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ch := range c.watchers {
		delete(c.watchers, ch)
		drainAndClose(ch)
	}
}

// offerLatest delivers v, replacing a value the reader has not picked up yet.
// Callers hold c.mu, so no other sender races for the slot.
func offerLatest(ch chan *auth.Session, v *auth.Session) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- v
}

func drainAndClose(ch chan *auth.Session) {
	for {
		select {
		case <-ch:
		default:
			close(ch)
			return
		}
	}
}

func clone(s *auth.Session) *auth.Session {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}
