// Package velocity counts recent events per key over a sliding window. The gatekeeper
// uses it to decide when a login attempt must carry a CAPTCHA token.
package velocity

import (
	"sync"
	"time"
)

type entry struct {
	mu     sync.Mutex
	events []time.Time
	last   time.Time
	// removed is set by Sweep once the entry is no longer in the map.
	removed bool
}

// Counter tracks timestamps per key. The zero value is not usable; call New.
type Counter struct {
	mu   sync.RWMutex
	keys map[string]*entry
	now  func() time.Time

	stop chan struct{}
	once sync.Once
}

// New returns a Counter. When sweepEvery > 0 a sweeper drops keys idle for longer
// than idleAfter.
func New(sweepEvery, idleAfter time.Duration, now func() time.Time) *Counter {
	if now == nil {
		now = time.Now
	}
	c := &Counter{
		keys: make(map[string]*entry),
		now:  now,
		stop: make(chan struct{}),
	}
	if sweepEvery > 0 {
		go c.sweeper(sweepEvery, idleAfter)
	}
	return c
}

// IncrementAndCheck records one event for key, drops events older than window and
// reports whether the remaining count is within limit.
func (c *Counter) IncrementAndCheck(key string, limit int, window time.Duration) bool {
	now := c.now()
	e := c.lockedEntry(key)
	defer e.mu.Unlock()

	cutoff := now.Add(-window)
	i := 0
	for i < len(e.events) && !e.events[i].After(cutoff) {
		i++
	}
	e.events = append(e.events[i:], now)
	e.last = now

	return len(e.events) <= limit
}

// Count returns the number of events for key inside window without recording one.
func (c *Counter) Count(key string, window time.Duration) int {
	c.mu.RLock()
	e, ok := c.keys[key]
	c.mu.RUnlock()
	if !ok {
		return 0
	}

	cutoff := c.now().Add(-window)
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, t := range e.events {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}

func (c *Counter) entry(key string) *entry {
	c.mu.RLock()
	e, ok := c.keys[key]
	c.mu.RUnlock()
	if ok {
		return e
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok = c.keys[key]; !ok {
		e = &entry{}
		c.keys[key] = e
	}
	return e
}

// lockedEntry returns the live entry for key with its mutex held. An entry detached
// by a concurrent Sweep is skipped so the event lands on the mapped one.
func (c *Counter) lockedEntry(key string) *entry {
	for {
		e := c.entry(key)
		e.mu.Lock()
		if !e.removed {
			return e
		}
		e.mu.Unlock()
	}
}

// Sweep removes keys whose last event is older than idleAfter and returns how many
// were removed.
func (c *Counter) Sweep(idleAfter time.Duration) int {
	cutoff := c.now().Add(-idleAfter)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.keys {
		e.mu.Lock()
		if e.last.Before(cutoff) {
			e.removed = true
			delete(c.keys, k)
			removed++
		}
		e.mu.Unlock()
	}
	return removed
}

// Len returns the number of tracked keys.
func (c *Counter) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

// Close stops the sweeper.
func (c *Counter) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Counter) sweeper(every, idleAfter time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-t.C:
			c.Sweep(idleAfter)
		}
	}
}
