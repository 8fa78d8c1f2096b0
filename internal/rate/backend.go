package rate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Backend increments the counter for key inside a fixed window and returns the new count.
type Backend interface {
	Increment(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisBackend shares counters between processes through Redis.
type RedisBackend struct {
	redis redis.UniversalClient
}

// NewRedisBackend returns a Backend over client.
func NewRedisBackend(client redis.UniversalClient) *RedisBackend {
	return &RedisBackend{redis: client}
}

// Increment implements Backend.
func (b *RedisBackend) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := b.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := b.redis.Expire(ctx, key, window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}

	return count, nil
}

type memWindow struct {
	count   int64
	expires time.Time
}

// MemoryBackend keeps counters in process memory. It is meant for single-instance
// deployments and tests.
type MemoryBackend struct {
	mu      sync.Mutex
	windows map[string]*memWindow
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// NewMemoryBackend starts a backend whose janitor evicts expired windows every
// sweepEvery. A zero sweepEvery disables the janitor.
func NewMemoryBackend(sweepEvery time.Duration, now func() time.Time) *MemoryBackend {
	if now == nil {
		now = time.Now
	}
	b := &MemoryBackend{
		windows: make(map[string]*memWindow),
		now:     now,
		stop:    make(chan struct{}),
	}
	if sweepEvery > 0 {
		go b.janitor(sweepEvery)
	}
	return b
}

// Increment implements Backend.
func (b *MemoryBackend) Increment(_ context.Context, key string, window time.Duration) (int64, error) {
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	w, ok := b.windows[key]
	if !ok || !now.Before(w.expires) {
		w = &memWindow{expires: now.Add(window)}
		b.windows[key] = w
	}
	w.count++
	return w.count, nil
}

// Sweep removes expired windows and returns how many were removed.
func (b *MemoryBackend) Sweep() int {
	now := b.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for k, w := range b.windows {
		if !now.Before(w.expires) {
			delete(b.windows, k)
			removed++
		}
	}
	return removed
}

// Close stops the janitor.
func (b *MemoryBackend) Close() {
	b.once.Do(func() { close(b.stop) })
}

func (b *MemoryBackend) janitor(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-b.stop:
			return
		case <-t.C:
			b.Sweep()
		}
	}
}
