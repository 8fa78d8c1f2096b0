package velocity

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestIncrementAndCheckSlidingWindow(t *testing.T) {
	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	c := New(0, 0, clk.Now)

	for i := 0; i < 3; i++ {
		assert.True(t, c.IncrementAndCheck("ip:1.2.3.4", 3, time.Minute))
		clk.Advance(10 * time.Second)
	}
	assert.False(t, c.IncrementAndCheck("ip:1.2.3.4", 3, time.Minute))

	// The first event leaves the window after 60s.
	clk.Advance(31 * time.Second)
	assert.Equal(t, 3, c.Count("ip:1.2.3.4", time.Minute))
	assert.False(t, c.IncrementAndCheck("ip:1.2.3.4", 3, time.Minute))

	clk.Advance(2 * time.Minute)
	assert.True(t, c.IncrementAndCheck("ip:1.2.3.4", 3, time.Minute))
	assert.True(t, c.IncrementAndCheck("ip:5.6.7.8", 3, time.Minute))
}

func TestSweepDropsIdleKeys(t *testing.T) {
	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	c := New(0, 0, clk.Now)

	c.IncrementAndCheck("a", 10, time.Minute)
	clk.Advance(5 * time.Minute)
	c.IncrementAndCheck("b", 10, time.Minute)

	assert.Equal(t, 1, c.Sweep(time.Minute))
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 0, c.Count("a", time.Minute))
}

func TestConcurrentIncrementsAreCounted(t *testing.T) {
	c := New(0, 0, nil)
	defer c.Close()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncrementAndCheck("k", 1000, time.Hour)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, c.Count("k", time.Hour))
}

func TestIncrementSkipsEntryDetachedBySweep(t *testing.T) {
	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	c := New(0, 0, clk.Now)

	// fetched before the sweeper runs; never incremented, so idle
	stale := c.entry("ip:5.6.7.8")
	assert.Equal(t, 1, c.Sweep(time.Minute))
	assert.True(t, stale.removed)

	live := c.lockedEntry("ip:5.6.7.8")
	live.mu.Unlock()
	assert.NotSame(t, stale, live)

	assert.True(t, c.IncrementAndCheck("ip:5.6.7.8", 1, time.Minute))
	assert.Equal(t, 1, c.Count("ip:5.6.7.8", time.Minute))
	assert.Empty(t, stale.events)
}

func TestIncrementsSurviveConcurrentSweeps(t *testing.T) {
	clk := &clock{now: time.Unix(1_700_000_000, 0)}
	c := New(0, 0, clk.Now)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			default:
				c.Sweep(time.Hour)
			}
		}
	}()

	const keys = 200
	var wg sync.WaitGroup
	for i := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncrementAndCheck(fmt.Sprintf("ip:%d", i), 10, time.Minute)
		}()
	}
	wg.Wait()
	close(done)

	for i := range keys {
		assert.Equal(t, 1, c.Count(fmt.Sprintf("ip:%d", i), time.Minute))
	}
}
