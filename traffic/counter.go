package traffic

import (
	"errors"
	"fmt"
	"sync"
)

var ErrNegativeCount = errors.New("negative minute count")

// CounterStore holds the lifetime cumulative vehicle total per site. Persisted
// totals only ever grow: Rewind undoes an unpersisted Advance and Seed never
// lowers an existing total.
type CounterStore struct {
	mu     sync.Mutex
	totals map[string]int64
}

func NewCounterStore() *CounterStore {
	return &CounterStore{totals: make(map[string]int64)}
}

func (c *CounterStore) Advance(site string, minuteCount int) (int64, error) {
	if minuteCount < 0 {
		return 0, fmt.Errorf("%w: site %q: %d", ErrNegativeCount, site, minuteCount)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.totals[site] + int64(minuteCount)
	c.totals[site] = total
	return total, nil
}

// Rewind takes back a minute count whose record was never persisted. The
// total does not drop below zero.
func (c *CounterStore) Rewind(site string, minuteCount int) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := c.totals[site] - int64(minuteCount)
	if total < 0 {
		total = 0
	}
	c.totals[site] = total
	return total
}

func (c *CounterStore) Total(site string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totals[site]
}

// Seed raises the site total to at least total, typically from the last
// persisted record. It returns the total in effect afterwards.
func (c *CounterStore) Seed(site string, total int64) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if total > c.totals[site] {
		c.totals[site] = total
	}
	return c.totals[site]
}

func (c *CounterStore) Snapshot() map[string]int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.totals))
	for k, v := range c.totals {
		out[k] = v
	}
	return out
}
