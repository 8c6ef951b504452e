package traffic

import (
	"errors"
	"sync"
	"testing"
)

func TestCounterAdvanceNonDecreasing(t *testing.T) {
	c := NewCounterStore()
	c.Seed("site", 1000)

	counts := []int{3, 0, 7, 12, 0, 1}
	prev := c.Total("site")
	sum := 0
	for _, m := range counts {
		got, err := c.Advance("site", m)
		if err != nil {
			t.Fatalf("Advance(%d) error: %v", m, err)
		}
		if got < prev {
			t.Fatalf("total went backwards: %d -> %d", prev, got)
		}
		prev = got
		sum += m
	}
	if want := int64(1000 + sum); prev != want {
		t.Errorf("final total = %d, want %d", prev, want)
	}
}

func TestCounterUnseenSiteStartsAtZero(t *testing.T) {
	c := NewCounterStore()
	if got := c.Total("new"); got != 0 {
		t.Errorf("Total(new) = %d, want 0", got)
	}
	got, err := c.Advance("new", 4)
	if err != nil || got != 4 {
		t.Errorf("Advance(new, 4) = %d, %v; want 4, nil", got, err)
	}
}

func TestCounterRejectsNegative(t *testing.T) {
	c := NewCounterStore()
	c.Seed("site", 10)
	if _, err := c.Advance("site", -1); !errors.Is(err, ErrNegativeCount) {
		t.Errorf("Advance(-1) error = %v, want ErrNegativeCount", err)
	}
	if got := c.Total("site"); got != 10 {
		t.Errorf("Total after rejected advance = %d, want 10", got)
	}
}

func TestCounterRewind(t *testing.T) {
	c := NewCounterStore()
	c.Seed("site", 100)
	c.Advance("site", 7)
	if got := c.Rewind("site", 7); got != 100 {
		t.Errorf("Rewind(7) = %d, want 100", got)
	}
	if got := c.Rewind("other", 3); got != 0 {
		t.Errorf("Rewind on unseen site = %d, want 0", got)
	}
}

func TestCounterSeedNeverLowers(t *testing.T) {
	c := NewCounterStore()
	c.Seed("site", 50)
	if got := c.Seed("site", 20); got != 50 {
		t.Errorf("Seed(20) after 50 = %d, want 50", got)
	}
	if got := c.Seed("site", 80); got != 80 {
		t.Errorf("Seed(80) = %d, want 80", got)
	}
}

func TestCounterSitesIndependent(t *testing.T) {
	c := NewCounterStore()
	c.Advance("a", 5)
	c.Advance("b", 2)
	c.Advance("a", 1)
	snap := c.Snapshot()
	if snap["a"] != 6 || snap["b"] != 2 {
		t.Errorf("Snapshot() = %v, want a=6 b=2", snap)
	}
}

func TestCounterConcurrentAdvance(t *testing.T) {
	c := NewCounterStore()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c.Advance("shared", 1)
			}
		}()
	}
	wg.Wait()
	if got := c.Total("shared"); got != 1600 {
		t.Errorf("Total(shared) = %d, want 1600", got)
	}
}
