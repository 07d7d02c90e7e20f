package webhook

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestEventCache_SeenDeduplicates(t *testing.T) {
	c := NewEventCache(time.Minute, 10)
	if c.Seen("evt-1") {
		t.Fatal("first delivery should not be seen")
	}
	if !c.Seen("evt-1") {
		t.Fatal("second delivery should be seen")
	}
	if c.Seen("evt-2") {
		t.Fatal("distinct event should not be seen")
	}
}

func TestEventCache_TTLExpiry(t *testing.T) {
	c := NewEventCache(time.Minute, 10)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	if c.Seen("evt-1") {
		t.Fatal("first delivery should not be seen")
	}
	clock = clock.Add(30 * time.Second)
	if !c.Seen("evt-1") {
		t.Fatal("unexpired entry should still be seen")
	}
	clock = clock.Add(time.Minute)
	if c.Seen("evt-1") {
		t.Fatal("expired entry should be treated as new")
	}
	if got := c.Len(); got != 1 {
		t.Fatalf("Len = %d; want 1", got)
	}
}

func TestEventCache_CapacityEvictsOldest(t *testing.T) {
	c := NewEventCache(time.Hour, 3)
	for i := 1; i <= 4; i++ {
		c.Seen(fmt.Sprintf("evt-%d", i))
	}
	if got := c.Len(); got != 3 {
		t.Fatalf("Len = %d; want 3", got)
	}
	if c.Seen("evt-1") {
		t.Fatal("oldest entry should have been evicted")
	}
	if !c.Seen("evt-4") {
		t.Fatal("newest entry should survive eviction")
	}
}

func TestEventCache_Defaults(t *testing.T) {
	c := NewEventCache(0, 0)
	if c.ttl != 30*time.Minute {
		t.Fatalf("ttl = %v; want 30m", c.ttl)
	}
	if c.max != 10000 {
		t.Fatalf("max = %d; want 10000", c.max)
	}
}

func TestEventCache_ConcurrentSeenElectsOne(t *testing.T) {
	c := NewEventCache(time.Minute, 100)
	const workers = 16
	var wg sync.WaitGroup
	winners := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !c.Seen("evt-shared") {
				winners <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(winners)
	count := 0
	for range winners {
		count++
	}
	if count != 1 {
		t.Fatalf("exactly one goroutine should process the event, got %d", count)
	}
}
