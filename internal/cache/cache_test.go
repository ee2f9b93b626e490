package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestLRUEvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most recent
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected a=1, got %v %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	c := NewLRUCache[string](10, 10*time.Millisecond)
	c.Set("k", "v")
	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expected entry to expire")
	}

	c.Set("x", "1")
	c.Set("y", "2")
	time.Sleep(20 * time.Millisecond)
	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("expected 2 cleaned, got %d", n)
	}
}

func TestLRUZeroSizeStoresNothing(t *testing.T) {
	c := NewLRUCache[int](0, time.Minute)
	c.Set("a", 1)
	if c.Size() != 0 {
		t.Fatalf("expected disabled cache to stay empty")
	}
}

func TestGetOrLoadDeduplicates(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrLoad("all", func() (int, error) {
				calls.Add(1)
				<-release
				return 42, nil
			})
			if err != nil || v != 42 {
				t.Errorf("unexpected %v %v", v, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("expected one load, got %d", n)
	}
	if v, ok := c.Get("all"); !ok || v != 42 {
		t.Fatalf("expected cached value")
	}
}

func TestGetOrLoadErrorNotCached(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	boom := errors.New("boom")
	if _, err := c.GetOrLoad("k", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if c.Size() != 0 {
		t.Fatal("errors must not be cached")
	}
}

func TestPurgeDropsInFlightLoad(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		c.GetOrLoad("k", func() (int, error) {
			close(started)
			<-release
			return 1, nil
		})
	}()
	<-started
	c.Purge()
	close(release)
	<-done

	if _, ok := c.Get("k"); ok {
		t.Fatal("stale load must not repopulate a purged cache")
	}
}

func TestOnLookup(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	var hits, misses int
	c.OnLookup(func(hit bool) {
		if hit {
			hits++
		} else {
			misses++
		}
	})
	load := func() (int, error) { return 7, nil }
	c.GetOrLoad("k", load)
	c.GetOrLoad("k", load)
	if hits != 1 || misses != 1 {
		t.Fatalf("expected 1 hit and 1 miss, got %d/%d", hits, misses)
	}
}

func TestManagerCleansAndStops(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewLRUCache[int](10, time.Millisecond)
	c.Set("a", 1)

	m := NewManager()
	m.Register(c)
	m.StartCleanup(5 * time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for c.Size() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if c.Size() != 0 {
		t.Fatal("expected manager to clean expired entries")
	}
	m.Stop()
	m.Stop()
}

func TestManagerStopWithoutStart(t *testing.T) {
	defer goleak.VerifyNone(t)
	NewManager().Stop()
}

func BenchmarkGetOrLoadHit(b *testing.B) {
	c := NewLRUCache[[]int](16, time.Hour)
	load := func() ([]int, error) { return []int{1, 2, 3}, nil }
	_, _ = c.GetOrLoad("all", load)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := c.GetOrLoad("all", load); err != nil {
			b.Fatal(err)
		}
	}
}
