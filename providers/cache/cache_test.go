package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// memStore is an in-memory Store for tests, with optional forced errors.
type memStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func TestTTLForDate(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		name   string
		target time.Time
		want   time.Duration
	}{
		{"yesterday", now.AddDate(0, 0, -1), TTLPast},
		{"today", now, TTLToday},
		{"tomorrow", now.AddDate(0, 0, 1), TTLTomorrow},
		{"in a week", now.AddDate(0, 0, 7), TTLNearWeek},
		{"far future", now.AddDate(0, 0, 30), TTLFar},
	}
	for _, c := range cases {
		if got := TTLForDate(c.target, now); got != c.want {
			t.Errorf("%s: TTLForDate = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestCache_GetSetRoundTrip(t *testing.T) {
	c := New(newMemStore())
	ctx := context.Background()

	type payload struct{ Name string }
	c.Set(ctx, "k1", payload{Name: "titans"}, time.Minute)

	var got payload
	hit, err := c.Get(ctx, "k1", &got)
	if err != nil || !hit {
		t.Fatalf("Get(k1) hit=%v err=%v, want hit", hit, err)
	}
	if got.Name != "titans" {
		t.Errorf("Get(k1) = %+v, want Name=titans", got)
	}
}

func TestCache_NilStoreAlwaysMisses(t *testing.T) {
	c := New(nil)
	ctx := context.Background()

	c.Set(ctx, "k1", "value", time.Minute) // must not panic

	var dst string
	hit, err := c.Get(ctx, "k1", &dst)
	if err != nil || hit {
		t.Fatalf("Get with nil store: hit=%v err=%v, want hit=false err=nil", hit, err)
	}
}

func TestCache_StoreErrorFailsOpenAsMiss(t *testing.T) {
	s := newMemStore()
	s.getErr = errors.New("redis down")
	c := New(s)

	var dst string
	hit, err := c.Get(context.Background(), "k1", &dst)
	if err != nil || hit {
		t.Fatalf("Get with failing store: hit=%v err=%v, want hit=false err=nil", hit, err)
	}
}

func TestCache_GetOrLoad_CallsLoadOnMiss(t *testing.T) {
	c := New(newMemStore())
	ctx := context.Background()

	var calls int32
	var dst string
	err := c.GetOrLoad(ctx, "k1", time.Minute, &dst, func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "loaded-value", nil
	})
	if err != nil {
		t.Fatalf("GetOrLoad: %v", err)
	}
	if dst != "loaded-value" {
		t.Errorf("dst = %q, want loaded-value", dst)
	}
	if calls != 1 {
		t.Errorf("load calls = %d, want 1", calls)
	}

	// Second call for the same key must hit the now-populated cache and not
	// call load again.
	var dst2 string
	err = c.GetOrLoad(ctx, "k1", time.Minute, &dst2, func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		return "should-not-run", nil
	})
	if err != nil {
		t.Fatalf("second GetOrLoad: %v", err)
	}
	if dst2 != "loaded-value" {
		t.Errorf("dst2 = %q, want loaded-value (from cache)", dst2)
	}
	if calls != 1 {
		t.Errorf("load calls after cache hit = %d, want still 1", calls)
	}
}

func TestCache_GetOrLoad_CoalescesConcurrentMisses(t *testing.T) {
	c := New(newMemStore())
	ctx := context.Background()

	var calls int32
	release := make(chan struct{})
	load := func(ctx context.Context) (interface{}, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return "value", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var dst string
			if err := c.GetOrLoad(ctx, "shared-key", time.Minute, &dst, load); err != nil {
				t.Errorf("GetOrLoad[%d]: %v", i, err)
			}
			results[i] = dst
		}(i)
	}

	time.Sleep(20 * time.Millisecond) // let all goroutines join the in-flight call
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Errorf("load was called %d times, want exactly 1 (single-flight)", calls)
	}
	for i, got := range results {
		if got != "value" {
			t.Errorf("results[%d] = %q, want value", i, got)
		}
	}
}

func TestCache_GetOrLoad_PropagatesLoadError(t *testing.T) {
	c := New(newMemStore())
	wantErr := errors.New("upstream failed")

	var dst string
	err := c.GetOrLoad(context.Background(), "k1", time.Minute, &dst, func(ctx context.Context) (interface{}, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("GetOrLoad error = %v, want %v", err, wantErr)
	}
}
