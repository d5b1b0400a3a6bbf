// Package cache implements the provider TTL cache from spec.md §4.1: tiered
// TTLs by date proximity, single-flight per key so concurrent misses never
// fan out, and a pluggable Store so the cache degrades to always-miss rather
// than blocking when its backing store (Redis) is unavailable. The Store
// interface and fail-open posture are adapted from the teacher's
// internal/ratelimit.Store/RedisStore split (yourflock-roost); the TTL
// tiering values are ported from
// original_source/providers/tsdb/client.py's get_cache_ttl_for_date.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"
)

// Tiered TTLs, per spec.md §4.1 and original_source/providers/tsdb/client.py.
const (
	TTLPast        = 7 * 24 * time.Hour
	TTLToday       = 30 * time.Minute
	TTLTomorrow    = 4 * time.Hour
	TTLNearWeek    = 8 * time.Hour
	TTLFar         = 24 * time.Hour
	TTLTeams       = 24 * time.Hour
	TTLConferences = 24 * time.Hour
	TTLNextEvents  = 1 * time.Hour
	TTLTeamSearch  = 24 * time.Hour
)

// TTLForDate returns the tiered TTL for a per-day fetch whose target date is
// target, evaluated relative to now.
func TTLForDate(target, now time.Time) time.Duration {
	ty, tm, td := target.Date()
	ny, nm, nd := now.Date()
	t := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	n := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	days := int(t.Sub(n).Hours() / 24)

	switch {
	case days < 0:
		return TTLPast
	case days == 0:
		return TTLToday
	case days == 1:
		return TTLTomorrow
	case days <= 7:
		return TTLNearWeek
	default:
		return TTLFar
	}
}

// Store is the minimal backing-store interface a TTL cache needs. In
// production this is satisfied by a Redis adapter; tests may use an
// in-memory map. A nil Store, or any Store error, makes the cache
// fail open: every Get is a miss and every Set is a no-op, so a Redis
// outage degrades to "always refetch" rather than blocking requests.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache is a per-operation TTL cache with single-flight miss coalescing.
type Cache struct {
	store Store
	group singleflight.Group
}

// New creates a Cache backed by store. store may be nil.
func New(store Store) *Cache {
	return &Cache{store: store}
}

// Get fetches the cached value for key into dst (via JSON), returning
// (true, nil) on a hit. On a miss, a store error, or a nil store, it returns
// (false, nil) — never an error, so callers always fall through to a fetch.
func (c *Cache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, nil
	}
	return true, nil
}

// Set stores value under key with the given ttl. Errors are swallowed: a
// failed write just means the next Get is a miss, never a caller-visible
// failure.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if c.store == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = c.store.Set(ctx, key, raw, ttl)
}

// GetOrLoad returns the cached value for key, or calls load exactly once
// across all concurrent callers sharing that key (single-flight), storing
// the result with ttl before returning it to every waiter.
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, dst interface{}, load func(ctx context.Context) (interface{}, error)) error {
	if hit, _ := c.Get(ctx, key, dst); hit {
		return nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// Double-checked: another flight may have populated the cache
		// while we waited to become the leader.
		var probe json.RawMessage
		if hit, _ := c.Get(ctx, key, &probe); hit {
			return probe, nil
		}
		result, err := load(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(ctx, key, result, ttl)
		raw, err := json.Marshal(result)
		if err != nil {
			return nil, err
		}
		return json.RawMessage(raw), nil
	})
	if err != nil {
		return err
	}

	raw, ok := v.(json.RawMessage)
	if !ok {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
