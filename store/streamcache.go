// streamcache.go backs the stream_match_cache table (spec.md §3
// StreamCacheEntry): memoized stream-to-event matches, keyed by a stable
// fingerprint of the normalized stream name plus date, invalidated when the
// owning group's generation counter advances.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unyeco/sportguide/internal/errs"
	"github.com/unyeco/sportguide/model"
)

// StreamCacheStore reads/writes stream_match_cache.
type StreamCacheStore struct {
	pool *pgxpool.Pool
}

// NewStreamCacheStore creates a store over pool.
func NewStreamCacheStore(pool *pgxpool.Pool) *StreamCacheStore {
	return &StreamCacheStore{pool: pool}
}

// Fingerprint computes the stable hash spec.md §3 describes: normalized
// stream name plus date, so the same stream on different days gets distinct
// cache entries (events recur, streams don't rename daily).
func Fingerprint(normalizedName string, date time.Time) string {
	sum := sha256.Sum256([]byte(normalizedName + "|" + date.UTC().Format("2006-01-02")))
	return hex.EncodeToString(sum[:])
}

// Lookup returns the cached match for fingerprint if it's still valid for
// generation — a stale entry (recorded under an older generation) is
// treated as a miss, matching spec.md §3's invalidation rule.
func (s *StreamCacheStore) Lookup(ctx context.Context, fingerprint string, generation int64) (model.StreamCacheEntry, bool, error) {
	var entry model.StreamCacheEntry
	var tier int
	err := s.pool.QueryRow(ctx, `
		SELECT fingerprint, event_id, league, tier, generation, last_seen
		FROM stream_match_cache WHERE fingerprint = $1`, fingerprint,
	).Scan(&entry.Fingerprint, &entry.EventID, &entry.League, &tier, &entry.Generation, &entry.LastSeen)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.StreamCacheEntry{}, false, nil
		}
		return model.StreamCacheEntry{}, false, errs.Wrap(errs.KindTransientUpstream, "store/streamcache", "query stream_match_cache", err)
	}
	entry.Tier = model.MatchTier(tier)
	if entry.Generation < generation {
		return model.StreamCacheEntry{}, false, nil
	}
	return entry, true, nil
}

// Put records or refreshes one match, storing the entry's Generation and
// LastSeen as the caller set them.
func (s *StreamCacheStore) Put(ctx context.Context, entry model.StreamCacheEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO stream_match_cache (fingerprint, event_id, league, tier, generation, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (fingerprint) DO UPDATE SET
			event_id = EXCLUDED.event_id,
			league = EXCLUDED.league,
			tier = EXCLUDED.tier,
			generation = EXCLUDED.generation,
			last_seen = EXCLUDED.last_seen`,
		entry.Fingerprint, entry.EventID, entry.League, int(entry.Tier), entry.Generation, entry.LastSeen)
	if err != nil {
		return errs.Wrap(errs.KindTransientUpstream, "store/streamcache", "upsert stream_match_cache", err)
	}
	return nil
}
