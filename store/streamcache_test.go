//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/unyeco/sportguide/model"
)

func TestFingerprint_DeterministicAndDateSensitive(t *testing.T) {
	day1 := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	a := Fingerprint("titans vs jaguars", day1)
	b := Fingerprint("titans vs jaguars", day1)
	if a != b {
		t.Error("Fingerprint is not deterministic for identical inputs")
	}
	if c := Fingerprint("titans vs jaguars", day2); c == a {
		t.Error("Fingerprint did not change across different dates")
	}
}

func TestStreamCacheStore_PutLookupAndGenerationInvalidation(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS stream_match_cache (
			fingerprint TEXT PRIMARY KEY,
			event_id TEXT NOT NULL,
			league TEXT NOT NULL,
			tier INT NOT NULL,
			generation BIGINT NOT NULL,
			last_seen TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	fp := Fingerprint("titans vs jaguars", time.Now())
	t.Cleanup(func() {
		pool.Exec(context.Background(), `DELETE FROM stream_match_cache WHERE fingerprint = $1`, fp)
	})

	s := NewStreamCacheStore(pool)

	if _, ok, err := s.Lookup(ctx, fp, 1); err != nil || ok {
		t.Fatalf("Lookup before Put: ok=%v, err=%v, want ok=false", ok, err)
	}

	entry := model.StreamCacheEntry{
		Fingerprint: fp,
		EventID:     "ev1",
		League:      "nfl",
		Tier:        model.Tier3cTeamsOnly,
		Generation:  5,
		LastSeen:    time.Now().UTC().Truncate(time.Second),
	}
	if err := s.Put(ctx, entry); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.Lookup(ctx, fp, 5)
	if err != nil || !ok {
		t.Fatalf("Lookup(generation=5) = %+v, ok=%v, err=%v", got, ok, err)
	}
	if got.EventID != "ev1" || got.Tier != model.Tier3cTeamsOnly {
		t.Errorf("Lookup result = %+v, want EventID=ev1 Tier=Tier3cTeamsOnly", got)
	}

	// A newer generation than what was cached must be treated as a miss.
	if _, ok, err := s.Lookup(ctx, fp, 6); err != nil || ok {
		t.Fatalf("Lookup(generation=6) ok=%v, err=%v, want ok=false (stale entry)", ok, err)
	}

	// Put again under a higher generation and confirm it now satisfies the
	// previously-stale lookup.
	entry.Generation = 6
	entry.EventID = "ev2"
	if err := s.Put(ctx, entry); err != nil {
		t.Fatalf("re-Put: %v", err)
	}
	got2, ok, err := s.Lookup(ctx, fp, 6)
	if err != nil || !ok || got2.EventID != "ev2" {
		t.Fatalf("Lookup after re-Put = %+v, ok=%v, err=%v", got2, ok, err)
	}
}
