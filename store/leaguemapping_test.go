//go:build integration

package store

import (
	"context"
	"testing"
)

func TestLeagueMappingStore_GetAndDerivedAccessors(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS league_provider_mappings (
			league_code TEXT NOT NULL,
			provider TEXT NOT NULL,
			provider_league_id TEXT NOT NULL DEFAULT '',
			provider_league_name TEXT NOT NULL DEFAULT '',
			sport TEXT NOT NULL DEFAULT '',
			display_name TEXT NOT NULL DEFAULT '',
			logo_url TEXT NOT NULL DEFAULT '',
			enabled BOOLEAN NOT NULL DEFAULT true,
			PRIMARY KEY (league_code, provider)
		)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	t.Cleanup(func() {
		pool.Exec(context.Background(), `DELETE FROM league_provider_mappings WHERE league_code = 'nfl'`)
	})

	_, err = pool.Exec(ctx, `
		INSERT INTO league_provider_mappings
			(league_code, provider, provider_league_id, provider_league_name, sport, display_name, logo_url, enabled)
		VALUES ('nfl', 'espn', 'football/nfl', 'National Football League', 'football', 'NFL', 'https://logo', true)
		ON CONFLICT (league_code, provider) DO UPDATE SET provider_league_id = EXCLUDED.provider_league_id`)
	if err != nil {
		t.Fatalf("seed row: %v", err)
	}

	s := NewLeagueMappingStore(pool)

	m, ok, err := s.Get(ctx, "NFL", "espn")
	if err != nil || !ok {
		t.Fatalf("Get(NFL, espn) = %+v, ok=%v, err=%v", m, ok, err)
	}
	if m.ProviderLeagueID != "football/nfl" {
		t.Errorf("ProviderLeagueID = %q, want football/nfl", m.ProviderLeagueID)
	}

	if id, ok, err := s.ProviderLeagueID(ctx, "nfl", "espn"); err != nil || !ok || id != "football/nfl" {
		t.Errorf("ProviderLeagueID(...) = %q, ok=%v, err=%v", id, ok, err)
	}
	if name, ok, err := s.ProviderLeagueName(ctx, "nfl", "espn"); err != nil || !ok || name != "National Football League" {
		t.Errorf("ProviderLeagueName(...) = %q, ok=%v, err=%v", name, ok, err)
	}
	if !s.SupportsLeague(ctx, "nfl", "espn") {
		t.Error("SupportsLeague(nfl, espn) = false, want true")
	}
	if s.SupportsLeague(ctx, "nfl", "unknown-provider") {
		t.Error("SupportsLeague(nfl, unknown-provider) = true, want false")
	}

	espn := NewESPNMapper(s)
	sport, slug, ok, err := espn.SportAndSlug(ctx, "nfl")
	if err != nil || !ok || sport != "football" || slug != "nfl" {
		t.Errorf("SportAndSlug(nfl) = (%q, %q, %v), err=%v", sport, slug, ok, err)
	}
	if !espn.SupportsLeague("nfl") {
		t.Error("ESPNMapper.SupportsLeague(nfl) = false, want true")
	}
}

func TestLeagueMappingStore_Get_NotFound(t *testing.T) {
	pool := testPool(t)
	s := NewLeagueMappingStore(pool)

	_, ok, err := s.Get(context.Background(), "does-not-exist", "espn")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("Get(does-not-exist) ok = true, want false")
	}
}
