// leaguemapping.go backs the league_provider_mappings table (spec.md §3)
// and implements the LeagueMapper/SportLeagueMapper interfaces each
// provider client depends on (providers/tsdb.LeagueMapper,
// providers/espn.SportLeagueMapper), so provider clients never touch SQL
// directly — they depend on a narrow interface store satisfies.
package store

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unyeco/sportguide/internal/errs"
	"github.com/unyeco/sportguide/model"
)

// LeagueMappingStore reads/writes league_provider_mappings.
type LeagueMappingStore struct {
	pool *pgxpool.Pool
}

// NewLeagueMappingStore creates a store over pool.
func NewLeagueMappingStore(pool *pgxpool.Pool) *LeagueMappingStore {
	return &LeagueMappingStore{pool: pool}
}

// Get returns the mapping row for (league, provider).
func (s *LeagueMappingStore) Get(ctx context.Context, league, provider string) (model.LeagueMapping, bool, error) {
	var m model.LeagueMapping
	err := s.pool.QueryRow(ctx,
		`SELECT league_code, provider, provider_league_id, provider_league_name, sport, display_name, logo_url, enabled
		 FROM league_provider_mappings WHERE league_code = $1 AND provider = $2`,
		strings.ToLower(league), provider,
	).Scan(&m.LeagueCode, &m.Provider, &m.ProviderLeagueID, &m.ProviderLeagueName, &m.Sport, &m.DisplayName, &m.LogoURL, &m.Enabled)
	if err != nil {
		if err == pgx.ErrNoRows {
			return model.LeagueMapping{}, false, nil
		}
		return model.LeagueMapping{}, false, errs.Wrap(errs.KindTransientUpstream, "store/leaguemapping", "query league_provider_mappings", err)
	}
	return m, true, nil
}

// ProviderLeagueID implements providers/tsdb.LeagueMapper.
func (s *LeagueMappingStore) ProviderLeagueID(ctx context.Context, league, provider string) (string, bool, error) {
	m, ok, err := s.Get(ctx, league, provider)
	if err != nil || !ok {
		return "", ok, err
	}
	return m.ProviderLeagueID, m.ProviderLeagueID != "", nil
}

// ProviderLeagueName implements providers/tsdb.LeagueMapper.
func (s *LeagueMappingStore) ProviderLeagueName(ctx context.Context, league, provider string) (string, bool, error) {
	m, ok, err := s.Get(ctx, league, provider)
	if err != nil || !ok {
		return "", ok, err
	}
	return m.ProviderLeagueName, m.ProviderLeagueName != "", nil
}

// SupportsLeague implements providers/tsdb.LeagueMapper. ESPNMapper wraps it
// for providers/espn.SportLeagueMapper, whose SupportsLeague takes only a league.
func (s *LeagueMappingStore) SupportsLeague(ctx context.Context, league, provider string) bool {
	m, ok, err := s.Get(ctx, league, provider)
	return err == nil && ok && m.Enabled
}

// ESPNMapper adapts LeagueMappingStore to providers/espn.SportLeagueMapper,
// which is scoped to a single provider and so drops the provider parameter
// (and, for SupportsLeague, ctx) that LeagueMappingStore's methods take.
type ESPNMapper struct {
	store *LeagueMappingStore
}

// NewESPNMapper wraps store for use as an ESPN provider's SportLeagueMapper.
func NewESPNMapper(store *LeagueMappingStore) *ESPNMapper {
	return &ESPNMapper{store: store}
}

// SportAndSlug implements providers/espn.SportLeagueMapper by parsing the
// provider's api_path-shaped ProviderLeagueID ("basketball/nba") via
// ParseAPIPath. ESPN mappings store sport/league as a single "/"-joined
// path in provider_league_id for symmetry with league_config.api_path.
func (m *ESPNMapper) SportAndSlug(ctx context.Context, league string) (sport, slug string, ok bool, err error) {
	mapping, found, err := m.store.Get(ctx, league, "espn")
	if err != nil || !found {
		return "", "", found, err
	}
	sport, slug, ok = ParseAPIPath(mapping.ProviderLeagueID)
	if !ok {
		sport, slug = mapping.Sport, mapping.ProviderLeagueName
		ok = sport != "" && slug != ""
	}
	return sport, slug, ok, nil
}

// SupportsLeague implements providers/espn.SportLeagueMapper.
func (m *ESPNMapper) SupportsLeague(league string) bool {
	return m.store.SupportsLeague(context.Background(), league, "espn")
}
