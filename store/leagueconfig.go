// leagueconfig.go ports original_source/epg/league_config.py: the
// league_code -> (sport, api_path) lookup, the college-league set, and the
// soccer_team_leagues-backed is_soccer_league check. Backed by pgx/v5
// against the league_config and soccer_team_leagues tables (SPEC_FULL.md
// domain model supplement).
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unyeco/sportguide/internal/errs"
)

// CollegeLeagues lists the ESPN slugs and legacy aliases that require
// conference-based team fetching rather than a flat league roster. Ported
// verbatim from league_config.py's COLLEGE_LEAGUES.
var CollegeLeagues = map[string]bool{
	"mens-college-basketball":   true,
	"womens-college-basketball": true,
	"college-football":          true,
	"mens-college-hockey":       true,
	"womens-college-hockey":     true,
	"mens-college-volleyball":   true,
	"womens-college-volleyball": true,
	"usa.ncaa.m.1":              true,
	"usa.ncaa.w.1":              true,
	"ncaam":                     true,
	"ncaaw":                     true,
	"ncaaf":                     true,
	"ncaah":                     true,
	"ncaawh":                    true,
	"ncaavb-m":                  true,
	"ncaavb-w":                  true,
	"ncaas":                     true,
	"ncaaws":                    true,
}

// IsCollegeLeague reports whether league requires conference-based team
// fetching. Matches the slug set above or any code containing "college".
func IsCollegeLeague(league string) bool {
	lower := strings.ToLower(league)
	return CollegeLeagues[lower] || strings.Contains(lower, "college")
}

// LeagueConfig is one row of the league_config table.
type LeagueConfig struct {
	LeagueCode string
	Sport      string
	APIPath    string
}

// LeagueConfigStore reads league_config, caching results in-process since
// the table changes only on deploy/admin action.
type LeagueConfigStore struct {
	pool  *pgxpool.Pool
	cache map[string]LeagueConfig
}

// NewLeagueConfigStore creates a store over pool.
func NewLeagueConfigStore(pool *pgxpool.Pool) *LeagueConfigStore {
	return &LeagueConfigStore{pool: pool, cache: map[string]LeagueConfig{}}
}

// Get returns the (sport, api_path) configuration for league, consulting
// the in-process cache before the database.
func (s *LeagueConfigStore) Get(ctx context.Context, league string) (LeagueConfig, bool, error) {
	key := strings.ToLower(league)
	if cfg, ok := s.cache[key]; ok {
		return cfg, true, nil
	}

	var cfg LeagueConfig
	cfg.LeagueCode = key
	err := s.pool.QueryRow(ctx,
		`SELECT sport, api_path FROM league_config WHERE league_code = $1`, key,
	).Scan(&cfg.Sport, &cfg.APIPath)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LeagueConfig{}, false, nil
		}
		return LeagueConfig{}, false, errs.Wrap(errs.KindTransientUpstream, "store/leagueconfig", "query league_config", err)
	}

	s.cache[key] = cfg
	return cfg, true, nil
}

// ParseAPIPath splits "football/nfl" into ("football", "nfl"). Ported from
// parse_api_path.
func ParseAPIPath(apiPath string) (sport, league string, ok bool) {
	parts := strings.Split(apiPath, "/")
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// IsSoccerLeague reports whether league is a soccer league: present in
// soccer_team_leagues, or league_config.sport == "soccer" as a fallback.
// Ported from is_soccer_league.
func (s *LeagueConfigStore) IsSoccerLeague(ctx context.Context, league string) (bool, error) {
	lower := strings.ToLower(league)

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM soccer_team_leagues WHERE league_slug = $1 LIMIT 1)`, lower,
	).Scan(&exists)
	if err != nil {
		return false, errs.Wrap(errs.KindTransientUpstream, "store/leagueconfig", "query soccer_team_leagues", err)
	}
	if exists {
		return true, nil
	}

	cfg, ok, err := s.Get(ctx, lower)
	if err != nil {
		return false, err
	}
	return ok && cfg.Sport == "soccer", nil
}
