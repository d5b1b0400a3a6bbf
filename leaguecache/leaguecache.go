// Package leaguecache maintains the reverse index from team name/ID to the
// leagues that team belongs to, so the stream matcher can narrow a fuzzy
// team hit down to candidate leagues before it ever calls a provider.
// Ported from original_source/epg/team_league_cache.py's TeamLeagueCache
// (find_candidate_leagues/get_leagues_for_team/refresh_cache), generalized
// from "non-soccer teams" to every sport: soccer clubs already carry
// multiple league memberships in model.TeamStats.Leagues, so the same
// reverse index serves both. The bounded-concurrency refresh is ported from
// the teacher's services/sports/health_worker.go's sync.WaitGroup fan-out,
// using golang.org/x/sync/errgroup plus a semaphore channel to cap the
// number of concurrent league fetches; per-league errors are not propagated.
package leaguecache

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/unyeco/sportguide/model"
	"github.com/unyeco/sportguide/providers"
)

// snapshot is one atomically-swapped generation of the reverse index.
type snapshot struct {
	byName map[string][]string     // lowercased team name -> league codes
	byID   map[string][]string     // "league:teamID" -> league codes (self-referential, kept for symmetry with byName)
	teams  map[string][]model.Team // league code -> teams in that league
}

// Cache is a concurrency-safe, atomically-refreshed team→league reverse
// index. Refresh rebuilds a whole new snapshot off to the side and swaps it
// in with a single pointer write, so readers never observe a partial
// rebuild (the same pattern as the teacher's scoreboard cache).
type Cache struct {
	registry *providers.Registry
	leagues  []string // league codes this cache indexes

	mu   sync.RWMutex
	snap *snapshot
}

// New creates a Cache that will index the given league codes on Refresh.
func New(registry *providers.Registry, leagues []string) *Cache {
	return &Cache{registry: registry, leagues: leagues, snap: &snapshot{
		byName: map[string][]string{},
		byID:   map[string][]string{},
		teams:  map[string][]model.Team{},
	}}
}

// Refresh rebuilds the reverse index by listing every indexed league's
// teams through the provider registry, bounded to maxWorkers concurrent
// league fetches (8 when maxWorkers <= 0). A league with no registered
// provider, or whose ListTeams call fails, is skipped without aborting the
// others and keeps an empty teams list in the new snapshot until the next
// refresh. Such failures are neither logged nor returned: no worker reports
// an error, so the error from Refresh is always nil.
func (c *Cache) Refresh(ctx context.Context, maxWorkers int) error {
	if maxWorkers <= 0 {
		maxWorkers = 8
	}

	next := &snapshot{
		byName: map[string][]string{},
		byID:   map[string][]string{},
		teams:  map[string][]model.Team{},
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, maxWorkers)

	for _, league := range c.leagues {
		league := league
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			provider, ok := c.registry.ForLeague(league)
			if !ok {
				return nil
			}
			teams, err := provider.ListTeams(gctx, league)
			if err != nil {
				return nil // partial snapshot over aborting the whole refresh
			}

			mu.Lock()
			next.teams[league] = teams
			for _, t := range teams {
				for _, name := range searchableNames(t) {
					key := strings.ToLower(name)
					next.byName[key] = appendUnique(next.byName[key], league)
				}
				idKey := league + ":" + t.ID
				next.byID[idKey] = appendUnique(next.byID[idKey], league)
			}
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	c.mu.Lock()
	c.snap = next
	c.mu.Unlock()
	return nil
}

func searchableNames(t model.Team) []string {
	names := []string{t.Name}
	if t.ShortName != "" {
		names = append(names, t.ShortName)
	}
	if t.Abbreviation != "" {
		names = append(names, t.Abbreviation)
	}
	return names
}

func appendUnique(list []string, v string) []string {
	for _, x := range list {
		if x == v {
			return list
		}
	}
	return append(list, v)
}

// GetLeaguesForTeam returns every league code in which a team name appears,
// e.g. "Tennessee" -> ["nfl", "ncaam", "ncaaw", "ncaaf"] (Titans, Volunteers,
// Lady Vols). Matching is whole-string on the lowercased name; fuzzy
// resolution happens in teammatch before this lookup runs.
func (c *Cache) GetLeaguesForTeam(name string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.snap.byName[strings.ToLower(name)]...)
}

// FindCandidateLeagues intersects the league sets of two team names,
// returning only leagues where both appear — e.g. ("Predators", "Panthers")
// narrows to ["nhl"] even though "Panthers" alone also matches ncaaf/nfl.
func (c *Cache) FindCandidateLeagues(teamA, teamB string) []string {
	a := c.GetLeaguesForTeam(teamA)
	b := c.GetLeaguesForTeam(teamB)
	bSet := make(map[string]bool, len(b))
	for _, l := range b {
		bSet[l] = true
	}
	var out []string
	for _, l := range a {
		if bSet[l] {
			out = append(out, l)
		}
	}
	return out
}

// TeamsInLeague returns the cached team roster for league, or nil if the
// league has not been refreshed yet or the provider had no mapping for it.
func (c *Cache) TeamsInLeague(league string) []model.Team {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.Team(nil), c.snap.teams[league]...)
}
