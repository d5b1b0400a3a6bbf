// Package contextbuilder assembles model.TemplateContext from a team's
// current/next/last events plus a derived head-to-head record; player
// leaders are always an empty map and no streak is derived here. Ported from
// original_source/teamarr/templates/context_builder.py's ContextBuilder,
// generalized from its single sports_service.get_team_stats call to this
// module's providers.Registry and given the head-to-head derivation the
// Python version left for the orchestrator to fill in.
package contextbuilder

import (
	"context"
	"fmt"
	"time"

	"github.com/unyeco/sportguide/model"
	"github.com/unyeco/sportguide/providers"
)

// StatsFetcher is the narrow surface Builder needs from a provider;
// satisfied by providers.Provider.GetTeamStats.
type StatsFetcher func(ctx context.Context, teamID, league string) (model.TeamStats, error)

// Builder assembles contexts for one generation run, caching opponent
// stats per (teamID, league) so a given opponent is fetched at most once
// across every event it appears in, matching the Python _stats_cache.
type Builder struct {
	registry   *providers.Registry
	statsCache map[string]*model.TeamStats
}

// New creates a Builder bound to registry for provider lookups.
func New(registry *providers.Registry) *Builder {
	return &Builder{registry: registry, statsCache: map[string]*model.TeamStats{}}
}

// ClearCache drops the opponent-stats cache; call once per generation run.
func (b *Builder) ClearCache() {
	b.statsCache = map[string]*model.TeamStats{}
}

func statsCacheKey(teamID, league string) string { return league + ":" + teamID }

func (b *Builder) teamStats(ctx context.Context, teamID, league string) *model.TeamStats {
	key := statsCacheKey(teamID, league)
	if s, ok := b.statsCache[key]; ok {
		return s
	}
	provider, ok := b.registry.ForLeague(league)
	if !ok {
		b.statsCache[key] = nil
		return nil
	}
	stats, err := provider.GetTeamStats(ctx, teamID, league)
	if err != nil {
		b.statsCache[key] = nil
		return nil
	}
	b.statsCache[key] = &stats
	return &stats
}

// BuildForEvent builds the complete TemplateContext for event from
// teamID's perspective, with independent next/last game contexts.
func (b *Builder) BuildForEvent(ctx context.Context, event model.Event, teamID, league string, teamStats *model.TeamStats, extended []model.Event) model.TemplateContext {
	isHome := event.Home.ID == teamID
	team := event.Home
	if !isHome {
		team = event.Away
	}

	teamConfig := model.TeamConfig{
		TeamID:     teamID,
		League:     league,
		Sport:      event.Sport,
		TeamName:   team.Name,
		TeamAbbrev: team.Abbreviation,
	}

	if teamStats == nil {
		teamStats = b.teamStats(ctx, teamID, league)
	}

	gameCtx := b.buildGameContext(ctx, event, teamID, league, extended)

	var nextGame, lastGame *model.GameContext
	if next, ok := findNextGame(extended, teamID, event.Start); ok {
		gc := b.buildGameContext(ctx, next, teamID, league, extended)
		nextGame = &gc
	}
	if last, ok := findLastGame(extended, teamID, event.Start); ok {
		gc := b.buildGameContext(ctx, last, teamID, league, extended)
		lastGame = &gc
	}

	return model.TemplateContext{
		TeamConfig: teamConfig,
		TeamStats:  teamStats,
		Team:       team,
		Game:       &gameCtx,
		NextGame:   nextGame,
		LastGame:   lastGame,
	}
}

// BuildFillerContext builds a context with no current game (Game == nil),
// for idle/offseason filler that has only next/last to reference.
func (b *Builder) BuildFillerContext(ctx context.Context, teamID, league, sport, teamName, teamAbbrev string, teamStats *model.TeamStats, next, last *model.Event, extended []model.Event) model.TemplateContext {
	teamConfig := model.TeamConfig{TeamID: teamID, League: league, Sport: sport, TeamName: teamName, TeamAbbrev: teamAbbrev}
	if teamStats == nil {
		teamStats = b.teamStats(ctx, teamID, league)
	}
	tc := model.TemplateContext{TeamConfig: teamConfig, TeamStats: teamStats}
	if next != nil {
		gc := b.buildGameContext(ctx, *next, teamID, league, extended)
		tc.NextGame = &gc
	}
	if last != nil {
		gc := b.buildGameContext(ctx, *last, teamID, league, extended)
		tc.LastGame = &gc
	}
	return tc
}

func (b *Builder) buildGameContext(ctx context.Context, event model.Event, teamID, league string, extended []model.Event) model.GameContext {
	isHome := event.Home.ID == teamID
	team := event.Home
	opponent := event.Away
	if !isHome {
		team = event.Away
		opponent = event.Home
	}

	opponentStats := b.teamStats(ctx, opponent.ID, league)

	gc := model.GameContext{
		Event:         event,
		IsHome:        isHome,
		Team:          team,
		Opponent:      opponent,
		OpponentStats: opponentStats,
	}
	gc.H2H = headToHead(extended, teamID, opponent.ID)
	gc.PlayerLeaders = playerLeaders(event, teamID)
	return gc
}

// findNextGame returns the chronologically nearest event strictly after
// after that the team plays in, from the extended (wider-window) set.
func findNextGame(extended []model.Event, teamID string, after time.Time) (model.Event, bool) {
	var best model.Event
	found := false
	for _, e := range extended {
		if !involvesTeam(e, teamID) || !e.Start.After(after) {
			continue
		}
		if !found || e.Start.Before(best.Start) {
			best, found = e, true
		}
	}
	return best, found
}

// findLastGame returns the chronologically nearest event starting strictly
// before before that the team plays in. Completion status is not checked.
func findLastGame(extended []model.Event, teamID string, before time.Time) (model.Event, bool) {
	var best model.Event
	found := false
	for _, e := range extended {
		if !involvesTeam(e, teamID) || !e.Start.Before(before) {
			continue
		}
		if !found || e.Start.After(best.Start) {
			best, found = e, true
		}
	}
	return best, found
}

func involvesTeam(e model.Event, teamID string) bool {
	return e.Home.ID == teamID || e.Away.ID == teamID
}

// headToHead scans extended for completed, scored meetings between teamID
// and opponentID (spec.md §4.7's head-to-head signal). Every such meeting in
// extended counts; there is no separate season filter.
func headToHead(extended []model.Event, teamID, opponentID string) *model.HeadToHead {
	h := &model.HeadToHead{}
	var last *model.Event
	for i := range extended {
		e := extended[i]
		if !e.Status.Completed {
			continue
		}
		involvesBoth := (e.Home.ID == teamID && e.Away.ID == opponentID) ||
			(e.Home.ID == opponentID && e.Away.ID == teamID)
		if !involvesBoth || e.HomeScore == nil || e.AwayScore == nil {
			continue
		}
		teamScore, oppScore := *e.HomeScore, *e.AwayScore
		if e.Away.ID == teamID {
			teamScore, oppScore = *e.AwayScore, *e.HomeScore
		}
		if teamScore > oppScore {
			h.TeamWins++
		} else if oppScore > teamScore {
			h.OpponentWins++
		}
		if last == nil || e.Start.After(last.Start) {
			ev := e
			last = &ev
		}
	}
	if last == nil {
		return nil
	}
	h.LastMeeting = last
	teamScore, oppScore := *last.HomeScore, *last.AwayScore
	if last.Away.ID == teamID {
		teamScore, oppScore = *last.AwayScore, *last.HomeScore
	}
	result := "L"
	if teamScore > oppScore {
		result = "W"
	} else if teamScore == oppScore {
		result = "D"
	}
	h.LastResultText = fmt.Sprintf("%s %d-%d", result, teamScore, oppScore)
	h.DaysSince = int(time.Since(last.Start).Hours() / 24)
	return h
}

// playerLeaders always returns an empty map: upstream events don't carry
// boxscore or season-leader data in this module's model (provider responses
// are projected to schedule/scoreboard shape only), so no game or season
// leaders are extracted. The map gives template variables a stable, empty
// lookup surface.
func playerLeaders(event model.Event, teamID string) map[string]string {
	return map[string]string{}
}
