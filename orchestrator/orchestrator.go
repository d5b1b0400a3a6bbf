// Package orchestrator runs the per-team EPG generation pipeline
// (spec.md §4.9): resolve the provider, determine the generation window,
// fetch and enrich each team's schedule, build template contexts, resolve
// game and filler programs, and return one gap-free timeline per team.
// Ported from original_source/epg/orchestrator.py's EPGOrchestrator, with
// the ThreadPoolExecutor(max_workers=min(len(teams), 100)) fan-out
// translated to golang.org/x/sync/errgroup.SetLimit(100), matching the
// bounded-worker-pool idiom the teacher uses in
// services/epg/cmd/epg/main.go and services/sports/health_worker.go.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/unyeco/sportguide/contextbuilder"
	"github.com/unyeco/sportguide/filler"
	"github.com/unyeco/sportguide/model"
	"github.com/unyeco/sportguide/providers"
	"github.com/unyeco/sportguide/template"
)

// MaxWorkers bounds the per-team fan-out, mirroring the Python
// orchestrator's min(len(teams_list), 100).
const MaxWorkers = 100

// recentPastDays bounds how many past days get rescored per generation
// run, matching _enrich_past_events_with_scores's sorted(...)[:7] cap.
const recentPastDays = 7

// lookbackHours is how far back generation looks for an in-progress game
// when picking epg_start_datetime (spec.md §4.9 step 2).
const lookbackHours = 6

// Settings are the per-run tunables spec.md §4.9/§4.10 read from channel
// config rather than hardcoding.
type Settings struct {
	MidnightCrossoverMode filler.MidnightCrossoverMode
	DefaultGameDuration   time.Duration
}

// Orchestrator holds the shared registry, context builder, and the
// process-wide scoreboard cache spec.md §4.9 describes.
type Orchestrator struct {
	registry *providers.Registry
	builder  *contextbuilder.Builder

	cacheMu sync.Mutex
	cache   map[scoreboardKey][]model.Event
}

type scoreboardKey struct {
	sport    string
	league   string
	yyyymmdd string
}

// New constructs an Orchestrator backed by registry.
func New(registry *providers.Registry) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		builder:  contextbuilder.New(registry),
		cache:    make(map[scoreboardKey][]model.Event),
	}
}

// Stats summarizes one generation run, mirroring the Python orchestrator's
// returned stats dict (num_channels/num_programmes/num_events/...).
type Stats struct {
	NumChannels    int
	NumProgrammes  int
	NumEvents      int
	NumPregame     int
	NumPostgame    int
	NumIdle        int
	GenerationTime time.Duration
}

// ChannelResult is one team's generated timeline.
type ChannelResult struct {
	Config   model.TeamChannelConfig
	Programs []model.Program
	Err      error
}

// clearScoreboardCache drops the cache at the start of every generation
// run, matching _clear_scoreboard_cache's call site in generate_epg.
func (o *Orchestrator) clearScoreboardCache() {
	o.cacheMu.Lock()
	defer o.cacheMu.Unlock()
	o.cache = make(map[scoreboardKey][]model.Event)
}

// scoreboard fetches a cached scoreboard for (sport, league, date), using
// the double-checked-locking pattern the teacher's syncState helper in
// services/epg/cmd/epg/main.go applies to its own shared cache: a first
// read under cacheMu, then a re-check under cacheMu, which stays held
// across the provider fetch, so scoreboard fetches are serialized.
func (o *Orchestrator) scoreboard(ctx context.Context, sport, league string, date time.Time, p providers.Provider) ([]model.Event, error) {
	key := scoreboardKey{sport: sport, league: league, yyyymmdd: date.Format("20060102")}

	o.cacheMu.Lock()
	if events, ok := o.cache[key]; ok {
		o.cacheMu.Unlock()
		return events, nil
	}
	o.cacheMu.Unlock()

	o.cacheMu.Lock()
	defer o.cacheMu.Unlock()
	if events, ok := o.cache[key]; ok {
		return events, nil
	}

	events, err := p.GetScoreboard(ctx, league, date)
	if err != nil {
		// Cache the miss too (as a nil slice under a present key) so a
		// failing day isn't refetched every team in this run.
		o.cache[key] = nil
		return nil, err
	}
	o.cache[key] = events
	return events, nil
}

// Generate runs the bounded-concurrency fan-out over teams and returns one
// ChannelResult per team plus aggregate Stats (spec.md §4.9/§5).
func (o *Orchestrator) Generate(ctx context.Context, teams []model.TeamChannelConfig, templates map[string]model.Template, daysAhead int, settings Settings) ([]ChannelResult, Stats, error) {
	started := time.Now()
	o.clearScoreboardCache()

	epgStart := o.calculateStartDatetime(ctx, teams, daysAhead)

	results := make([]ChannelResult, len(teams))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxWorkers)

	for i, team := range teams {
		i, team := i, team
		g.Go(func() error {
			tpl, ok := templates[team.TemplateID]
			if !ok {
				results[i] = ChannelResult{Config: team, Err: fmt.Errorf("orchestrator: no template %q for team %q", team.TemplateID, team.TeamID)}
				return nil
			}
			programs, err := o.processTeam(gctx, team, tpl, daysAhead, epgStart, settings)
			results[i] = ChannelResult{Config: team, Programs: programs, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, Stats{}, err
	}

	stats := Stats{NumChannels: len(teams), GenerationTime: time.Since(started)}
	for _, r := range results {
		stats.NumProgrammes += len(r.Programs)
		for _, p := range r.Programs {
			for _, c := range p.Categories {
				switch c {
				case model.CategoryGame:
					stats.NumEvents++
				case model.CategoryPregame:
					stats.NumPregame++
				case model.CategoryPostgame:
					stats.NumPostgame++
				case model.CategoryIdle, model.CategoryOffseason:
					stats.NumIdle++
				}
			}
		}
	}
	return results, stats, nil
}

// calculateStartDatetime implements spec.md §4.9 step 2: a 6-hour lookback
// across every active team's near-term schedule for a game that has
// already started, else the top of the current hour. Ported from
// _calculate_epg_start_time.
func (o *Orchestrator) calculateStartDatetime(ctx context.Context, teams []model.TeamChannelConfig, daysAhead int) time.Time {
	now := time.Now().UTC()
	earliest := now.Truncate(time.Hour)

	for _, team := range teams {
		p, ok := o.registry.ForLeague(team.League)
		if !ok {
			continue
		}
		events, err := p.GetTeamSchedule(ctx, team.TeamID, team.League, daysAhead)
		if err != nil {
			continue
		}
		for _, e := range events {
			if e.Start.After(now) {
				continue
			}
			if now.Sub(e.Start) > lookbackHours*time.Hour {
				continue
			}
			if e.Start.Before(earliest) {
				earliest = e.Start
			}
		}
	}
	return earliest
}

// processTeam is the ten-step per-team pipeline of spec.md §4.9.
func (o *Orchestrator) processTeam(ctx context.Context, team model.TeamChannelConfig, tpl model.Template, daysAhead int, epgStart time.Time, settings Settings) ([]model.Program, error) {
	// Step 1: resolve provider.
	p, ok := o.registry.ForLeague(team.League)
	if !ok {
		return nil, fmt.Errorf("orchestrator: no provider for league %q", team.League)
	}

	teamInfo, err := p.GetTeamInfo(ctx, team.TeamID, team.League)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: team info for %q: %w", team.TeamID, err)
	}
	statsVal, err := p.GetTeamStats(ctx, team.TeamID, team.League)
	var teamStats *model.TeamStats
	if err == nil {
		teamStats = &statsVal
	}

	// Steps 3-4: schedule window plus an extended schedule fetched with a
	// 30-day lookahead, used for head-to-head derivation and filler lookback.
	// No lower bound is applied to past events: ESPN returns every earlier
	// event of the season, and TSDB's schedule call returns upcoming fixtures only.
	schedule, err := p.GetTeamSchedule(ctx, team.TeamID, team.League, daysAhead)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: schedule for %q: %w", team.TeamID, err)
	}
	extended, err := p.GetTeamSchedule(ctx, team.TeamID, team.League, 30)
	if err != nil {
		extended = schedule
	}

	// Step 6: discover-and-enrich from the scoreboard cache — merge in
	// events the schedule endpoint omits and enrich the rest with
	// odds/live scores/broadcasts for each day in the window.
	schedule = o.discoverAndEnrich(ctx, schedule, team, daysAhead, epgStart, p)

	// Step 7: enrich past events in the extended window with final
	// scores, bounded to the most recent recentPastDays days.
	extended = o.enrichPastScores(ctx, extended, team, p)

	// Step 8: build current/next/last contexts and resolve templates.
	var programs []model.Program
	duration := settings.DefaultGameDuration
	if team.DurationOverride != nil {
		duration = *team.DurationOverride
	}
	if tpl.GameDuration != nil {
		duration = *tpl.GameDuration
	}

	var gameIntervals, extIntervals []filler.GameInterval
	for _, e := range schedule {
		if !involvesTeam(e, team.TeamID) {
			continue
		}
		tctx := o.builder.BuildForEvent(ctx, e, team.TeamID, team.League, teamStats, extended)
		title, subtitle, _, artwork := template.ResolveAll(tpl.GameTitle, tpl.GameSubtitle, tpl.GameDescription, tpl.GameArtworkURL, tctx)
		description := template.ResolveDescription(tpl, tctx, defaultRNG)

		programs = append(programs, model.Program{
			ChannelID:   team.ChannelID,
			Start:       e.Start,
			End:         e.Start.Add(duration),
			Title:       title,
			Subtitle:    subtitle,
			Description: description,
			ArtworkURL:  artwork,
			Categories:  []model.ProgramCategory{model.CategoryGame},
			TvgID:       team.ChannelID,
		})
		gameIntervals = append(gameIntervals, filler.GameInterval{Start: e.Start, End: e.Start.Add(duration), Event: e})
	}
	for _, e := range extended {
		if !involvesTeam(e, team.TeamID) {
			continue
		}
		extIntervals = append(extIntervals, filler.GameInterval{Start: e.Start, End: e.Start.Add(duration), Event: e})
	}
	sort.Slice(gameIntervals, func(i, j int) bool { return gameIntervals[i].Start.Before(gameIntervals[j].Start) })
	sort.Slice(extIntervals, func(i, j int) bool { return extIntervals[i].Start.Before(extIntervals[j].Start) })

	// Step 9: fill the gaps between games for the requested window.
	windowEnd := epgStart.AddDate(0, 0, daysAhead)
	gaps := filler.Generate(epgStart, windowEnd, gameIntervals, extIntervals, settings.MidnightCrossoverMode)
	for _, gap := range gaps {
		if gap.Kind == model.FillerIdle && tpl.OffseasonEnabled {
			hasNext := gap.NextGame != nil
			var nextStart time.Time
			if hasNext {
				nextStart = gap.NextGame.Start
			}
			if filler.IsOffseason(gap.Start, hasNext, nextStart) {
				gap.Kind = model.FillerOffseason
			}
		}
		fctx := o.builder.BuildFillerContext(ctx, team.TeamID, team.League, team.Sport, teamInfo.Name, teamInfo.Abbreviation, teamStats, gap.NextGame, gap.LastGame, extended)
		for _, chunk := range filler.Split(gap) {
			title := template.Resolve(tpl.FillerTitle[chunk.Kind], fctx)
			subtitle := template.Resolve(tpl.FillerSubtitle[chunk.Kind], fctx)
			description := template.Resolve(tpl.FillerDescription[chunk.Kind], fctx)
			artwork := template.Resolve(tpl.FillerArtworkURL[chunk.Kind], fctx)
			programs = append(programs, model.Program{
				ChannelID:   team.ChannelID,
				Start:       chunk.Start,
				End:         chunk.End,
				Title:       title,
				Subtitle:    subtitle,
				Description: description,
				ArtworkURL:  artwork,
				Categories:  []model.ProgramCategory{fillerCategory(chunk.Kind)},
				TvgID:       team.ChannelID,
			})
		}
	}

	// Step 10: sort the combined timeline by start.
	sort.Slice(programs, func(i, j int) bool { return programs[i].Start.Before(programs[j].Start) })
	return programs, nil
}

// discoverAndEnrich merges schedule events with the scoreboard cache for
// each day in the window: events missing from the schedule are added
// (discovery), events already present are enriched with current
// broadcasts/odds/scores. Ported from _discover_and_enrich_from_scoreboard.
func (o *Orchestrator) discoverAndEnrich(ctx context.Context, schedule []model.Event, team model.TeamChannelConfig, daysAhead int, epgStart time.Time, p providers.Provider) []model.Event {
	byID := make(map[string]model.Event, len(schedule))
	for _, e := range schedule {
		byID[e.ID] = e
	}

	for day := 0; day < daysAhead; day++ {
		date := epgStart.AddDate(0, 0, day)
		sbEvents, err := o.scoreboard(ctx, team.Sport, team.League, date, p)
		if err != nil {
			continue
		}
		for _, sb := range sbEvents {
			if !involvesTeam(sb, team.TeamID) {
				continue
			}
			if existing, ok := byID[sb.ID]; ok {
				byID[sb.ID] = mergeEnrichment(existing, sb)
			} else {
				byID[sb.ID] = sb
			}
		}
	}

	out := make([]model.Event, 0, len(byID))
	for _, e := range byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// enrichPastScores backfills final scores onto already-elapsed events in
// extended, bounded to the most recent recentPastDays distinct dates to
// cap API calls per run. Ported from _enrich_past_events_with_scores.
func (o *Orchestrator) enrichPastScores(ctx context.Context, extended []model.Event, team model.TeamChannelConfig, p providers.Provider) []model.Event {
	now := time.Now().UTC()

	pastDates := map[string]time.Time{}
	for _, e := range extended {
		if e.Start.Before(now) {
			pastDates[e.Start.Format("20060102")] = e.Start
		}
	}
	dates := make([]time.Time, 0, len(pastDates))
	for _, d := range pastDates {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })
	if len(dates) > recentPastDays {
		dates = dates[:recentPastDays]
	}

	lookup := make(map[string]model.Event)
	for _, d := range dates {
		sbEvents, err := o.scoreboard(ctx, team.Sport, team.League, d, p)
		if err != nil {
			continue
		}
		for _, sb := range sbEvents {
			lookup[sb.ID] = sb
		}
	}

	for i, e := range extended {
		if sb, ok := lookup[e.ID]; ok {
			extended[i] = mergeEnrichment(e, sb)
		}
	}
	return extended
}

// mergeEnrichment layers a fresher scoreboard read (scores, status,
// broadcasts, odds) onto a schedule event, keeping the schedule event's
// identity fields.
func mergeEnrichment(base, fresh model.Event) model.Event {
	base.Status = fresh.Status
	if fresh.HomeScore != nil {
		base.HomeScore = fresh.HomeScore
	}
	if fresh.AwayScore != nil {
		base.AwayScore = fresh.AwayScore
	}
	if len(fresh.Broadcasts) > 0 {
		base.Broadcasts = fresh.Broadcasts
	}
	if fresh.Odds != nil {
		base.Odds = fresh.Odds
	}
	return base
}

func involvesTeam(e model.Event, teamID string) bool {
	return e.Home.ID == teamID || e.Away.ID == teamID
}

func fillerCategory(k model.FillerKind) model.ProgramCategory {
	switch k {
	case model.FillerPregame:
		return model.CategoryPregame
	case model.FillerPostgame:
		return model.CategoryPostgame
	case model.FillerOffseason:
		return model.CategoryOffseason
	default:
		return model.CategoryIdle
	}
}

// defaultRNG is the production tie-break source for conditional
// description selection; tests inject a seeded substitute directly into
// template.ResolveDescription.
func defaultRNG(n int) int {
	return int(time.Now().UnixNano() % int64(n))
}
