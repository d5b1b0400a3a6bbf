// Package streammatch dispatches a classified stream name to a specific
// event, trying progressively weaker signals until one resolves or all are
// exhausted. The tier structure — league indicator, sport indicator,
// team-pair cache lookup with disambiguation, single-team closest-game
// fallback — is ported from original_source/epg/multi_sport_matcher.py's
// MultiSportMatcher.match_stream, generalized from its ESPN-only team-ID
// plumbing to this module's Registry-backed, multi-provider model.
package streammatch

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/unyeco/sportguide/classify"
	"github.com/unyeco/sportguide/leaguecache"
	"github.com/unyeco/sportguide/model"
	"github.com/unyeco/sportguide/normalize"
	"github.com/unyeco/sportguide/providers"
	"github.com/unyeco/sportguide/teammatch"
)

// Reason enumerates why a stream failed to match, surfaced for diagnostics
// (spec.md §4.5's "why didn't this stream match" requirement).
type Reason string

const (
	ReasonNoTeams          Reason = "NO_TEAMS"
	ReasonNoLeagueDetected Reason = "NO_LEAGUE_DETECTED"
	ReasonMissingTeamIDs   Reason = "MISSING_TEAM_IDS"
	ReasonNoGameFound      Reason = "NO_GAME_FOUND"
	ReasonAmbiguousLeagues Reason = "AMBIGUOUS_LEAGUES"
)

// RawMatchup is what normalize+classify extract from a stream name before
// any provider lookup: the two team fragments, an optional indicator
// league/sport if the name carried one ("NHL: ..."), and an optional
// date/time hint for schedule disambiguation.
type RawMatchup struct {
	Team1           string
	Team2           string
	IndicatorLeague string
	IndicatorSport  string
	GameDate        *time.Time
	GameTime        *time.Time
}

// Config scopes a Matcher to the leagues and sports it is allowed to
// resolve against, mirroring MatcherConfig's enabled_leagues/soccer_enabled.
type Config struct {
	EnabledLeagues []string
	SoccerEnabled  bool
	LeagueSport    map[string]string // league code -> sport, for Tier 2's "leagues within this sport" scan
}

// Result is the outcome of matching one stream name.
type Result struct {
	Matched  bool
	Event    model.Event
	League   string
	Tier     model.MatchTier
	Reason   Reason
	RawTeam1 string
	RawTeam2 string
}

// Matcher ties together classify, teammatch, leaguecache and the provider
// registry to resolve a stream name to an event.
type Matcher struct {
	registry *providers.Registry
	leagues  *leaguecache.Cache
	config   Config
	roster   func(league string) []teammatch.Candidate
}

// New creates a Matcher. roster returns the matchable team candidates for a
// league (built by leaguecache + teammatch's name-set construction); it is
// injected so the matcher never talks to a provider to build candidate
// lists — that happens once per refresh cycle, not per stream.
func New(registry *providers.Registry, leagues *leaguecache.Cache, cfg Config, roster func(league string) []teammatch.Candidate) *Matcher {
	return &Matcher{registry: registry, leagues: leagues, config: cfg, roster: roster}
}

// Match resolves streamName against today's (and nearby) schedule.
// exceptionKeywords, if given, are the calling event group's configured
// keyword synonyms (spec.md §4.2 step 6) — stripped from the stream name
// before team extraction so a language tag like "En Español" never gets
// mistaken for part of a team name.
func (m *Matcher) Match(ctx context.Context, streamName string, exceptionKeywords ...string) Result {
	now := time.Now()
	cleaned, gameDate, gameTime := normalize.ForStream(streamName, exceptionKeywords, now)
	indicatorLeague, indicatorSport := detectIndicators(streamName)

	cls := classify.Classify(cleaned)
	if cls.Category != model.CategoryTeamVsTeam {
		// A separator-less stream can still resolve via a single-event
		// league (spec.md §4.5: "ufc"/"fight night" style keyword, exactly
		// one event of that league on the target date) before being
		// written off entirely.
		if res, ok := m.trySingleEventLeague(ctx, streamName, gameDate); ok {
			return res
		}
		return Result{Matched: false, Reason: ReasonNoTeams}
	}

	raw := RawMatchup{
		Team1:           cls.Left,
		Team2:           cls.Right,
		IndicatorLeague: indicatorLeague,
		IndicatorSport:  indicatorSport,
		GameDate:        gameDate,
		GameTime:        gameTime,
	}

	// Tier 1: an explicit league indicator in the stream name, tried first.
	if raw.IndicatorLeague != "" && m.leagueEnabled(raw.IndicatorLeague) {
		if res, ok := m.tryLeague(ctx, raw, raw.IndicatorLeague, model.Tier1LeagueIndicator); ok {
			return res
		}
	}

	// Tier 2: an explicit sport indicator, tried across every enabled
	// league in that sport.
	if raw.IndicatorSport != "" {
		for _, league := range m.leaguesForSport(raw.IndicatorSport) {
			if res, ok := m.tryLeague(ctx, raw, league, model.Tier2SportIndicator); ok {
				return res
			}
		}
	}

	// Tier 3: no indicator at all — narrow by the team-pair reverse index,
	// then disambiguate across every league both teams share.
	candidates := m.leagues.FindCandidateLeagues(raw.Team1, raw.Team2)
	var enabledCandidates []string
	for _, l := range candidates {
		if m.leagueEnabled(l) {
			enabledCandidates = append(enabledCandidates, l)
		}
	}

	switch len(enabledCandidates) {
	case 0:
		// Tier 4: fall back to a single team and its closest game, in case
		// the second fragment is noise (an event-card subtitle, sponsor
		// name) rather than a real opponent.
		return m.trySingleTeam(ctx, raw)
	case 1:
		if res, ok := m.tryLeague(ctx, raw, enabledCandidates[0], tierForRaw(raw)); ok {
			return res
		}
		return Result{Matched: false, Reason: ReasonNoGameFound, RawTeam1: raw.Team1, RawTeam2: raw.Team2}
	default:
		return m.disambiguate(ctx, raw, enabledCandidates)
	}
}

// tierForRaw reports which of Tier 3a/3b/3c applies, based on how much of
// the date/time hint raw carries (spec.md §4.5: 3a needs both date and
// time, 3b only time, 3c neither).
func tierForRaw(raw RawMatchup) model.MatchTier {
	switch {
	case raw.GameDate != nil && raw.GameTime != nil:
		return model.Tier3aDateTime
	case raw.GameTime != nil:
		return model.Tier3bTimeOnly
	default:
		return model.Tier3cTeamsOnly
	}
}

func (m *Matcher) leagueEnabled(league string) bool {
	for _, l := range m.config.EnabledLeagues {
		if l == league {
			return true
		}
	}
	return m.config.SoccerEnabled && league == "soccer"
}

func (m *Matcher) leaguesForSport(sport string) []string {
	var out []string
	for _, l := range m.config.EnabledLeagues {
		if m.config.LeagueSport[l] == sport {
			out = append(out, l)
		}
	}
	return out
}

// maxAlternatePairings bounds how many of each side's fuzzy-match
// candidates team-pair disambiguation will try (spec.md §4.5: "retry with
// up to N alternate home/away pairings").
const maxAlternatePairings = 3

// tryLeague resolves raw's two team fragments against league's roster, then
// asks the league's provider to find a matching scheduled event. When the
// single best-guess pairing has no scheduled game, it retries with
// alternate home/away pairings drawn from teammatch.FindAll for the same
// raw strings — team-pair disambiguation (spec.md §4.5), e.g. "Maryland"
// resolving to Terrapins, Eastern Shore, or Loyola Maryland until one of
// those pairings against the other side finds a game. Ported from
// multi_sport_matcher.py's retry-with-all_matches fallback.
func (m *Matcher) tryLeague(ctx context.Context, raw RawMatchup, league string, tier model.MatchTier) (Result, bool) {
	roster := m.roster(league)
	t1Candidates := teammatch.FindAll(raw.Team1, roster, maxAlternatePairings)
	t2Candidates := teammatch.FindAll(raw.Team2, roster, maxAlternatePairings)
	if len(t1Candidates) == 0 || len(t2Candidates) == 0 {
		return Result{}, false
	}

	provider, ok := m.registry.ForLeague(league)
	if !ok {
		return Result{}, false
	}

	date := time.Now()
	if raw.GameDate != nil {
		date = *raw.GameDate
	}
	events, err := provider.ListEvents(ctx, league, date)
	if err != nil {
		return Result{}, false
	}

	for _, t1 := range t1Candidates {
		for _, t2 := range t2Candidates {
			if t1.Team.ID == t2.Team.ID {
				continue
			}
			if event, found := findMatchupInEvents(events, t1.Team.ID, t2.Team.ID); found {
				return Result{Matched: true, Event: event, League: league, Tier: tier, RawTeam1: raw.Team1, RawTeam2: raw.Team2}, true
			}
		}
	}
	return Result{}, false
}

func findMatchupInEvents(events []model.Event, teamA, teamB string) (model.Event, bool) {
	for _, e := range events {
		if (e.Home.ID == teamA && e.Away.ID == teamB) || (e.Home.ID == teamB && e.Away.ID == teamA) {
			return e, true
		}
	}
	return model.Event{}, false
}

// disambiguate runs tryLeague (itself already retrying alternate
// home/away pairings within each league) across every candidate league and
// picks the one that actually has a scheduled game; a game-time hint in
// raw breaks ties when more than one league's schedule matches. Ported
// from _disambiguate_candidates's "leagues with games" scan.
func (m *Matcher) disambiguate(ctx context.Context, raw RawMatchup, leagues []string) Result {
	type hit struct {
		res  Result
		diff time.Duration
	}
	var hits []hit

	tier := tierForRaw(raw)
	for _, league := range leagues {
		res, ok := m.tryLeague(ctx, raw, league, tier)
		if !ok {
			continue
		}
		diff := time.Duration(1<<62 - 1)
		if raw.GameTime != nil {
			diff = timeOfDayDiff(res.Event.Start, *raw.GameTime)
		}
		hits = append(hits, hit{res, diff})
	}

	if len(hits) == 0 {
		return Result{Matched: false, Reason: ReasonNoGameFound, RawTeam1: raw.Team1, RawTeam2: raw.Team2}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].diff < hits[j].diff })
	return hits[0].res
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// timeOfDayDiff compares two timestamps by time-of-day only (wrapping
// around midnight), since a stream's extracted kickoff time carries no
// date component while the event's Start does.
func timeOfDayDiff(a, b time.Time) time.Duration {
	am := a.Hour()*60 + a.Minute()
	bm := b.Hour()*60 + b.Minute()
	diff := am - bm
	if diff < 0 {
		diff = -diff
	}
	if diff > 12*60 {
		diff = 24*60 - diff
	}
	return time.Duration(diff) * time.Minute
}

// trySingleTeam handles Tier 4: only one fragment resolved to a known
// team, so search that team's schedule for the game whose start is closest,
// past or future, to the extracted date if there is one (4a), otherwise to
// now (4b), rather than requiring both sides to resolve. The extracted time
// is not used. Ported from Tier 4a/4b.
func (m *Matcher) trySingleTeam(ctx context.Context, raw RawMatchup) Result {
	for _, league := range m.config.EnabledLeagues {
		roster := m.roster(league)
		team, ok := teammatch.Find(raw.Team1, roster)
		if !ok {
			team, ok = teammatch.Find(raw.Team2, roster)
		}
		if !ok {
			continue
		}
		provider, ok := m.registry.ForLeague(league)
		if !ok {
			continue
		}
		events, err := provider.GetTeamSchedule(ctx, team.Team.ID, league, 14)
		if err != nil || len(events) == 0 {
			continue
		}

		tier := model.Tier4bOneTeamClosest
		target := time.Now()
		if raw.GameDate != nil {
			target = *raw.GameDate
			tier = model.Tier4aOneTeamDateTime
		}
		sort.Slice(events, func(i, j int) bool {
			return absDuration(events[i].Start.Sub(target)) < absDuration(events[j].Start.Sub(target))
		})
		return Result{Matched: true, Event: events[0], League: league, Tier: tier, RawTeam1: raw.Team1, RawTeam2: raw.Team2}
	}
	return Result{Matched: false, Reason: ReasonMissingTeamIDs, RawTeam1: raw.Team1, RawTeam2: raw.Team2}
}

// trySingleEventLeague handles leagues configured as "one event per day"
// (spec.md §4.5, e.g. UFC): if text names one of the league's single-event
// keywords and the league has exactly one event on the target date, accept
// it without ever resolving team names. text is the stream's own wording
// (pre-lexical-scrub — a "vs."-less event card keeps its keyword intact)
// rather than the classified-and-stripped matchup fragments, since this
// path runs precisely when classification found no team pair to extract.
func (m *Matcher) trySingleEventLeague(ctx context.Context, text string, gameDate *time.Time) (Result, bool) {
	for league := range singleEventKeywords {
		if !m.leagueEnabled(league) || !singleEventKeywordHit(text, league) {
			continue
		}
		provider, ok := m.registry.ForLeague(league)
		if !ok {
			continue
		}
		date := time.Now()
		if gameDate != nil {
			date = *gameDate
		}
		events, err := provider.ListEvents(ctx, league, date)
		if err != nil || len(events) != 1 {
			continue
		}
		return Result{Matched: true, Event: events[0], League: league, Tier: model.TierSingleEventLeague}, true
	}
	return Result{}, false
}

// TierLabel renders a MatchTier for logs/metrics labels.
func TierLabel(t model.MatchTier) string {
	switch t {
	case model.Tier1LeagueIndicator:
		return "1"
	case model.Tier2SportIndicator:
		return "2"
	case model.Tier3aDateTime:
		return "3a"
	case model.Tier3bTimeOnly:
		return "3b"
	case model.Tier3cTeamsOnly:
		return "3c"
	case model.Tier4aOneTeamDateTime:
		return "4a"
	case model.Tier4bOneTeamClosest:
		return "4b"
	case model.TierSingleEventLeague:
		return "single_event_league"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}
