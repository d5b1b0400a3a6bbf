// Package tsdb implements the TheSportsDB provider (spec.md §4.1). It talks
// to https://www.thesportsdb.com/api/v1/json, resolves its API key in the
// order explicit-config → TSDB_API_KEY env var → the public free test key
// "123", and layers the shared providers/ratelimit and providers/cache
// packages underneath. Endpoint shapes, the API-key fallback chain, and the
// reactive-429-then-retry behavior are ported from
// original_source/providers/tsdb/client.py's TSDBClient/_request.
package tsdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/unyeco/sportguide/internal/errs"
	"github.com/unyeco/sportguide/model"
	"github.com/unyeco/sportguide/providers/cache"
	"github.com/unyeco/sportguide/providers/ratelimit"
)

const (
	baseURL      = "https://www.thesportsdb.com/api/v1/json"
	freeAPIKey   = "123"
	defaultRPM   = 25 // headroom below TSDB's published 30/min free-tier limit
	reactiveWait = 60 * time.Second
)

// LeagueMapper resolves a canonical league code to this provider's own
// league identifiers. Backed by the league_provider_mappings table
// (spec.md §3); implemented by store.LeagueMappingStore.
type LeagueMapper interface {
	ProviderLeagueID(ctx context.Context, league, provider string) (string, bool, error)
	ProviderLeagueName(ctx context.Context, league, provider string) (string, bool, error)
	SupportsLeague(ctx context.Context, league, provider string) bool
}

// Client is the TheSportsDB provider client.
type Client struct {
	apiKey     string
	httpClient *http.Client
	limiter    *ratelimit.Limiter
	cache      *cache.Cache
	mappings   LeagueMapper
	retries    int
	retryDelay time.Duration
	sleep      func(time.Duration)
}

// Config configures a Client. APIKey overrides the TSDB_API_KEY env var and
// the free fallback key; RequestsPerMinute defaults to 25 when zero.
type Config struct {
	APIKey            string
	RequestsPerMinute int
	Timeout           time.Duration
	RetryCount        int
	RetryDelay        time.Duration
}

// New builds a Client resolving its API key as explicit Config.APIKey →
// envAPIKey (the caller passes internal/config's resolved TSDBAPIKey, which
// already carries this fallback) → the public free key.
func New(cfg Config, store cache.Store, mappings LeagueMapper) *Client {
	key := cfg.APIKey
	if key == "" {
		key = freeAPIKey
	}
	rpm := cfg.RequestsPerMinute
	if rpm == 0 {
		rpm = defaultRPM
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	retries := cfg.RetryCount
	if retries == 0 {
		retries = 3
	}
	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = time.Second
	}

	return &Client{
		apiKey:     key,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    ratelimit.New(rpm, time.Minute),
		cache:      cache.New(store),
		mappings:   mappings,
		retries:    retries,
		retryDelay: retryDelay,
		sleep:      time.Sleep,
	}
}

// Name implements providers.Provider.
func (c *Client) Name() string { return "tsdb" }

// IsPremium reports whether this client is using a non-free API key.
func (c *Client) IsPremium() bool { return c.apiKey != freeAPIKey }

// RateLimitStats exposes the limiter's statistics for UI/status endpoints.
func (c *Client) RateLimitStats() ratelimit.Stats { return c.limiter.Stats() }

// SupportsLeague implements providers.Provider.
func (c *Client) SupportsLeague(league string) bool {
	return c.mappings.SupportsLeague(context.Background(), league, "tsdb")
}

// request performs one rate-limited, retrying HTTP GET against endpoint,
// decoding the JSON body into out. Matches TSDBClient._request: a 429
// triggers a 60s reactive wait and a retry, not a failure; other failures
// retry with linear backoff up to retries attempts before giving up.
func (c *Client) request(ctx context.Context, endpoint string, params url.Values, out interface{}) error {
	c.limiter.Acquire()

	full := fmt.Sprintf("%s/%s/%s", baseURL, c.apiKey, endpoint)
	if len(params) > 0 {
		full += "?" + params.Encode()
	}

	var lastErr error
	for attempt := 0; attempt < c.retries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, full, nil)
		if err != nil {
			return errs.Wrap(errs.KindConfigurationError, "providers/tsdb", "build tsdb request", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = err
			c.sleep(c.retryDelay * time.Duration(attempt+1))
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			c.limiter.RecordReactiveWait(reactiveWait)
			c.sleep(reactiveWait)
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("tsdb http %d", resp.StatusCode)
			c.sleep(c.retryDelay * time.Duration(attempt+1))
			continue
		}

		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return errs.New(errs.KindUpstreamMalformed, "providers/tsdb", fmt.Sprintf("tsdb http %d for %s", resp.StatusCode, endpoint))
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return errs.Wrap(errs.KindUpstreamMalformed, "providers/tsdb", "decode tsdb response", err)
		}
		return nil
	}

	return errs.Wrap(errs.KindTransientUpstream, "providers/tsdb", "tsdb request exhausted retries", lastErr)
}

// eventsDayResponse mirrors TSDB's eventsday.php envelope.
type eventsDayResponse struct {
	Events []tsdbEvent `json:"events"`
}

type tsdbEvent struct {
	IDEvent      string `json:"idEvent"`
	StrEvent     string `json:"strEvent"`
	StrHomeTeam  string `json:"strHomeTeam"`
	StrAwayTeam  string `json:"strAwayTeam"`
	IDHomeTeam   string `json:"idHomeTeam"`
	IDAwayTeam   string `json:"idAwayTeam"`
	DateEvent    string `json:"dateEvent"`
	StrTime      string `json:"strTime"`
	IntHomeScore string `json:"intHomeScore"`
	IntAwayScore string `json:"intAwayScore"`
	StrStatus    string `json:"strStatus"`
	StrLeague    string `json:"strLeague"`
}

func (e tsdbEvent) toModel(league string) model.Event {
	ev := model.Event{
		ID:     e.IDEvent,
		League: league,
		Home:   model.Team{ID: e.IDHomeTeam, League: league, Name: e.StrHomeTeam},
		Away:   model.Team{ID: e.IDAwayTeam, League: league, Name: e.StrAwayTeam},
		Start:  parseTSDBTime(e.DateEvent, e.StrTime),
	}
	if t, err := strconv.Atoi(e.IntHomeScore); err == nil {
		ev.HomeScore = &t
	}
	if t, err := strconv.Atoi(e.IntAwayScore); err == nil {
		ev.AwayScore = &t
	}
	state := tsdbStatusToState(e.StrStatus)
	ev.Status = model.EventStatus{State: state, Completed: state == model.EventStateFinal, Detail: e.StrStatus}
	return ev
}

func parseTSDBTime(dateStr, timeStr string) time.Time {
	if timeStr == "" {
		timeStr = "00:00:00"
	}
	t, err := time.Parse("2006-01-02 15:04:05", dateStr+" "+timeStr)
	if err != nil {
		return time.Time{}
	}
	return t
}

func tsdbStatusToState(status string) model.EventState {
	switch status {
	case "", "NS":
		return model.EventStatePre
	case "FT", "Match Finished":
		return model.EventStateFinal
	case "Postponed", "PST":
		return model.EventStatePostponed
	case "Cancelled", "CANC":
		return model.EventStateCancelled
	default:
		return model.EventStateInProgress
	}
}

// ListEvents fetches events for league on date via eventsday.php, which
// takes the league's display NAME (not its provider ID). Results are cached
// with the tiered TTL from providers/cache.TTLForDate.
func (c *Client) ListEvents(ctx context.Context, league string, date time.Time) ([]model.Event, error) {
	dateStr := date.Format("2006-01-02")
	key := fmt.Sprintf("tsdb:eventsday:%s:%s", league, dateStr)

	var resp eventsDayResponse
	err := c.cache.GetOrLoad(ctx, key, cache.TTLForDate(date, time.Now()), &resp, func(ctx context.Context) (interface{}, error) {
		leagueName, ok, err := c.mappings.ProviderLeagueName(ctx, league, "tsdb")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errs.NotFound("providers/tsdb", "no tsdb league mapping for "+league)
		}
		var r eventsDayResponse
		if err := c.request(ctx, "eventsday.php", url.Values{"d": {dateStr}, "l": {leagueName}}, &r); err != nil {
			return nil, err
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]model.Event, 0, len(resp.Events))
	for _, e := range resp.Events {
		out = append(out, e.toModel(league))
	}
	return out, nil
}

// GetTeamSchedule fetches a team's upcoming fixtures via eventsnext.php.
// On the free tier TSDB only returns home fixtures for this endpoint.
func (c *Client) GetTeamSchedule(ctx context.Context, teamID, league string, daysAhead int) ([]model.Event, error) {
	var resp eventsDayResponse
	if err := c.request(ctx, "eventsnext.php", url.Values{"id": {teamID}}, &resp); err != nil {
		return nil, err
	}
	out := make([]model.Event, 0, len(resp.Events))
	for _, e := range resp.Events {
		out = append(out, e.toModel(league))
	}
	return out, nil
}

// GetScoreboard is ListEvents under another name: TSDB has no separate
// live-scoreboard endpoint on the free tier, so in-progress state comes
// from the same eventsday.php payload's strStatus field.
func (c *Client) GetScoreboard(ctx context.Context, league string, date time.Time) ([]model.Event, error) {
	return c.ListEvents(ctx, league, date)
}

// GetTeamInfo is not reliable on TSDB's free tier (lookupteam.php returns
// the wrong team); callers should prefer the ESPN provider for team info
// and fall back to search_team only when ESPN has no mapping.
func (c *Client) GetTeamInfo(ctx context.Context, teamID, league string) (model.Team, error) {
	var resp struct {
		Teams []struct {
			IDTeam   string `json:"idTeam"`
			StrTeam  string `json:"strTeam"`
			StrBadge string `json:"strTeamBadge"`
		} `json:"teams"`
	}
	if err := c.request(ctx, "lookupteam.php", url.Values{"id": {teamID}}, &resp); err != nil {
		return model.Team{}, err
	}
	if len(resp.Teams) == 0 {
		return model.Team{}, errs.NotFound("providers/tsdb", "tsdb team not found: "+teamID)
	}
	t := resp.Teams[0]
	return model.Team{ID: t.IDTeam, Name: t.StrTeam, LogoURL: t.StrBadge}, nil
}

// GetTeamStats is not available from TSDB; ESPN is the stats provider in
// this registry (spec.md §4.1). Always returns a not-found error; the
// Registry does not fall through to another provider, so a league routed
// to TSDB gets no team stats.
func (c *Client) GetTeamStats(ctx context.Context, teamID, league string) (model.TeamStats, error) {
	return model.TeamStats{}, errs.NotFound("providers/tsdb", "tsdb does not provide team stats")
}

// GetStandings is not available from TSDB's free tier.
func (c *Client) GetStandings(ctx context.Context, league string) ([]model.TeamStats, error) {
	return nil, errs.NotFound("providers/tsdb", "tsdb does not provide standings")
}

// ListTeams fetches all teams in league via search_all_teams.php (league
// lookup_all_teams.php by ID is broken on the free tier).
func (c *Client) ListTeams(ctx context.Context, league string) ([]model.Team, error) {
	key := fmt.Sprintf("tsdb:teams:%s", league)
	var resp struct {
		Teams []struct {
			IDTeam   string `json:"idTeam"`
			StrTeam  string `json:"strTeam"`
			StrBadge string `json:"strTeamBadge"`
		} `json:"teams"`
	}
	err := c.cache.GetOrLoad(ctx, key, cache.TTLTeams, &resp, func(ctx context.Context) (interface{}, error) {
		leagueName, ok, err := c.mappings.ProviderLeagueName(ctx, league, "tsdb")
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errs.NotFound("providers/tsdb", "no tsdb league mapping for "+league)
		}
		var r struct {
			Teams []struct {
				IDTeam   string `json:"idTeam"`
				StrTeam  string `json:"strTeam"`
				StrBadge string `json:"strTeamBadge"`
			} `json:"teams"`
		}
		if err := c.request(ctx, "search_all_teams.php", url.Values{"l": {leagueName}}, &r); err != nil {
			return nil, err
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Team, 0, len(resp.Teams))
	for _, t := range resp.Teams {
		out = append(out, model.Team{ID: t.IDTeam, Name: t.StrTeam, LogoURL: t.StrBadge})
	}
	return out, nil
}

// ListConferences is not modeled by TSDB; conference data comes from ESPN.
func (c *Client) ListConferences(ctx context.Context, league string) ([]string, error) {
	return nil, errs.NotFound("providers/tsdb", "tsdb does not provide conference listings")
}

// ListConferenceTeams is not modeled by TSDB.
func (c *Client) ListConferenceTeams(ctx context.Context, conference string) ([]model.Team, error) {
	return nil, errs.NotFound("providers/tsdb", "tsdb does not provide conference team listings")
}

// SearchTeam searches TSDB for a team by display name. Results cached 24
// hours. No code in this module calls it.
func (c *Client) SearchTeam(ctx context.Context, name string) ([]model.Team, error) {
	key := fmt.Sprintf("tsdb:searchteam:%s", normalizeForKey(name))
	var resp struct {
		Teams []struct {
			IDTeam   string `json:"idTeam"`
			StrTeam  string `json:"strTeam"`
			StrBadge string `json:"strTeamBadge"`
		} `json:"teams"`
	}
	err := c.cache.GetOrLoad(ctx, key, cache.TTLTeamSearch, &resp, func(ctx context.Context) (interface{}, error) {
		var r struct {
			Teams []struct {
				IDTeam   string `json:"idTeam"`
				StrTeam  string `json:"strTeam"`
				StrBadge string `json:"strTeamBadge"`
			} `json:"teams"`
		}
		if err := c.request(ctx, "searchteams.php", url.Values{"t": {name}}, &r); err != nil {
			return nil, err
		}
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.Team, 0, len(resp.Teams))
	for _, t := range resp.Teams {
		out = append(out, model.Team{ID: t.IDTeam, Name: t.StrTeam, LogoURL: t.StrBadge})
	}
	return out, nil
}

func normalizeForKey(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
