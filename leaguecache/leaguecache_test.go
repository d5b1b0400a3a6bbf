package leaguecache

import (
	"context"
	"testing"
	"time"

	"github.com/unyeco/sportguide/model"
	"github.com/unyeco/sportguide/providers"
)

// fakeProvider serves a fixed team roster for a single league, recording
// nothing beyond what ListTeams needs for these tests.
type fakeProvider struct {
	name    string
	league  string
	teams   []model.Team
	listErr error
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) ListEvents(ctx context.Context, league string, date time.Time) ([]model.Event, error) {
	return nil, nil
}
func (f *fakeProvider) GetTeamSchedule(ctx context.Context, teamID, league string, daysAhead int) ([]model.Event, error) {
	return nil, nil
}
func (f *fakeProvider) GetScoreboard(ctx context.Context, league string, date time.Time) ([]model.Event, error) {
	return nil, nil
}
func (f *fakeProvider) GetTeamInfo(ctx context.Context, teamID, league string) (model.Team, error) {
	return model.Team{}, nil
}
func (f *fakeProvider) GetTeamStats(ctx context.Context, teamID, league string) (model.TeamStats, error) {
	return model.TeamStats{}, nil
}
func (f *fakeProvider) GetStandings(ctx context.Context, league string) ([]model.TeamStats, error) {
	return nil, nil
}
func (f *fakeProvider) ListTeams(ctx context.Context, league string) ([]model.Team, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.teams, nil
}
func (f *fakeProvider) ListConferences(ctx context.Context, league string) ([]string, error) {
	return nil, nil
}
func (f *fakeProvider) ListConferenceTeams(ctx context.Context, conference string) ([]model.Team, error) {
	return nil, nil
}
func (f *fakeProvider) SupportsLeague(league string) bool { return league == f.league }

func TestCache_RefreshAndLookup(t *testing.T) {
	nfl := &fakeProvider{name: "p1", league: "nfl", teams: []model.Team{
		{ID: "1", Name: "Titans", ShortName: "Titans"},
	}}
	ncaaf := &fakeProvider{name: "p2", league: "ncaaf", teams: []model.Team{
		{ID: "2", Name: "Tennessee Volunteers", ShortName: "Volunteers"},
	}}
	registry := providers.NewRegistry()
	registry.Register(1, "p1", nfl, true)
	registry.Register(2, "p2", ncaaf, true)

	c := New(registry, []string{"nfl", "ncaaf"})
	if err := c.Refresh(context.Background(), 4); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	leagues := c.GetLeaguesForTeam("Titans")
	if len(leagues) != 1 || leagues[0] != "nfl" {
		t.Fatalf("GetLeaguesForTeam(Titans) = %v, want [nfl]", leagues)
	}

	teams := c.TeamsInLeague("nfl")
	if len(teams) != 1 || teams[0].ID != "1" {
		t.Fatalf("TeamsInLeague(nfl) = %v", teams)
	}
}

func TestCache_FindCandidateLeaguesIntersects(t *testing.T) {
	shared := &fakeProvider{name: "p1", league: "nhl", teams: []model.Team{
		{ID: "1", Name: "Predators"},
		{ID: "2", Name: "Panthers"},
	}}
	other := &fakeProvider{name: "p2", league: "nfl", teams: []model.Team{
		{ID: "3", Name: "Panthers"},
	}}
	registry := providers.NewRegistry()
	registry.Register(1, "p1", shared, true)
	registry.Register(2, "p2", other, true)

	c := New(registry, []string{"nhl", "nfl"})
	if err := c.Refresh(context.Background(), 4); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	leagues := c.FindCandidateLeagues("Predators", "Panthers")
	if len(leagues) != 1 || leagues[0] != "nhl" {
		t.Fatalf("FindCandidateLeagues = %v, want [nhl]", leagues)
	}
}

func TestCache_GetLeaguesForTeam_UnknownTeam(t *testing.T) {
	registry := providers.NewRegistry()
	c := New(registry, nil)
	if got := c.GetLeaguesForTeam("nobody"); got != nil {
		t.Fatalf("GetLeaguesForTeam(nobody) = %v, want nil", got)
	}
}

func TestCache_Refresh_PartialFailureKeepsOtherLeagues(t *testing.T) {
	ok := &fakeProvider{name: "p1", league: "nfl", teams: []model.Team{{ID: "1", Name: "Titans"}}}
	registry := providers.NewRegistry()
	registry.Register(1, "p1", ok, true)
	// "ncaaf" has no registered provider at all — Refresh should not error,
	// it just leaves that league's roster empty.
	c := New(registry, []string{"nfl", "ncaaf"})

	if err := c.Refresh(context.Background(), 4); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if teams := c.TeamsInLeague("nfl"); len(teams) != 1 {
		t.Fatalf("TeamsInLeague(nfl) = %v, want 1 team", teams)
	}
	if teams := c.TeamsInLeague("ncaaf"); teams != nil {
		t.Fatalf("TeamsInLeague(ncaaf) = %v, want nil", teams)
	}
}
