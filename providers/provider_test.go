package providers

import (
	"context"
	"testing"
	"time"

	"github.com/unyeco/sportguide/model"
)

// stubProvider is a minimal Provider for registry tests.
type stubProvider struct {
	name     string
	supports map[string]bool
}

func (p *stubProvider) Name() string { return p.name }
func (p *stubProvider) ListEvents(ctx context.Context, league string, date time.Time) ([]model.Event, error) {
	return nil, nil
}
func (p *stubProvider) GetTeamSchedule(ctx context.Context, teamID, league string, daysAhead int) ([]model.Event, error) {
	return nil, nil
}
func (p *stubProvider) GetScoreboard(ctx context.Context, league string, date time.Time) ([]model.Event, error) {
	return nil, nil
}
func (p *stubProvider) GetTeamInfo(ctx context.Context, teamID, league string) (model.Team, error) {
	return model.Team{}, nil
}
func (p *stubProvider) GetTeamStats(ctx context.Context, teamID, league string) (model.TeamStats, error) {
	return model.TeamStats{}, nil
}
func (p *stubProvider) GetStandings(ctx context.Context, league string) ([]model.TeamStats, error) {
	return nil, nil
}
func (p *stubProvider) ListTeams(ctx context.Context, league string) ([]model.Team, error) {
	return nil, nil
}
func (p *stubProvider) ListConferences(ctx context.Context, league string) ([]string, error) {
	return nil, nil
}
func (p *stubProvider) ListConferenceTeams(ctx context.Context, conference string) ([]model.Team, error) {
	return nil, nil
}
func (p *stubProvider) SupportsLeague(league string) bool { return p.supports[league] }

func TestRegistry_AllOrdersByPriorityAndSkipsDisabled(t *testing.T) {
	r := NewRegistry()
	r.Register(2, "second", &stubProvider{name: "second"}, true)
	r.Register(1, "first", &stubProvider{name: "first"}, true)
	r.Register(0, "disabled", &stubProvider{name: "disabled"}, false)

	all := r.All()
	if len(all) != 2 {
		t.Fatalf("All() = %d providers, want 2 (disabled excluded)", len(all))
	}
	if all[0].Name() != "first" || all[1].Name() != "second" {
		t.Fatalf("All() order = [%s, %s], want [first, second]", all[0].Name(), all[1].Name())
	}
}

func TestRegistry_ForLeague_FirstEnabledMatchWins(t *testing.T) {
	r := NewRegistry()
	r.Register(2, "espn", &stubProvider{name: "espn", supports: map[string]bool{"nfl": true}}, true)
	r.Register(1, "tsdb", &stubProvider{name: "tsdb", supports: map[string]bool{"nfl": true}}, true)

	p, ok := r.ForLeague("nfl")
	if !ok {
		t.Fatal("ForLeague(nfl) ok = false, want true")
	}
	if p.Name() != "tsdb" {
		t.Errorf("ForLeague(nfl) = %q, want tsdb (lower priority registered first)", p.Name())
	}
}

func TestRegistry_ForLeague_SkipsDisabledProvider(t *testing.T) {
	r := NewRegistry()
	r.Register(1, "tsdb", &stubProvider{name: "tsdb", supports: map[string]bool{"nfl": true}}, false)
	r.Register(2, "espn", &stubProvider{name: "espn", supports: map[string]bool{"nfl": true}}, true)

	p, ok := r.ForLeague("nfl")
	if !ok || p.Name() != "espn" {
		t.Fatalf("ForLeague(nfl) = %v, ok=%v, want espn", p, ok)
	}
}

func TestRegistry_ForLeague_NoMatch(t *testing.T) {
	r := NewRegistry()
	r.Register(1, "tsdb", &stubProvider{name: "tsdb"}, true)

	if _, ok := r.ForLeague("nowhere"); ok {
		t.Fatal("ForLeague(nowhere) ok = true, want false")
	}
}
