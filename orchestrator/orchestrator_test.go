package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/unyeco/sportguide/model"
	"github.com/unyeco/sportguide/providers"
)

func score(n int) *int { return &n }

// stubProvider implements providers.Provider, recording how many times
// GetScoreboard is called per day so the orchestrator's own scoreboard
// cache can be asserted to coalesce repeat lookups.
type stubProvider struct {
	league     string
	scoreboard map[string][]model.Event // keyed by "20060102"
	calls      map[string]int
}

func newStubProvider(league string) *stubProvider {
	return &stubProvider{league: league, scoreboard: map[string][]model.Event{}, calls: map[string]int{}}
}

func (p *stubProvider) Name() string { return "stub" }
func (p *stubProvider) ListEvents(ctx context.Context, league string, date time.Time) ([]model.Event, error) {
	return nil, nil
}
func (p *stubProvider) GetTeamSchedule(ctx context.Context, teamID, league string, daysAhead int) ([]model.Event, error) {
	return nil, nil
}
func (p *stubProvider) GetScoreboard(ctx context.Context, league string, date time.Time) ([]model.Event, error) {
	key := date.Format("20060102")
	p.calls[key]++
	return p.scoreboard[key], nil
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
func (p *stubProvider) SupportsLeague(league string) bool { return league == p.league }

func newTestOrchestrator() *Orchestrator {
	r := providers.NewRegistry()
	return New(r)
}

func TestScoreboard_CachesPerDayAcrossCalls(t *testing.T) {
	o := newTestOrchestrator()
	p := newStubProvider("nfl")
	date := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	p.scoreboard["20260731"] = []model.Event{{ID: "e1"}}

	events1, err := o.scoreboard(context.Background(), "football", "nfl", date, p)
	if err != nil {
		t.Fatalf("scoreboard: %v", err)
	}
	events2, err := o.scoreboard(context.Background(), "football", "nfl", date, p)
	if err != nil {
		t.Fatalf("scoreboard (cached): %v", err)
	}
	if len(events1) != 1 || len(events2) != 1 {
		t.Fatalf("events = %v, %v", events1, events2)
	}
	if p.calls["20260731"] != 1 {
		t.Errorf("GetScoreboard calls = %d, want 1 (second call served from cache)", p.calls["20260731"])
	}
}

func TestClearScoreboardCache_ForcesRefetch(t *testing.T) {
	o := newTestOrchestrator()
	p := newStubProvider("nfl")
	date := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

	o.scoreboard(context.Background(), "football", "nfl", date, p)
	o.clearScoreboardCache()
	o.scoreboard(context.Background(), "football", "nfl", date, p)

	if p.calls["20260731"] != 2 {
		t.Errorf("GetScoreboard calls after clear = %d, want 2", p.calls["20260731"])
	}
}

func TestMergeEnrichment_OverlaysFreshScoresAndStatus(t *testing.T) {
	base := model.Event{ID: "e1", Status: model.EventStatus{State: model.EventStatePre}}
	fresh := model.Event{
		ID: "e1", Status: model.EventStatus{State: model.EventStateFinal, Completed: true},
		HomeScore: score(21), AwayScore: score(14),
		Broadcasts: []model.Broadcast{{Name: "ESPN"}},
	}
	got := mergeEnrichment(base, fresh)
	if got.Status.State != model.EventStateFinal || !got.Status.Completed {
		t.Errorf("Status = %+v, want Final/Completed", got.Status)
	}
	if got.HomeScore == nil || *got.HomeScore != 21 || got.AwayScore == nil || *got.AwayScore != 14 {
		t.Errorf("scores = %v, %v", got.HomeScore, got.AwayScore)
	}
	if len(got.Broadcasts) != 1 || got.Broadcasts[0].Name != "ESPN" {
		t.Errorf("Broadcasts = %v", got.Broadcasts)
	}
}

func TestMergeEnrichment_DoesNotClobberWithAbsentFreshFields(t *testing.T) {
	base := model.Event{ID: "e1", HomeScore: score(21), Broadcasts: []model.Broadcast{{Name: "ESPN"}}}
	fresh := model.Event{ID: "e1"} // nothing new yet
	got := mergeEnrichment(base, fresh)
	if got.HomeScore == nil || *got.HomeScore != 21 {
		t.Errorf("HomeScore = %v, want unchanged 21", got.HomeScore)
	}
	if len(got.Broadcasts) != 1 {
		t.Errorf("Broadcasts = %v, want unchanged", got.Broadcasts)
	}
}

func TestInvolvesTeam(t *testing.T) {
	e := model.Event{Home: model.Team{ID: "t1"}, Away: model.Team{ID: "t2"}}
	if !involvesTeam(e, "t1") || !involvesTeam(e, "t2") {
		t.Error("involvesTeam should match both home and away")
	}
	if involvesTeam(e, "t3") {
		t.Error("involvesTeam matched an unrelated team")
	}
}

func TestFillerCategory(t *testing.T) {
	cases := map[model.FillerKind]model.ProgramCategory{
		model.FillerPregame:   model.CategoryPregame,
		model.FillerPostgame:  model.CategoryPostgame,
		model.FillerOffseason: model.CategoryOffseason,
		model.FillerIdle:      model.CategoryIdle,
	}
	for k, want := range cases {
		if got := fillerCategory(k); got != want {
			t.Errorf("fillerCategory(%v) = %v, want %v", k, got, want)
		}
	}
}

func TestDiscoverAndEnrich_AddsMissingAndEnrichesExisting(t *testing.T) {
	o := newTestOrchestrator()
	p := newStubProvider("nfl")
	epgStart := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	team := model.TeamChannelConfig{TeamID: "t1", League: "nfl", Sport: "football"}

	schedule := []model.Event{{ID: "e1", Home: model.Team{ID: "t1"}, Start: epgStart.Add(2 * time.Hour)}}
	p.scoreboard["20260731"] = []model.Event{
		{ID: "e1", Home: model.Team{ID: "t1"}, HomeScore: score(10)},               // enriches e1
		{ID: "e2", Home: model.Team{ID: "t1"}, Start: epgStart.Add(4 * time.Hour)}, // discovered
		{ID: "e3", Home: model.Team{ID: "other"}},                                  // unrelated team, must be skipped
	}

	out := o.discoverAndEnrich(context.Background(), schedule, team, 1, epgStart, p)
	if len(out) != 2 {
		t.Fatalf("discoverAndEnrich = %+v, want 2 events (e1 enriched, e2 discovered)", out)
	}
	byID := map[string]model.Event{}
	for _, e := range out {
		byID[e.ID] = e
	}
	if byID["e1"].HomeScore == nil || *byID["e1"].HomeScore != 10 {
		t.Errorf("e1.HomeScore = %v, want enriched to 10", byID["e1"].HomeScore)
	}
	if _, ok := byID["e2"]; !ok {
		t.Error("e2 should have been discovered from the scoreboard")
	}
	if _, ok := byID["e3"]; ok {
		t.Error("e3 belongs to another team and should not appear")
	}
}

func TestEnrichPastScores_BackfillsElapsedEventsOnly(t *testing.T) {
	o := newTestOrchestrator()
	p := newStubProvider("nfl")
	team := model.TeamChannelConfig{TeamID: "t1", League: "nfl", Sport: "football"}

	past := time.Now().Add(-48 * time.Hour)
	future := time.Now().Add(48 * time.Hour)
	extended := []model.Event{
		{ID: "past1", Home: model.Team{ID: "t1"}, Start: past},
		{ID: "future1", Home: model.Team{ID: "t1"}, Start: future},
	}
	p.scoreboard[past.Format("20060102")] = []model.Event{
		{ID: "past1", Home: model.Team{ID: "t1"}, HomeScore: score(30)},
	}

	got := o.enrichPastScores(context.Background(), extended, team, p)
	byID := map[string]model.Event{}
	for _, e := range got {
		byID[e.ID] = e
	}
	if byID["past1"].HomeScore == nil || *byID["past1"].HomeScore != 30 {
		t.Errorf("past1.HomeScore = %v, want enriched to 30", byID["past1"].HomeScore)
	}
	if byID["future1"].HomeScore != nil {
		t.Errorf("future1.HomeScore = %v, want untouched (not yet played)", byID["future1"].HomeScore)
	}
}
