package template

import (
	"testing"

	"github.com/unyeco/sportguide/model"
)

func TestEvaluate_Always(t *testing.T) {
	if !evaluate(model.Condition{Kind: model.CondAlways}, model.TemplateContext{}) {
		t.Error("CondAlways = false, want true")
	}
}

func TestEvaluate_WinStreak(t *testing.T) {
	ctx := model.TemplateContext{TeamStats: &model.TeamStats{Streak: model.Streak{Value: 4}}}
	if !evaluate(model.Condition{Kind: model.CondWinStreak, Value: "3"}, ctx) {
		t.Error("win_streak(3) against a 4-game streak = false, want true")
	}
	if evaluate(model.Condition{Kind: model.CondWinStreak, Value: "5"}, ctx) {
		t.Error("win_streak(5) against a 4-game streak = true, want false")
	}
}

func TestEvaluate_LossStreak(t *testing.T) {
	ctx := model.TemplateContext{TeamStats: &model.TeamStats{Streak: model.Streak{Value: -3}}}
	if !evaluate(model.Condition{Kind: model.CondLossStreak, Value: "2"}, ctx) {
		t.Error("loss_streak(2) against a 3-game losing streak = false, want true")
	}
}

func TestEvaluate_IsRankedMatchup(t *testing.T) {
	ranked := rank(7)
	ctx := model.TemplateContext{
		TeamStats: &model.TeamStats{Rank: ranked},
		Game:      &model.GameContext{OpponentStats: &model.TeamStats{Rank: rank(12)}},
	}
	if !evaluate(model.Condition{Kind: model.CondIsRankedMatchup}, ctx) {
		t.Error("is_ranked_matchup with both teams ranked = false, want true")
	}
}

func TestEvaluate_IsTopTenMatchup(t *testing.T) {
	ctx := model.TemplateContext{
		TeamStats: &model.TeamStats{Rank: rank(3)},
		Game:      &model.GameContext{OpponentStats: &model.TeamStats{Rank: rank(15)}},
	}
	if evaluate(model.Condition{Kind: model.CondIsTopTenMatchup}, ctx) {
		t.Error("is_top_ten_matchup with opponent ranked #15 = true, want false")
	}
}

func TestEvaluate_IsHomeAway(t *testing.T) {
	home := model.TemplateContext{Game: &model.GameContext{IsHome: true}}
	away := model.TemplateContext{Game: &model.GameContext{IsHome: false}}
	if !evaluate(model.Condition{Kind: model.CondIsHome}, home) {
		t.Error("is_home on a home game = false")
	}
	if !evaluate(model.Condition{Kind: model.CondIsAway}, away) {
		t.Error("is_away on an away game = false")
	}
}

func TestEvaluate_IsNationalBroadcast(t *testing.T) {
	ctx := model.TemplateContext{Game: &model.GameContext{Event: model.Event{
		Broadcasts: []model.Broadcast{{Name: "espn"}},
	}}}
	if !evaluate(model.Condition{Kind: model.CondIsNationalBroadcast}, ctx) {
		t.Error("is_national_broadcast with ESPN (case-insensitive) = false, want true")
	}
	local := model.TemplateContext{Game: &model.GameContext{Event: model.Event{
		Broadcasts: []model.Broadcast{{Name: "Bally Sports South"}},
	}}}
	if evaluate(model.Condition{Kind: model.CondIsNationalBroadcast}, local) {
		t.Error("is_national_broadcast with a regional network = true, want false")
	}
}

func TestEvaluate_OpponentNameContains(t *testing.T) {
	ctx := model.TemplateContext{Game: &model.GameContext{Opponent: model.Team{Name: "Kansas City Chiefs"}}}
	if !evaluate(model.Condition{Kind: model.CondOpponentNameContains, Value: "city"}, ctx) {
		t.Error("opponent_name_contains(city) case-insensitive = false, want true")
	}
}

func TestSelectDescription_PicksFirstSatisfiedInPriorityOrder(t *testing.T) {
	ctx := model.TemplateContext{Game: &model.GameContext{IsHome: true}}
	descs := []model.ConditionalDescription{
		{Condition: model.Condition{Kind: model.CondIsAway}, Priority: 1, Template: "away desc"},
		{Condition: model.Condition{Kind: model.CondIsHome}, Priority: 2, Template: "home desc"},
		{Condition: model.Condition{Kind: model.CondAlways}, Priority: 3, Template: "fallback desc"},
	}
	got := SelectDescription(descs, ctx, nil)
	if got != "home desc" {
		t.Errorf("SelectDescription = %q, want home desc (priority 1's condition fails)", got)
	}
}

func TestSelectDescription_NoMatchReturnsEmpty(t *testing.T) {
	ctx := model.TemplateContext{Game: &model.GameContext{IsHome: true}}
	descs := []model.ConditionalDescription{
		{Condition: model.Condition{Kind: model.CondIsAway}, Priority: 1, Template: "away desc"},
	}
	if got := SelectDescription(descs, ctx, nil); got != "" {
		t.Errorf("SelectDescription with no satisfied condition = %q, want empty", got)
	}
}

func TestSelectDescription_TiesShuffleWithRNG(t *testing.T) {
	ctx := model.TemplateContext{Game: &model.GameContext{IsHome: true}}
	descs := []model.ConditionalDescription{
		{Condition: model.Condition{Kind: model.CondIsHome}, Priority: 1, Template: "first"},
		{Condition: model.Condition{Kind: model.CondIsHome}, Priority: 1, Template: "second"},
	}
	// rng always picks index 0, forcing a swap with the last element; the
	// chosen template must still be one of the tied candidates.
	got := SelectDescription(descs, ctx, func(n int) int { return 0 })
	if got != "first" && got != "second" {
		t.Errorf("SelectDescription with tie = %q, want one of the tied templates", got)
	}
}

func TestResolveDescription_FallsBackToGameDescription(t *testing.T) {
	ctx := model.TemplateContext{Game: &model.GameContext{IsHome: true}, TeamConfig: model.TeamConfig{TeamName: "Titans"}}
	tmpl := model.Template{GameDescription: "{team_name} plays today"}
	got := ResolveDescription(tmpl, ctx, nil)
	if got != "Titans plays today" {
		t.Errorf("ResolveDescription fallback = %q", got)
	}
}
