package template

import (
	"testing"

	"github.com/unyeco/sportguide/model"
)

func TestResolve_IsRanked(t *testing.T) {
	ctx := baseContext()
	if got := Resolve("{is_ranked}", ctx); got != "true" {
		t.Errorf("{is_ranked} = %q, want true", got)
	}
	ctx.TeamStats = nil
	if got := Resolve("{is_ranked}", ctx); got != "" {
		t.Errorf("{is_ranked} without team stats = %q, want empty", got)
	}
}

func TestResolve_OpponentIsRankedAndMatchup(t *testing.T) {
	ctx := baseContext()
	if got := Resolve("{opponent_is_ranked}", ctx); got != "" {
		t.Errorf("{opponent_is_ranked} without opponent stats = %q, want empty", got)
	}
	if got := Resolve("{is_ranked_matchup}", ctx); got != "" {
		t.Errorf("{is_ranked_matchup} without opponent stats = %q, want empty", got)
	}

	ctx.Game.OpponentStats = &model.TeamStats{Rank: rank(12)}
	if got := Resolve("{opponent_is_ranked}", ctx); got != "true" {
		t.Errorf("{opponent_is_ranked} = %q, want true", got)
	}
	if got := Resolve("{is_ranked_matchup}", ctx); got != "true" {
		t.Errorf("{is_ranked_matchup} = %q, want true", got)
	}
}

func TestResolve_HomeAwayTeamRankFollowsIsHome(t *testing.T) {
	ctx := baseContext() // IsHome true, team rank 5
	ctx.Game.OpponentStats = &model.TeamStats{Rank: rank(12)}

	if got := Resolve("{home_team_rank}", ctx); got != "5" {
		t.Errorf("{home_team_rank} = %q, want 5 when the resolving team is home", got)
	}
	if got := Resolve("{away_team_rank}", ctx); got != "12" {
		t.Errorf("{away_team_rank} = %q, want 12 when the opponent is away", got)
	}

	ctx.Game.IsHome = false
	if got := Resolve("{home_team_rank}", ctx); got != "12" {
		t.Errorf("{home_team_rank} = %q, want 12 once the opponent is home", got)
	}
	if got := Resolve("{away_team_rank}", ctx); got != "5" {
		t.Errorf("{away_team_rank} = %q, want 5 once the resolving team is away", got)
	}
}
