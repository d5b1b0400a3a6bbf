package template

import (
	"testing"

	"github.com/unyeco/sportguide/model"
)

func TestResolve_ResultVariablesReflectHomeWin(t *testing.T) {
	ctx := baseContext() // home team (21) beats away team (17)
	if got := Resolve("{result}", ctx); got != "W" {
		t.Errorf("{result} = %q, want W", got)
	}
	if got := Resolve("{result_lower}", ctx); got != "w" {
		t.Errorf("{result_lower} = %q, want w", got)
	}
	if got := Resolve("{is_win}", ctx); got != "true" {
		t.Errorf("{is_win} = %q, want true", got)
	}
}

func TestResolve_ResultVariablesReflectAwayPerspectiveLoss(t *testing.T) {
	ctx := baseContext()
	ctx.TeamConfig.TeamID = "away1" // now resolving from the losing team's side
	if got := Resolve("{result}", ctx); got != "L" {
		t.Errorf("{result} = %q, want L from the away team's perspective", got)
	}
	if got := Resolve("{is_win}", ctx); got != "false" {
		t.Errorf("{is_win} = %q, want false", got)
	}
}

func TestResolve_ResultVariablesEmptyWithoutScores(t *testing.T) {
	ctx := model.TemplateContext{Game: &model.GameContext{Event: model.Event{Home: model.Team{ID: "home1"}}}}
	if got := Resolve("{result}", ctx); got != "" {
		t.Errorf("{result} before scores exist = %q, want empty", got)
	}
}
