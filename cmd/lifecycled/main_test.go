package main

import (
	"os"
	"testing"

	"github.com/unyeco/sportguide/model"
)

func TestDistinctCandidateLeagues_DedupsAcrossGroups(t *testing.T) {
	groups := []model.EventGroup{
		{ID: "g1", CandidateLeagues: []string{"nfl", "nba"}},
		{ID: "g2", CandidateLeagues: []string{"nba", "nhl"}},
	}
	got := distinctCandidateLeagues(groups)
	want := []string{"nfl", "nba", "nhl"}
	if len(got) != len(want) {
		t.Fatalf("distinctCandidateLeagues = %v, want %v", got, want)
	}
	for i, l := range want {
		if got[i] != l {
			t.Errorf("distinctCandidateLeagues[%d] = %q, want %q", i, got[i], l)
		}
	}
}

func TestGroupGeneration_StableForUnchangedConfigChangesOnEdit(t *testing.T) {
	g := model.EventGroup{IncludeRegex: "nfl", ExceptionKeywords: []model.ExceptionKeyword{{ID: "kw1"}}}
	a := groupGeneration(g)
	b := groupGeneration(g)
	if a != b {
		t.Error("groupGeneration should be stable for an unchanged group")
	}

	edited := g
	edited.IncludeRegex = "nfl-redzone"
	if groupGeneration(edited) == a {
		t.Error("groupGeneration should change when the group's matching rules change")
	}
}

func TestGroupGeneration_KeywordOrderMatters(t *testing.T) {
	a := model.EventGroup{ExceptionKeywords: []model.ExceptionKeyword{{ID: "kw1"}, {ID: "kw2"}}}
	b := model.EventGroup{ExceptionKeywords: []model.ExceptionKeyword{{ID: "kw2"}, {ID: "kw1"}}}
	if groupGeneration(a) == groupGeneration(b) {
		t.Error("groupGeneration hashes keywords in list order, so reordering should change the epoch")
	}
}

func TestGetEnv_FallsBackWhenUnset(t *testing.T) {
	os.Unsetenv("SPORTGUIDE_TEST_VAR")
	if got := getEnv("SPORTGUIDE_TEST_VAR", "fallback"); got != "fallback" {
		t.Errorf("getEnv = %q, want fallback", got)
	}
	os.Setenv("SPORTGUIDE_TEST_VAR", "set")
	defer os.Unsetenv("SPORTGUIDE_TEST_VAR")
	if got := getEnv("SPORTGUIDE_TEST_VAR", "fallback"); got != "set" {
		t.Errorf("getEnv = %q, want set", got)
	}
}
