package tsdb

import (
	"testing"
	"time"

	"github.com/unyeco/sportguide/model"
)

func TestNew_AppliesDefaults(t *testing.T) {
	c := New(Config{}, nil, nil)
	if c.apiKey != freeAPIKey {
		t.Errorf("apiKey = %q, want free key %q", c.apiKey, freeAPIKey)
	}
	if c.IsPremium() {
		t.Error("IsPremium() = true with no configured key, want false")
	}
	if c.retries != 3 {
		t.Errorf("retries = %d, want default 3", c.retries)
	}
	if c.retryDelay != time.Second {
		t.Errorf("retryDelay = %v, want 1s default", c.retryDelay)
	}
}

func TestNew_ExplicitAPIKeyIsPremium(t *testing.T) {
	c := New(Config{APIKey: "real-key-123"}, nil, nil)
	if !c.IsPremium() {
		t.Error("IsPremium() = false with a configured non-free key, want true")
	}
}

func TestClient_Name(t *testing.T) {
	c := New(Config{}, nil, nil)
	if c.Name() != "tsdb" {
		t.Errorf("Name() = %q, want tsdb", c.Name())
	}
}

func TestTSDBStatusToState(t *testing.T) {
	cases := map[string]model.EventState{
		"":               model.EventStatePre,
		"NS":             model.EventStatePre,
		"FT":             model.EventStateFinal,
		"Match Finished": model.EventStateFinal,
		"Postponed":      model.EventStatePostponed,
		"PST":            model.EventStatePostponed,
		"Cancelled":      model.EventStateCancelled,
		"CANC":           model.EventStateCancelled,
		"1H":             model.EventStateInProgress,
	}
	for status, want := range cases {
		if got := tsdbStatusToState(status); got != want {
			t.Errorf("tsdbStatusToState(%q) = %v, want %v", status, got, want)
		}
	}
}

func TestParseTSDBTime(t *testing.T) {
	got := parseTSDBTime("2026-07-31", "19:30:00")
	want := time.Date(2026, 7, 31, 19, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parseTSDBTime = %v, want %v", got, want)
	}
}

func TestParseTSDBTime_DefaultsTimeWhenMissing(t *testing.T) {
	got := parseTSDBTime("2026-07-31", "")
	want := time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parseTSDBTime with no time = %v, want midnight %v", got, want)
	}
}

func TestParseTSDBTime_Malformed(t *testing.T) {
	got := parseTSDBTime("not-a-date", "also-not-a-time")
	if !got.IsZero() {
		t.Errorf("parseTSDBTime(malformed) = %v, want zero value", got)
	}
}

func TestTSDBEvent_ToModel(t *testing.T) {
	e := tsdbEvent{
		IDEvent:      "e1",
		StrHomeTeam:  "Titans",
		StrAwayTeam:  "Jaguars",
		IDHomeTeam:   "t1",
		IDAwayTeam:   "t2",
		DateEvent:    "2026-07-31",
		StrTime:      "19:30:00",
		IntHomeScore: "21",
		IntAwayScore: "",
		StrStatus:    "FT",
	}
	got := e.toModel("nfl")
	if got.ID != "e1" || got.Home.Name != "Titans" || got.Away.Name != "Jaguars" {
		t.Fatalf("toModel = %+v", got)
	}
	if got.HomeScore == nil || *got.HomeScore != 21 {
		t.Errorf("HomeScore = %v, want 21", got.HomeScore)
	}
	if got.AwayScore != nil {
		t.Errorf("AwayScore = %v, want nil (empty score string)", got.AwayScore)
	}
	if got.Status.State != model.EventStateFinal || !got.Status.Completed {
		t.Errorf("Status = %+v, want Final/Completed", got.Status)
	}
}

func TestNormalizeForKey(t *testing.T) {
	if got := normalizeForKey("Tennessee TITANS"); got != "tennessee titans" {
		t.Errorf("normalizeForKey = %q, want tennessee titans", got)
	}
}
