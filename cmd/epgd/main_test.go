package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/unyeco/sportguide/model"
)

func TestDistinctLeagues_DedupsPreservingFirstSeenOrder(t *testing.T) {
	teams := []model.TeamChannelConfig{
		{TeamID: "t1", League: "nfl"},
		{TeamID: "t2", League: "nba"},
		{TeamID: "t3", League: "nfl"},
	}
	got := distinctLeagues(teams)
	want := []string{"nfl", "nba"}
	if len(got) != len(want) {
		t.Fatalf("distinctLeagues = %v, want %v", got, want)
	}
	for i, l := range want {
		if got[i] != l {
			t.Errorf("distinctLeagues[%d] = %q, want %q", i, got[i], l)
		}
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

func TestHandleXMLTV_ServesUnavailableUntilFirstGeneration(t *testing.T) {
	g := &generator{}
	req := httptest.NewRequest(http.MethodGet, "/epg.xml", nil)
	rec := httptest.NewRecorder()
	g.handleXMLTV(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status before any generation = %d, want 503", rec.Code)
	}
}

func TestHandleXMLTV_ServesGeneratedDocument(t *testing.T) {
	g := &generator{mu: sync.RWMutex{}, xmltvBuf: []byte("<tv></tv>")}
	req := httptest.NewRequest(http.MethodGet, "/epg.xml", nil)
	rec := httptest.NewRecorder()
	g.handleXMLTV(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "<tv></tv>" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/xml" {
		t.Errorf("Content-Type = %q, want application/xml", ct)
	}
}
