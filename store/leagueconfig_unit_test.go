package store

import "testing"

func TestIsCollegeLeague(t *testing.T) {
	cases := map[string]bool{
		"mens-college-basketball": true,
		"NCAAF":                   true,
		"big-ten-college-hockey":  true,
		"nfl":                     false,
		"nba":                     false,
	}
	for league, want := range cases {
		if got := IsCollegeLeague(league); got != want {
			t.Errorf("IsCollegeLeague(%q) = %v, want %v", league, got, want)
		}
	}
}

func TestParseAPIPath(t *testing.T) {
	sport, league, ok := ParseAPIPath("football/nfl")
	if !ok || sport != "football" || league != "nfl" {
		t.Fatalf("ParseAPIPath(football/nfl) = (%q, %q, %v)", sport, league, ok)
	}
	if _, _, ok := ParseAPIPath("malformed"); ok {
		t.Fatal("ParseAPIPath(malformed) ok = true, want false")
	}
}
