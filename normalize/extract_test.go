package normalize

import (
	"testing"
	"time"
)

func TestExtractTime(t *testing.T) {
	cases := []struct {
		in         string
		wantHour   int
		wantMinute int
	}{
		{"Bulls vs Heat 7:30pm ET", 19, 30},
		{"Dodgers at Giants 9pm", 21, 0},
		{"Rangers at 14:05", 14, 5},
	}
	for _, c := range cases {
		masked, when, found := extractTime(c.in)
		if !found {
			t.Fatalf("extractTime(%q): no time found", c.in)
		}
		if when.Hour() != c.wantHour || when.Minute() != c.wantMinute {
			t.Errorf("extractTime(%q) = %02d:%02d, want %02d:%02d", c.in, when.Hour(), when.Minute(), c.wantHour, c.wantMinute)
		}
		if masked == c.in {
			t.Errorf("extractTime(%q): expected the time token to be masked out", c.in)
		}
	}
}

func TestExtractDate(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		in   string
		want time.Time
	}{
		{"Duke vs UNC 2026-03-14", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"Duke vs UNC 03/14/26", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"Duke vs UNC Nov 30", time.Date(2026, 11, 30, 0, 0, 0, 0, time.UTC)},
	}
	for _, c := range cases {
		_, when, found := extractDate(c.in, now)
		if !found {
			t.Fatalf("extractDate(%q): no date found", c.in)
		}
		if !when.Equal(c.want) {
			t.Errorf("extractDate(%q) = %v, want %v", c.in, when, c.want)
		}
	}
}

func TestExtractDate_RollsYearlessGuessForwardPastTheStaleWindow(t *testing.T) {
	// "now" is 197 days after a same-year Jan 15 guess — past the 180-day
	// staleness window, so the guess should roll to next year.
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	_, when, found := extractDate("Hawks vs Nets Jan 15", now)
	if !found {
		t.Fatal("extractDate: expected a match")
	}
	want := time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC)
	if !when.Equal(want) {
		t.Errorf("extractDate rollForward = %v, want %v", when, want)
	}
}

func TestForStream_ExtractsDateTimeAndStripsMetadataColon(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	cleaned, gameDate, gameTime := ForStream("NCAAB 01: Duke vs UNC 7:00pm", nil, now)

	if cleaned != "duke vs unc" {
		t.Errorf("cleaned = %q, want %q", cleaned, "duke vs unc")
	}
	if gameTime == nil || gameTime.Hour() != 19 || gameTime.Minute() != 0 {
		t.Errorf("gameTime = %v, want 19:00", gameTime)
	}
	if gameDate != nil {
		t.Errorf("gameDate = %v, want nil (no date token in this stream)", gameDate)
	}
}

func TestForStream_StripsExceptionKeywordAndNonStateParenthetical(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	cleaned, _, _ := ForStream("Lakers (En Español) vs Celtics", []string{"en español"}, now)
	if cleaned != "lakers vs celtics" {
		t.Errorf("cleaned = %q, want %q", cleaned, "lakers vs celtics")
	}
}

func TestForStream_NoDateTimeLeavesBothNil(t *testing.T) {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	cleaned, gameDate, gameTime := ForStream("Titans vs Jaguars", nil, now)
	if cleaned != "titans vs jaguars" {
		t.Errorf("cleaned = %q, want %q", cleaned, "titans vs jaguars")
	}
	if gameDate != nil || gameTime != nil {
		t.Errorf("gameDate=%v gameTime=%v, want both nil", gameDate, gameTime)
	}
}
