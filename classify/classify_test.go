package classify

import (
	"testing"

	"github.com/unyeco/sportguide/model"
)

func TestClassify_TeamVsTeam(t *testing.T) {
	cases := []struct {
		in, left, right, sep string
	}{
		{"lakers vs. celtics", "lakers", "celtics", " vs. "},
		{"lakers vs celtics", "lakers", "celtics", " vs "},
		{"yankees at red sox", "yankees", "red sox", " at "},
		{"arsenal @ chelsea", "arsenal", "chelsea", " @ "},
		{"real madrid v barcelona", "real madrid", "barcelona", " v "},
	}
	for _, c := range cases {
		r := Classify(c.in)
		if r.Category != model.CategoryTeamVsTeam {
			t.Fatalf("%q: category = %v, want team_vs_team", c.in, r.Category)
		}
		if r.Left != c.left || r.Right != c.right {
			t.Fatalf("%q: got left=%q right=%q, want left=%q right=%q", c.in, r.Left, r.Right, c.left, c.right)
		}
		if r.Separator != c.sep {
			t.Fatalf("%q: separator = %q, want %q", c.in, r.Separator, c.sep)
		}
	}
}

func TestClassify_EventCard(t *testing.T) {
	r := Classify("ufc 300 main card")
	if r.Category != model.CategoryEventCard {
		t.Fatalf("category = %v, want event_card", r.Category)
	}
	if r.SepIndex != -1 {
		t.Fatalf("SepIndex = %d, want -1", r.SepIndex)
	}
}

func TestClassify_SeparatorWithNoLeadingContentIsEventCard(t *testing.T) {
	// "@" here is a date marker, not a team separator: no content precedes it.
	r := Classify("@ dec 03")
	if r.Category != model.CategoryEventCard {
		t.Fatalf("category = %v, want event_card", r.Category)
	}
}

func TestClassify_SeparatorWithEmptyRightIsEventCard(t *testing.T) {
	r := Classify("lakers vs")
	if r.Category != model.CategoryEventCard {
		t.Fatalf("category = %v, want event_card", r.Category)
	}
}

func TestClassify_Placeholder(t *testing.T) {
	for _, in := range []string{"", "   "} {
		r := Classify(in)
		if r.Category != model.CategoryPlaceholder {
			t.Fatalf("Classify(%q) category = %v, want placeholder", in, r.Category)
		}
		if r.SepIndex != -1 {
			t.Fatalf("Classify(%q) SepIndex = %d, want -1", in, r.SepIndex)
		}
	}
}

func TestFindSeparator_PrefersEarlierEntryOnOverlap(t *testing.T) {
	// "vs." contains "vs" as a substring; the longer separator with the
	// trailing period must win since it's listed first.
	sep, pos := FindSeparator("lakers vs. celtics")
	if sep != " vs. " {
		t.Fatalf("sep = %q, want %q", sep, " vs. ")
	}
	if pos <= 0 {
		t.Fatalf("pos = %d, want > 0", pos)
	}
}

func TestFindSeparator_NoMatch(t *testing.T) {
	sep, pos := FindSeparator("no separator here")
	if sep != "" || pos != -1 {
		t.Fatalf("got sep=%q pos=%d, want empty/-1", sep, pos)
	}
}
