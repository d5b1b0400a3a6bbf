// Package classify detects the team separator in a normalized stream name
// and assigns its category (team-vs-team, event-card, or placeholder).
// Separator list and the "must have content before separator" rule are
// ported from original_source/epg/team_matcher.py's SEPARATORS/_find_separator.
package classify

import (
	"strings"

	"github.com/unyeco/sportguide/model"
)

// Separators is tried in order; the first entry that occurs anywhere in the
// text wins, whatever its position, so ' vs. ' is checked before the
// shorter ' vs ' etc. The shared
// single-character ' x ' sits last since it is the most prone to false
// positives against ordinary text.
var Separators = []string{" vs. ", " vs ", " at ", " @ ", " v. ", " v ", " x "}

// Result is the outcome of classifying one normalized stream name.
type Result struct {
	Category  model.StreamCategory
	Separator string
	SepIndex  int    // byte offset of the separator in the text, or -1
	Left      string // trimmed text before the separator
	Right     string // trimmed text after the separator
}

// FindSeparator returns the first separator in Separators that appears in
// text at a position > 0 (there must be content before it — this is what
// stops " @ Dec 03", where "@" is really a date marker, from being treated
// as a team separator: Dec 03 with no leading team name never matches
// pos > 0 against a team-vs-team read, so it falls through to event-card
// or placeholder instead).
func FindSeparator(text string) (sep string, pos int) {
	for _, s := range Separators {
		if idx := strings.Index(text, s); idx > 0 {
			return s, idx
		}
	}
	return "", -1
}

// Classify assigns a category to a normalized stream name. A separator with
// content on both sides is team_vs_team. No separator, but text that still
// contains letters, is treated as an event_card (a named event with no
// detectable "vs" — boxing/MMA main-card billing, tournament rounds).
// Empty or whitespace-only text is a placeholder (EPG filler slot).
func Classify(normalized string) Result {
	trimmed := strings.TrimSpace(normalized)
	if trimmed == "" {
		return Result{Category: model.CategoryPlaceholder, SepIndex: -1}
	}

	sep, pos := FindSeparator(trimmed)
	if sep == "" {
		return Result{Category: model.CategoryEventCard, SepIndex: -1}
	}

	left := strings.TrimSpace(trimmed[:pos])
	right := strings.TrimSpace(trimmed[pos+len(sep):])
	if left == "" || right == "" {
		return Result{Category: model.CategoryEventCard, SepIndex: -1}
	}

	return Result{
		Category:  model.CategoryTeamVsTeam,
		Separator: sep,
		SepIndex:  pos,
		Left:      left,
		Right:     right,
	}
}

// CustomRegexOverride lets an event group configure its own team-extraction
// regex (spec.md §4.4 TeamRegex) instead of relying on separator detection
// — needed for feeds whose naming convention doesn't use any of
// Separators, e.g. "TEAM1 | TEAM2" or a bracketed round number.
type CustomRegexOverride struct {
	// Groups named "team1" and "team2" are required; a "date" or "time"
	// named group, if present, is consumed by the caller before
	// classification runs.
	Pattern string
}
