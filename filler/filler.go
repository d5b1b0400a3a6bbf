// Package filler partitions the time between a team's real games into
// programs aligned to six-hour blocks (00:00/06:00/12:00/18:00 local),
// classifying each as pregame/postgame/idle per spec.md §4.10. The
// block-alignment walk and the midnight-crossover policy are ported from
// original_source/epg/orchestrator.py's `_generate_filler_entries`/
// `_create_filler_chunks`/`_get_next_time_block`, restated here as a
// gap-sequence walk over sorted game intervals rather than a day-by-day
// loop — an equivalent, simpler traversal of the same six-hour-block and
// pregame/postgame/idle classification rules the Python version applies
// one calendar day at a time.
package filler

import (
	"time"

	"github.com/unyeco/sportguide/model"
)

// MidnightCrossoverMode controls what fills the day after a game that
// spans midnight when that next day has no game of its own.
type MidnightCrossoverMode string

const (
	MidnightPostgame MidnightCrossoverMode = "postgame"
	MidnightIdle     MidnightCrossoverMode = "idle"
)

const blockHours = 6

// GameInterval is one real game's occupied span within the filler walk.
type GameInterval struct {
	Start time.Time
	End   time.Time
	Event model.Event // the game this interval belongs to (for pregame/postgame .next/.last context)
}

// Gap is one classified stretch of time with no real game, not yet split
// into block-aligned chunks.
type Gap struct {
	Start    time.Time
	End      time.Time
	Kind     model.FillerKind
	NextGame *model.Event // for pregame/idle: the upcoming game to reference
	LastGame *model.Event // for postgame/idle: the most recently completed game to reference
}

// Chunk is one block-aligned filler program, ready for template resolution.
type Chunk struct {
	Start time.Time
	End   time.Time
	Kind  model.FillerKind
}

// nextBlockBoundary returns the next six-hour block boundary strictly
// after t, in t's location; a t already sitting on a boundary advances to
// the following one.
func nextBlockBoundary(t time.Time) time.Time {
	for _, h := range []int{0, blockHours, 2 * blockHours, 3 * blockHours} {
		if t.Hour() < h {
			return time.Date(t.Year(), t.Month(), t.Day(), h, 0, 0, 0, t.Location())
		}
	}
	next := t.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, t.Location())
}

// Split partitions [g.Start, g.End) into chunks ending at the next block
// boundary or g.End, whichever is sooner — the walk spec.md §4.10
// prescribes for any single gap.
func Split(g Gap) []Chunk {
	var chunks []Chunk
	cursor := g.Start
	for cursor.Before(g.End) {
		boundary := nextBlockBoundary(cursor)
		end := boundary
		if g.End.Before(end) {
			end = g.End
		}
		chunks = append(chunks, Chunk{Start: cursor, End: end, Kind: g.Kind})
		cursor = end
	}
	return chunks
}

// Generate walks windowStart..windowEnd against games (sorted by Start,
// non-overlapping, already clipped to/near the window) and returns the
// classified, still-unchunked gaps that need filler. extendedGames
// supplies games outside the window for last/next-game lookback so a gap
// at the very start or end of the window still has .next/.last context.
func Generate(windowStart, windowEnd time.Time, games []GameInterval, extendedGames []GameInterval, mode MidnightCrossoverMode) []Gap {
	var gaps []Gap
	cursor := windowStart

	for i, g := range games {
		if g.Start.After(cursor) {
			kind := model.FillerPregame
			var next, last *model.Event
			ev := g.Event
			next = &ev
			if i > 0 {
				lastEv := games[i-1].Event
				last = &lastEv
			} else if le, ok := lastBefore(extendedGames, cursor); ok {
				last = &le
			}
			gaps = append(gaps, Gap{Start: cursor, End: g.Start, Kind: kind, NextGame: next, LastGame: last})
		}
		if g.End.After(cursor) {
			cursor = g.End
		}
	}

	if cursor.Before(windowEnd) {
		var last *model.Event
		if len(games) > 0 {
			lastEv := games[len(games)-1].Event
			last = &lastEv
		} else if le, ok := lastBefore(extendedGames, cursor); ok {
			last = &le
		}
		next, hasNext := nextAfter(extendedGames, cursor)

		kind := model.FillerIdle
		if len(games) > 0 {
			// This stretch immediately follows a real game in the window:
			// postgame, unless it runs past midnight into a day with no
			// next game at all, in which case the configured mode decides.
			crossesMidnight := cursor.Day() != windowEnd.Add(-time.Nanosecond).Day() || windowEnd.Sub(cursor) > 24*time.Hour
			if !crossesMidnight || !hasNext {
				if mode == MidnightPostgame || !crossesMidnight {
					kind = model.FillerPostgame
				}
			} else {
				kind = model.FillerPregame
			}
		}

		var nextPtr *model.Event
		if hasNext {
			nextPtr = &next
		}
		gaps = append(gaps, Gap{Start: cursor, End: windowEnd, Kind: kind, NextGame: nextPtr, LastGame: last})
	}

	return gaps
}

func lastBefore(extended []GameInterval, t time.Time) (model.Event, bool) {
	var best model.Event
	found := false
	for _, g := range extended {
		if g.Start.Before(t) && (!found || g.Start.After(best.Start)) {
			best, found = g.Event, true
		}
	}
	return best, found
}

func nextAfter(extended []GameInterval, t time.Time) (model.Event, bool) {
	var best model.Event
	found := false
	for _, g := range extended {
		if g.Start.After(t) && (!found || g.Start.Before(best.Start)) {
			best, found = g.Event, true
		}
	}
	return best, found
}

// OffseasonLookaheadDays is the window spec.md §4.10(a) uses to decide
// whether idle filler should instead use the offseason template.
const OffseasonLookaheadDays = 30

// IsOffseason reports whether hasNext is false within a 30-day lookahead
// from now — spec.md §4.10's idle-selection tier (a).
func IsOffseason(now time.Time, hasNext bool, nextStart time.Time) bool {
	if !hasNext {
		return true
	}
	return nextStart.Sub(now) > OffseasonLookaheadDays*24*time.Hour
}
