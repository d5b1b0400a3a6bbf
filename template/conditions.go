package template

import (
	"strconv"
	"strings"

	"github.com/unyeco/sportguide/model"
)

// evaluate checks a single condition against ctx, ported from
// original_source/archive/v2-clean-rewrite/teamarr/templates/conditional.py's
// ConditionEvaluator.evaluate.
func evaluate(c model.Condition, ctx model.TemplateContext) bool {
	game := ctx.Game
	switch c.Kind {
	case model.CondAlways:
		return true
	case model.CondWinStreak:
		return checkStreak(ctx, c.Value, true)
	case model.CondLossStreak:
		return checkStreak(ctx, c.Value, false)
	case model.CondHomeWinStreak:
		return checkStreakDisplay(homeStreakDisplay(ctx), c.Value, true)
	case model.CondHomeLossStreak:
		return checkStreakDisplay(homeStreakDisplay(ctx), c.Value, false)
	case model.CondAwayWinStreak:
		return checkStreakDisplay(awayStreakDisplay(ctx), c.Value, true)
	case model.CondAwayLossStreak:
		return checkStreakDisplay(awayStreakDisplay(ctx), c.Value, false)
	case model.CondIsRanked:
		return ctx.TeamStats != nil && ctx.TeamStats.Rank != nil
	case model.CondIsRankedOpponent:
		return opponentIsRanked(game)
	case model.CondIsRankedMatchup:
		return ctx.TeamStats != nil && ctx.TeamStats.Rank != nil && opponentIsRanked(game)
	case model.CondIsTopTenMatchup:
		return isTopTenMatchup(ctx, game)
	case model.CondIsHome:
		return game != nil && game.IsHome
	case model.CondIsAway:
		return game != nil && !game.IsHome
	case model.CondIsPlayoff:
		return game != nil && game.Event.SeasonType == model.SeasonPostseason
	case model.CondIsPreseason:
		return game != nil && game.Event.SeasonType == model.SeasonPreseason
	case model.CondIsConferenceGame:
		return isConferenceGame(ctx, game)
	case model.CondIsRematch:
		return game != nil && game.H2H != nil && (game.H2H.TeamWins > 0 || game.H2H.OpponentWins > 0)
	case model.CondIsNationalBroadcast:
		return isNationalBroadcast(game)
	case model.CondHasOdds:
		return game != nil && game.Event.Odds != nil
	case model.CondOpponentNameContains:
		return opponentNameContains(game, c.Value)
	}
	return false
}

func checkStreak(ctx model.TemplateContext, value string, positive bool) bool {
	threshold, ok := parseInt(value)
	if !ok || ctx.TeamStats == nil {
		return false
	}
	streak := ctx.TeamStats.Streak.Value
	if positive {
		return streak >= threshold
	}
	return streak <= -threshold
}

func homeStreakDisplay(ctx model.TemplateContext) string {
	if ctx.TeamStats == nil {
		return ""
	}
	return ctx.TeamStats.HomeStreak.Display
}

func awayStreakDisplay(ctx model.TemplateContext) string {
	if ctx.TeamStats == nil {
		return ""
	}
	return ctx.TeamStats.AwayStreak.Display
}

func checkStreakDisplay(display, value string, positive bool) bool {
	threshold, ok := parseInt(value)
	if !ok || display == "" {
		return false
	}
	if positive && strings.HasPrefix(display, "W") {
		n, err := strconv.Atoi(display[1:])
		return err == nil && n >= threshold
	}
	if !positive && strings.HasPrefix(display, "L") {
		n, err := strconv.Atoi(display[1:])
		return err == nil && n >= threshold
	}
	return false
}

func opponentIsRanked(game *model.GameContext) bool {
	return game != nil && game.OpponentStats != nil && game.OpponentStats.Rank != nil
}

func isTopTenMatchup(ctx model.TemplateContext, game *model.GameContext) bool {
	teamTop10 := ctx.TeamStats != nil && ctx.TeamStats.Rank != nil && *ctx.TeamStats.Rank <= 10
	oppTop10 := game != nil && game.OpponentStats != nil && game.OpponentStats.Rank != nil && *game.OpponentStats.Rank <= 10
	return teamTop10 && oppTop10
}

func isConferenceGame(ctx model.TemplateContext, game *model.GameContext) bool {
	if ctx.TeamStats == nil || game == nil || game.OpponentStats == nil {
		return false
	}
	return ctx.TeamStats.ConferenceName != "" && ctx.TeamStats.ConferenceName == game.OpponentStats.ConferenceName
}

var nationalNetworks = map[string]bool{
	"ESPN": true, "ABC": true, "FOX": true, "CBS": true, "NBC": true, "TNT": true, "TBS": true,
}

func isNationalBroadcast(game *model.GameContext) bool {
	if game == nil {
		return false
	}
	for _, b := range game.Event.Broadcasts {
		if nationalNetworks[strings.ToUpper(b.Name)] {
			return true
		}
	}
	return false
}

func opponentNameContains(game *model.GameContext, pattern string) bool {
	if game == nil || pattern == "" {
		return false
	}
	return strings.Contains(strings.ToLower(game.Opponent.Name), strings.ToLower(pattern))
}

func parseInt(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// SelectDescription evaluates descriptions in priority order (lower
// first) and returns the template string of the first whose condition is
// satisfied. Entries tied at the same priority are shuffled by rng before
// evaluation so repeated ties don't always resolve to the same entry,
// matching spec.md §4.8's "ties select uniformly at random" rule. rng(n)
// must return a uniform value in [0, n); pass a seeded math/rand.Intn for
// reproducible tests.
func SelectDescription(descriptions []model.ConditionalDescription, ctx model.TemplateContext, rng func(n int) int) string {
	if len(descriptions) == 0 {
		return ""
	}
	sorted := make([]model.ConditionalDescription, len(descriptions))
	copy(sorted, descriptions)
	sortByPriorityShuffled(sorted, rng)

	for _, d := range sorted {
		if evaluate(d.Condition, ctx) {
			return d.Template
		}
	}
	return ""
}

// sortByPriorityShuffled groups entries by priority, shuffles each group
// independently (so ties break randomly), then concatenates groups in
// ascending priority order.
func sortByPriorityShuffled(descriptions []model.ConditionalDescription, rng func(n int) int) {
	groups := map[int][]model.ConditionalDescription{}
	var priorities []int
	for _, d := range descriptions {
		if _, ok := groups[d.Priority]; !ok {
			priorities = append(priorities, d.Priority)
		}
		groups[d.Priority] = append(groups[d.Priority], d)
	}
	for i := 0; i < len(priorities); i++ {
		for j := i + 1; j < len(priorities); j++ {
			if priorities[j] < priorities[i] {
				priorities[i], priorities[j] = priorities[j], priorities[i]
			}
		}
	}

	idx := 0
	for _, p := range priorities {
		group := groups[p]
		if rng != nil {
			for i := len(group) - 1; i > 0; i-- {
				j := rng(i + 1)
				group[i], group[j] = group[j], group[i]
			}
		}
		for _, d := range group {
			descriptions[idx] = d
			idx++
		}
	}
}
