// This file covers the remaining spec.md §4.8 variable categories not
// broken out into their own file: standings, conference, playoffs,
// head-to-head, odds, soccer. The Python original spreads these across
// several small files under teamarr/templates/variables/ not included in
// the retrieval pack's file list (only identity/datetime/outcome/
// rankings/scores were provided); these are written directly from
// spec.md §4.7/§4.8's description of each signal, following the same
// register(name, category, suffix, fn) shape as the files above.
package template

import (
	"fmt"

	"github.com/unyeco/sportguide/model"
)

func init() {
	// Standings
	register("playoff_seed", CategoryStandings, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		if ctx.TeamStats != nil && ctx.TeamStats.PlayoffSeed != nil {
			return fmt.Sprintf("%d", *ctx.TeamStats.PlayoffSeed)
		}
		return ""
	})
	register("games_back", CategoryStandings, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		if ctx.TeamStats != nil && ctx.TeamStats.GamesBack != nil {
			return fmt.Sprintf("%.1f", *ctx.TeamStats.GamesBack)
		}
		return ""
	})

	// Conference
	register("conference_name", CategoryConference, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		if ctx.TeamStats == nil {
			return ""
		}
		return ctx.TeamStats.ConferenceName
	})
	register("division_name", CategoryConference, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		if ctx.TeamStats == nil {
			return ""
		}
		return ctx.TeamStats.DivisionName
	})
	register("division_record", CategoryConference, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		if ctx.TeamStats == nil {
			return ""
		}
		return ctx.TeamStats.DivisionRecord.Summary
	})

	// Playoffs
	register("is_playoff_game", CategoryPlayoffs, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g != nil && g.Event.SeasonType == model.SeasonPostseason {
			return "true"
		}
		return "false"
	})

	// Head-to-head
	register("h2h_record", CategoryHeadToHead, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g == nil || g.H2H == nil {
			return ""
		}
		return fmt.Sprintf("%d-%d", g.H2H.TeamWins, g.H2H.OpponentWins)
	})
	register("h2h_last_result", CategoryHeadToHead, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g == nil || g.H2H == nil {
			return ""
		}
		return g.H2H.LastResultText
	})
	register("h2h_days_since", CategoryHeadToHead, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g == nil || g.H2H == nil {
			return ""
		}
		return fmt.Sprintf("%d", g.H2H.DaysSince)
	})

	// Odds
	register("spread", CategoryOdds, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g == nil || g.Event.Odds == nil || g.Event.Odds.Spread == nil {
			return ""
		}
		return fmt.Sprintf("%.1f", *g.Event.Odds.Spread)
	})
	register("over_under", CategoryOdds, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g == nil || g.Event.Odds == nil || g.Event.Odds.OverUnder == nil {
			return ""
		}
		return fmt.Sprintf("%.1f", *g.Event.Odds.OverUnder)
	})
	register("has_odds", CategoryOdds, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g != nil && g.Event.Odds != nil {
			return "true"
		}
		return "false"
	})

	// Soccer (multi-league membership, source league tagging)
	register("source_league", CategorySoccer, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g == nil {
			return ""
		}
		return g.Event.SourceLeague
	})
	register("leagues", CategorySoccer, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		if ctx.TeamStats == nil {
			return ""
		}
		out := ""
		for i, l := range ctx.TeamStats.Leagues {
			if i > 0 {
				out += ", "
			}
			out += l
		}
		return out
	})
}
