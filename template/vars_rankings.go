package template

import (
	"fmt"

	"github.com/unyeco/sportguide/model"
)

func init() {
	register("team_rank", CategoryRankings, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		if ctx.TeamStats != nil && ctx.TeamStats.Rank != nil {
			return fmt.Sprintf("%d", *ctx.TeamStats.Rank)
		}
		return ""
	})
	register("team_rank_display", CategoryRankings, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		if ctx.TeamStats != nil && ctx.TeamStats.Rank != nil {
			return fmt.Sprintf("#%d", *ctx.TeamStats.Rank)
		}
		return ""
	})
	register("opponent_rank", CategoryRankings, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g != nil && g.OpponentStats != nil && g.OpponentStats.Rank != nil {
			return fmt.Sprintf("%d", *g.OpponentStats.Rank)
		}
		return ""
	})
	register("opponent_rank_display", CategoryRankings, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g != nil && g.OpponentStats != nil && g.OpponentStats.Rank != nil {
			return fmt.Sprintf("#%d", *g.OpponentStats.Rank)
		}
		return ""
	})
	register("is_ranked", CategoryRankings, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		if ctx.TeamStats != nil && ctx.TeamStats.Rank != nil {
			return "true"
		}
		return ""
	})
	register("opponent_is_ranked", CategoryRankings, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g != nil && g.OpponentStats != nil && g.OpponentStats.Rank != nil {
			return "true"
		}
		return ""
	})
	register("is_ranked_matchup", CategoryRankings, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		teamRanked := ctx.TeamStats != nil && ctx.TeamStats.Rank != nil
		opponentRanked := g != nil && g.OpponentStats != nil && g.OpponentStats.Rank != nil
		if teamRanked && opponentRanked {
			return "true"
		}
		return ""
	})
	register("home_team_rank", CategoryRankings, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g == nil {
			return ""
		}
		if g.IsHome && ctx.TeamStats != nil && ctx.TeamStats.Rank != nil {
			return fmt.Sprintf("%d", *ctx.TeamStats.Rank)
		}
		if !g.IsHome && g.OpponentStats != nil && g.OpponentStats.Rank != nil {
			return fmt.Sprintf("%d", *g.OpponentStats.Rank)
		}
		return ""
	})
	register("away_team_rank", CategoryRankings, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g == nil {
			return ""
		}
		if !g.IsHome && ctx.TeamStats != nil && ctx.TeamStats.Rank != nil {
			return fmt.Sprintf("%d", *ctx.TeamStats.Rank)
		}
		if g.IsHome && g.OpponentStats != nil && g.OpponentStats.Rank != nil {
			return fmt.Sprintf("%d", *g.OpponentStats.Rank)
		}
		return ""
	})
}
