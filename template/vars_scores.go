package template

import (
	"fmt"

	"github.com/unyeco/sportguide/model"
)

func teamIsHome(ctx model.TemplateContext, g *model.GameContext) (bool, bool) {
	if g == nil {
		return false, false
	}
	return g.Event.Home.ID == ctx.TeamConfig.TeamID, true
}

func init() {
	register("team_score", CategoryScores, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		isHome, ok := teamIsHome(ctx, g)
		if !ok {
			return ""
		}
		score := g.Event.HomeScore
		if !isHome {
			score = g.Event.AwayScore
		}
		if score == nil {
			return ""
		}
		return fmt.Sprintf("%d", *score)
	})
	register("opponent_score", CategoryScores, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		isHome, ok := teamIsHome(ctx, g)
		if !ok {
			return ""
		}
		score := g.Event.AwayScore
		if !isHome {
			score = g.Event.HomeScore
		}
		if score == nil {
			return ""
		}
		return fmt.Sprintf("%d", *score)
	})
	register("score", CategoryScores, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g == nil || g.Event.HomeScore == nil || g.Event.AwayScore == nil {
			return ""
		}
		return fmt.Sprintf("%d-%d", *g.Event.HomeScore, *g.Event.AwayScore)
	})
	register("final_score", CategoryScores, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		isHome, ok := teamIsHome(ctx, g)
		if !ok || g.Event.HomeScore == nil || g.Event.AwayScore == nil {
			return ""
		}
		teamScore, oppScore := *g.Event.HomeScore, *g.Event.AwayScore
		if !isHome {
			teamScore, oppScore = *g.Event.AwayScore, *g.Event.HomeScore
		}
		return fmt.Sprintf("%d-%d", teamScore, oppScore)
	})
	register("score_diff", CategoryScores, model.SuffixLastOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		isHome, ok := teamIsHome(ctx, g)
		if !ok || g.Event.HomeScore == nil || g.Event.AwayScore == nil {
			return ""
		}
		teamScore, oppScore := *g.Event.HomeScore, *g.Event.AwayScore
		if !isHome {
			teamScore, oppScore = *g.Event.AwayScore, *g.Event.HomeScore
		}
		diff := teamScore - oppScore
		if diff < 0 {
			diff = -diff
		}
		return fmt.Sprintf("%d", diff)
	})
}
