package template

import "github.com/unyeco/sportguide/model"

func gameResult(ctx model.TemplateContext, g *model.GameContext) string {
	if g == nil || g.Event.HomeScore == nil || g.Event.AwayScore == nil {
		return ""
	}
	isHome := g.Event.Home.ID == ctx.TeamConfig.TeamID
	teamScore, oppScore := *g.Event.HomeScore, *g.Event.AwayScore
	if !isHome {
		teamScore, oppScore = *g.Event.AwayScore, *g.Event.HomeScore
	}
	switch {
	case teamScore > oppScore:
		return "win"
	case teamScore < oppScore:
		return "loss"
	default:
		return "tie"
	}
}

func init() {
	register("result", CategoryOutcome, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		switch gameResult(ctx, g) {
		case "win":
			return "W"
		case "loss":
			return "L"
		case "tie":
			return "T"
		}
		return ""
	})
	register("result_lower", CategoryOutcome, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		switch gameResult(ctx, g) {
		case "win":
			return "w"
		case "loss":
			return "l"
		case "tie":
			return "t"
		}
		return ""
	})
	register("result_text", CategoryOutcome, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		switch gameResult(ctx, g) {
		case "win":
			return "Win"
		case "loss":
			return "Loss"
		case "tie":
			return "Tie"
		}
		return ""
	})
	register("is_win", CategoryOutcome, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if gameResult(ctx, g) == "win" {
			return "true"
		}
		return "false"
	})
}
