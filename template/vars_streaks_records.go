package template

import (
	"fmt"

	"github.com/unyeco/sportguide/model"
)

func init() {
	register("streak", CategoryStreaks, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		if ctx.TeamStats == nil {
			return ""
		}
		return ctx.TeamStats.Streak.Display
	})
	register("home_streak", CategoryStreaks, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		if ctx.TeamStats == nil {
			return ""
		}
		return ctx.TeamStats.HomeStreak.Display
	})
	register("away_streak", CategoryStreaks, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		if ctx.TeamStats == nil {
			return ""
		}
		return ctx.TeamStats.AwayStreak.Display
	})

	register("record", CategoryRecords, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		if ctx.TeamStats == nil {
			return ""
		}
		return ctx.TeamStats.Overall.Summary
	})
	register("home_record", CategoryRecords, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		if ctx.TeamStats == nil {
			return ""
		}
		return ctx.TeamStats.HomeRecord.Summary
	})
	register("away_record", CategoryRecords, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		if ctx.TeamStats == nil {
			return ""
		}
		return ctx.TeamStats.AwayRecord.Summary
	})
	register("last_5", CategoryRecords, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		if ctx.TeamStats == nil {
			return ""
		}
		return ctx.TeamStats.Last5.Summary
	})
	register("last_10", CategoryRecords, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		if ctx.TeamStats == nil {
			return ""
		}
		return ctx.TeamStats.Last10.Summary
	})
	register("opponent_record", CategoryRecords, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g == nil || g.OpponentStats == nil {
			return ""
		}
		return g.OpponentStats.Overall.Summary
	})

	register("ppg", CategoryStatistics, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		if ctx.TeamStats == nil {
			return ""
		}
		return fmt.Sprintf("%.1f", ctx.TeamStats.PPG)
	})
	register("papg", CategoryStatistics, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		if ctx.TeamStats == nil {
			return ""
		}
		return fmt.Sprintf("%.1f", ctx.TeamStats.PAPG)
	})
}
