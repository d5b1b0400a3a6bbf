package template

import (
	"strings"

	"github.com/unyeco/sportguide/model"
)

func toPascalCase(name string) string {
	var b strings.Builder
	for _, word := range strings.Fields(name) {
		b.WriteString(strings.ToUpper(word[:1]))
		if len(word) > 1 {
			b.WriteString(word[1:])
		}
	}
	return b.String()
}

func init() {
	register("team_name", CategoryIdentity, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		return ctx.TeamConfig.TeamName
	})
	register("team_abbrev", CategoryIdentity, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		return ctx.TeamConfig.TeamAbbrev
	})
	register("team_abbrev_lower", CategoryIdentity, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		return strings.ToLower(ctx.TeamConfig.TeamAbbrev)
	})
	register("team_name_pascal", CategoryIdentity, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		return toPascalCase(ctx.TeamConfig.TeamName)
	})
	register("opponent", CategoryIdentity, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g == nil {
			return ""
		}
		return g.Opponent.Name
	})
	register("opponent_abbrev", CategoryIdentity, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g == nil {
			return ""
		}
		return g.Opponent.Abbreviation
	})
	register("opponent_abbrev_lower", CategoryIdentity, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g == nil {
			return ""
		}
		return strings.ToLower(g.Opponent.Abbreviation)
	})
	register("matchup", CategoryIdentity, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g == nil {
			return ""
		}
		return g.Event.Away.Name + " @ " + g.Event.Home.Name
	})
	register("matchup_abbrev", CategoryIdentity, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g == nil {
			return ""
		}
		return g.Event.Away.Abbreviation + " @ " + g.Event.Home.Abbreviation
	})
	register("league", CategoryIdentity, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		return strings.ToUpper(ctx.TeamConfig.League)
	})
	register("sport", CategoryIdentity, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		return ctx.TeamConfig.Sport
	})
	register("sport_title", CategoryIdentity, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		s := ctx.TeamConfig.Sport
		if s == "" {
			return ""
		}
		return strings.ToUpper(s[:1]) + s[1:]
	})
	register("league_code", CategoryIdentity, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		return ctx.TeamConfig.League
	})
	register("league_slug", CategoryIdentity, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		return strings.ToLower(strings.ReplaceAll(ctx.TeamConfig.League, ".", "-"))
	})
	register("gracenote_category", CategoryIdentity, model.SuffixBaseOnly, func(ctx model.TemplateContext, g *model.GameContext) string {
		return "Sports event"
	})
}
