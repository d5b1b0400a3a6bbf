package template

import (
	"strings"

	"github.com/unyeco/sportguide/model"
)

func init() {
	register("venue_name", CategoryVenue, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g == nil {
			return ""
		}
		return g.Event.Venue.Name
	})
	register("venue_city", CategoryVenue, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g == nil {
			return ""
		}
		return g.Event.Venue.City
	})
	register("venue_state", CategoryVenue, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g == nil {
			return ""
		}
		return g.Event.Venue.State
	})
	register("venue_location", CategoryVenue, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g == nil || g.Event.Venue.City == "" {
			return ""
		}
		if g.Event.Venue.State == "" {
			return g.Event.Venue.City
		}
		return g.Event.Venue.City + ", " + g.Event.Venue.State
	})

	register("broadcast", CategoryBroadcast, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g == nil || len(g.Event.Broadcasts) == 0 {
			return ""
		}
		return g.Event.Broadcasts[0].Name
	})
	register("broadcasts", CategoryBroadcast, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		if g == nil || len(g.Event.Broadcasts) == 0 {
			return ""
		}
		names := make([]string, len(g.Event.Broadcasts))
		for i, b := range g.Event.Broadcasts {
			names[i] = b.Name
		}
		return strings.Join(names, ", ")
	})
}
