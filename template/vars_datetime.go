package template

import (
	"strconv"
	"time"

	"github.com/unyeco/sportguide/model"
)

// TimeFormat controls the 12h/24h + timezone-suffix policy datetime
// variables read, set once at startup from configuration (spec.md §4.8's
// "respect a 12h/24h and show-timezone setting").
var TimeFormat = struct {
	Location     *time.Location
	Use24Hour    bool
	ShowTimezone bool
}{Location: time.UTC, Use24Hour: false, ShowTimezone: true}

func localTime(g *model.GameContext) (time.Time, bool) {
	if g == nil {
		return time.Time{}, false
	}
	return g.Event.Start.In(TimeFormat.Location), true
}

func init() {
	register("game_date", CategoryDateTime, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		t, ok := localTime(g)
		if !ok {
			return ""
		}
		return t.Format("Monday, January 2, 2006")
	})
	register("game_date_short", CategoryDateTime, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		t, ok := localTime(g)
		if !ok {
			return ""
		}
		return t.Format("Jan 2")
	})
	register("game_day", CategoryDateTime, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		t, ok := localTime(g)
		if !ok {
			return ""
		}
		return t.Format("Monday")
	})
	register("game_day_short", CategoryDateTime, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		t, ok := localTime(g)
		if !ok {
			return ""
		}
		return t.Format("Mon")
	})
	register("game_time", CategoryDateTime, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		t, ok := localTime(g)
		if !ok {
			return ""
		}
		layout := "3:04 PM"
		if TimeFormat.Use24Hour {
			layout = "15:04"
		}
		if TimeFormat.ShowTimezone {
			layout += " MST"
		}
		return t.Format(layout)
	})
	register("today_tonight", CategoryDateTime, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		t, ok := localTime(g)
		if !ok {
			return ""
		}
		if t.Hour() >= 17 {
			return "tonight"
		}
		return "today"
	})
	register("today_tonight_title", CategoryDateTime, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		t, ok := localTime(g)
		if !ok {
			return ""
		}
		if t.Hour() >= 17 {
			return "Tonight"
		}
		return "Today"
	})
	register("days_until", CategoryDateTime, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		t, ok := localTime(g)
		if !ok {
			return ""
		}
		now := time.Now().In(TimeFormat.Location)
		days := int(t.Sub(now).Hours() / 24)
		if days < 0 {
			days = 0
		}
		return strconv.Itoa(days)
	})
	register("hours_until", CategoryDateTime, model.SuffixAll, func(ctx model.TemplateContext, g *model.GameContext) string {
		t, ok := localTime(g)
		if !ok {
			return ""
		}
		hours := int(time.Until(t).Hours())
		if hours < 0 {
			hours = 0
		}
		return strconv.Itoa(hours)
	})
}
