package template

import (
	"regexp"

	"github.com/unyeco/sportguide/model"
)

var rePlaceholder = regexp.MustCompile(`\{([a-zA-Z0-9_]+)(\.(next|last))?\}`)

// Resolve expands every `{var}`/`{var.next}`/`{var.last}` placeholder in
// tpl against ctx. Unknown variables and out-of-policy suffixes expand to
// "" rather than erroring, per spec.md §4.8.
func Resolve(tpl string, ctx model.TemplateContext) string {
	return rePlaceholder.ReplaceAllStringFunc(tpl, func(match string) string {
		groups := rePlaceholder.FindStringSubmatch(match)
		name, suffixWord := groups[1], groups[3]

		suffix := suffixBase
		game := ctx.Game
		switch suffixWord {
		case "next":
			suffix = suffixNext
			game = ctx.NextGame
		case "last":
			suffix = suffixLast
			game = ctx.LastGame
		}

		fn, ok := lookup(name, suffix)
		if !ok {
			return ""
		}
		return fn(ctx, game)
	})
}

// ResolveAll expands title/subtitle/description/artwork together, used by
// the orchestrator and filler generator to produce one program's text.
func ResolveAll(title, subtitle, description, artworkURL string, ctx model.TemplateContext) (t, s, d, a string) {
	return Resolve(title, ctx), Resolve(subtitle, ctx), Resolve(description, ctx), Resolve(artworkURL, ctx)
}

// ResolveDescription picks a description template via
// SelectDescription (conditional list, falling back to base) and expands
// it against ctx.
func ResolveDescription(tmpl model.Template, ctx model.TemplateContext, rng func(n int) int) string {
	chosen := SelectDescription(tmpl.ConditionalDescriptions, ctx, rng)
	if chosen == "" {
		chosen = tmpl.GameDescription
	}
	return Resolve(chosen, ctx)
}
