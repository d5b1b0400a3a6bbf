// Package template resolves `{variable}` placeholders in title/subtitle/
// description/artwork strings against a model.TemplateContext. The
// registry-of-pure-functions design and the three suffix forms
// (`{var}`/`{var.next}`/`{var.last}`) are ported from
// original_source/teamarr/templates/variables/registry.py and the
// per-category variable files alongside it
// (identity.py/datetime.py/scores.py/outcome.py/rankings.py), generalized
// here into a single Go package of typed registration calls rather than a
// decorator over free functions, since Go has no decorator sugar to port
// 1:1 — the `@register_variable` call site becomes an `init()`-time
// `register(...)` call with the same three arguments (name, category,
// suffix policy).
package template

import "github.com/unyeco/sportguide/model"

// Category groups variables for documentation/introspection; it plays no
// role in resolution itself.
type Category string

const (
	CategoryIdentity   Category = "identity"
	CategoryDateTime   Category = "datetime"
	CategoryVenue      Category = "venue"
	CategoryBroadcast  Category = "broadcast"
	CategoryScores     Category = "scores"
	CategoryOutcome    Category = "outcome"
	CategoryRecords    Category = "records"
	CategoryRankings   Category = "rankings"
	CategoryStreaks    Category = "streaks"
	CategoryStatistics Category = "statistics"
	CategoryStandings  Category = "standings"
	CategoryConference Category = "conference"
	CategoryPlayoffs   Category = "playoffs"
	CategoryHeadToHead Category = "head_to_head"
	CategoryOdds       Category = "odds"
	CategorySoccer     Category = "soccer"
)

// VarFunc is a pure variable extractor: never mutates, never errors,
// resolves missing data to "".
type VarFunc func(ctx model.TemplateContext, game *model.GameContext) string

type variable struct {
	name     string
	category Category
	suffix   model.SuffixPolicy
	fn       VarFunc
}

var registry = map[string]variable{}

// register adds one variable to the package-level registry. Called from
// each category file's init().
func register(name string, category Category, suffix model.SuffixPolicy, fn VarFunc) {
	registry[name] = variable{name: name, category: category, suffix: suffix, fn: fn}
}

// Lookup returns the variable's extractor for the given suffix form, or
// (nil, false) if the variable is unknown or the suffix is out of policy.
func lookup(name string, suffix gameSuffix) (VarFunc, bool) {
	v, ok := registry[name]
	if !ok {
		return nil, false
	}
	switch v.suffix {
	case model.SuffixAll:
		return v.fn, true
	case model.SuffixBaseOnly:
		if suffix == suffixBase {
			return v.fn, true
		}
	case model.SuffixLastOnly:
		if suffix == suffixLast {
			return v.fn, true
		}
	}
	return nil, false
}

type gameSuffix int

const (
	suffixBase gameSuffix = iota
	suffixNext
	suffixLast
)

// Names returns every registered variable name, for diagnostics/docs.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	return names
}
