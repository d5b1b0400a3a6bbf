// Package providers defines the sports-data provider contract (spec.md §4.1)
// and the registry that orders providers by priority. The interface shape —
// a small capability set returning provider-neutral values, constructed
// through a factory and looked up via a registry rather than a hidden
// singleton — is ported from the teacher's
// services/ingest/internal/providers/registry.go (IngestProvider/NewProvider),
// generalized from IPTV ingest sources to sports-data APIs.
package providers

import (
	"context"
	"time"

	"github.com/unyeco/sportguide/model"
)

// Provider is the capability set every sports-data provider implements.
// Every method returns a provider-neutral typed value or a typed failure
// (internal/errs); providers never leak their own JSON shapes upward.
type Provider interface {
	// Name identifies the provider ("tsdb", "espn", ...).
	Name() string

	ListEvents(ctx context.Context, league string, date time.Time) ([]model.Event, error)
	GetTeamSchedule(ctx context.Context, teamID, league string, daysAhead int) ([]model.Event, error)
	GetScoreboard(ctx context.Context, league string, date time.Time) ([]model.Event, error)
	GetTeamInfo(ctx context.Context, teamID, league string) (model.Team, error)
	GetTeamStats(ctx context.Context, teamID, league string) (model.TeamStats, error)
	GetStandings(ctx context.Context, league string) ([]model.TeamStats, error)
	ListTeams(ctx context.Context, league string) ([]model.Team, error)
	ListConferences(ctx context.Context, league string) ([]string, error)
	ListConferenceTeams(ctx context.Context, conference string) ([]model.Team, error)

	// SupportsLeague reports whether this provider's league-mapping store
	// carries a mapping for league. Drives Registry.ForLeague.
	SupportsLeague(league string) bool
}

// registration pairs a constructed Provider with its lookup priority.
type registration struct {
	priority int
	name     string
	enabled  bool
	provider Provider
}

// Registry is the only way other components reach providers (spec.md §4.1).
// Construct explicitly at startup and pass the handle to components that
// need it — no hidden singleton (spec.md §9 design notes).
type Registry struct {
	regs []registration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a provider at the given priority (lower tried first).
func (r *Registry) Register(priority int, name string, p Provider, enabled bool) {
	r.regs = append(r.regs, registration{priority: priority, name: name, enabled: enabled, provider: p})
	sortByPriority(r.regs)
}

func sortByPriority(regs []registration) {
	for i := 1; i < len(regs); i++ {
		j := i
		for j > 0 && regs[j-1].priority > regs[j].priority {
			regs[j-1], regs[j] = regs[j], regs[j-1]
			j--
		}
	}
}

// All returns enabled providers in priority order.
func (r *Registry) All() []Provider {
	out := make([]Provider, 0, len(r.regs))
	for _, reg := range r.regs {
		if reg.enabled {
			out = append(out, reg.provider)
		}
	}
	return out
}

// ForLeague returns the first enabled provider whose league-mapping store
// reports support for league, or (nil, false) if none do.
func (r *Registry) ForLeague(league string) (Provider, bool) {
	for _, reg := range r.regs {
		if reg.enabled && reg.provider.SupportsLeague(league) {
			return reg.provider, true
		}
	}
	return nil, false
}
