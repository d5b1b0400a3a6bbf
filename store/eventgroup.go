// eventgroup.go backs the event_groups and exception_keywords tables
// (spec.md §3 EventGroup, ExceptionKeyword): the configuration the
// lifecycle engine reads once per scheduler tick.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unyeco/sportguide/internal/errs"
	"github.com/unyeco/sportguide/model"
)

// EventGroupStore reads/writes event_groups and their exception keywords.
type EventGroupStore struct {
	pool *pgxpool.Pool
}

// NewEventGroupStore creates a store over pool.
func NewEventGroupStore(pool *pgxpool.Pool) *EventGroupStore {
	return &EventGroupStore{pool: pool}
}

// List returns every configured event group.
func (s *EventGroupStore) List(ctx context.Context) ([]model.EventGroup, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, include_leagues, candidate_leagues, include_regex, exclude_regex,
		       team_regex, date_regex, time_regex, create_timing_hours,
		       delete_grace_mins, duplicate_mode
		FROM event_groups ORDER BY id`)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransientUpstream, "store/eventgroup", "query event_groups", err)
	}
	defer rows.Close()

	var groups []model.EventGroup
	for rows.Next() {
		var g model.EventGroup
		var duplicateMode string
		if err := rows.Scan(&g.ID, &g.IncludeLeagues, &g.CandidateLeagues, &g.IncludeRegex,
			&g.ExcludeRegex, &g.TeamRegex, &g.DateRegex, &g.TimeRegex,
			&g.CreateTimingHours, &g.DeleteGraceMins, &duplicateMode); err != nil {
			return nil, errs.Wrap(errs.KindTransientUpstream, "store/eventgroup", "scan event_groups row", err)
		}
		g.DuplicateMode = model.ExceptionKeywordMode(duplicateMode)
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindTransientUpstream, "store/eventgroup", "iterate event_groups", err)
	}

	for i := range groups {
		keywords, err := s.exceptionKeywords(ctx, groups[i].ID)
		if err != nil {
			return nil, err
		}
		groups[i].ExceptionKeywords = keywords
	}
	return groups, nil
}

// Get returns one event group by id, with its exception keywords attached.
func (s *EventGroupStore) Get(ctx context.Context, id string) (model.EventGroup, bool, error) {
	var g model.EventGroup
	var duplicateMode string
	err := s.pool.QueryRow(ctx, `
		SELECT id, include_leagues, candidate_leagues, include_regex, exclude_regex,
		       team_regex, date_regex, time_regex, create_timing_hours,
		       delete_grace_mins, duplicate_mode
		FROM event_groups WHERE id = $1`, id,
	).Scan(&g.ID, &g.IncludeLeagues, &g.CandidateLeagues, &g.IncludeRegex, &g.ExcludeRegex,
		&g.TeamRegex, &g.DateRegex, &g.TimeRegex, &g.CreateTimingHours,
		&g.DeleteGraceMins, &duplicateMode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.EventGroup{}, false, nil
		}
		return model.EventGroup{}, false, errs.Wrap(errs.KindTransientUpstream, "store/eventgroup", "query event_group", err)
	}
	g.DuplicateMode = model.ExceptionKeywordMode(duplicateMode)

	keywords, err := s.exceptionKeywords(ctx, g.ID)
	if err != nil {
		return model.EventGroup{}, false, err
	}
	g.ExceptionKeywords = keywords
	return g, true, nil
}

func (s *EventGroupStore) exceptionKeywords(ctx context.Context, groupID string) ([]model.ExceptionKeyword, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, synonyms, mode FROM exception_keywords
		WHERE group_id = $1 ORDER BY id`, groupID)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransientUpstream, "store/eventgroup", "query exception_keywords", err)
	}
	defer rows.Close()

	var out []model.ExceptionKeyword
	for rows.Next() {
		var kw model.ExceptionKeyword
		var synonymsCSV string
		var mode string
		if err := rows.Scan(&kw.ID, &synonymsCSV, &mode); err != nil {
			return nil, errs.Wrap(errs.KindTransientUpstream, "store/eventgroup", "scan exception_keywords row", err)
		}
		kw.Synonyms = strings.Split(synonymsCSV, ",")
		kw.Mode = model.ExceptionKeywordMode(mode)
		out = append(out, kw)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindTransientUpstream, "store/eventgroup", "iterate exception_keywords", err)
	}
	return out, nil
}
