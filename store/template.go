// template.go backs the templates table (spec.md §3/§4.8). The per-filler-
// kind title/subtitle/description/artwork maps and conditional-description
// list are stored as jsonb columns, matching the teacher's
// services/channel/cmd/channel/main.go ::jsonb + encoding/json convention.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unyeco/sportguide/internal/errs"
	"github.com/unyeco/sportguide/model"
)

// TemplateStore reads/writes templates.
type TemplateStore struct {
	pool *pgxpool.Pool
}

// NewTemplateStore creates a store over pool.
func NewTemplateStore(pool *pgxpool.Pool) *TemplateStore {
	return &TemplateStore{pool: pool}
}

// templateRow is the wire shape for the jsonb columns; model.Template's
// FillerKind-keyed maps don't marshal predictably as map keys without an
// explicit string-keyed mirror, so the store owns this narrow translation.
type templateRow struct {
	ConditionalDescriptions []model.ConditionalDescription `json:"conditional_descriptions"`
	FillerTitle             map[string]string              `json:"filler_title"`
	FillerSubtitle          map[string]string              `json:"filler_subtitle"`
	FillerDescription       map[string]string              `json:"filler_description"`
	FillerArtworkURL        map[string]string              `json:"filler_artwork_url"`
}

// Get returns one template by id.
func (s *TemplateStore) Get(ctx context.Context, id string) (model.Template, bool, error) {
	var tpl model.Template
	var rowJSON []byte
	var durationSeconds *int64
	err := s.pool.QueryRow(ctx, `
		SELECT id, game_title, game_subtitle, game_description, game_artwork_url,
		       postgame_conditional, offseason_enabled, game_duration_seconds, extra
		FROM templates WHERE id = $1`, id,
	).Scan(&tpl.ID, &tpl.GameTitle, &tpl.GameSubtitle, &tpl.GameDescription,
		&tpl.GameArtworkURL, &tpl.PostgameConditional, &tpl.OffseasonEnabled,
		&durationSeconds, &rowJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Template{}, false, nil
		}
		return model.Template{}, false, errs.Wrap(errs.KindTransientUpstream, "store/template", "query template", err)
	}
	if durationSeconds != nil {
		d := time.Duration(*durationSeconds) * time.Second
		tpl.GameDuration = &d
	}
	if err := unmarshalTemplateExtras(rowJSON, &tpl); err != nil {
		return model.Template{}, false, err
	}
	return tpl, true, nil
}

// Upsert inserts or updates one template by id.
func (s *TemplateStore) Upsert(ctx context.Context, tpl model.Template) error {
	extras, err := marshalTemplateExtras(tpl)
	if err != nil {
		return err
	}
	var durationSeconds *int64
	if tpl.GameDuration != nil {
		secs := int64(tpl.GameDuration.Seconds())
		durationSeconds = &secs
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO templates
			(id, game_title, game_subtitle, game_description, game_artwork_url,
			 postgame_conditional, offseason_enabled, game_duration_seconds, extra)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
		ON CONFLICT (id) DO UPDATE SET
			game_title = EXCLUDED.game_title,
			game_subtitle = EXCLUDED.game_subtitle,
			game_description = EXCLUDED.game_description,
			game_artwork_url = EXCLUDED.game_artwork_url,
			postgame_conditional = EXCLUDED.postgame_conditional,
			offseason_enabled = EXCLUDED.offseason_enabled,
			game_duration_seconds = EXCLUDED.game_duration_seconds,
			extra = EXCLUDED.extra`,
		tpl.ID, tpl.GameTitle, tpl.GameSubtitle, tpl.GameDescription, tpl.GameArtworkURL,
		tpl.PostgameConditional, tpl.OffseasonEnabled, durationSeconds, extras,
	)
	if err != nil {
		return errs.Wrap(errs.KindTransientUpstream, "store/template", "upsert templates", err)
	}
	return nil
}

func marshalTemplateExtras(tpl model.Template) ([]byte, error) {
	row := templateRow{
		ConditionalDescriptions: tpl.ConditionalDescriptions,
		FillerTitle:             fillerMapToString(tpl.FillerTitle),
		FillerSubtitle:          fillerMapToString(tpl.FillerSubtitle),
		FillerDescription:       fillerMapToString(tpl.FillerDescription),
		FillerArtworkURL:        fillerMapToString(tpl.FillerArtworkURL),
	}
	b, err := json.Marshal(row)
	if err != nil {
		return nil, errs.Wrap(errs.KindInvariantViolation, "store/template", "marshal template extras", err)
	}
	return b, nil
}

func unmarshalTemplateExtras(raw []byte, tpl *model.Template) error {
	var row templateRow
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &row); err != nil {
			return errs.Wrap(errs.KindUpstreamMalformed, "store/template", "unmarshal template extras", err)
		}
	}
	tpl.ConditionalDescriptions = row.ConditionalDescriptions
	tpl.FillerTitle = fillerMapFromString(row.FillerTitle)
	tpl.FillerSubtitle = fillerMapFromString(row.FillerSubtitle)
	tpl.FillerDescription = fillerMapFromString(row.FillerDescription)
	tpl.FillerArtworkURL = fillerMapFromString(row.FillerArtworkURL)
	return nil
}

func fillerMapToString(m map[model.FillerKind]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[string(k)] = v
	}
	return out
}

func fillerMapFromString(m map[string]string) map[model.FillerKind]string {
	if m == nil {
		return nil
	}
	out := make(map[model.FillerKind]string, len(m))
	for k, v := range m {
		out[model.FillerKind(k)] = v
	}
	return out
}
