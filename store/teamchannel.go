// teamchannel.go backs the team_channel_configs table (spec.md §3
// TeamChannelConfig): the per-team channel settings the orchestrator reads
// at the start of each generation run.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unyeco/sportguide/internal/errs"
	"github.com/unyeco/sportguide/model"
)

// TeamChannelStore reads/writes team_channel_configs.
type TeamChannelStore struct {
	pool *pgxpool.Pool
}

// NewTeamChannelStore creates a store over pool.
func NewTeamChannelStore(pool *pgxpool.Pool) *TeamChannelStore {
	return &TeamChannelStore{pool: pool}
}

// List returns every configured team channel, the orchestrator's fan-out
// input for a generation run.
func (s *TeamChannelStore) List(ctx context.Context) ([]model.TeamChannelConfig, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT team_id, league, sport, template_id, channel_id, logo,
		       duration_override_seconds, pregame_enabled, postgame_enabled, idle_enabled
		FROM team_channel_configs ORDER BY channel_id`)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransientUpstream, "store/teamchannel", "query team_channel_configs", err)
	}
	defer rows.Close()

	var out []model.TeamChannelConfig
	for rows.Next() {
		var cfg model.TeamChannelConfig
		var durationSeconds *int64
		if err := rows.Scan(&cfg.TeamID, &cfg.League, &cfg.Sport, &cfg.TemplateID,
			&cfg.ChannelID, &cfg.Logo, &durationSeconds, &cfg.PregameEnabled,
			&cfg.PostgameEnabled, &cfg.IdleEnabled); err != nil {
			return nil, errs.Wrap(errs.KindTransientUpstream, "store/teamchannel", "scan team_channel_configs row", err)
		}
		if durationSeconds != nil {
			d := time.Duration(*durationSeconds) * time.Second
			cfg.DurationOverride = &d
		}
		out = append(out, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindTransientUpstream, "store/teamchannel", "iterate team_channel_configs", err)
	}
	return out, nil
}

// Get returns one team channel's config by channel id.
func (s *TeamChannelStore) Get(ctx context.Context, channelID string) (model.TeamChannelConfig, bool, error) {
	var cfg model.TeamChannelConfig
	var durationSeconds *int64
	err := s.pool.QueryRow(ctx, `
		SELECT team_id, league, sport, template_id, channel_id, logo,
		       duration_override_seconds, pregame_enabled, postgame_enabled, idle_enabled
		FROM team_channel_configs WHERE channel_id = $1`, channelID,
	).Scan(&cfg.TeamID, &cfg.League, &cfg.Sport, &cfg.TemplateID, &cfg.ChannelID,
		&cfg.Logo, &durationSeconds, &cfg.PregameEnabled, &cfg.PostgameEnabled, &cfg.IdleEnabled)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TeamChannelConfig{}, false, nil
		}
		return model.TeamChannelConfig{}, false, errs.Wrap(errs.KindTransientUpstream, "store/teamchannel", "query team_channel_config", err)
	}
	if durationSeconds != nil {
		d := time.Duration(*durationSeconds) * time.Second
		cfg.DurationOverride = &d
	}
	return cfg, true, nil
}

// Upsert inserts or updates one team channel config by channel id.
func (s *TeamChannelStore) Upsert(ctx context.Context, cfg model.TeamChannelConfig) error {
	var durationSeconds *int64
	if cfg.DurationOverride != nil {
		secs := int64(cfg.DurationOverride.Seconds())
		durationSeconds = &secs
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO team_channel_configs
			(channel_id, team_id, league, sport, template_id, logo,
			 duration_override_seconds, pregame_enabled, postgame_enabled, idle_enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (channel_id) DO UPDATE SET
			team_id = EXCLUDED.team_id,
			league = EXCLUDED.league,
			sport = EXCLUDED.sport,
			template_id = EXCLUDED.template_id,
			logo = EXCLUDED.logo,
			duration_override_seconds = EXCLUDED.duration_override_seconds,
			pregame_enabled = EXCLUDED.pregame_enabled,
			postgame_enabled = EXCLUDED.postgame_enabled,
			idle_enabled = EXCLUDED.idle_enabled`,
		cfg.ChannelID, cfg.TeamID, cfg.League, cfg.Sport, cfg.TemplateID, cfg.Logo,
		durationSeconds, cfg.PregameEnabled, cfg.PostgameEnabled, cfg.IdleEnabled,
	)
	if err != nil {
		return errs.Wrap(errs.KindTransientUpstream, "store/teamchannel", "upsert team_channel_configs", err)
	}
	return nil
}
