// events.go backs a local events cache table: snapshots of provider Events,
// keyed by id, so a stream-match-cache hit (store/streamcache.go) can
// hydrate the full model.Event it resolved to without re-querying the
// provider. Providers remain the source of truth (spec.md §3 Lifecycles:
// "Events are created by providers... the orchestrator reads them; never
// mutates"). Nothing in this module calls Put or PutBatch: the table holds
// only rows written from outside it, and when GetByID misses, the
// lifecycle engine runs the full matcher instead.
package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unyeco/sportguide/internal/errs"
	"github.com/unyeco/sportguide/model"
)

// EventStore reads/writes the events snapshot table.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a store over pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// GetByID returns the most recently cached snapshot of event id.
func (s *EventStore) GetByID(ctx context.Context, id string) (model.Event, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM events WHERE id = $1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Event{}, false, nil
		}
		return model.Event{}, false, errs.Wrap(errs.KindTransientUpstream, "store/events", "query events", err)
	}
	var event model.Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return model.Event{}, false, errs.Wrap(errs.KindUpstreamMalformed, "store/events", "unmarshal cached event", err)
	}
	return event, true, nil
}

// Put snapshots event, overwriting any prior snapshot under the same id.
func (s *EventStore) Put(ctx context.Context, event model.Event) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return errs.Wrap(errs.KindInvariantViolation, "store/events", "marshal event", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO events (id, league, start_time, data, updated_at)
		VALUES ($1, $2, $3, $4::jsonb, NOW())
		ON CONFLICT (id) DO UPDATE SET
			league = EXCLUDED.league,
			start_time = EXCLUDED.start_time,
			data = EXCLUDED.data,
			updated_at = NOW()`,
		event.ID, event.League, event.Start, raw)
	if err != nil {
		return errs.Wrap(errs.KindTransientUpstream, "store/events", "upsert events", err)
	}
	return nil
}

// PutBatch snapshots every event in events with Put, stopping at the first
// error. No code in this module calls it.
func (s *EventStore) PutBatch(ctx context.Context, events []model.Event) error {
	for _, event := range events {
		if err := s.Put(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
