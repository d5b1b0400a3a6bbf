// managedchannel.go backs the managed_channels table (spec.md §3
// ManagedChannel) and implements the narrow Store/HistoryStore interfaces
// lifecycle.Engine and lifecycle.Scheduler declare, so the lifecycle
// package never touches SQL directly. Grounded in the teacher's
// content_acquirer/acquirer.go pgxpool call style.
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

// ManagedChannelStore reads/writes managed_channels. Implements
// lifecycle.Store and lifecycle.HistoryStore.
type ManagedChannelStore struct {
	pool *pgxpool.Pool
}

// NewManagedChannelStore creates a store over pool.
func NewManagedChannelStore(pool *pgxpool.Pool) *ManagedChannelStore {
	return &ManagedChannelStore{pool: pool}
}

// ListByGroup returns every ManagedChannel (deleted or not) owned by groupID,
// ordered by creation time so bucket decisions in lifecycle.Engine.Run see a
// stable existing-channel view across runs.
func (s *ManagedChannelStore) ListByGroup(ctx context.Context, groupID string) ([]model.ManagedChannel, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, group_id, event_id, league, provider, tvg_id, name,
		       middleware_channel_id, attached_stream_ids, primary_stream_id,
		       exception_keyword_id, scheduled_delete_at, deleted_at,
		       delete_reason, sync_status, created_at
		FROM managed_channels WHERE group_id = $1 ORDER BY created_at`, groupID)
	if err != nil {
		return nil, errs.Wrap(errs.KindTransientUpstream, "store/managedchannel", "query managed_channels", err)
	}
	defer rows.Close()

	var out []model.ManagedChannel
	for rows.Next() {
		var ch model.ManagedChannel
		var syncStatus string
		if err := rows.Scan(&ch.ID, &ch.GroupID, &ch.EventID, &ch.League, &ch.Provider,
			&ch.TvgID, &ch.Name, &ch.MiddlewareChannelID, &ch.AttachedStreamIDs,
			&ch.PrimaryStreamID, &ch.ExceptionKeywordID, &ch.ScheduledDeleteAt,
			&ch.DeletedAt, &ch.DeleteReason, &syncStatus, &ch.CreatedAt); err != nil {
			return nil, errs.Wrap(errs.KindTransientUpstream, "store/managedchannel", "scan managed_channels row", err)
		}
		ch.SyncStatus = model.SyncStatus(syncStatus)
		out = append(out, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.KindTransientUpstream, "store/managedchannel", "iterate managed_channels", err)
	}
	return out, nil
}

// Upsert inserts or updates one ManagedChannel by id.
func (s *ManagedChannelStore) Upsert(ctx context.Context, ch model.ManagedChannel) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO managed_channels
			(id, group_id, event_id, league, provider, tvg_id, name,
			 middleware_channel_id, attached_stream_ids, primary_stream_id,
			 exception_keyword_id, scheduled_delete_at, deleted_at,
			 delete_reason, sync_status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			middleware_channel_id = EXCLUDED.middleware_channel_id,
			attached_stream_ids = EXCLUDED.attached_stream_ids,
			primary_stream_id = EXCLUDED.primary_stream_id,
			scheduled_delete_at = EXCLUDED.scheduled_delete_at,
			deleted_at = EXCLUDED.deleted_at,
			delete_reason = EXCLUDED.delete_reason,
			sync_status = EXCLUDED.sync_status`,
		ch.ID, ch.GroupID, ch.EventID, ch.League, ch.Provider, ch.TvgID, ch.Name,
		ch.MiddlewareChannelID, ch.AttachedStreamIDs, ch.PrimaryStreamID,
		ch.ExceptionKeywordID, ch.ScheduledDeleteAt, ch.DeletedAt,
		ch.DeleteReason, string(ch.SyncStatus), ch.CreatedAt,
	)
	if err != nil {
		return errs.Wrap(errs.KindTransientUpstream, "store/managedchannel", "upsert managed_channels", err)
	}
	return nil
}

// MarkDeleted soft-deletes one ManagedChannel, recording reason and the
// deletion timestamp. History is retained (spec.md §3 Lifecycles: "≥ 90
// days") rather than hard-deleted; CleanupOldHistory prunes past that.
func (s *ManagedChannelStore) MarkDeleted(ctx context.Context, id string, reason string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE managed_channels SET deleted_at = NOW(), delete_reason = $2
		WHERE id = $1 AND deleted_at IS NULL`, id, reason)
	if err != nil {
		return errs.Wrap(errs.KindTransientUpstream, "store/managedchannel", "mark managed_channel deleted", err)
	}
	return nil
}

// Get returns one ManagedChannel by id, or ok=false if it doesn't exist.
func (s *ManagedChannelStore) Get(ctx context.Context, id string) (model.ManagedChannel, bool, error) {
	var ch model.ManagedChannel
	var syncStatus string
	err := s.pool.QueryRow(ctx, `
		SELECT id, group_id, event_id, league, provider, tvg_id, name,
		       middleware_channel_id, attached_stream_ids, primary_stream_id,
		       exception_keyword_id, scheduled_delete_at, deleted_at,
		       delete_reason, sync_status, created_at
		FROM managed_channels WHERE id = $1`, id,
	).Scan(&ch.ID, &ch.GroupID, &ch.EventID, &ch.League, &ch.Provider,
		&ch.TvgID, &ch.Name, &ch.MiddlewareChannelID, &ch.AttachedStreamIDs,
		&ch.PrimaryStreamID, &ch.ExceptionKeywordID, &ch.ScheduledDeleteAt,
		&ch.DeletedAt, &ch.DeleteReason, &syncStatus, &ch.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ManagedChannel{}, false, nil
		}
		return model.ManagedChannel{}, false, errs.Wrap(errs.KindTransientUpstream, "store/managedchannel", "query managed_channel", err)
	}
	ch.SyncStatus = model.SyncStatus(syncStatus)
	return ch, true, nil
}

// CleanupOldHistory hard-deletes soft-deleted rows older than retentionDays,
// implementing lifecycle.HistoryStore. Ported from
// original_source/teamarr/consumers/scheduler.py's _task_cleanup_history.
func (s *ManagedChannelStore) CleanupOldHistory(ctx context.Context, retentionDays int) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -retentionDays)
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM managed_channels WHERE deleted_at IS NOT NULL AND deleted_at < $1`, cutoff)
	if err != nil {
		return 0, errs.Wrap(errs.KindTransientUpstream, "store/managedchannel", "cleanup managed_channels history", err)
	}
	return int(tag.RowsAffected()), nil
}
