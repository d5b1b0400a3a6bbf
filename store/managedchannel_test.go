//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/unyeco/sportguide/model"
)

func TestManagedChannelStore_UpsertGetListMarkDeletedCleanup(t *testing.T) {
	pool := testPool(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS managed_channels (
			id TEXT PRIMARY KEY,
			group_id TEXT NOT NULL,
			event_id TEXT NOT NULL DEFAULT '',
			league TEXT NOT NULL DEFAULT '',
			provider TEXT NOT NULL DEFAULT '',
			tvg_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			middleware_channel_id TEXT NOT NULL DEFAULT '',
			attached_stream_ids TEXT[] NOT NULL DEFAULT '{}',
			primary_stream_id TEXT NOT NULL DEFAULT '',
			exception_keyword_id TEXT NOT NULL DEFAULT '',
			scheduled_delete_at TIMESTAMPTZ,
			deleted_at TIMESTAMPTZ,
			delete_reason TEXT NOT NULL DEFAULT '',
			sync_status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	t.Cleanup(func() {
		pool.Exec(context.Background(), `DELETE FROM managed_channels WHERE group_id = 'grp1'`)
	})

	s := NewManagedChannelStore(pool)

	ch := model.ManagedChannel{
		ID:                  "ch1",
		GroupID:             "grp1",
		EventID:             "ev1",
		League:              "nfl",
		Provider:            "tsdb",
		TvgID:               "tvg1",
		Name:                "Titans vs Jaguars",
		MiddlewareChannelID: "mw1",
		AttachedStreamIDs:   []string{"s1", "s2"},
		PrimaryStreamID:     "s1",
		SyncStatus:          model.SyncStatus("synced"),
		CreatedAt:           time.Now().UTC().Truncate(time.Second),
	}
	if err := s.Upsert(ctx, ch); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, ok, err := s.Get(ctx, "ch1")
	if err != nil || !ok {
		t.Fatalf("Get(ch1) = %+v, ok=%v, err=%v", got, ok, err)
	}
	if len(got.AttachedStreamIDs) != 2 {
		t.Errorf("Get(ch1).AttachedStreamIDs = %v, want 2 entries", got.AttachedStreamIDs)
	}

	list, err := s.ListByGroup(ctx, "grp1")
	if err != nil {
		t.Fatalf("ListByGroup: %v", err)
	}
	if len(list) != 1 || list[0].ID != "ch1" {
		t.Fatalf("ListByGroup(grp1) = %+v", list)
	}

	if err := s.MarkDeleted(ctx, "ch1", "event_ended"); err != nil {
		t.Fatalf("MarkDeleted: %v", err)
	}
	got2, _, err := s.Get(ctx, "ch1")
	if err != nil {
		t.Fatalf("Get(ch1) after delete: %v", err)
	}
	if got2.DeletedAt == nil || got2.DeleteReason != "event_ended" {
		t.Errorf("Get(ch1) after MarkDeleted = %+v, want DeletedAt set and reason event_ended", got2)
	}

	// A second MarkDeleted must be a no-op (WHERE deleted_at IS NULL guards
	// against clobbering the original reason/timestamp).
	if err := s.MarkDeleted(ctx, "ch1", "second_reason"); err != nil {
		t.Fatalf("second MarkDeleted: %v", err)
	}
	got3, _, err := s.Get(ctx, "ch1")
	if err != nil {
		t.Fatalf("Get(ch1) after second delete: %v", err)
	}
	if got3.DeleteReason != "event_ended" {
		t.Errorf("Get(ch1).DeleteReason = %q after second MarkDeleted, want unchanged event_ended", got3.DeleteReason)
	}

	// Back-date the deletion past the retention window and confirm cleanup
	// removes it.
	if _, err := pool.Exec(ctx, `UPDATE managed_channels SET deleted_at = NOW() - INTERVAL '100 days' WHERE id = 'ch1'`); err != nil {
		t.Fatalf("back-date deleted_at: %v", err)
	}
	removed, err := s.CleanupOldHistory(ctx, 90)
	if err != nil {
		t.Fatalf("CleanupOldHistory: %v", err)
	}
	if removed != 1 {
		t.Errorf("CleanupOldHistory removed = %d, want 1", removed)
	}
	if _, ok, err := s.Get(ctx, "ch1"); err != nil || ok {
		t.Errorf("Get(ch1) after cleanup: ok=%v err=%v, want ok=false", ok, err)
	}
}

func TestManagedChannelStore_Get_NotFound(t *testing.T) {
	pool := testPool(t)

	_, err := pool.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS managed_channels (
			id TEXT PRIMARY KEY,
			group_id TEXT NOT NULL,
			event_id TEXT NOT NULL DEFAULT '',
			league TEXT NOT NULL DEFAULT '',
			provider TEXT NOT NULL DEFAULT '',
			tvg_id TEXT NOT NULL DEFAULT '',
			name TEXT NOT NULL DEFAULT '',
			middleware_channel_id TEXT NOT NULL DEFAULT '',
			attached_stream_ids TEXT[] NOT NULL DEFAULT '{}',
			primary_stream_id TEXT NOT NULL DEFAULT '',
			exception_keyword_id TEXT NOT NULL DEFAULT '',
			scheduled_delete_at TIMESTAMPTZ,
			deleted_at TIMESTAMPTZ,
			delete_reason TEXT NOT NULL DEFAULT '',
			sync_status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}

	s := NewManagedChannelStore(pool)
	_, ok, err := s.Get(context.Background(), "does-not-exist")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("Get(does-not-exist) ok = true, want false")
	}
}
