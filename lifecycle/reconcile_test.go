package lifecycle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/unyeco/sportguide/internal/middleware"
	"github.com/unyeco/sportguide/model"
)

// fakeStore implements Store in memory for reconciliation tests.
type fakeStore struct {
	channels map[string]model.ManagedChannel
	upserts  int
}

func newFakeStore(chs ...model.ManagedChannel) *fakeStore {
	s := &fakeStore{channels: map[string]model.ManagedChannel{}}
	for _, ch := range chs {
		s.channels[ch.ID] = ch
	}
	return s
}

func (s *fakeStore) ListByGroup(ctx context.Context, groupID string) ([]model.ManagedChannel, error) {
	var out []model.ManagedChannel
	for _, ch := range s.channels {
		if ch.GroupID == groupID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (s *fakeStore) Upsert(ctx context.Context, ch model.ManagedChannel) error {
	s.upserts++
	s.channels[ch.ID] = ch
	return nil
}

func (s *fakeStore) MarkDeleted(ctx context.Context, id string, reason string) error {
	ch := s.channels[id]
	now := time.Now()
	ch.DeletedAt = &now
	ch.DeleteReason = reason
	s.channels[id] = ch
	return nil
}

// fakeMiddlewareServer backs an httptest.Server implementing just enough of
// the middleware's channel endpoints for reconciliation to exercise.
type fakeMiddlewareServer struct {
	channels map[string]middleware.Channel
	nextID   int
	deleted  []string
	updated  []string
}

func newFakeMiddlewareServer(t *testing.T, chs ...middleware.Channel) (*httptest.Server, *fakeMiddlewareServer) {
	fs := &fakeMiddlewareServer{channels: map[string]middleware.Channel{}}
	for _, c := range chs {
		fs.channels[c.ID] = c
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /channels", func(w http.ResponseWriter, r *http.Request) {
		var list []middleware.Channel
		for _, c := range fs.channels {
			list = append(list, c)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"channels": list})
	})
	mux.HandleFunc("POST /channels", func(w http.ResponseWriter, r *http.Request) {
		var spec middleware.ChannelSpec
		json.NewDecoder(r.Body).Decode(&spec)
		fs.nextID++
		id := "created-" + spec.TvgID
		c := middleware.Channel{ID: id, TvgID: spec.TvgID, Name: spec.Name, GroupID: spec.GroupID, AttachedStreamIDs: spec.AttachedStreamIDs}
		fs.channels[id] = c
		json.NewEncoder(w).Encode(c)
	})
	mux.HandleFunc("PATCH /channels/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		var spec middleware.ChannelSpec
		json.NewDecoder(r.Body).Decode(&spec)
		fs.updated = append(fs.updated, id)
		c := fs.channels[id]
		c.Name = spec.Name
		c.AttachedStreamIDs = spec.AttachedStreamIDs
		fs.channels[id] = c
		json.NewEncoder(w).Encode(c)
	})
	mux.HandleFunc("DELETE /channels/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		delete(fs.channels, id)
		fs.deleted = append(fs.deleted, id)
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, fs
}

func TestReconcile_DetectsAllThreeIssueKinds(t *testing.T) {
	local := []model.ManagedChannel{
		{ID: "c-match", GroupID: "g1", MiddlewareChannelID: "mw-match", Name: "Titans", AttachedStreamIDs: []string{"s1"}},
		{ID: "c-orphan", GroupID: "g1", MiddlewareChannelID: "mw-missing", Name: "Jaguars"},
		{ID: "c-drift", GroupID: "g1", MiddlewareChannelID: "mw-drift", Name: "Texans", AttachedStreamIDs: []string{"s2"}},
	}
	remote := []middleware.Channel{
		{ID: "mw-match", GroupID: "g1", Name: "Titans", AttachedStreamIDs: []string{"s1"}},
		{ID: "mw-drift", GroupID: "g1", Name: "Texans (old name)", AttachedStreamIDs: []string{"s2"}},
		{ID: "mw-orphan-remote", GroupID: "g1", Name: "Colts"},
	}
	srv, _ := newFakeMiddlewareServer(t, remote...)
	mw := middleware.New(srv.URL, nil)
	store := newFakeStore(local...)
	r := NewReconciler(store, mw, "g1")

	result, err := r.Reconcile(context.Background(), false)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(result.IssuesFound) != 3 {
		t.Fatalf("IssuesFound = %+v, want 3", result.IssuesFound)
	}
	if result.Summary[string(IssueLocalOrphan)] != 1 || result.Summary[string(IssueRemoteOrphan)] != 1 || result.Summary[string(IssueMetadataDrift)] != 1 {
		t.Errorf("Summary = %+v", result.Summary)
	}
	if len(result.Fixed) != 0 {
		t.Errorf("Fixed = %+v, want none (autoFix=false)", result.Fixed)
	}
}

func TestReconcile_NoDiscrepanciesWhenInSync(t *testing.T) {
	local := []model.ManagedChannel{
		{ID: "c1", GroupID: "g1", MiddlewareChannelID: "mw1", Name: "Titans", AttachedStreamIDs: []string{"s1"}},
	}
	remote := []middleware.Channel{
		{ID: "mw1", GroupID: "g1", Name: "Titans", AttachedStreamIDs: []string{"s1"}},
	}
	srv, _ := newFakeMiddlewareServer(t, remote...)
	mw := middleware.New(srv.URL, nil)
	r := NewReconciler(newFakeStore(local...), mw, "g1")

	result, err := r.Reconcile(context.Background(), false)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(result.IssuesFound) != 0 {
		t.Errorf("IssuesFound = %+v, want none", result.IssuesFound)
	}
}

func TestReconcile_AutoFix_DeletesRemoteOrphanAndUpsertsLocalOrphan(t *testing.T) {
	local := []model.ManagedChannel{
		{ID: "c-orphan", GroupID: "g1", TvgID: "jag.nfl", Name: "Jaguars", MiddlewareChannelID: "mw-missing"},
	}
	remote := []middleware.Channel{
		{ID: "mw-remote-orphan", GroupID: "g1", Name: "Colts"},
	}
	srv, fs := newFakeMiddlewareServer(t, remote...)
	mw := middleware.New(srv.URL, nil)
	store := newFakeStore(local...)
	r := NewReconciler(store, mw, "g1")

	result, err := r.Reconcile(context.Background(), true)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(result.Fixed) != 2 {
		t.Fatalf("Fixed = %+v, want 2 (remote orphan deleted, local orphan created)", result.Fixed)
	}
	if len(fs.deleted) != 1 || fs.deleted[0] != "mw-remote-orphan" {
		t.Errorf("deleted = %v, want [mw-remote-orphan]", fs.deleted)
	}
	if store.upserts != 1 {
		t.Errorf("store.upserts = %d, want 1", store.upserts)
	}
	updated := store.channels["c-orphan"]
	if updated.MiddlewareChannelID == "" || updated.MiddlewareChannelID == "mw-missing" {
		t.Errorf("local orphan's MiddlewareChannelID = %q, want updated to the newly created remote id", updated.MiddlewareChannelID)
	}
	if updated.SyncStatus != model.SyncSynced {
		t.Errorf("SyncStatus = %q, want synced after recreation", updated.SyncStatus)
	}
}

func TestReconcile_AutoFix_PushesMetadataDriftToRemote(t *testing.T) {
	local := []model.ManagedChannel{
		{ID: "c-drift", GroupID: "g1", Name: "Texans", MiddlewareChannelID: "mw-drift", AttachedStreamIDs: []string{"s2"}},
	}
	remote := []middleware.Channel{
		{ID: "mw-drift", GroupID: "g1", Name: "Texans (old name)", AttachedStreamIDs: []string{"s2"}},
	}
	srv, fs := newFakeMiddlewareServer(t, remote...)
	mw := middleware.New(srv.URL, nil)
	store := newFakeStore(local...)
	r := NewReconciler(store, mw, "g1")

	if _, err := r.Reconcile(context.Background(), true); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(fs.updated) != 1 || fs.updated[0] != "mw-drift" {
		t.Errorf("updated = %v, want [mw-drift]", fs.updated)
	}
}

func TestSameStreamSet(t *testing.T) {
	if !sameStreamSet([]string{"a", "b"}, []string{"b", "a"}) {
		t.Error("sameStreamSet should ignore order")
	}
	if sameStreamSet([]string{"a"}, []string{"a", "b"}) {
		t.Error("sameStreamSet should distinguish different lengths")
	}
}
