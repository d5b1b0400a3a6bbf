package lifecycle

import (
	"context"

	"github.com/unyeco/sportguide/internal/middleware"
	"github.com/unyeco/sportguide/model"
)

// IssueKind classifies one reconciliation discrepancy (spec.md §4.11).
type IssueKind string

const (
	IssueLocalOrphan   IssueKind = "local_orphan"   // local row has no middleware channel
	IssueRemoteOrphan  IssueKind = "remote_orphan"  // middleware channel has no local row
	IssueMetadataDrift IssueKind = "metadata_drift" // both exist but disagree
)

// Issue is one discrepancy found between the local ManagedChannel store
// and the downstream middleware's channel listing.
type Issue struct {
	Kind      IssueKind
	ChannelID string // local ManagedChannel.ID, "" for a pure remote orphan
	RemoteID  string // middleware channel id, "" for a pure local orphan
	Detail    string
}

// Result summarizes one reconciliation pass.
type Result struct {
	IssuesFound []Issue
	Fixed       []Issue
	Summary     map[string]int
}

// Reconciler compares local ManagedChannel rows against the downstream
// middleware's listing (spec.md §4.11 Reconciliation).
type Reconciler struct {
	store      Store
	middleware *middleware.Client
	groupID    string
}

// NewReconciler constructs a Reconciler scoped to one group's channels.
func NewReconciler(store Store, mw *middleware.Client, groupID string) *Reconciler {
	return &Reconciler{store: store, middleware: mw, groupID: groupID}
}

// Reconcile detects discrepancies and, when autoFix is true, repairs them:
// a remote orphan is deleted on the middleware, a local orphan is
// recreated, and metadata drift is pushed from local to remote (local is
// authoritative — spec.md §4.11 step 6 frames the middleware as a pure
// projection of local decisions). Scheduled runs always pass autoFix=false
// per spec.md §4.11's "detect-only by default".
func (r *Reconciler) Reconcile(ctx context.Context, autoFix bool) (Result, error) {
	local, err := r.store.ListByGroup(ctx, r.groupID)
	if err != nil {
		return Result{}, err
	}
	remote, err := r.middleware.ListChannels(ctx)
	if err != nil {
		return Result{}, err
	}

	localByMwID := make(map[string]model.ManagedChannel)
	for _, ch := range local {
		if ch.DeletedAt == nil && ch.MiddlewareChannelID != "" {
			localByMwID[ch.MiddlewareChannelID] = ch
		}
	}
	remoteByID := make(map[string]middleware.Channel)
	for _, rc := range remote {
		if rc.GroupID == r.groupID {
			remoteByID[rc.ID] = rc
		}
	}

	var issues []Issue
	for _, ch := range local {
		if ch.DeletedAt != nil {
			continue
		}
		rc, ok := remoteByID[ch.MiddlewareChannelID]
		if !ok {
			issues = append(issues, Issue{Kind: IssueLocalOrphan, ChannelID: ch.ID, Detail: "no matching middleware channel"})
			continue
		}
		if rc.Name != ch.Name || !sameStreamSet(rc.AttachedStreamIDs, ch.AttachedStreamIDs) {
			issues = append(issues, Issue{Kind: IssueMetadataDrift, ChannelID: ch.ID, RemoteID: rc.ID, Detail: "name or attached streams differ"})
		}
	}
	for _, rc := range remote {
		if rc.GroupID != r.groupID {
			continue
		}
		if _, ok := localByMwID[rc.ID]; !ok {
			issues = append(issues, Issue{Kind: IssueRemoteOrphan, RemoteID: rc.ID, Detail: "no matching local ManagedChannel"})
		}
	}

	result := Result{IssuesFound: issues, Summary: summarize(issues)}
	if !autoFix {
		return result, nil
	}

	for _, issue := range issues {
		if err := r.fix(ctx, issue, local, localByMwID); err != nil {
			continue
		}
		result.Fixed = append(result.Fixed, issue)
	}
	return result, nil
}

func (r *Reconciler) fix(ctx context.Context, issue Issue, local []model.ManagedChannel, localByMwID map[string]model.ManagedChannel) error {
	switch issue.Kind {
	case IssueRemoteOrphan:
		return r.middleware.DeleteChannel(ctx, issue.RemoteID)
	case IssueLocalOrphan:
		for _, ch := range local {
			if ch.ID != issue.ChannelID {
				continue
			}
			created, err := r.middleware.CreateChannel(ctx, middleware.ChannelSpec{
				TvgID:             ch.TvgID,
				Name:              ch.Name,
				GroupID:           ch.GroupID,
				AttachedStreamIDs: ch.AttachedStreamIDs,
			})
			if err != nil {
				return err
			}
			ch.MiddlewareChannelID = created.ID
			ch.SyncStatus = model.SyncSynced
			return r.store.Upsert(ctx, ch)
		}
		return nil
	case IssueMetadataDrift:
		for _, ch := range local {
			if ch.ID != issue.ChannelID {
				continue
			}
			_, err := r.middleware.UpdateChannel(ctx, issue.RemoteID, middleware.ChannelSpec{
				TvgID:             ch.TvgID,
				Name:              ch.Name,
				GroupID:           ch.GroupID,
				AttachedStreamIDs: ch.AttachedStreamIDs,
			})
			return err
		}
	}
	return nil
}

func sameStreamSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]bool, len(a))
	for _, id := range a {
		seen[id] = true
	}
	for _, id := range b {
		if !seen[id] {
			return false
		}
	}
	return true
}

func summarize(issues []Issue) map[string]int {
	out := map[string]int{
		string(IssueLocalOrphan):   0,
		string(IssueRemoteOrphan):  0,
		string(IssueMetadataDrift): 0,
	}
	for _, i := range issues {
		out[string(i.Kind)]++
	}
	return out
}
