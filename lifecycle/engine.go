// Package lifecycle runs the channel lifecycle engine for event-group mode
// (spec.md §4.11): filter candidate streams, match them to events via
// streammatch, decide create/update/reactivate for each matched event,
// compute duplicate-mode grouping and scheduled-delete times, and push the
// result to the downstream middleware. Grounded in the teacher's
// services/sports/{source_registry.go, stream_router.go, health_worker.go}
// CRUD + scheduler idiom, generalized from IPTV source health to managed
// sporting-event channel lifecycle, plus
// original_source/teamarr/consumers/scheduler.py for the background tick
// loop's start/stop/run_once/last_run shape.
package lifecycle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"regexp"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unyeco/sportguide/internal/middleware"
	"github.com/unyeco/sportguide/model"
	"github.com/unyeco/sportguide/normalize"
	"github.com/unyeco/sportguide/pkg/audit"
	"github.com/unyeco/sportguide/streammatch"
)

// CandidateStream is one stream offered to the lifecycle engine for
// classification against a group's regex and the matcher.
type CandidateStream struct {
	ID   string
	Name string
}

// Store is the persistence surface the engine needs for ManagedChannel
// rows; package store implements this against pgx/v5.
type Store interface {
	ListByGroup(ctx context.Context, groupID string) ([]model.ManagedChannel, error)
	Upsert(ctx context.Context, ch model.ManagedChannel) error
	MarkDeleted(ctx context.Context, id string, reason string) error
}

// MatchCache memoizes stream-to-event matches across generations
// (spec.md §3 StreamCacheEntry); package store implements this against
// pgx/v5. Optional — a nil cache on Engine just re-matches every stream.
type MatchCache interface {
	Lookup(ctx context.Context, fingerprint string, generation int64) (model.StreamCacheEntry, bool, error)
	Put(ctx context.Context, entry model.StreamCacheEntry) error
}

// EventLookup hydrates a full model.Event from an id, used to recover the
// event a cache hit named without re-running the matcher. Package store's
// EventStore implements this against the local events snapshot table.
type EventLookup interface {
	GetByID(ctx context.Context, id string) (model.Event, bool, error)
}

// Engine runs the six-step per-group pipeline spec.md §4.11 describes.
type Engine struct {
	store      Store
	matcher    *streammatch.Matcher
	middleware *middleware.Client
	cache      MatchCache
	events     EventLookup
	auditPool  *pgxpool.Pool
}

// New constructs an Engine. The match cache and event lookup are unset;
// call SetMatchCache/SetEventLookup to enable skip-rematching across
// generations.
func New(store Store, matcher *streammatch.Matcher, mw *middleware.Client) *Engine {
	return &Engine{store: store, matcher: matcher, middleware: mw}
}

// SetMatchCache attaches a MatchCache so Run can skip re-matching streams
// whose fingerprint was already resolved under the current generation.
// Requires an EventLookup (SetEventLookup) to be useful — without one, a
// cache hit has nowhere to recover the full Event from, so Run falls back
// to re-matching when the lookup is absent.
func (e *Engine) SetMatchCache(cache MatchCache) {
	e.cache = cache
}

// SetEventLookup attaches the EventLookup a cache hit hydrates its Event from.
func (e *Engine) SetEventLookup(events EventLookup) {
	e.events = events
}

// SetAuditPool attaches the pool pkg/audit writes channel lifecycle
// decisions to. A nil pool (the default) just skips audit writes.
func (e *Engine) SetAuditPool(pool *pgxpool.Pool) {
	e.auditPool = pool
}

// logAudit records a lifecycle decision, best-effort: a failed write is
// logged but never returned, matching pkg/audit's own never-block contract.
func (e *Engine) logAudit(ctx context.Context, action, resourceID string, details map[string]interface{}) {
	if e.auditPool == nil {
		return
	}
	if err := audit.LogAction(ctx, e.auditPool, "scheduler", "", action, "channel", resourceID, details); err != nil {
		log.Printf("[lifecycle/engine] audit write failed for %s %s: %v", action, resourceID, err)
	}
}

// gameIndicatorRe matches "vs"/"at"/"v"/"x" team-pair separators, plus "@"
// disambiguated from a date separator (spec.md §4.11 step 1) by requiring
// a letter on each side (optional whitespace between), so digit@digit
// does not match.
var gameIndicatorRe = regexp.MustCompile(`(?i)\b(vs\.?|at|v|x)\b|(?:[A-Za-z]\s*@\s*[A-Za-z])`)

// matchedStream pairs a candidate stream with its resolved event and, if
// the group defines one, the exception keyword it tripped.
type matchedStream struct {
	stream    CandidateStream
	result    streammatch.Result
	exception *model.ExceptionKeyword
}

// Run executes the group pipeline: filter, match, decide, compute delete
// times and duplicate grouping, and push to the middleware. generation
// identifies this group's current matching epoch (spec.md §3: a
// StreamCacheEntry is invalidated once the owning group's generation
// counter advances); callers bump it whenever the group's regex/keyword
// config changes.
func (e *Engine) Run(ctx context.Context, group model.EventGroup, candidates []CandidateStream, generation int64) error {
	filtered := e.filterCandidates(group, candidates)
	now := time.Now().UTC()

	var matched []matchedStream
	for _, s := range filtered {
		res, fingerprint := e.matchWithCache(ctx, s, now, generation, group)
		if !res.Matched {
			continue
		}
		ms := matchedStream{stream: s, result: res}
		if kw := matchException(group, s.Name); kw != nil {
			ms.exception = kw
		}
		matched = append(matched, ms)
		e.cacheResult(ctx, fingerprint, res, generation, now)
	}

	// Step 3-5: group matched streams by (event, league, exception keyword)
	// per the group's duplicate mode, then decide create/update/reactivate.
	type groupKey struct {
		eventID string
		league  string
		keyword string // "" unless DuplicateMode is "separate" and a keyword matched
	}
	buckets := make(map[groupKey][]matchedStream)
	for _, ms := range matched {
		key := groupKey{eventID: ms.result.Event.ID, league: ms.result.League}
		if ms.exception != nil && group.DuplicateMode == model.ExceptionSeparate {
			key.keyword = ms.exception.ID
		}
		buckets[key] = append(buckets[key], ms)
	}

	existing, err := e.store.ListByGroup(ctx, group.ID)
	if err != nil {
		return err
	}
	existingByKey := make(map[groupKey]model.ManagedChannel)
	for _, ch := range existing {
		existingByKey[groupKey{eventID: ch.EventID, league: ch.League, keyword: ch.ExceptionKeywordID}] = ch
	}

	now = time.Now().UTC()
	for key, streams := range buckets {
		streamIDs := attachedStreamIDs(streams, group)
		primary := streamIDs[0]
		event := streams[0].result.Event

		createAt := event.Start
		if group.CreateTimingHours > 0 {
			createAt = event.Start.Add(-time.Duration(group.CreateTimingHours * float64(time.Hour)))
		}
		if now.Before(createAt) {
			continue // not yet time to create per the group's create-timing policy
		}

		ch, exists := existingByKey[key]
		if !exists {
			ch = model.ManagedChannel{
				ID:                 newChannelID(key.eventID, key.keyword),
				GroupID:            group.ID,
				EventID:            key.eventID,
				League:             key.league,
				ExceptionKeywordID: key.keyword,
				TvgID:              newChannelID(key.eventID, key.keyword),
				CreatedAt:          now,
			}
		}
		ch.Name = channelName(event, streams, group)
		ch.AttachedStreamIDs = streamIDs
		ch.PrimaryStreamID = primary
		ch.DeletedAt = nil // reactivate if it had been deleted while the event is still in window
		ch.ScheduledDeleteAt = event.Start.Add(time.Duration(group.DeleteGraceMins) * time.Minute)
		ch.SyncStatus = model.SyncPending

		if err := e.pushToMiddleware(ctx, &ch, exists); err != nil {
			ch.SyncStatus = model.SyncError
		} else {
			ch.SyncStatus = model.SyncSynced
		}
		if err := e.store.Upsert(ctx, ch); err != nil {
			return err
		}

		action := "channel.update"
		if !exists {
			action = "channel.create"
		}
		e.logAudit(ctx, action, ch.ID, map[string]interface{}{
			"event_id": ch.EventID,
			"league":   ch.League,
			"name":     ch.Name,
		})
	}

	return nil
}

// fingerprint hashes the normalized stream name plus date, matching
// spec.md §3's StreamCacheEntry key.
func fingerprint(name string, date time.Time) string {
	sum := sha256.Sum256([]byte(normalize.Text(name) + "|" + date.Format("2006-01-02")))
	return hex.EncodeToString(sum[:])
}

// matchWithCache consults the match cache before running the matcher,
// skipping re-matching when an entry is still valid for generation and its
// Event can be hydrated from the event lookup. Either dependency missing
// falls back to a full match.
func (e *Engine) matchWithCache(ctx context.Context, s CandidateStream, now time.Time, generation int64, group model.EventGroup) (streammatch.Result, string) {
	fp := fingerprint(s.Name, now)
	if e.cache != nil && e.events != nil {
		if entry, ok, err := e.cache.Lookup(ctx, fp, generation); err == nil && ok {
			if event, found, err := e.events.GetByID(ctx, entry.EventID); err == nil && found {
				return streammatch.Result{Matched: true, Event: event, League: entry.League, Tier: entry.Tier}, fp
			}
		}
	}
	return e.matcher.Match(ctx, s.Name, exceptionSynonyms(group)...), fp
}

// exceptionSynonyms flattens a group's exception-keyword synonym lists for
// the normalizer's keyword-strip step (spec.md §4.2 step 6) — distinct from
// matchException's routing decision, this just keeps the keyword text out
// of the fragment the team matcher parses.
func exceptionSynonyms(group model.EventGroup) []string {
	var out []string
	for _, kw := range group.ExceptionKeywords {
		out = append(out, kw.Synonyms...)
	}
	return out
}

// cacheResult records a fresh match, ignoring store errors — a cache miss
// on the next run just re-matches, it never blocks the pipeline.
func (e *Engine) cacheResult(ctx context.Context, fp string, res streammatch.Result, generation int64, now time.Time) {
	if e.cache == nil {
		return
	}
	_ = e.cache.Put(ctx, model.StreamCacheEntry{
		Fingerprint: fp,
		EventID:     res.Event.ID,
		League:      res.League,
		Tier:        res.Tier,
		Generation:  generation,
		LastSeen:    now,
	})
}

// filterCandidates applies the group's include/exclude regex and the
// game-indicator test (spec.md §4.11 step 1).
func (e *Engine) filterCandidates(group model.EventGroup, candidates []CandidateStream) []CandidateStream {
	var include, exclude *regexp.Regexp
	if group.IncludeRegex != "" {
		include = regexp.MustCompile(group.IncludeRegex)
	}
	if group.ExcludeRegex != "" {
		exclude = regexp.MustCompile(group.ExcludeRegex)
	}

	out := make([]CandidateStream, 0, len(candidates))
	for _, c := range candidates {
		if include != nil && !include.MatchString(c.Name) {
			continue
		}
		if exclude != nil && exclude.MatchString(c.Name) {
			continue
		}
		if !gameIndicatorRe.MatchString(c.Name) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matchException(group model.EventGroup, name string) *model.ExceptionKeyword {
	for i, kw := range group.ExceptionKeywords {
		for _, syn := range kw.Synonyms {
			if syn != "" && containsFold(name, syn) {
				return &group.ExceptionKeywords[i]
			}
		}
	}
	return nil
}

func containsFold(s, substr string) bool {
	return len(s) >= len(substr) && regexp.MustCompile(`(?i)`+regexp.QuoteMeta(substr)).MatchString(s)
}

// attachedStreamIDs returns the attached stream ids sorted as plain
// strings; Run takes the first as the primary stream. No group setting
// pins a primary, and ids compare lexically, not numerically.
func attachedStreamIDs(streams []matchedStream, group model.EventGroup) []string {
	ids := make([]string, len(streams))
	for i, s := range streams {
		ids[i] = s.stream.ID
	}
	sort.Strings(ids)
	return ids
}

func channelName(event model.Event, streams []matchedStream, group model.EventGroup) string {
	name := event.Away.Name + " at " + event.Home.Name
	if group.DuplicateMode == model.ExceptionSeparate {
		for _, s := range streams {
			if s.exception != nil && len(s.exception.Synonyms) > 0 {
				return name + " (" + s.exception.Synonyms[0] + ")"
			}
		}
	}
	return name
}

func newChannelID(eventID, keyword string) string {
	if keyword == "" {
		return "ch-" + eventID
	}
	return "ch-" + eventID + "-" + keyword
}

// pushToMiddleware creates or updates the middleware's channel record for ch.
func (e *Engine) pushToMiddleware(ctx context.Context, ch *model.ManagedChannel, exists bool) error {
	spec := middleware.ChannelSpec{
		TvgID:             ch.TvgID,
		Name:              ch.Name,
		GroupID:           ch.GroupID,
		AttachedStreamIDs: ch.AttachedStreamIDs,
	}
	if exists && ch.MiddlewareChannelID != "" {
		_, err := e.middleware.UpdateChannel(ctx, ch.MiddlewareChannelID, spec)
		return err
	}
	created, err := e.middleware.CreateChannel(ctx, spec)
	if err != nil {
		return err
	}
	ch.MiddlewareChannelID = created.ID
	return nil
}

// ProcessScheduledDeletions deletes every ManagedChannel past its
// ScheduledDeleteAt, both locally and on the middleware (spec.md §4.11
// scheduler task (a)). Ported from
// original_source/teamarr/consumers/scheduler.py's
// _task_process_deletions / process_scheduled_deletions.
func (e *Engine) ProcessScheduledDeletions(ctx context.Context, groupID string) (deleted int, errCount int, err error) {
	channels, err := e.store.ListByGroup(ctx, groupID)
	if err != nil {
		return 0, 0, err
	}
	now := time.Now().UTC()
	for _, ch := range channels {
		if ch.DeletedAt != nil || now.Before(ch.ScheduledDeleteAt) {
			continue
		}
		if ch.MiddlewareChannelID != "" {
			if delErr := e.middleware.DeleteChannel(ctx, ch.MiddlewareChannelID); delErr != nil {
				errCount++
				continue
			}
		}
		if delErr := e.store.MarkDeleted(ctx, ch.ID, "scheduled_delete_at elapsed"); delErr != nil {
			errCount++
			continue
		}
		e.logAudit(ctx, "channel.delete", ch.ID, map[string]interface{}{
			"event_id": ch.EventID,
			"reason":   "scheduled_delete_at elapsed",
		})
		deleted++
	}
	return deleted, errCount, nil
}
