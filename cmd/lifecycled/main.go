// Command lifecycled is the channel lifecycle daemon (spec.md §4.11): for
// every configured event group it runs the stream-matching engine against
// the middleware's live stream list, then lets each group's Scheduler
// handle scheduled deletions, detect-only reconciliation, and history
// cleanup on its own tick. Wiring follows the same
// services/sports/cmd/sports graceful-shutdown skeleton cmd/epgd uses.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/unyeco/sportguide/internal/config"
	"github.com/unyeco/sportguide/internal/logger"
	"github.com/unyeco/sportguide/internal/metrics"
	"github.com/unyeco/sportguide/internal/middleware"
	"github.com/unyeco/sportguide/leaguecache"
	"github.com/unyeco/sportguide/lifecycle"
	"github.com/unyeco/sportguide/model"
	"github.com/unyeco/sportguide/pkg/telemetry"
	"github.com/unyeco/sportguide/providers"
	"github.com/unyeco/sportguide/providers/cache"
	"github.com/unyeco/sportguide/providers/espn"
	"github.com/unyeco/sportguide/providers/tsdb"
	"github.com/unyeco/sportguide/store"
	"github.com/unyeco/sportguide/streammatch"
	"github.com/unyeco/sportguide/teammatch"

	goredis "github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load(config.ModeLifecycle)
	if err != nil {
		slog.Error("config load failed", "error", err)
		telemetry.CaptureError(err, map[string]string{"operation": "config.load"})
		telemetry.Flush()
		os.Exit(1)
	}

	log := logger.New(getEnv("LOG_FORMAT", "json"), getEnv("LOG_LEVEL", "info"))
	slog.SetDefault(log)

	if err := telemetry.InitSentry(cfg.SentryDSN, "lifecycled", getEnv("GIT_SHA", "dev")); err != nil {
		log.Error("sentry init failed", "error", err)
	}
	defer telemetry.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("postgres connect failed", "error", err)
		telemetry.CaptureError(err, map[string]string{"operation": "postgres.connect"})
		telemetry.Flush()
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := goredis.NewClient(&goredis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	providerCache := cache.NewRedisStore(redisClient)

	leagueMappings := store.NewLeagueMappingStore(pool)
	leagueConfigs := store.NewLeagueConfigStore(pool)
	eventGroups := store.NewEventGroupStore(pool)
	managedChannels := store.NewManagedChannelStore(pool)
	streamCache := store.NewStreamCacheStore(pool)
	events := store.NewEventStore(pool)

	registry := providers.NewRegistry()
	registry.Register(1, "tsdb", tsdb.New(tsdb.Config{
		APIKey:            cfg.TSDBAPIKey,
		RequestsPerMinute: cfg.DefaultRequestsPerMinute,
	}, providerCache, leagueMappings), true)
	registry.Register(2, "espn", espn.New(espn.Config{}, providerCache, store.NewESPNMapper(leagueMappings)), true)

	groups, err := eventGroups.List(ctx)
	if err != nil {
		log.Error("list event groups failed", "error", err)
		telemetry.CaptureError(err, map[string]string{"operation": "eventgroups.list"})
		telemetry.Flush()
		os.Exit(1)
	}
	if len(groups) == 0 {
		log.Warn("no event groups configured — lifecycled has nothing to run")
	}

	leagues := distinctCandidateLeagues(groups)
	lc := leaguecache.New(registry, leagues)
	if err := lc.Refresh(ctx, 8); err != nil {
		log.Error("initial league cache refresh failed", "error", err)
	}

	matcherCfg := streammatch.Config{
		EnabledLeagues: leagues,
		LeagueSport:    make(map[string]string),
	}
	for _, l := range leagues {
		if lcfg, ok, err := leagueConfigs.Get(ctx, l); err == nil && ok {
			matcherCfg.LeagueSport[l] = lcfg.Sport
			if lcfg.Sport == "soccer" {
				matcherCfg.SoccerEnabled = true
			}
		}
	}

	matcher := streammatch.New(registry, lc, matcherCfg, rosterFor(lc))

	mwBaseURL := getEnv("MIDDLEWARE_BASE_URL", "http://localhost:9000")
	mw := middleware.New(mwBaseURL, &http.Client{Timeout: 15 * time.Second})

	engine := lifecycle.New(managedChannels, matcher, mw)
	engine.SetMatchCache(streamCache)
	engine.SetEventLookup(events)
	engine.SetAuditPool(pool)

	interval := time.Duration(cfg.SchedulerIntervalMinutes) * time.Minute

	schedulers := make([]*lifecycle.Scheduler, 0, len(groups))
	for _, group := range groups {
		reconciler := lifecycle.NewReconciler(managedChannels, mw, group.ID)
		sched := lifecycle.NewScheduler(engine, reconciler, managedChannels, group.ID, interval, 90)
		sched.Start(ctx)
		schedulers = append(schedulers, sched)

		go runMatchLoop(ctx, log, engine, mw, group, interval)
	}

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := lc.Refresh(ctx, 8); err != nil {
					log.Error("league cache refresh failed", "error", err)
				}
			}
		}
	}()

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(telemetry.PanicRecoveryMiddleware("lifecycled"))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(func(next http.Handler) http.Handler { return metrics.Middleware("lifecycled", next) })

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/metrics", metrics.Handler().ServeHTTP)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("lifecycled listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("lifecycled shutting down")

	for _, s := range schedulers {
		s.Stop(30 * time.Second)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", "error", err)
	}
}

// runMatchLoop periodically pulls the middleware's live stream list and
// runs the engine's match-and-sync pipeline for one group. The Scheduler
// (started alongside this loop) only owns deletions/reconciliation/history
// cleanup — matching new streams against the group's events is this
// loop's job, mirroring how the two concerns are split in spec.md §4.11.
func runMatchLoop(ctx context.Context, log *slog.Logger, engine *lifecycle.Engine, mw *middleware.Client, group model.EventGroup, interval time.Duration) {
	tick := func() {
		streams, err := mw.ListStreams(ctx, nil)
		if err != nil {
			log.Error("list streams failed", "group_id", group.ID, "error", err)
			return
		}
		candidates := make([]lifecycle.CandidateStream, 0, len(streams))
		for _, s := range streams {
			candidates = append(candidates, lifecycle.CandidateStream{ID: s.ID, Name: s.Name})
		}
		generation := groupGeneration(group)
		if err := engine.Run(ctx, group, candidates, generation); err != nil {
			log.Error("lifecycle run failed", "group_id", group.ID, "error", err)
		}
	}

	tick()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick()
		}
	}
}

// groupGeneration derives a stable matching epoch from the group's own
// regex/keyword configuration, so restarting lifecycled with an unchanged
// group leaves the stream-match cache valid, while any edit to the group's
// matching rules naturally bumps the epoch and invalidates stale entries —
// without needing a separate "config version" column.
func groupGeneration(group model.EventGroup) int64 {
	h := sha256.New()
	h.Write([]byte(group.IncludeRegex))
	h.Write([]byte(group.ExcludeRegex))
	h.Write([]byte(group.TeamRegex))
	h.Write([]byte(group.DateRegex))
	h.Write([]byte(group.TimeRegex))
	for _, kw := range group.ExceptionKeywords {
		h.Write([]byte(kw.ID))
		for _, syn := range kw.Synonyms {
			h.Write([]byte(syn))
		}
	}
	sum := h.Sum(nil)
	return int64(binary.BigEndian.Uint64(sum[:8]))
}

// rosterFor adapts leaguecache's in-process team index to the
// teammatch.Candidate shape streammatch needs, using the same primary-name
// set leaguecache itself indexes teams by (name, short name, abbreviation).
func rosterFor(lc *leaguecache.Cache) func(league string) []teammatch.Candidate {
	return func(league string) []teammatch.Candidate {
		teams := lc.TeamsInLeague(league)
		out := make([]teammatch.Candidate, 0, len(teams))
		for _, t := range teams {
			var primary []string
			primary = append(primary, t.Name)
			if t.ShortName != "" {
				primary = append(primary, t.ShortName)
			}
			if t.Abbreviation != "" {
				primary = append(primary, t.Abbreviation)
			}
			out = append(out, teammatch.Candidate{Team: t, PrimaryNames: primary})
		}
		return out
	}
}

func distinctCandidateLeagues(groups []model.EventGroup) []string {
	seen := map[string]bool{}
	var out []string
	for _, g := range groups {
		for _, l := range g.CandidateLeagues {
			if seen[l] {
				continue
			}
			seen[l] = true
			out = append(out, l)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
