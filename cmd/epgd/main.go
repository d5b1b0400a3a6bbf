// Command epgd is the EPG generation daemon (spec.md §4.9): on a fixed
// interval it loads every team channel config, runs the orchestrator to
// build each team's gap-free programme timeline, and serves the result as
// XMLTV over HTTP. Wiring follows the teacher's services/sports/cmd/sports
// graceful-shutdown skeleton (signal.NotifyContext, background goroutines
// launched before the HTTP server, a final bounded Shutdown) and
// services/channel/cmd/channel's chi router setup.
package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/unyeco/sportguide/internal/config"
	"github.com/unyeco/sportguide/internal/logger"
	"github.com/unyeco/sportguide/internal/metrics"
	"github.com/unyeco/sportguide/leaguecache"
	"github.com/unyeco/sportguide/model"
	"github.com/unyeco/sportguide/orchestrator"
	"github.com/unyeco/sportguide/pkg/telemetry"
	"github.com/unyeco/sportguide/providers"
	"github.com/unyeco/sportguide/providers/cache"
	"github.com/unyeco/sportguide/providers/espn"
	"github.com/unyeco/sportguide/providers/tsdb"
	"github.com/unyeco/sportguide/store"
	"github.com/unyeco/sportguide/xmltv"
)

// defaultDaysAhead is the lookahead window, in days, every generation run
// uses.
const defaultDaysAhead = 7

func main() {
	cfg, err := config.Load(config.ModeEPG)
	if err != nil {
		slog.Error("config load failed", "error", err)
		telemetry.CaptureError(err, map[string]string{"operation": "config.load"})
		telemetry.Flush()
		os.Exit(1)
	}

	log := logger.New(getEnv("LOG_FORMAT", "json"), getEnv("LOG_LEVEL", "info"))
	slog.SetDefault(log)

	if err := telemetry.InitSentry(cfg.SentryDSN, "epgd", getEnv("GIT_SHA", "dev")); err != nil {
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
	teamChannels := store.NewTeamChannelStore(pool)
	templates := store.NewTemplateStore(pool)

	registry := providers.NewRegistry()
	registry.Register(1, "tsdb", tsdb.New(tsdb.Config{
		APIKey:            cfg.TSDBAPIKey,
		RequestsPerMinute: cfg.DefaultRequestsPerMinute,
	}, providerCache, leagueMappings), true)
	registry.Register(2, "espn", espn.New(espn.Config{}, providerCache, store.NewESPNMapper(leagueMappings)), true)

	orch := orchestrator.New(registry)

	gen := &generator{
		log:           log,
		pool:          pool,
		registry:      registry,
		orchestrator:  orch,
		teamChannels:  teamChannels,
		templates:     templates,
		leagueConfigs: leagueConfigs,
		settings: orchestrator.Settings{
			DefaultGameDuration: 3 * time.Hour,
		},
		daysAhead: defaultDaysAhead,
	}

	interval := time.Duration(cfg.SchedulerIntervalMinutes) * time.Minute
	go gen.runLoop(ctx, interval)

	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(telemetry.PanicRecoveryMiddleware("epgd"))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(func(next http.Handler) http.Handler { return metrics.Middleware("epgd", next) })

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/metrics", metrics.Handler().ServeHTTP)
	r.Get("/epg.xml", gen.handleXMLTV)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info("epgd listening", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("epgd shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", "error", err)
	}
}

// generator owns the periodically-refreshed XMLTV document. Each tick builds
// and refreshes its own leaguecache for the leagues the teams reference.
type generator struct {
	log           *slog.Logger
	pool          *pgxpool.Pool
	registry      *providers.Registry
	orchestrator  *orchestrator.Orchestrator
	teamChannels  *store.TeamChannelStore
	templates     *store.TemplateStore
	leagueConfigs *store.LeagueConfigStore
	settings      orchestrator.Settings
	daysAhead     int

	mu       sync.RWMutex
	xmltvBuf []byte
}

// runLoop runs one generation immediately, then on interval, matching the
// teacher's "run once at startup, then tick" daemon convention.
func (g *generator) runLoop(ctx context.Context, interval time.Duration) {
	g.tick(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.tick(ctx)
		}
	}
}

func (g *generator) tick(ctx context.Context) {
	started := time.Now()
	teams, err := g.teamChannels.List(ctx)
	if err != nil {
		g.log.Error("list team channels failed", "error", err)
		metrics.GenerationFailures.WithLabelValues("*", "list_team_channels").Inc()
		return
	}
	if len(teams) == 0 {
		g.log.Warn("no team channel configs configured")
		return
	}

	teams = g.dropUnconfiguredLeagues(ctx, teams)
	if len(teams) == 0 {
		g.log.Warn("no team channel configs with a recognized league")
		return
	}

	leagues := distinctLeagues(teams)
	lc := leaguecache.New(g.registry, leagues)
	if err := lc.Refresh(ctx, 8); err != nil {
		g.log.Error("league cache refresh failed", "error", err)
		return
	}

	tplByID := make(map[string]model.Template)
	for _, t := range teams {
		if _, ok := tplByID[t.TemplateID]; ok {
			continue
		}
		tpl, ok, err := g.templates.Get(ctx, t.TemplateID)
		if err != nil {
			g.log.Error("load template failed", "template_id", t.TemplateID, "error", err)
			continue
		}
		if ok {
			tplByID[t.TemplateID] = tpl
		}
	}

	results, stats, err := g.orchestrator.Generate(ctx, teams, tplByID, g.daysAhead, g.settings)
	if err != nil {
		g.log.Error("generation failed", "error", err)
		return
	}

	channels := make([]xmltv.Channel, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			g.log.Error("team generation failed", "team_id", r.Config.TeamID, "error", r.Err)
			metrics.GenerationFailures.WithLabelValues(r.Config.TeamID, "processTeam").Inc()
			continue
		}
		channels = append(channels, xmltv.Channel{
			TvgID:    r.Config.ChannelID,
			Name:     r.Config.TeamID,
			LogoURL:  r.Config.Logo,
			Programs: r.Programs,
		})
	}

	var buf bytes.Buffer
	if err := xmltv.Write(&buf, channels, xmltv.WriteOptions{GeneratorName: "sportguide EPG"}); err != nil {
		g.log.Error("xmltv write failed", "error", err)
		return
	}

	g.mu.Lock()
	g.xmltvBuf = buf.Bytes()
	g.mu.Unlock()

	g.log.Info("generation complete",
		"channels", stats.NumChannels,
		"programmes", stats.NumProgrammes,
		"events", stats.NumEvents,
		"duration", time.Since(started))
}

func (g *generator) handleXMLTV(w http.ResponseWriter, r *http.Request) {
	g.mu.RLock()
	buf := g.xmltvBuf
	g.mu.RUnlock()
	if buf == nil {
		http.Error(w, "epg not generated yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Write(buf)
}

// dropUnconfiguredLeagues filters out teams whose league has no
// league_config row, rather than letting a typo'd or retired league code
// silently fail deeper in the orchestrator with a provider lookup miss.
func (g *generator) dropUnconfiguredLeagues(ctx context.Context, teams []model.TeamChannelConfig) []model.TeamChannelConfig {
	out := make([]model.TeamChannelConfig, 0, len(teams))
	checked := map[string]bool{}
	for _, t := range teams {
		if _, ok := checked[t.League]; !ok {
			_, known, err := g.leagueConfigs.Get(ctx, t.League)
			if err != nil {
				g.log.Error("league config lookup failed", "league", t.League, "error", err)
				known = false
			}
			checked[t.League] = known
		}
		if checked[t.League] {
			out = append(out, t)
		} else {
			g.log.Warn("skipping team with unconfigured league", "team_id", t.TeamID, "league", t.League)
		}
	}
	return out
}

func distinctLeagues(teams []model.TeamChannelConfig) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range teams {
		if seen[t.League] {
			continue
		}
		seen[t.League] = true
		out = append(out, t.League)
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
