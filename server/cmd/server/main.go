package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/tolerancevision/tolerancevision/pkg/registry"
	"github.com/tolerancevision/tolerancevision/server/internal/alerts"
	"github.com/tolerancevision/tolerancevision/server/internal/api"
	"github.com/tolerancevision/tolerancevision/server/internal/auth"
	"github.com/tolerancevision/tolerancevision/server/internal/config"
	"github.com/tolerancevision/tolerancevision/server/internal/events"
	"github.com/tolerancevision/tolerancevision/server/internal/metrics"
	"github.com/tolerancevision/tolerancevision/server/internal/store"
	"github.com/tolerancevision/tolerancevision/server/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	uiDir := flag.String("ui-dir", "", "serve the built UI from this directory (e.g. ui/dist); leave empty to disable")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	level := new(slog.LevelVar)
	level.Set(cfg.Server.Level())
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	slog.Info("window-qc-server starting",
		"config", *configPath,
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
		"warning_multiplier", cfg.Tolerance.WarningMultiplier,
		"events", cfg.Events.Enabled,
		"history_ttl", cfg.Server.History.TTL,
	)

	if err := run(cfg, *configPath, *uiDir, level); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
	slog.Info("window-qc-server stopped")
}

func run(cfg *config.Config, configPath, uiDir string, level *slog.LevelVar) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reg := registry.New(registry.WithWarningMultiplier(cfg.Tolerance.WarningMultiplier))
	engine := alerts.New(cfg.Alerts)

	history := store.New(cfg.Server.History.TTL)
	pub := events.Multi{history}
	if cfg.Events.Enabled {
		pub = append(pub, events.NewKafka(cfg.Events.Brokers, cfg.Events.Topic))
		slog.Info("publishing QC events", "brokers", cfg.Events.Brokers, "topic", cfg.Events.Topic)
	}
	defer func() {
		if err := pub.Close(); err != nil {
			slog.Warn("closing event publisher", "err", err)
		}
	}()

	hub := ws.New(reg, cfg.Server.BroadcastInterval, ws.WithOrigins(cfg.Server.CORS.AllowedOrigins))

	apiHandler := api.New(reg, api.Options{
		Project:      cfg.Project,
		DefaultLimit: cfg.Tolerance.DefaultLimit,
		Alerts:       engine,
		Events:       pub,
		Notifier:     hub,
		History:      history,
	})

	router := mux.NewRouter()
	router.PathPrefix("/api/").Handler(apiHandler)
	router.Handle("/metrics", metrics.Handler(reg, engine)).Methods(http.MethodGet)
	router.Handle("/ws/stream", hub)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "ok")
	}).Methods(http.MethodGet)
	if uiDir != "" {
		router.PathPrefix("/").Handler(spaHandler(uiDir))
		slog.Info("serving UI static files", "dir", uiDir)
	}

	var h http.Handler = router
	h = auth.APIKey(cfg.Server.Auth.Mode, cfg.Server.Auth.EffectiveHeader(), cfg.Server.Auth.Key(), "/healthz")(h)
	if len(cfg.Server.CORS.AllowedOrigins) > 0 {
		h = handlers.CORS(
			handlers.AllowedOrigins(cfg.Server.CORS.AllowedOrigins),
			handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}),
			handlers.AllowedHeaders([]string{"Content-Type", cfg.Server.Auth.EffectiveHeader()}),
		)(h)
	}
	h = handlers.RecoveryHandler(handlers.PrintRecoveryStack(true))(h)
	h = handlers.LoggingHandler(os.Stdout, h)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		history.Run(gctx)
		return nil
	})

	g.Go(func() error {
		prev := cfg
		return config.Watch(gctx, configPath, func(next *config.Config) {
			applyReload(gctx, prev, next, reg, apiHandler, engine, level)
			prev = next
		})
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("window-qc-server shutting down")
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// applyReload pushes the hot-reloadable parts of next into the running
// components. Project metadata is only replaced when the file changed it, so
// edits made through the API survive unrelated reloads.
func applyReload(ctx context.Context, prev, next *config.Config, reg *registry.Registry, h *api.Handler, engine *alerts.Engine, level *slog.LevelVar) {
	level.Set(next.Server.Level())

	if k := next.Tolerance.WarningMultiplier; k != reg.WarningMultiplier() {
		changed := h.SetWarningMultiplier(ctx, k)
		slog.Info("warning multiplier reloaded", "k", k, "reclassified", changed)
	}
	h.SetDefaultLimit(next.Tolerance.DefaultLimit)
	if next.Project != prev.Project {
		h.SetProject(next.Project)
	}
	engine.SetRules(next.Alerts.Rules)

	slog.Info("config reloaded",
		"rules", len(next.Alerts.Rules),
		"default_limit", next.Tolerance.DefaultLimit,
	)
}

// spaHandler serves files from dir and falls back to index.html for unknown
// paths so client-side routing works.
func spaHandler(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if _, err := os.Stat(p); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	})
}
