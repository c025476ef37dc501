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

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"jvsview/internal/catalog"
	"jvsview/internal/config"
	"jvsview/internal/logger"
	"jvsview/internal/metrics"
	"jvsview/internal/player/remote"
	"jvsview/internal/render"
	"jvsview/internal/scheduler"
	"jvsview/internal/server"
	"jvsview/internal/session"
	"jvsview/internal/store"
	"jvsview/internal/version"
)

func main() {
	envFile := flag.String("env", ".env", "path to an optional .env file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		v := version.Get()
		fmt.Printf("jvsview %s (%s, %s)\n", v.Version, v.Commit, v.GoVersion)
		return
	}

	if err := config.LoadEnv(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "loading %s: %v\n", *envFile, err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return err
	}
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()
	if err := st.Migrate(); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	m := metrics.New()

	var clientOpts []catalog.Option
	if cfg.CatalogRateLimit > 0 {
		clientOpts = append(clientOpts, catalog.WithRateLimit(cfg.CatalogRateLimit, 1))
	}
	client, err := catalog.NewClient(cfg.ServerAddress, clientOpts...)
	if err != nil {
		return fmt.Errorf("catalog client: %w", err)
	}

	poller := catalog.NewPoller(client, cfg.RefreshInterval,
		catalog.WithLogger(log.With("component", "catalog")),
		catalog.WithRecorder(m),
	)

	hubOpts := []remote.Option{remote.WithLogger(log.With("component", "surface"))}
	if cfg.CORSOrigin != "" {
		hubOpts = append(hubOpts, remote.WithCheckOrigin(func(r *http.Request) bool {
			o := r.Header.Get("Origin")
			return o == "" || o == cfg.CORSOrigin || o == "http://"+r.Host || o == "https://"+r.Host
		}))
	}
	hub := remote.NewHub(hubOpts...)

	sessionLog := log.With("component", "session")
	sessions := session.NewManager(client, hub, hub, hub,
		session.WithLogger(sessionLog),
		session.WithPresenter(session.NewPresenter(sessionLog, hub, m)),
		session.WithRecorder(st),
		session.WithMetrics(m),
		session.WithClockSyncURI(cfg.ClockSyncURI),
	)

	renderer := render.New(render.WithLocation(cfg.DateLocation), render.WithLocale(cfg.Locale))
	srv := server.NewServer(poller, sessions, renderer,
		server.WithLogger(log.With("component", "http")),
		server.WithHistory(st),
		server.WithSurface(hub),
		server.WithMetrics(m),
		server.WithCORSOrigin(cfg.CORSOrigin),
		server.WithRefreshInterval(cfg.RefreshInterval),
		server.WithRefreshLimit(rate.Every(time.Second), 3),
	)

	sch := scheduler.New(st, cfg.HistoryRetention, scheduler.WithLogger(log.With("component", "scheduler")))

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpServer.RegisterOnShutdown(srv.Close)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	poller.Start(ctx)
	defer poller.Stop()
	sessions.Start(ctx)
	defer sessions.Close()
	sch.Start(ctx)
	defer sch.Stop()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.PauseRefresh {
		g.Go(func() error {
			followSession(gctx, sessions, poller)
			return nil
		})
	}

	g.Go(func() error {
		log.Info("jvsview listening", "addr", cfg.ListenAddr, "catalog", client.BaseURL(), "version", version.Get().Version)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", "error", err)
		}
		return nil
	})

	return g.Wait()
}

// followSession pauses background catalog refresh while a session is active.
func followSession(ctx context.Context, sessions *session.Manager, poller *catalog.Poller) {
	ch := sessions.Subscribe()
	defer sessions.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-ch:
			if !ok {
				return
			}
			if snap.Active() {
				poller.Pause()
			} else {
				poller.Resume()
			}
		}
	}
}
