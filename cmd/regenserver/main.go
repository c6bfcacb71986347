package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/blockregen/internal/admin"
	"github.com/udisondev/blockregen/internal/bridge"
	"github.com/udisondev/blockregen/internal/config"
	"github.com/udisondev/blockregen/internal/coordinator"
	"github.com/udisondev/blockregen/internal/journal"
	"github.com/udisondev/blockregen/internal/notify"
	"github.com/udisondev/blockregen/internal/placement"
	"github.com/udisondev/blockregen/internal/regen"
	"github.com/udisondev/blockregen/internal/systems"
)

const DefaultConfigPath = "config/blockregen.yaml"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfgPath := DefaultConfigPath
	if p := os.Getenv("BLOCKREGEN_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))

	slog.Info("blockregen daemon starting",
		"log_level", cfg.LogLevel,
		"addr", cfg.Addr(),
		"blocks", cfg.BlocksPath)

	// Seeding is best effort; the loader falls back to defaults.
	if _, err := config.Bootstrap(cfg.BlocksPath); err != nil {
		slog.Warn("seeding block regen config failed", "path", cfg.BlocksPath, "error", err)
	}

	store, err := journal.Open(ctx, cfg.Journal)
	if err != nil {
		return fmt.Errorf("opening journal: %w", err)
	}
	defer store.Close()
	journalWriter := journal.NewWriter(store, cfg.Journal.BufferSize)

	coord := coordinator.New(config.NewBlocksLoader(cfg.BlocksPath), regen.NewEngine(nil), placement.NewQueue())
	res := coord.Initialize()
	slog.Info("block regen initialized", "enabled", res.Enabled, "definitions", res.DefinitionsLoaded)

	hub := bridge.NewHub(cfg.BridgeTokenHash)
	if cfg.BridgeTokenHash == "" {
		slog.Warn("bridge_token_hash is empty, bridge accepts any host")
	}

	throttle := notify.NewThrottle(hub, coord.NotifyCooldownMillis)
	hub.SetHandlers(bridge.Handlers{
		Break:  systems.NewBreakSystem(coord, throttle, journalWriter),
		Damage: systems.NewDamageGate(coord, throttle),
		Command: admin.NewDefaultHandler(admin.Deps{
			Coord:    coord,
			Throttle: throttle,
			Journal:  journalWriter,
			Now:      func() int64 { return time.Now().UnixMilli() },
		}),
	})

	respawns := systems.NewRespawnTicker(coord, hub, hub, journalWriter, cfg.RespawnPollInterval)
	placements := systems.NewPlacementTicker(coord, hub, hub, journalWriter, cfg.PlacementPollInterval)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return respawns.Run(gctx)
	})

	g.Go(func() error {
		return placements.Run(gctx)
	})

	g.Go(func() error {
		slog.Info("starting journal writer", "driver", cfg.Journal.Driver, "buffer", cfg.Journal.BufferSize)
		if err := journalWriter.Run(gctx); err != nil {
			return fmt.Errorf("journal writer: %w", err)
		}
		slog.Info("journal writer stopped", "written", journalWriter.Written(), "dropped", journalWriter.Dropped())
		return nil
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newMux(hub, coord),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		slog.Info("starting bridge server", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("bridge server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
