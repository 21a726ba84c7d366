// Warden - Behavioral Violation Detection and Escalation for Game Servers
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenmod/warden

// Package main is the Warden daemon.
//
// wardend wires the full violation pipeline -- actor ledger, dispatcher,
// escalation engine, moderation log, and maintenance services -- over a
// badger database, then supervises it until SIGINT/SIGTERM.
//
// The game-server integration points are the dispatch.Actor handle, the
// automod.Enforcer, and the dispatch.NotificationSink. Standalone wardend
// runs with logging placeholders for the last two; an embedding server
// replaces them with its own adapters and feeds detections through
// Dispatcher.Dispatch.
//
// Configuration is loaded via koanf from warden.yaml (or $WARDEN_CONFIG)
// layered under environment overrides, and hot-reloads on file change: an
// edited rule table applies atomically without a restart, and a rejected
// edit keeps the previous configuration active.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/wardenmod/warden/internal/automod"
	"github.com/wardenmod/warden/internal/config"
	"github.com/wardenmod/warden/internal/dispatch"
	"github.com/wardenmod/warden/internal/ledger"
	"github.com/wardenmod/warden/internal/logging"
	"github.com/wardenmod/warden/internal/modlog"
	"github.com/wardenmod/warden/internal/supervisor"
	"github.com/wardenmod/warden/internal/supervisor/services"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (default: search warden.yaml, $WARDEN_CONFIG)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("wardend %s\n", Version)
		return
	}

	if err := run(*configPath); err != nil {
		logging.Fatal().Err(err).Msg("wardend failed")
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("version", Version).
		Int("profiles", len(cfg.Profiles)).
		Int("ladders", len(cfg.Ladders)).
		Msg("wardend starting")

	db, err := openDatabase(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("database close failed")
		}
	}()

	provider := config.NewProvider(cfg)
	p := newPipeline(provider, db, &logEnforcer{}, &logNotificationSink{})
	defer p.close()
	logging.Info().Msg("dispatch pipeline ready")

	watchConfig(configPath, provider)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tree := supervisor.NewTree(logging.Slog(), supervisor.DefaultTreeConfig())
	tree.AddLedgerService(services.NewFlushService(p.store, cfg.Engine.FlushInterval))
	tree.AddMaintenanceService(services.NewDecayService(
		automod.NewSweeper(provider, p.store), cfg.Engine.DecaySweepInterval))
	tree.AddMaintenanceService(services.NewPurgeAgeService(
		p.store.Purge(), cfg.Engine.PurgeMaxAge, cfg.Engine.PurgeSweepInterval))
	if cfg.Modlog.Enabled {
		tree.AddMaintenanceService(services.NewRetentionService(
			p.modlogStore,
			time.Duration(cfg.Modlog.RetentionDays)*24*time.Hour,
			cfg.Modlog.CleanupInterval))
	}

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}

	logging.Info().Msg("shutting down, flushing ledger")
	if err := p.store.FlushAll(); err != nil {
		logging.Error().Err(err).Msg("shutdown flush failed")
	}
	return nil
}

// pipeline is the wired violation pipeline. An embedding game server builds
// one with newPipeline and feeds detections through Dispatcher.
type pipeline struct {
	Dispatcher *dispatch.Dispatcher

	store        *ledger.Store
	modlogStore  *modlog.BadgerStore
	modlogWriter *modlog.Logger
}

// newPipeline assembles the ledger, escalation engine, moderation log, and
// dispatcher over the shared database. The enforcer and notification sink
// are the host's adapters; standalone wardend passes logging placeholders.
func newPipeline(provider *config.Provider, db *badger.DB, enforcer automod.Enforcer, notifySink dispatch.NotificationSink) *pipeline {
	cfg := provider.Current()
	store := ledger.NewStore(db, provider)
	modlogStore := modlog.NewBadgerStore(db)

	var sink modlog.Sink = modlog.Discard{}
	var writer *modlog.Logger
	if cfg.Modlog.Enabled {
		writer = modlog.NewLogger(modlogStore, cfg.Modlog.BufferSize)
		sink = writer
	}

	notifier := dispatch.NewNotifier(provider, notifySink)
	engine := automod.NewEngine(provider, enforcer, sink, notifier)
	return &pipeline{
		Dispatcher:   dispatch.NewDispatcher(provider, store, engine, sink, notifier),
		store:        store,
		modlogStore:  modlogStore,
		modlogWriter: writer,
	}
}

// close drains the buffered moderation log writer, if one is running.
func (p *pipeline) close() {
	if p.modlogWriter != nil {
		p.modlogWriter.Close()
	}
}

func openDatabase(path string) (*badger.DB, error) {
	var opts badger.Options
	if path == "" {
		logging.Warn().Msg("no database path configured, running in-memory")
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o750); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(path)
	}
	return badger.Open(opts.WithLogger(nil))
}

// watchConfig hot-reloads the rule tables when the config file changes.
func watchConfig(configPath string, provider *config.Provider) {
	path := configPath
	if path == "" {
		path = config.FindConfigFile()
	}
	if path == "" {
		return
	}

	err := config.WatchConfigFile(path, func() {
		next, err := config.Load(path)
		if err != nil {
			logging.Warn().Err(err).Msg("config reload rejected, keeping active configuration")
			return
		}
		provider.Reload(next)
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("config watch unavailable")
	}
}

// logEnforcer is the standalone placeholder for the game-server enforcement
// adapter. Actions are logged, not carried out.
type logEnforcer struct{}

func (logEnforcer) Warn(target automod.Target, message string) error {
	logging.Info().Str("actor_name", target.Name()).Str("message", message).Msg("enforce: warn")
	return nil
}

func (logEnforcer) Kick(target automod.Target, message string) error {
	logging.Info().Str("actor_name", target.Name()).Str("message", message).Msg("enforce: kick")
	return nil
}

func (logEnforcer) Teleport(target automod.Target) (automod.Coordinates, error) {
	logging.Info().Str("actor_name", target.Name()).Msg("enforce: teleport")
	return automod.Coordinates{}, nil
}

func (logEnforcer) RemoveItem(target automod.Target, itemID string, quantity int) (int, error) {
	logging.Info().Str("actor_name", target.Name()).Str("item_id", itemID).Msg("enforce: remove item")
	return quantity, nil
}

// logNotificationSink delivers operator notifications to the structured log.
// Embedding servers replace this with a staff channel or webhook adapter.
type logNotificationSink struct{}

func (logNotificationSink) Send(message string) error {
	logging.Info().Str("channel", "operators").Msg(message)
	return nil
}
