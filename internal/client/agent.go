// Package client assembles the sync agent: config, server session, scanner,
// watcher and the sync engine, with a lock guarding the synced tree against
// a second agent instance.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"github.com/foldsync/foldsync/internal/client/api"
	"github.com/foldsync/foldsync/internal/client/config"
	"github.com/foldsync/foldsync/internal/client/scanner"
	syncengine "github.com/foldsync/foldsync/internal/client/sync"
	"github.com/foldsync/foldsync/internal/client/watcher"
)

// lockFileName lives inside the synced tree; the dot prefix keeps it out
// of scans and watcher events.
const lockFileName = ".foldsync.lock"

const connectTimeout = 30 * time.Second

type Options struct {
	SyncInterval time.Duration
	MaxTransfers int
	Debounce     time.Duration
}

type Agent struct {
	config  *config.Config
	api     *api.Client
	scanner *scanner.Scanner
	engine  *syncengine.Engine
	watcher *watcher.Watcher
	lock    *flock.Flock
}

// New validates the config, locks the local tree and establishes the server
// session, registering this device on first run.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Agent, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	lock := flock.New(filepath.Join(cfg.LocalPath, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %q: %w", cfg.LocalPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("another agent is already syncing %q", cfg.LocalPath)
	}

	if removed, err := syncengine.CleanupTempFiles(cfg.LocalPath); err != nil {
		slog.Warn("temp file cleanup", "error", err)
	} else if removed > 0 {
		slog.Info("removed stale temp files", "count", removed)
	}

	apiClient := api.New(cfg.APIURL, cfg.APIKey)

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := apiClient.Connect(connectCtx); err != nil {
		lock.Unlock()
		return nil, err
	}

	if cfg.ClientID == "" {
		registered, err := apiClient.Register(connectCtx, cfg.DeviceName)
		if err != nil {
			lock.Unlock()
			return nil, err
		}
		cfg.ClientID = registered.ID
		if err := cfg.Save(); err != nil {
			lock.Unlock()
			return nil, fmt.Errorf("persist client id: %w", err)
		}
		slog.Info("registered device", "device", cfg.DeviceName, "client_id", cfg.ClientID)
	}

	sc, err := scanner.New(cfg.LocalPath)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	engine := syncengine.NewEngine(cfg.LocalPath, cfg.ClientID, apiClient, sc, syncengine.Options{
		SyncInterval: opts.SyncInterval,
		MaxTransfers: opts.MaxTransfers,
	})

	return &Agent{
		config:  cfg,
		api:     apiClient,
		scanner: sc,
		engine:  engine,
		watcher: watcher.New(cfg.LocalPath, opts.Debounce),
		lock:    lock,
	}, nil
}

// Run starts the watcher and the sync engine and blocks until the context
// is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	defer a.lock.Unlock()

	slog.Info("agent start",
		"folder", a.api.FolderID(),
		"dir", a.config.LocalPath,
		"device", a.config.DeviceName)

	if err := a.watcher.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer a.watcher.Stop()

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return a.engine.Run(egCtx, a.watcher.Events())
	})
	return eg.Wait()
}

// SyncOnce runs a single reconcile round and returns. Used by the one-shot
// sync command.
func (a *Agent) SyncOnce(ctx context.Context) error {
	defer a.lock.Unlock()
	return a.engine.Reconcile(ctx)
}
