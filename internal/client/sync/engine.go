// Package sync drives the client side of the protocol: scan, ask the
// server for a diff, execute it, repeat. The watcher feeds targeted
// uploads and deletes between full reconciles; the periodic reconcile is
// the correctness backstop, the watcher only a latency optimisation.
package sync

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	stdsync "sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/foldsync/foldsync/internal/client/api"
	"github.com/foldsync/foldsync/internal/client/scanner"
	"github.com/foldsync/foldsync/internal/client/watcher"
	"github.com/foldsync/foldsync/internal/wire"
)

const (
	DefaultSyncInterval = 5 * time.Minute
	DefaultMaxTransfers = 4

	controlTimeout  = 30 * time.Second
	transferTimeout = 5 * time.Minute
)

var ErrSyncAlreadyRunning = errors.New("sync already running")

type Options struct {
	SyncInterval time.Duration
	MaxTransfers int
}

type Engine struct {
	root     string
	clientID string
	api      *api.Client
	scanner  *scanner.Scanner
	locks    *pathLocks
	interval time.Duration
	sem      chan struct{}
	wg       stdsync.WaitGroup
	muSync   stdsync.Mutex
}

func NewEngine(root, clientID string, apiClient *api.Client, sc *scanner.Scanner, opts Options) *Engine {
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = DefaultSyncInterval
	}
	if opts.MaxTransfers <= 0 {
		opts.MaxTransfers = DefaultMaxTransfers
	}
	return &Engine{
		root:     root,
		clientID: clientID,
		api:      apiClient,
		scanner:  sc,
		locks:    newPathLocks(),
		interval: opts.SyncInterval,
		sem:      make(chan struct{}, opts.MaxTransfers),
	}
}

// Run performs the initial reconcile, then alternates between settled
// watcher events and the periodic full reconcile until the context ends.
func (e *Engine) Run(ctx context.Context, events <-chan watcher.Event) error {
	slog.Info("sync engine start", "interval", e.interval)

	if err := e.Reconcile(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("initial sync", "error", err)
	}

	// a timer instead of a ticker, so a slow reconcile never queues ticks
	timer := time.NewTimer(e.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			e.wg.Wait()
			slog.Info("sync engine stop")
			return nil

		case <-timer.C:
			if err := e.Reconcile(ctx); err != nil &&
				!errors.Is(err, context.Canceled) && !errors.Is(err, ErrSyncAlreadyRunning) {
				slog.Error("periodic sync", "error", err)
			}
			timer.Reset(e.interval)

		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			e.handleEvent(ctx, event)
		}
	}
}

// Reconcile runs one full diff-and-execute round. Steady state against an
// unchanged tree yields an empty diff and does nothing.
func (e *Engine) Reconcile(ctx context.Context) error {
	if !e.muSync.TryLock() {
		return ErrSyncAlreadyRunning
	}
	defer e.muSync.Unlock()

	tstart := time.Now()

	local, err := e.scanner.Scan(ctx)
	if err != nil {
		return err
	}

	statusCtx, cancel := context.WithTimeout(ctx, controlTimeout)
	result, err := e.api.Status(statusCtx, e.clientID, local)
	cancel()
	if err != nil {
		return err
	}

	if result.Empty() {
		return nil
	}

	e.execute(ctx, result)

	slog.Info("reconcile", "took", time.Since(tstart),
		"uploads", len(result.Upload),
		"downloads", len(result.Download),
		"deletes", len(result.Delete))
	return nil
}

// execute runs uploads and downloads concurrently, then applies local
// deletes. Reconcile transfers and watcher-event transfers share e.sem, so
// the in-flight bound holds across both even when they overlap. Per-file
// failures are logged and left for the next cycle; they never abort the
// batch.
func (e *Engine) execute(ctx context.Context, result *wire.SyncDiff) {
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(cap(e.sem))

	for _, relPath := range result.Upload {
		eg.Go(func() error {
			if !e.acquireSlot(egCtx) {
				return nil
			}
			defer e.releaseSlot()
			e.uploadPath(egCtx, relPath)
			return nil
		})
	}
	for _, file := range result.Download {
		eg.Go(func() error {
			if !e.acquireSlot(egCtx) {
				return nil
			}
			defer e.releaseSlot()
			e.downloadFile(egCtx, file)
			return nil
		})
	}
	eg.Wait()

	// deletes run after downloads so a rename observed as delete+create
	// never drops data within one cycle
	for _, relPath := range result.Delete {
		e.deleteLocal(relPath)
	}
}

func (e *Engine) acquireSlot(ctx context.Context) bool {
	select {
	case e.sem <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (e *Engine) releaseSlot() {
	<-e.sem
}

// handleEvent dispatches a settled watcher event to the transfer pool.
// Event intake is never blocked on network I/O.
func (e *Engine) handleEvent(ctx context.Context, event watcher.Event) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		if !e.acquireSlot(ctx) {
			return
		}
		defer e.releaseSlot()

		absPath := e.absPath(event.Path)
		info, err := os.Lstat(absPath)
		switch {
		case err == nil && info.Mode().IsRegular():
			e.uploadPath(ctx, event.Path)
		case err == nil:
			// directories and special files are not tracked
		case os.IsNotExist(err):
			e.deleteRemote(ctx, event.Path)
		default:
			slog.Warn("watcher stat", "path", event.Path, "error", err)
		}
	}()
}

func (e *Engine) absPath(relPath string) string {
	return filepath.Join(e.root, filepath.FromSlash(relPath))
}
