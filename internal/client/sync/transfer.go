package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/foldsync/foldsync/internal/client/api"
	"github.com/foldsync/foldsync/internal/utils"
	"github.com/foldsync/foldsync/internal/wire"
)

const transferAttempts = 3

// withRetry retries transient transfer failures with exponential backoff
// (1s, 2s, 4s). Rejections and auth failures are returned immediately.
func withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt < transferAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * time.Second
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, transferTimeout)
		err = op(attemptCtx)
		cancel()

		if err == nil || !errors.Is(err, api.ErrTransient) {
			return err
		}
	}
	return err
}

func (e *Engine) uploadPath(ctx context.Context, relPath string) {
	if !e.locks.TryAcquire(relPath) {
		slog.Debug("upload skipped, transfer in flight", "path", relPath)
		return
	}
	defer e.locks.Release(relPath)

	absPath := e.absPath(relPath)
	info, err := os.Lstat(absPath)
	if err != nil || !info.Mode().IsRegular() {
		// changed underneath us since the diff; next cycle sorts it out
		return
	}

	err = withRetry(ctx, func(ctx context.Context) error {
		_, err := e.api.Upload(ctx, relPath, absPath)
		return err
	})
	if err != nil {
		slog.Warn("upload", "path", relPath, "error", err)
		return
	}

	slog.Info("upload", "path", relPath, "size", humanize.Bytes(uint64(info.Size())))
}

// downloadFile fetches the blob into a temp sibling, verifies its checksum
// against the manifest, fsyncs and atomically renames over the target. The
// target path never holds a partial write. A checksum mismatch discards
// the bytes and retries once.
func (e *Engine) downloadFile(ctx context.Context, file wire.SyncFile) {
	if !e.locks.TryAcquire(file.Path) {
		slog.Debug("download skipped, transfer in flight", "path", file.Path)
		return
	}
	defer e.locks.Release(file.Path)

	var err error
	for attempt := 0; attempt < 2; attempt++ {
		err = e.fetchAndCommit(ctx, file)
		if err == nil {
			slog.Info("download", "path", file.Path, "version", file.Version,
				"size", humanize.Bytes(uint64(file.Size)))
			return
		}
		if !errors.Is(err, errChecksumMismatch) {
			break
		}
	}
	slog.Warn("download", "path", file.Path, "error", err)
}

var errChecksumMismatch = errors.New("checksum mismatch")

func (e *Engine) fetchAndCommit(ctx context.Context, file wire.SyncFile) error {
	absPath := e.absPath(file.Path)
	if err := utils.EnsureParent(absPath); err != nil {
		return fmt.Errorf("ensure parent: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(absPath), tempPrefix+"*"+tempSuffix)
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	err = withRetry(ctx, func(ctx context.Context) error {
		return e.api.DownloadBlob(ctx, file.ID, tmpPath)
	})
	if err != nil {
		return err
	}

	checksum, err := utils.FileChecksum(tmpPath)
	if err != nil {
		return fmt.Errorf("hash download: %w", err)
	}
	if checksum != file.Checksum {
		return fmt.Errorf("%w: want %s got %s", errChecksumMismatch, file.Checksum, checksum)
	}

	f, err := os.OpenFile(tmpPath, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("reopen temp: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}

	if err := os.Rename(tmpPath, absPath); err != nil {
		return fmt.Errorf("commit download: %w", err)
	}
	success = true

	// advisory only, keeps the mtime tiebreak honest across devices
	if err := os.Chtimes(absPath, file.UpdatedAt, file.UpdatedAt); err != nil {
		slog.Debug("set mtime", "path", file.Path, "error", err)
	}
	return nil
}

// deleteLocal removes the path and prunes now-empty parent directories up
// to (but not including) the folder root. Already-absent paths are fine.
func (e *Engine) deleteLocal(relPath string) {
	if !e.locks.TryAcquire(relPath) {
		slog.Debug("delete skipped, transfer in flight", "path", relPath)
		return
	}
	defer e.locks.Release(relPath)

	absPath := e.absPath(relPath)
	if err := os.Remove(absPath); err != nil && !os.IsNotExist(err) {
		slog.Warn("delete local", "path", relPath, "error", err)
		return
	}
	slog.Info("delete local", "path", relPath)

	for dir := filepath.Dir(absPath); dir != e.root; dir = filepath.Dir(dir) {
		if err := os.Remove(dir); err != nil {
			break // not empty, or already gone
		}
	}
}

// deleteRemote propagates a local deletion observed by the watcher.
func (e *Engine) deleteRemote(ctx context.Context, relPath string) {
	if !e.locks.TryAcquire(relPath) {
		slog.Debug("remote delete skipped, transfer in flight", "path", relPath)
		return
	}
	defer e.locks.Release(relPath)

	opCtx, cancel := context.WithTimeout(ctx, controlTimeout)
	defer cancel()

	err := e.api.Delete(opCtx, relPath)
	switch {
	case err == nil:
		slog.Info("delete remote", "path", relPath)
	case errors.Is(err, api.ErrNotFound):
		// never synced, or a directory removal; nothing to do
		slog.Debug("delete remote, not on server", "path", relPath)
	default:
		slog.Warn("delete remote", "path", relPath, "error", err)
	}
}
