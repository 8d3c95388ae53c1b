// Package scanner walks the local tree and produces the manifest snapshot
// sent to the diff endpoint.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/foldsync/foldsync/internal/utils"
	"github.com/foldsync/foldsync/internal/wire"
)

const checksumCacheSize = 8192

type cacheEntry struct {
	size     int64
	modTime  time.Time
	checksum string
}

type Scanner struct {
	root string

	// checksum cache keyed by relative path, valid while (size, mtime)
	// are unchanged. Re-hashing a large tree on every reconcile would
	// dominate the cycle otherwise.
	cache *lru.Cache[string, cacheEntry]
}

func New(root string) (*Scanner, error) {
	cache, err := lru.New[string, cacheEntry](checksumCacheSize)
	if err != nil {
		return nil, err
	}
	return &Scanner{
		root:  root,
		cache: cache,
	}, nil
}

// Scan walks the tree and emits one FileStatus per regular file, sorted by
// path. Hidden entries (any component starting with a dot) are skipped
// entirely; symlinks are not followed. Output is deterministic for a fixed
// tree.
func (s *Scanner) Scan(ctx context.Context) ([]wire.FileStatus, error) {
	var statuses []wire.FileStatus

	walkFn := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walk %q: %w", path, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if d.IsDir() {
			if path != s.root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		// regular files only; symlinks and special files are ignored
		if !d.Type().IsRegular() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}

		relPath, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)
		if wire.IsHiddenPath(relPath) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		checksum, err := s.checksum(path, relPath, info)
		if err != nil {
			slog.Warn("scan checksum", "path", relPath, "error", err)
			return nil
		}

		statuses = append(statuses, wire.FileStatus{
			Path:       relPath,
			Checksum:   checksum,
			Size:       info.Size(),
			ModifiedAt: info.ModTime().UTC(),
		})
		return nil
	}

	if err := filepath.WalkDir(s.root, walkFn); err != nil {
		return nil, err
	}

	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].Path < statuses[j].Path
	})
	return statuses, nil
}

func (s *Scanner) checksum(absPath, relPath string, info fs.FileInfo) (string, error) {
	if cached, ok := s.cache.Get(relPath); ok &&
		cached.size == info.Size() && cached.modTime.Equal(info.ModTime()) {
		return cached.checksum, nil
	}

	checksum, err := utils.FileChecksum(absPath)
	if err != nil {
		return "", err
	}

	s.cache.Add(relPath, cacheEntry{
		size:     info.Size(),
		modTime:  info.ModTime(),
		checksum: checksum,
	})
	return checksum, nil
}
