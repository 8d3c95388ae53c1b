// Package diff computes the server-side three-way diff between a client's
// reported tree and the authoritative manifest.
package diff

import (
	"sort"
	"time"

	"github.com/foldsync/foldsync/internal/wire"
)

// Compute compares the client's file statuses against the folder manifest.
//
// Per client path: unknown to the server -> upload; equal checksum -> in
// sync; differing checksum -> mtime tiebreak (client strictly newer wins
// the upload, otherwise the server copy is downloaded). Server paths the
// client never mentioned are downloads — absence is never treated as a
// delete, because absence also means "never synced on this device".
//
// The only deletes emitted are recent-deletes: a local path the server
// deliberately removed, where the client's copy predates the deletion.
// Anything the client touched after the deletion is an upload again.
func Compute(manifest map[string]wire.SyncFile, statuses []wire.FileStatus, recentDeletes map[string]time.Time) *wire.SyncDiff {
	result := &wire.SyncDiff{
		Upload:   []string{},
		Download: []wire.SyncFile{},
		Delete:   []string{},
	}

	seen := make(map[string]struct{}, len(statuses))
	for _, status := range statuses {
		seen[status.Path] = struct{}{}

		if deletedAt, ok := recentDeletes[status.Path]; ok && status.ModifiedAt.Before(deletedAt) {
			result.Delete = append(result.Delete, status.Path)
			continue
		}

		entry, ok := manifest[status.Path]
		if !ok {
			result.Upload = append(result.Upload, status.Path)
			continue
		}
		if entry.Checksum == status.Checksum {
			continue
		}
		if status.ModifiedAt.After(entry.UpdatedAt) {
			result.Upload = append(result.Upload, status.Path)
		} else {
			result.Download = append(result.Download, entry)
		}
	}

	for path, entry := range manifest {
		if _, ok := seen[path]; !ok {
			result.Download = append(result.Download, entry)
		}
	}

	sort.Strings(result.Upload)
	sort.Strings(result.Delete)
	sort.Slice(result.Download, func(i, j int) bool {
		return result.Download[i].Path < result.Download[j].Path
	})

	return result
}

// ManifestByPath builds the path-keyed map Compute expects.
func ManifestByPath(files []wire.SyncFile) map[string]wire.SyncFile {
	manifest := make(map[string]wire.SyncFile, len(files))
	for _, f := range files {
		manifest[f.Path] = f
	}
	return manifest
}
