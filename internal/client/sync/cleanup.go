package sync

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	tempPrefix = ".foldsync-"
	tempSuffix = ".tmp"
)

func isTempName(name string) bool {
	return strings.HasPrefix(name, tempPrefix) && strings.HasSuffix(name, tempSuffix)
}

// CleanupTempFiles removes stale temp siblings left behind by interrupted
// downloads. Called once at agent startup; a partial download only ever
// lives under a temp name, never under the target path.
func CleanupTempFiles(root string) (int, error) {
	removed := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isTempName(d.Name()) {
			return nil
		}
		if err := os.Remove(path); err == nil {
			removed++
		}
		return nil
	})
	return removed, err
}
