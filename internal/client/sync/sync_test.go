package sync

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foldsync/foldsync/internal/utils"
)

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	absPath := filepath.Join(root, filepath.FromSlash(relPath))
	require.NoError(t, utils.EnsureParent(absPath))
	require.NoError(t, os.WriteFile(absPath, []byte(content), 0o644))
}

func TestIsTempName(t *testing.T) {
	assert.True(t, isTempName(".foldsync-12345.tmp"))
	assert.False(t, isTempName("report.txt"))
	assert.False(t, isTempName(".foldsync.lock"))
	assert.False(t, isTempName("foldsync-12345.tmp"))
}

func TestCleanupTempFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.txt", "data")
	writeFile(t, root, ".foldsync-abc.tmp", "partial")
	writeFile(t, root, "sub/.foldsync-def.tmp", "partial")
	writeFile(t, root, "sub/keep2.txt", "data")

	removed, err := CleanupTempFiles(root)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	assert.FileExists(t, filepath.Join(root, "keep.txt"))
	assert.FileExists(t, filepath.Join(root, "sub", "keep2.txt"))
	assert.NoFileExists(t, filepath.Join(root, ".foldsync-abc.tmp"))
	assert.NoFileExists(t, filepath.Join(root, "sub", ".foldsync-def.tmp"))
}

func TestPathLocks(t *testing.T) {
	locks := newPathLocks()

	require.True(t, locks.TryAcquire("a.txt"))
	assert.False(t, locks.TryAcquire("a.txt"), "held path cannot be re-acquired")
	assert.True(t, locks.TryAcquire("b.txt"), "other paths are independent")

	locks.Release("a.txt")
	assert.True(t, locks.TryAcquire("a.txt"))
}

func TestDeleteLocalPrunesEmptyParents(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/b/c/deep.txt", "bytes")
	writeFile(t, root, "a/keep.txt", "bytes")

	e := NewEngine(root, "client", nil, nil, Options{})
	e.deleteLocal("a/b/c/deep.txt")

	assert.NoFileExists(t, filepath.Join(root, "a", "b", "c", "deep.txt"))
	assert.NoDirExists(t, filepath.Join(root, "a", "b", "c"))
	assert.NoDirExists(t, filepath.Join(root, "a", "b"))

	// a/ still holds keep.txt and must survive
	assert.DirExists(t, filepath.Join(root, "a"))
	assert.FileExists(t, filepath.Join(root, "a", "keep.txt"))
}

func TestDeleteLocalMissingPath(t *testing.T) {
	root := t.TempDir()
	e := NewEngine(root, "client", nil, nil, Options{})

	// already gone is not an error, and the root is never pruned
	e.deleteLocal("never/existed.txt")
	assert.DirExists(t, root)
}

func TestDeleteLocalSkipsBusyPath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "busy.txt", "bytes")

	e := NewEngine(root, "client", nil, nil, Options{})
	require.True(t, e.locks.TryAcquire("busy.txt"))

	e.deleteLocal("busy.txt")
	assert.FileExists(t, filepath.Join(root, "busy.txt"), "in-flight path is left alone")
}
